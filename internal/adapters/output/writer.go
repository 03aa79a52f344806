// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// Line markers.
const (
	markPass    = "✅"
	markFail    = "❌"
	markUnknown = "❔"
)

// projectRow is one line of the summary table.
type projectRow struct {
	name      string
	members   int
	passed    int
	failed    int
	unknown   int
	anomalies int
	status    string
}

// Writer renders audit reports as human-readable lines.
// By default, it writes to stdout and colors lines when stdout is a terminal.
type Writer struct {
	out io.Writer

	pass    *color.Color
	fail    *color.Color
	unknown *color.Color
	header  *color.Color

	paranoidNoticed bool
	rows            []projectRow
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return NewWriterWithOutput(os.Stdout, !color.NoColor)
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer, useColor bool) *Writer {
	w := &Writer{
		out:     out,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		unknown: color.New(color.FgYellow),
		header:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{w.pass, w.fail, w.unknown, w.header} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return w
}

// WriteProjectReport writes every verdict and anomaly of one project.
func (w *Writer) WriteProjectReport(report *domain.ProjectReport) error {
	var b strings.Builder

	if report.Paranoid && !w.paranoidNoticed {
		w.paranoidNoticed = true
		b.WriteString("Running in Paranoid Mode. Only considering commits with all success.\n")
	}

	b.WriteString("\n\n")
	b.WriteString(w.header.Sprintf("Checking project %s (%d)", report.Project.Name, report.Project.ID))
	b.WriteString("\n")

	row := projectRow{name: report.Project.Name, members: len(report.Members), status: "ok"}
	if report.Failed() {
		row.status = "failed"
	}

	for _, a := range report.Anomalies {
		if a.Kind == domain.AnomalyUnresolvedAuthor {
			continue
		}
		row.anomalies++
		b.WriteString(w.fail.Sprint(projectAnomalyLine(report.Project, a)))
		b.WriteString("\n")
	}

	for _, v := range report.ProjectVerdicts {
		w.countVerdict(&row, v)
		b.WriteString(w.verdictLine(v))
		b.WriteString("\n")
	}

	for _, group := range groupUnresolved(report.Anomalies) {
		row.anomalies += group.commits
		line := fmt.Sprintf("%s No member found for commit author %s", markFail, group.author)
		if group.commits > 1 {
			line += fmt.Sprintf(" (%d commits)", group.commits)
		}
		b.WriteString(w.fail.Sprint(line))
		b.WriteString("\n")
	}

	for _, m := range report.Members {
		b.WriteString(w.header.Sprintf("Checking %s, %s (%d commits)", m.Member, m.AuthorName, m.TotalCommits))
		b.WriteString("\n")
		for _, v := range m.Verdicts {
			w.countVerdict(&row, v)
			b.WriteString(w.verdictLine(v))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	w.rows = append(w.rows, row)

	_, err := io.WriteString(w.out, b.String())
	return err
}

// WriteSummary writes a table of every project written so far followed by
// the run totals.
func (w *Writer) WriteSummary(summary *domain.AuditSummary) error {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Project", "Members", "Passed", "Failed", "Unknown", "Anomalies", "Status"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range w.rows {
		status := w.pass.Sprint(r.status)
		if r.status != "ok" {
			status = w.fail.Sprint(r.status)
		}
		table.Append([]string{
			r.name,
			strconv.Itoa(r.members),
			strconv.Itoa(r.passed),
			strconv.Itoa(r.failed),
			strconv.Itoa(r.unknown),
			strconv.Itoa(r.anomalies),
			status,
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d projects", summary.ProjectsChecked),
		strconv.Itoa(summary.MembersChecked),
		"", "", "",
		strconv.Itoa(summary.Anomalies),
		fmt.Sprintf("%d failed", summary.ProjectsFailed),
	})
	table.Render()

	_, err := fmt.Fprintf(w.out, "\n%s", buf.String())
	return err
}

func (w *Writer) countVerdict(row *projectRow, v domain.RuleVerdict) {
	switch v.Outcome {
	case domain.OutcomePass:
		row.passed++
	case domain.OutcomeFail:
		row.failed++
	default:
		row.unknown++
	}
}

// verdictLine renders "✅ message (observed/threshold)". Yes/no rules omit the numbers.
func (w *Writer) verdictLine(v domain.RuleVerdict) string {
	switch v.Outcome {
	case domain.OutcomePass:
		return w.pass.Sprint(markPass + " " + v.Message + numbers(v))
	case domain.OutcomeFail:
		return w.fail.Sprint(markFail + " " + v.Message + numbers(v))
	default:
		reason := v.Reason
		if reason == "" {
			reason = "data unavailable"
		}
		return w.unknown.Sprintf("%s %s (unknown: %s)", markUnknown, v.Message, reason)
	}
}

func numbers(v domain.RuleVerdict) string {
	if v.Boolean {
		return ""
	}
	return " (" + formatNumber(v.Observed) + "/" + formatNumber(v.Threshold) + ")"
}

// formatNumber drops float noise: 3.5999999999999996 renders as 3.6.
func formatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func projectAnomalyLine(project domain.Project, a domain.Anomaly) string {
	switch a.Kind {
	case domain.AnomalyNoCommits:
		return markFail + " No commits found"
	case domain.AnomalyMissingTeamFile:
		return fmt.Sprintf("%s No team file found (%s)", markFail, a.Detail)
	default:
		return fmt.Sprintf("%s Error checking project %s (%d): %s", markFail, project.Name, project.ID, a.Detail)
	}
}

type authorGroup struct {
	author  string
	commits int
}

// groupUnresolved folds unresolved-author anomalies into one entry per author,
// in first-appearance order.
func groupUnresolved(anomalies []domain.Anomaly) []authorGroup {
	var groups []authorGroup
	index := make(map[string]int)
	for _, a := range anomalies {
		if a.Kind != domain.AnomalyUnresolvedAuthor {
			continue
		}
		i, ok := index[a.AuthorName]
		if !ok {
			i = len(groups)
			index[a.AuthorName] = i
			groups = append(groups, authorGroup{author: a.AuthorName})
		}
		groups[i].commits++
	}
	return groups
}
