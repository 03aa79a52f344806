package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// Logger defines the logging interface required by the auditor.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// ProjectAuditor audits the student projects of one course group.
// Projects are evaluated one after another; each evaluation starts from
// fresh host data and shares nothing with the previous one.
type ProjectAuditor struct {
	host       domain.SourceHost
	policy     domain.Policy
	classifier *Classifier
	engine     *RuleEngine
	logger     Logger
}

// NewProjectAuditor creates a ProjectAuditor with the given dependencies.
// concurrency caps the per-commit requests in flight; zero selects DefaultConcurrency.
func NewProjectAuditor(
	host domain.SourceHost,
	policy domain.Policy,
	concurrency int,
	log Logger,
) *ProjectAuditor {
	classifier := NewClassifier(policy)
	return &ProjectAuditor{
		host:       host,
		policy:     policy,
		classifier: classifier,
		engine:     NewRuleEngine(policy, classifier, NewCommitFetcher(host, concurrency), log),
		logger:     log,
	}
}

// Run audits every project of the configured group whose name matches the filter.
// A project that cannot be evaluated is reported as an anomaly and the run moves on.
// Only failures to locate the group itself are returned.
func (a *ProjectAuditor) Run(
	ctx context.Context,
	input domain.AuditInput,
	out domain.ReportWriter,
) (*domain.AuditSummary, error) {
	a.logger.Info(ctx, "starting audit", map[string]interface{}{
		"group_search":   a.policy.GroupSearch,
		"group_path":     a.policy.GroupPath,
		"project_filter": input.ProjectFilter,
		"paranoid":       input.Paranoid,
	})

	group, err := a.findGroup(ctx)
	if err != nil {
		return nil, err
	}

	projects, err := a.host.ListGroupProjects(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects of group %s: %w", group.FullPath, err)
	}

	summary := &domain.AuditSummary{}
	for _, project := range projects {
		if !strings.Contains(project.Name, input.ProjectFilter) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report, err := a.AuditProject(ctx, project, input.Paranoid)
		if err != nil {
			a.logger.Error(ctx, "failed to audit project", err, map[string]interface{}{
				"project":    project.Name,
				"project_id": project.ID,
			})
			report.Anomalies = append(report.Anomalies, projectAnomaly(err))
		}

		summary.ProjectsChecked++
		if report.Failed() {
			summary.ProjectsFailed++
		}
		summary.MembersChecked += len(report.Members)
		summary.Anomalies += len(report.Anomalies)

		if err := out.WriteProjectReport(report); err != nil {
			a.logger.Warn(ctx, "failed to write project report", map[string]interface{}{
				"project": project.Name,
				"error":   err.Error(),
			})
		}
	}

	a.logger.Info(ctx, "audit complete", map[string]interface{}{
		"projects_checked": summary.ProjectsChecked,
		"projects_failed":  summary.ProjectsFailed,
		"members_checked":  summary.MembersChecked,
		"anomalies":        summary.Anomalies,
	})
	return summary, nil
}

// AuditProject evaluates one project. The returned report is never nil; on
// error it holds whatever was gathered before the failure.
func (a *ProjectAuditor) AuditProject(
	ctx context.Context,
	project domain.Project,
	paranoid bool,
) (*domain.ProjectReport, error) {
	report := &domain.ProjectReport{Project: project, Paranoid: paranoid}

	team, err := a.loadTeam(ctx, project)
	if err != nil {
		return report, err
	}

	commits, err := a.host.ListCommits(ctx, project.ID, project.DefaultBranch)
	if err != nil {
		return report, fmt.Errorf("failed to list commits: %w", err)
	}
	if len(commits) == 0 {
		return report, fmt.Errorf("%w on %s", domain.ErrNoCommits, project.DefaultBranch)
	}

	a.logger.Debug(ctx, "retrieved project history", map[string]interface{}{
		"project":      project.Name,
		"commits":      len(commits),
		"team_authors": team.Len(),
	})

	classified := a.classifier.Classify(commits)
	agg := Aggregate(classified, team)

	report.ProjectVerdicts = append(report.ProjectVerdicts,
		a.engine.EvaluateFirstCommit(ctx, project.ID, classified, team))
	report.Anomalies = append(report.Anomalies, agg.Unresolved...)

	for _, m := range agg.Members {
		report.Members = append(report.Members, domain.MemberReport{
			Member:       m.Member,
			AuthorName:   m.AuthorName,
			TotalCommits: len(m.Commits),
			Verdicts:     a.engine.EvaluateMember(ctx, project.ID, m, agg.TeamMaxNonMerge, paranoid),
		})
	}

	a.logger.Info(ctx, "project audited", map[string]interface{}{
		"project":           project.Name,
		"members":           len(report.Members),
		"unresolved":        len(agg.Unresolved),
		"team_max_nonmerge": agg.TeamMaxNonMerge,
	})
	return report, nil
}

func (a *ProjectAuditor) findGroup(ctx context.Context) (*domain.Group, error) {
	groups, err := a.host.ListGroups(ctx, a.policy.GroupSearch)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	for i := range groups {
		if groups[i].Path == a.policy.GroupPath {
			return &groups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: path %q under search %q",
		domain.ErrGroupNotFound, a.policy.GroupPath, a.policy.GroupSearch)
}

func (a *ProjectAuditor) loadTeam(ctx context.Context, project domain.Project) (*domain.TeamDirectory, error) {
	raw, err := a.host.GetFileContent(ctx, project.ID, a.policy.TeamFile, project.DefaultBranch)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s on %s", domain.ErrTeamFileMissing, a.policy.TeamFile, project.DefaultBranch)
		}
		return nil, fmt.Errorf("failed to read %s: %w", a.policy.TeamFile, err)
	}

	team, err := domain.ParseTeamDirectory(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.policy.TeamFile, err)
	}
	return team, nil
}

// projectAnomaly converts a project evaluation error into a report record.
func projectAnomaly(err error) domain.Anomaly {
	kind := domain.AnomalyProjectError
	switch {
	case errors.Is(err, domain.ErrTeamFileMissing):
		kind = domain.AnomalyMissingTeamFile
	case errors.Is(err, domain.ErrNoCommits):
		kind = domain.AnomalyNoCommits
	}
	return domain.Anomaly{Kind: kind, Detail: err.Error()}
}
