package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// errNoMemberCommit is the unknown-reason for projects without a single roster commit.
var errNoMemberCommit = errors.New("no commit authored by a team member")

// RuleEngine evaluates the fixed rule battery.
type RuleEngine struct {
	policy     domain.Policy
	classifier *Classifier
	fetcher    *CommitFetcher
	logger     Logger
}

// NewRuleEngine creates a RuleEngine reading per-commit data through fetcher.
func NewRuleEngine(policy domain.Policy, classifier *Classifier, fetcher *CommitFetcher, log Logger) *RuleEngine {
	return &RuleEngine{
		policy:     policy,
		classifier: classifier,
		fetcher:    fetcher,
		logger:     log,
	}
}

// EvaluateFirstCommit checks that the earliest commit by a team member added
// the CI configuration. It is evaluated once per project.
func (e *RuleEngine) EvaluateFirstCommit(
	ctx context.Context,
	projectID int,
	commits []ClassifiedCommit,
	team *domain.TeamDirectory,
) domain.RuleVerdict {
	v := domain.RuleVerdict{
		Scope:     domain.ScopeProject,
		Rule:      domain.RuleFirstCommitCIConfig,
		Message:   "First commit was " + e.policy.CIConfigPath,
		Threshold: 1,
		Boolean:   true,
	}

	first, ok := EarliestResolvable(commits, team)
	if !ok {
		return unknown(v, errNoMemberCommit)
	}

	changes, err := e.fetcher.Diff(ctx, projectID, first.ID)
	if err != nil {
		e.logger.Warn(ctx, "failed to fetch first commit diff", map[string]interface{}{
			"project_id": projectID,
			"commit_id":  first.ID,
			"error":      err.Error(),
		})
		return unknown(v, fmt.Errorf("diff of %s: %w", first.ID, err))
	}

	if e.classifier.TouchesCIConfig(changes) {
		v.Observed = 1
	}
	v.Outcome = domain.AtLeast(v.Observed, v.Threshold)

	e.logger.Debug(ctx, "evaluated first commit", map[string]interface{}{
		"project_id": projectID,
		"commit_id":  first.ID,
		"author":     first.AuthorName,
		"outcome":    string(v.Outcome),
	})
	return v
}

// EvaluateMember runs the member rules in order. teamMax is the project-wide
// maximum non-merge commit count and must be the same for every member.
func (e *RuleEngine) EvaluateMember(
	ctx context.Context,
	projectID int,
	m *MemberAggregate,
	teamMax int,
	paranoid bool,
) []domain.RuleVerdict {
	p := e.policy
	verdicts := make([]domain.RuleVerdict, 0, 8)

	nonMerge := m.NonMerge
	withStatus, successful, statusErr := e.gatherStatuses(ctx, projectID, nonMerge)

	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleCIStatusCoverage,
		fmt.Sprintf("Has CI status for %s of commits", percent(p.CICoverageShare)),
		withStatus, p.CICoverageShare*float64(len(nonMerge)), statusErr))

	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleCISuccessVolume,
		fmt.Sprintf("Has success CI status for %d commits", p.MinSuccessfulCommits),
		len(successful), float64(p.MinSuccessfulCommits), statusErr))

	// Paranoid mode swaps the working set; the partition itself is untouched.
	working := nonMerge
	var workingErr error
	if paranoid {
		working = successful
		workingErr = statusErr
	}
	size := float64(len(working))

	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleMinimumCommits,
		fmt.Sprintf("Has %d commits", p.MinCommits),
		len(working), float64(p.MinCommits), workingErr))

	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleFairnessShare,
		fmt.Sprintf("Has own >= max(commits)/%s", strconv.FormatFloat(p.FairnessDivisor, 'f', -1, 64)),
		len(working), float64(teamMax)/p.FairnessDivisor, workingErr))

	var refactoring int
	for _, c := range working {
		if c.Refactoring {
			refactoring++
		}
	}
	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleRefactoringRatio,
		fmt.Sprintf("Has %s refactoring commits", percent(p.RefactoringShare)),
		refactoring, p.RefactoringShare*size, workingErr))

	tests, testErr := 0, workingErr
	if workingErr == nil {
		tests, testErr = e.countTestCommits(ctx, projectID, working)
	}
	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleTestCommitRatio,
		fmt.Sprintf("Has %s test commits", percent(p.TestShare)),
		tests, p.TestShare*size, testErr))

	// Merge usage always looks at the full history.
	verdicts = append(verdicts, e.threshold(m.Member, domain.RuleMergeCommitUsage,
		fmt.Sprintf("Has %d merge commits", p.MinMergeCommits),
		len(m.Merge), float64(p.MinMergeCommits), nil))

	return verdicts
}

// gatherStatuses counts the commits with any status and collects those whose
// statuses all succeeded. The returned error is the first failed fetch.
func (e *RuleEngine) gatherStatuses(
	ctx context.Context,
	projectID int,
	commits []ClassifiedCommit,
) (int, []ClassifiedCommit, error) {
	results := e.fetcher.Statuses(ctx, projectID, commitIDs(commits))

	var (
		withStatus int
		successful []ClassifiedCommit
		firstErr   error
		failed     int
	)
	for _, c := range commits {
		r := results[c.ID]
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("statuses of %s: %w", c.ID, r.Err)
			}
			continue
		}
		if len(r.Value) > 0 {
			withStatus++
		}
		if domain.AllSuccess(r.Value) {
			successful = append(successful, c)
		}
	}

	if firstErr != nil {
		e.logger.Warn(ctx, "failed to fetch commit statuses", map[string]interface{}{
			"project_id": projectID,
			"failed":     failed,
			"requested":  len(commits),
			"error":      firstErr.Error(),
		})
	}
	return withStatus, successful, firstErr
}

// countTestCommits counts working commits that touch a test file. Refactoring
// commits are never counted and their diffs are never fetched.
func (e *RuleEngine) countTestCommits(
	ctx context.Context,
	projectID int,
	working []ClassifiedCommit,
) (int, error) {
	candidates := make([]ClassifiedCommit, 0, len(working))
	for _, c := range working {
		if !c.Refactoring {
			candidates = append(candidates, c)
		}
	}

	results := e.fetcher.Diffs(ctx, projectID, commitIDs(candidates))

	var count int
	for _, c := range candidates {
		r := results[c.ID]
		if r.Err != nil {
			e.logger.Warn(ctx, "failed to fetch commit diff", map[string]interface{}{
				"project_id": projectID,
				"commit_id":  c.ID,
				"error":      r.Err.Error(),
			})
			return count, fmt.Errorf("diff of %s: %w", c.ID, r.Err)
		}
		if e.classifier.TouchesTestFile(r.Value) {
			count++
		}
	}
	return count, nil
}

func (e *RuleEngine) threshold(
	member domain.MemberID,
	rule domain.RuleID,
	message string,
	observed int,
	threshold float64,
	err error,
) domain.RuleVerdict {
	v := domain.RuleVerdict{
		Scope:     domain.ScopeMember,
		Member:    member,
		Rule:      rule,
		Message:   message,
		Observed:  float64(observed),
		Threshold: threshold,
	}
	if err != nil {
		return unknown(v, err)
	}
	v.Outcome = domain.AtLeast(v.Observed, v.Threshold)
	return v
}

func unknown(v domain.RuleVerdict, err error) domain.RuleVerdict {
	v.Outcome = domain.OutcomeUnknown
	v.Reason = err.Error()
	return v
}

// percent renders a share such as 0.3 as "30%".
func percent(share float64) string {
	return strconv.FormatFloat(math.Round(share*10000)/100, 'f', -1, 64) + "%"
}
