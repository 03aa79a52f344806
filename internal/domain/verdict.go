package domain

// Scope tells whether a verdict applies to the whole project or to one member.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeMember  Scope = "member"
)

// RuleID names one rule of the fixed battery.
type RuleID string

// Rules in evaluation order.
const (
	RuleFirstCommitCIConfig RuleID = "first_commit_ci_config"
	RuleCIStatusCoverage    RuleID = "ci_status_coverage"
	RuleCISuccessVolume     RuleID = "ci_success_volume"
	RuleMinimumCommits      RuleID = "minimum_commits"
	RuleFairnessShare       RuleID = "fairness_share"
	RuleRefactoringRatio    RuleID = "refactoring_ratio"
	RuleTestCommitRatio     RuleID = "test_commit_ratio"
	RuleMergeCommitUsage    RuleID = "merge_commit_usage"
)

// Outcome is the result of evaluating one rule.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"

	// OutcomeUnknown marks a rule whose input data could not be gathered.
	// It never counts as a pass.
	OutcomeUnknown Outcome = "unknown"
)

// RuleVerdict is the outcome of one rule for one member, or for the project.
type RuleVerdict struct {
	Scope Scope

	// Member is empty for project-scoped verdicts.
	Member MemberID

	Rule RuleID

	// Message is the human-readable rule statement.
	Message string

	Observed  float64
	Threshold float64
	Outcome   Outcome

	// Boolean marks a yes/no rule whose observed value is 1 or 0.
	Boolean bool

	// Reason explains an unknown outcome.
	Reason string
}

// Passed reports whether the verdict is a pass.
func (v RuleVerdict) Passed() bool {
	return v.Outcome == OutcomePass
}

// AtLeast returns the pass/fail outcome of an inclusive threshold comparison.
func AtLeast(observed, threshold float64) Outcome {
	if observed >= threshold {
		return OutcomePass
	}
	return OutcomeFail
}

// AnomalyKind classifies a reported anomaly.
type AnomalyKind string

const (
	AnomalyUnresolvedAuthor AnomalyKind = "unresolved_author"
	AnomalyNoCommits        AnomalyKind = "no_commits"
	AnomalyMissingTeamFile  AnomalyKind = "missing_team_file"
	AnomalyProjectError     AnomalyKind = "project_error"
)

// Anomaly is a non-fatal irregularity surfaced in the report.
type Anomaly struct {
	Kind AnomalyKind

	// AuthorName and CommitID are set for unresolved-author anomalies.
	AuthorName string
	CommitID   string

	// Detail carries the error text for project-level anomalies.
	Detail string
}

// MemberReport holds every verdict for one member.
type MemberReport struct {
	Member MemberID

	// AuthorName is the first author display name seen for the member.
	AuthorName string

	TotalCommits int
	Verdicts     []RuleVerdict
}

// ProjectReport is the full audit output for one project.
type ProjectReport struct {
	Project  Project
	Paranoid bool

	// ProjectVerdicts holds the project-scoped rules.
	ProjectVerdicts []RuleVerdict

	Members   []MemberReport
	Anomalies []Anomaly
}

// Failed reports whether the project could not be evaluated.
func (r *ProjectReport) Failed() bool {
	for _, a := range r.Anomalies {
		switch a.Kind {
		case AnomalyNoCommits, AnomalyMissingTeamFile, AnomalyProjectError:
			return true
		}
	}
	return false
}
