// Package domain defines the core business entities and interfaces for team-audit.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors for configuration, host access and project evaluation.
var (
	// ErrMissingCredential indicates no host token could be resolved from any source.
	ErrMissingCredential = errors.New("no GitLab token configured")

	// ErrGroupNotFound indicates the configured projects group does not exist on the host.
	ErrGroupNotFound = errors.New("projects group not found")

	// ErrPolicyInvalid indicates the audit policy failed validation.
	ErrPolicyInvalid = errors.New("invalid audit policy")

	// ErrFileNotFound indicates a requested repository file does not exist at the given ref.
	ErrFileNotFound = errors.New("file not found in repository")

	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrTeamFileMissing indicates the project has no team file on its default branch.
	ErrTeamFileMissing = errors.New("team file missing")

	// ErrTeamFileEmpty indicates the team file lists no members.
	ErrTeamFileEmpty = errors.New("team file lists no members")

	// ErrNoCommits indicates the project's default branch has no commits.
	ErrNoCommits = errors.New("no commits found")
)

// SourceHost is the read-only view of the version-control host the audit needs.
// Every method is an idempotent read.
type SourceHost interface {
	// ListGroups returns groups matching the search term.
	ListGroups(ctx context.Context, search string) ([]Group, error)

	// ListGroupProjects returns every project in the group.
	ListGroupProjects(ctx context.Context, groupID int) ([]Project, error)

	// GetFileContent returns the raw content of path at ref.
	// Returns ErrFileNotFound if the file does not exist.
	GetFileContent(ctx context.Context, projectID int, path, ref string) ([]byte, error)

	// ListCommits returns the commit history of ref, newest first.
	ListCommits(ctx context.Context, projectID int, ref string) ([]Commit, error)

	// GetCommitDiff returns the paths changed by a commit.
	GetCommitDiff(ctx context.Context, projectID int, commitID string) ([]FileChange, error)

	// ListCommitStatuses returns every CI status recorded for a commit.
	ListCommitStatuses(ctx context.Context, projectID int, commitID string) ([]CommitStatus, error)
}

// ReportWriter renders project reports.
type ReportWriter interface {
	// WriteProjectReport renders one project's verdicts and anomalies.
	WriteProjectReport(report *ProjectReport) error

	// WriteSummary renders the run totals.
	WriteSummary(summary *AuditSummary) error
}

// Auditor audits every selected project of the configured group.
type Auditor interface {
	// Run evaluates each selected project and hands its report to the writer.
	// Only configuration-level failures are returned; per-project failures
	// are reported as anomalies.
	Run(ctx context.Context, input AuditInput, out ReportWriter) (*AuditSummary, error)
}
