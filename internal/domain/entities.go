// Package domain defines the core business entities and interfaces for team-audit.
package domain

import "time"

// Group is a namespace on the source-control host that holds student projects.
type Group struct {
	ID       int
	Name     string
	Path     string
	FullPath string
}

// Project is a single student repository.
type Project struct {
	ID                int
	Name              string
	PathWithNamespace string
	DefaultBranch     string
}

// Commit is one version-control commit as reported by the host.
type Commit struct {
	// ID is the full commit SHA.
	ID string

	// AuthorName is the display name the commit was authored under.
	// It is the lookup key into the TeamDirectory.
	AuthorName string

	AuthorEmail string

	// Title is the first line of the commit message.
	Title string

	// ParentIDs lists the parent SHAs in order.
	// More than one parent marks a merge commit; zero marks a root commit.
	ParentIDs []string

	// AuthoredAt is the author timestamp.
	AuthoredAt time.Time
}

// IsMerge reports whether the commit has more than one parent.
// Root commits (no parents) are non-merge commits.
func (c Commit) IsMerge() bool {
	return len(c.ParentIDs) > 1
}

// FileChange is one changed path in a commit diff.
type FileChange struct {
	OldPath     string
	NewPath     string
	NewFile     bool
	RenamedFile bool
	DeletedFile bool
}

// StatusState is the state of a CI pipeline job reported for a commit.
type StatusState string

// CI status states as reported by GitLab.
const (
	StatusCreated  StatusState = "created"
	StatusPending  StatusState = "pending"
	StatusRunning  StatusState = "running"
	StatusSuccess  StatusState = "success"
	StatusFailed   StatusState = "failed"
	StatusCanceled StatusState = "canceled"
	StatusSkipped  StatusState = "skipped"
	StatusManual   StatusState = "manual"
)

// CommitStatus is one CI job result recorded against a commit.
type CommitStatus struct {
	Name   string
	Status StatusState
}

// AllSuccess reports whether at least one status exists and every status succeeded.
func AllSuccess(statuses []CommitStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, s := range statuses {
		if s.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// MemberID identifies a team member as listed in the team file.
type MemberID string

// AuditInput contains the parameters for one audit run.
type AuditInput struct {
	// ProjectFilter restricts the run to projects whose name contains it.
	// An empty filter matches every project.
	ProjectFilter string

	// Paranoid restricts each member's working commit set to commits whose
	// CI statuses all succeeded.
	Paranoid bool
}

// AuditSummary totals the outcome of an audit run.
type AuditSummary struct {
	ProjectsChecked int
	ProjectsFailed  int
	MembersChecked  int
	Anomalies       int
}
