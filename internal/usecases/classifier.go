// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"path"
	"strings"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// ClassifiedCommit is a commit tagged with the properties the rules need.
type ClassifiedCommit struct {
	domain.Commit

	// Merge is true when the commit has more than one parent.
	Merge bool

	// Refactoring is true when the title carries the refactoring token.
	// Merge commits are never tagged.
	Refactoring bool
}

// Classifier partitions commits and tags them according to the policy's conventions.
type Classifier struct {
	ciConfigPath      string
	refactoringToken  string
	testFilePrefix    string
	testFileSubstring string
}

// NewClassifier creates a Classifier for the given policy.
func NewClassifier(policy domain.Policy) *Classifier {
	return &Classifier{
		ciConfigPath:      policy.CIConfigPath,
		refactoringToken:  strings.ToLower(policy.RefactoringToken),
		testFilePrefix:    policy.TestFilePrefix,
		testFileSubstring: policy.TestFileSubstring,
	}
}

// Classify tags every commit. The input order (newest first, as returned by
// the host) is preserved.
func (c *Classifier) Classify(commits []domain.Commit) []ClassifiedCommit {
	out := make([]ClassifiedCommit, len(commits))
	for i, commit := range commits {
		merge := commit.IsMerge()
		out[i] = ClassifiedCommit{
			Commit:      commit,
			Merge:       merge,
			Refactoring: !merge && c.IsRefactoring(commit.Title),
		}
	}
	return out
}

// IsRefactoring reports whether a commit title contains the refactoring token,
// ignoring case.
func (c *Classifier) IsRefactoring(title string) bool {
	return strings.Contains(strings.ToLower(title), c.refactoringToken)
}

// TouchesCIConfig reports whether a diff changes the CI configuration file.
func (c *Classifier) TouchesCIConfig(changes []domain.FileChange) bool {
	for _, ch := range changes {
		if ch.NewPath == c.ciConfigPath {
			return true
		}
	}
	return false
}

// TouchesTestFile reports whether a diff changes at least one test file.
func (c *Classifier) TouchesTestFile(changes []domain.FileChange) bool {
	for _, ch := range changes {
		if c.isTestFile(ch.NewPath) {
			return true
		}
	}
	return false
}

func (c *Classifier) isTestFile(p string) bool {
	if c.testFilePrefix != "" && strings.HasPrefix(path.Base(p), c.testFilePrefix) {
		return true
	}
	return c.testFileSubstring != "" && strings.Contains(p, c.testFileSubstring)
}

// EarliestResolvable returns the chronologically first commit whose author is
// on the team roster. Commits by anyone else, such as instructor scaffolding,
// are skipped. Ties on the author timestamp go to the commit listed later,
// since the host lists newest first.
func EarliestResolvable(commits []ClassifiedCommit, team *domain.TeamDirectory) (ClassifiedCommit, bool) {
	var (
		earliest ClassifiedCommit
		found    bool
	)
	for _, c := range commits {
		if _, ok := team.Resolve(c.AuthorName); !ok {
			continue
		}
		if !found || !c.AuthoredAt.After(earliest.AuthoredAt) {
			earliest = c
			found = true
		}
	}
	return earliest, found
}
