package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Policy holds the rule thresholds and naming conventions of an audit.
// Zero values are not meaningful; start from DefaultPolicy.
type Policy struct {
	// GroupSearch is the search term used to find the course group.
	GroupSearch string `yaml:"group_search"`

	// GroupPath is the path of the group that holds the student projects.
	GroupPath string `yaml:"group_path"`

	// TeamFile is the repository path of the author-to-member mapping.
	TeamFile string `yaml:"team_file"`

	// CIConfigPath is the CI configuration filename the first commit must add.
	CIConfigPath string `yaml:"ci_config_path"`

	// RefactoringToken marks a refactoring commit when found in the title, case-insensitively.
	RefactoringToken string `yaml:"refactoring_token"`

	// TestFilePrefix marks a test file when the file name starts with it.
	TestFilePrefix string `yaml:"test_file_prefix"`

	// TestFileSubstring marks a test file when the path contains it.
	TestFileSubstring string `yaml:"test_file_substring"`

	CICoverageShare      float64 `yaml:"ci_coverage_share"`
	MinSuccessfulCommits int     `yaml:"min_successful_commits"`
	MinCommits           int     `yaml:"min_commits"`
	FairnessDivisor      float64 `yaml:"fairness_divisor"`
	RefactoringShare     float64 `yaml:"refactoring_share"`
	TestShare            float64 `yaml:"test_share"`
	MinMergeCommits      int     `yaml:"min_merge_commits"`
}

// DefaultPolicy returns the course's standard rule set.
func DefaultPolicy() Policy {
	return Policy{
		GroupSearch:          "hs-fulda-programmiermethoden_und_werkzeuge",
		GroupPath:            "projects",
		TeamFile:             "team.csv",
		CIConfigPath:         ".gitlab-ci.yml",
		RefactoringToken:     "refactoring: ",
		TestFilePrefix:       "test_",
		TestFileSubstring:    "Test",
		CICoverageShare:      0.3,
		MinSuccessfulCommits: 50,
		MinCommits:           50,
		FairnessDivisor:      2,
		RefactoringShare:     0.2,
		TestShare:            0.2,
		MinMergeCommits:      2,
	}
}

// Validate checks the policy for values the rule engine cannot work with.
func (p Policy) Validate() error {
	var problems []string

	for name, v := range map[string]string{
		"group_search":      p.GroupSearch,
		"group_path":        p.GroupPath,
		"team_file":         p.TeamFile,
		"ci_config_path":    p.CIConfigPath,
		"refactoring_token": p.RefactoringToken,
	} {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, name+" must not be empty")
		}
	}
	if p.TestFilePrefix == "" && p.TestFileSubstring == "" {
		problems = append(problems, "test_file_prefix or test_file_substring must be set")
	}

	for name, v := range map[string]float64{
		"ci_coverage_share": p.CICoverageShare,
		"refactoring_share": p.RefactoringShare,
		"test_share":        p.TestShare,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %g", name, v))
		}
	}
	if p.FairnessDivisor <= 0 {
		problems = append(problems, fmt.Sprintf("fairness_divisor must be positive, got %g", p.FairnessDivisor))
	}

	for name, v := range map[string]int{
		"min_successful_commits": p.MinSuccessfulCommits,
		"min_commits":            p.MinCommits,
		"min_merge_commits":      p.MinMergeCommits,
	} {
		if v < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative, got %d", name, v))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	// map iteration order is random
	slices.Sort(problems)
	return fmt.Errorf("%w: %s", ErrPolicyInvalid, strings.Join(problems, "; "))
}

