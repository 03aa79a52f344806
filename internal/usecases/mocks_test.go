package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockHost implements domain.SourceHost for testing.
// It is safe for concurrent use because the fetcher calls it from several goroutines.
type mockHost struct {
	mu sync.Mutex

	groups      []domain.Group
	groupsErr   error
	projects    []domain.Project
	projectsErr error

	// files holds the team file per project ID; absent means ErrFileNotFound.
	files   map[int][]byte
	fileErr error

	commits    map[int][]domain.Commit
	commitsErr error

	diffs     map[string][]domain.FileChange
	diffErrs  map[string]error
	diffCalls []string

	statuses    map[string][]domain.CommitStatus
	statusErrs  map[string]error
	statusCalls []string
}

func (m *mockHost) ListGroups(_ context.Context, _ string) ([]domain.Group, error) {
	return m.groups, m.groupsErr
}

func (m *mockHost) ListGroupProjects(_ context.Context, _ int) ([]domain.Project, error) {
	return m.projects, m.projectsErr
}

func (m *mockHost) GetFileContent(_ context.Context, projectID int, _, _ string) ([]byte, error) {
	if m.fileErr != nil {
		return nil, m.fileErr
	}
	data, ok := m.files[projectID]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return data, nil
}

func (m *mockHost) ListCommits(_ context.Context, projectID int, _ string) ([]domain.Commit, error) {
	if m.commitsErr != nil {
		return nil, m.commitsErr
	}
	return m.commits[projectID], nil
}

func (m *mockHost) GetCommitDiff(_ context.Context, _ int, commitID string) ([]domain.FileChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diffCalls = append(m.diffCalls, commitID)
	if err := m.diffErrs[commitID]; err != nil {
		return nil, err
	}
	return m.diffs[commitID], nil
}

func (m *mockHost) ListCommitStatuses(_ context.Context, _ int, commitID string) ([]domain.CommitStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls = append(m.statusCalls, commitID)
	if err := m.statusErrs[commitID]; err != nil {
		return nil, err
	}
	return m.statuses[commitID], nil
}

func (m *mockHost) diffCalled(commitID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.diffCalls {
		if id == commitID {
			return true
		}
	}
	return false
}

// mockReportWriter implements domain.ReportWriter for testing.
type mockReportWriter struct {
	reports  []*domain.ProjectReport
	writeErr error
}

func (m *mockReportWriter) WriteProjectReport(report *domain.ProjectReport) error {
	m.reports = append(m.reports, report)
	return m.writeErr
}

func (m *mockReportWriter) WriteSummary(_ *domain.AuditSummary) error {
	return nil
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newCommit builds a commit with the given number of parents, authored
// minutesAfter minutes after baseTime.
func newCommit(id, author, title string, parents, minutesAfter int) domain.Commit {
	parentIDs := make([]string, parents)
	for i := range parentIDs {
		parentIDs[i] = fmt.Sprintf("%s-parent-%d", id, i)
	}
	return domain.Commit{
		ID:         id,
		AuthorName: author,
		Title:      title,
		ParentIDs:  parentIDs,
		AuthoredAt: baseTime.Add(time.Duration(minutesAfter) * time.Minute),
	}
}

func successStatuses() []domain.CommitStatus {
	return []domain.CommitStatus{
		{Name: "build", Status: domain.StatusSuccess},
		{Name: "test", Status: domain.StatusSuccess},
	}
}

func testTeam() *domain.TeamDirectory {
	return domain.NewTeamDirectory(map[string]domain.MemberID{
		"Alice Example": "alice",
		"Bob Example":   "bob",
		"bob":           "bob",
	})
}
