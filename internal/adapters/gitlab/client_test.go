package gitlab

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gl "github.com/xanzy/go-gitlab"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, map[string]interface{}) {}
func (nopLogger) Warn(context.Context, string, map[string]interface{})  {}

type MockGroupsAPI struct {
	mock.Mock
}

func (m *MockGroupsAPI) ListGroups(
	opt *gl.ListGroupsOptions,
	_ ...gl.RequestOptionFunc,
) ([]*gl.Group, *gl.Response, error) {
	args := m.Called(opt)
	groups, _ := args.Get(0).([]*gl.Group)
	resp, _ := args.Get(1).(*gl.Response)
	return groups, resp, args.Error(2)
}

func (m *MockGroupsAPI) ListGroupProjects(
	gid interface{},
	opt *gl.ListGroupProjectsOptions,
	_ ...gl.RequestOptionFunc,
) ([]*gl.Project, *gl.Response, error) {
	args := m.Called(gid, opt)
	projects, _ := args.Get(0).([]*gl.Project)
	resp, _ := args.Get(1).(*gl.Response)
	return projects, resp, args.Error(2)
}

type MockCommitsAPI struct {
	mock.Mock
}

func (m *MockCommitsAPI) ListCommits(
	pid interface{},
	opt *gl.ListCommitsOptions,
	_ ...gl.RequestOptionFunc,
) ([]*gl.Commit, *gl.Response, error) {
	args := m.Called(pid, opt)
	commits, _ := args.Get(0).([]*gl.Commit)
	resp, _ := args.Get(1).(*gl.Response)
	return commits, resp, args.Error(2)
}

func (m *MockCommitsAPI) GetCommitDiff(
	pid interface{},
	sha string,
	opt *gl.GetCommitDiffOptions,
	_ ...gl.RequestOptionFunc,
) ([]*gl.Diff, *gl.Response, error) {
	args := m.Called(pid, sha, opt)
	diffs, _ := args.Get(0).([]*gl.Diff)
	resp, _ := args.Get(1).(*gl.Response)
	return diffs, resp, args.Error(2)
}

func (m *MockCommitsAPI) GetCommitStatuses(
	pid interface{},
	sha string,
	opt *gl.GetCommitStatusesOptions,
	_ ...gl.RequestOptionFunc,
) ([]*gl.CommitStatus, *gl.Response, error) {
	args := m.Called(pid, sha, opt)
	statuses, _ := args.Get(0).([]*gl.CommitStatus)
	resp, _ := args.Get(1).(*gl.Response)
	return statuses, resp, args.Error(2)
}

type MockFilesAPI struct {
	mock.Mock
}

func (m *MockFilesAPI) GetRawFile(
	pid interface{},
	fileName string,
	opt *gl.GetRawFileOptions,
	_ ...gl.RequestOptionFunc,
) ([]byte, *gl.Response, error) {
	args := m.Called(pid, fileName, opt)
	data, _ := args.Get(0).([]byte)
	resp, _ := args.Get(1).(*gl.Response)
	return data, resp, args.Error(2)
}

func onPage(page int) func(gl.ListOptions) bool {
	return func(o gl.ListOptions) bool { return o.Page == page && o.PerPage == DefaultPerPage }
}

func TestNewClient_RequiresToken(t *testing.T) {
	client, err := NewClient("https://gitlab.example.com/", "", 4, nopLogger{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Nil(t, client)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient("https://gitlab.example.com/", "glpat-test", 2, nopLogger{})

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, DefaultPerPage, client.perPage)
}

func TestClient_ListGroups(t *testing.T) {
	groups := &MockGroupsAPI{}
	groups.On("ListGroups", mock.MatchedBy(func(o *gl.ListGroupsOptions) bool {
		return o.Search != nil && *o.Search == "course" && onPage(1)(o.ListOptions)
	})).Return([]*gl.Group{
		{ID: 7, Name: "Projects", Path: "projects", FullPath: "course/projects"},
	}, &gl.Response{}, nil)

	client := newClient(groups, &MockCommitsAPI{}, &MockFilesAPI{}, nopLogger{})
	got, err := client.ListGroups(context.Background(), "course")

	require.NoError(t, err)
	assert.Equal(t, []domain.Group{{ID: 7, Name: "Projects", Path: "projects", FullPath: "course/projects"}}, got)
	groups.AssertExpectations(t)
}

func TestClient_ListGroupProjects_Paginates(t *testing.T) {
	groups := &MockGroupsAPI{}
	groups.On("ListGroupProjects", 7, mock.MatchedBy(func(o *gl.ListGroupProjectsOptions) bool {
		return onPage(1)(o.ListOptions)
	})).Return([]*gl.Project{
		{ID: 1, Name: "team-a", PathWithNamespace: "course/projects/team-a", DefaultBranch: "main"},
	}, &gl.Response{NextPage: 2}, nil).Once()
	groups.On("ListGroupProjects", 7, mock.MatchedBy(func(o *gl.ListGroupProjectsOptions) bool {
		return onPage(2)(o.ListOptions)
	})).Return([]*gl.Project{
		{ID: 2, Name: "team-b", PathWithNamespace: "course/projects/team-b", DefaultBranch: "master"},
	}, &gl.Response{}, nil).Once()

	client := newClient(groups, &MockCommitsAPI{}, &MockFilesAPI{}, nopLogger{})
	got, err := client.ListGroupProjects(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "team-a", got[0].Name)
	assert.Equal(t, "master", got[1].DefaultBranch)
	groups.AssertExpectations(t)
}

func TestClient_ListGroupProjects_Error(t *testing.T) {
	groups := &MockGroupsAPI{}
	groups.On("ListGroupProjects", 7, mock.Anything).
		Return(nil, nil, errors.New("403 Forbidden"))

	client := newClient(groups, &MockCommitsAPI{}, &MockFilesAPI{}, nopLogger{})
	got, err := client.ListGroupProjects(context.Background(), 7)

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "failed to list projects of group 7")
	assert.Contains(t, err.Error(), "403 Forbidden")
}

func TestClient_GetFileContent(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		resp       *gl.Response
		err        error
		wantErrIs  error
		wantErrMsg string
	}{
		{
			name: "found",
			data: []byte("Alice Example, alice\n"),
			resp: &gl.Response{Response: &http.Response{StatusCode: http.StatusOK}},
		},
		{
			name:      "not found",
			resp:      &gl.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
			err:       errors.New("404 File Not Found"),
			wantErrIs: domain.ErrFileNotFound,
		},
		{
			name:       "server error",
			resp:       &gl.Response{Response: &http.Response{StatusCode: http.StatusBadGateway}},
			err:        errors.New("502 Bad Gateway"),
			wantErrMsg: "502 Bad Gateway",
		},
		{
			name:       "transport error without response",
			err:        errors.New("dial tcp: connection refused"),
			wantErrMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := &MockFilesAPI{}
			files.On("GetRawFile", 3, "team.csv", mock.MatchedBy(func(o *gl.GetRawFileOptions) bool {
				return o.Ref != nil && *o.Ref == "main"
			})).Return(tt.data, tt.resp, tt.err)

			client := newClient(&MockGroupsAPI{}, &MockCommitsAPI{}, files, nopLogger{})
			got, err := client.GetFileContent(context.Background(), 3, "team.csv", "main")

			if tt.wantErrIs == nil && tt.wantErrMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.data, got)
				return
			}
			require.Error(t, err)
			assert.Nil(t, got)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			} else {
				assert.NotErrorIs(t, err, domain.ErrFileNotFound)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			}
		})
	}
}

func TestClient_ListCommits(t *testing.T) {
	authored := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	committed := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	commits := &MockCommitsAPI{}
	commits.On("ListCommits", 3, mock.MatchedBy(func(o *gl.ListCommitsOptions) bool {
		return o.RefName != nil && *o.RefName == "main" && onPage(1)(o.ListOptions)
	})).Return([]*gl.Commit{
		{
			ID:           "b2",
			Title:        "Merge branch 'feature'",
			AuthorName:   "Bob Example",
			AuthorEmail:  "bob@example.com",
			AuthoredDate: &authored,
			ParentIDs:    []string{"a1", "f1"},
		},
	}, &gl.Response{NextPage: 2}, nil).Once()
	commits.On("ListCommits", 3, mock.MatchedBy(func(o *gl.ListCommitsOptions) bool {
		return onPage(2)(o.ListOptions)
	})).Return([]*gl.Commit{
		{ID: "a1", Title: "Initial", AuthorName: "Alice Example", CommittedDate: &committed},
	}, &gl.Response{}, nil).Once()

	client := newClient(&MockGroupsAPI{}, commits, &MockFilesAPI{}, nopLogger{})
	got, err := client.ListCommits(context.Background(), 3, "main")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID)
	assert.True(t, got[0].IsMerge())
	assert.Equal(t, authored, got[0].AuthoredAt)
	assert.Equal(t, "bob@example.com", got[0].AuthorEmail)
	assert.Equal(t, committed, got[1].AuthoredAt, "falls back to the committed date")
	assert.False(t, got[1].IsMerge())
	commits.AssertExpectations(t)
}

func TestClient_GetCommitDiff(t *testing.T) {
	commits := &MockCommitsAPI{}
	commits.On("GetCommitDiff", 3, "a1", mock.Anything).Return([]*gl.Diff{
		{OldPath: ".gitlab-ci.yml", NewPath: ".gitlab-ci.yml", NewFile: true},
		{OldPath: "old.go", NewPath: "test_new.go", RenamedFile: true},
	}, &gl.Response{}, nil)

	client := newClient(&MockGroupsAPI{}, commits, &MockFilesAPI{}, nopLogger{})
	got, err := client.GetCommitDiff(context.Background(), 3, "a1")

	require.NoError(t, err)
	assert.Equal(t, []domain.FileChange{
		{OldPath: ".gitlab-ci.yml", NewPath: ".gitlab-ci.yml", NewFile: true},
		{OldPath: "old.go", NewPath: "test_new.go", RenamedFile: true},
	}, got)
}

func TestClient_ListCommitStatuses(t *testing.T) {
	commits := &MockCommitsAPI{}
	commits.On("GetCommitStatuses", 3, "a1", mock.Anything).Return([]*gl.CommitStatus{
		{Name: "build", Status: "success"},
		{Name: "test", Status: "failed"},
	}, &gl.Response{}, nil)
	commits.On("GetCommitStatuses", 3, "b2", mock.Anything).
		Return(nil, nil, errors.New("429 Too Many Requests"))

	client := newClient(&MockGroupsAPI{}, commits, &MockFilesAPI{}, nopLogger{})

	got, err := client.ListCommitStatuses(context.Background(), 3, "a1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CommitStatus{
		{Name: "build", Status: domain.StatusSuccess},
		{Name: "test", Status: domain.StatusFailed},
	}, got)
	assert.False(t, domain.AllSuccess(got))

	_, err = client.ListCommitStatuses(context.Background(), 3, "b2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get statuses of b2")
}

func TestPaginate_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	got, err := paginate(ctx, func(int) ([]int, *gl.Response, error) {
		calls++
		return []int{1}, &gl.Response{NextPage: 2}, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Zero(t, calls)
}

func TestPaginate_GuardsAgainstRepeatedPage(t *testing.T) {
	calls := 0

	got, err := paginate(context.Background(), func(page int) ([]int, *gl.Response, error) {
		calls++
		return []int{page}, &gl.Response{NextPage: page}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, calls)
}
