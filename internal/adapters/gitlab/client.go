// Package gitlab provides the GitLab REST implementation of domain.SourceHost.
package gitlab

import (
	"context"
	"fmt"
	"net/http"

	gl "github.com/xanzy/go-gitlab"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// DefaultPerPage is the page size requested from every list endpoint.
const DefaultPerPage = 100

// Logger defines the logging interface for the GitLab adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// groupsAPI is the subset of gl.GroupsService used by the adapter.
type groupsAPI interface {
	ListGroups(opt *gl.ListGroupsOptions, options ...gl.RequestOptionFunc) ([]*gl.Group, *gl.Response, error)
	ListGroupProjects(
		gid interface{},
		opt *gl.ListGroupProjectsOptions,
		options ...gl.RequestOptionFunc,
	) ([]*gl.Project, *gl.Response, error)
}

// commitsAPI is the subset of gl.CommitsService used by the adapter.
type commitsAPI interface {
	ListCommits(
		pid interface{},
		opt *gl.ListCommitsOptions,
		options ...gl.RequestOptionFunc,
	) ([]*gl.Commit, *gl.Response, error)
	GetCommitDiff(
		pid interface{},
		sha string,
		opt *gl.GetCommitDiffOptions,
		options ...gl.RequestOptionFunc,
	) ([]*gl.Diff, *gl.Response, error)
	GetCommitStatuses(
		pid interface{},
		sha string,
		opt *gl.GetCommitStatusesOptions,
		options ...gl.RequestOptionFunc,
	) ([]*gl.CommitStatus, *gl.Response, error)
}

// filesAPI is the subset of gl.RepositoryFilesService used by the adapter.
type filesAPI interface {
	GetRawFile(
		pid interface{},
		fileName string,
		opt *gl.GetRawFileOptions,
		options ...gl.RequestOptionFunc,
	) ([]byte, *gl.Response, error)
}

// Client implements domain.SourceHost on top of the GitLab REST API.
// Transient failures (429, 5xx) are retried with backoff by the underlying
// go-gitlab HTTP client.
type Client struct {
	groups  groupsAPI
	commits commitsAPI
	files   filesAPI
	perPage int
	logger  Logger
}

// NewClient creates a Client for the GitLab instance at baseURL.
// maxRetries bounds the retries of a single request.
func NewClient(baseURL, token string, maxRetries int, log Logger) (*Client, error) {
	if token == "" {
		return nil, domain.ErrMissingCredential
	}

	api, err := gl.NewClient(token,
		gl.WithBaseURL(baseURL),
		gl.WithCustomRetryMax(maxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return newClient(api.Groups, api.Commits, api.RepositoryFiles, log), nil
}

func newClient(groups groupsAPI, commits commitsAPI, files filesAPI, log Logger) *Client {
	return &Client{
		groups:  groups,
		commits: commits,
		files:   files,
		perPage: DefaultPerPage,
		logger:  log,
	}
}

// ListGroups returns the groups matching search.
func (c *Client) ListGroups(ctx context.Context, search string) ([]domain.Group, error) {
	groups, err := paginate(ctx, func(page int) ([]*gl.Group, *gl.Response, error) {
		return c.groups.ListGroups(&gl.ListGroupsOptions{
			ListOptions: c.listOptions(page),
			Search:      gl.Ptr(search),
		}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups matching %q: %w", search, err)
	}

	out := make([]domain.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.Group{
			ID:       g.ID,
			Name:     g.Name,
			Path:     g.Path,
			FullPath: g.FullPath,
		})
	}
	return out, nil
}

// ListGroupProjects returns every project of the group.
func (c *Client) ListGroupProjects(ctx context.Context, groupID int) ([]domain.Project, error) {
	projects, err := paginate(ctx, func(page int) ([]*gl.Project, *gl.Response, error) {
		return c.groups.ListGroupProjects(groupID, &gl.ListGroupProjectsOptions{
			ListOptions: c.listOptions(page),
		}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects of group %d: %w", groupID, err)
	}

	out := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, domain.Project{
			ID:                p.ID,
			Name:              p.Name,
			PathWithNamespace: p.PathWithNamespace,
			DefaultBranch:     p.DefaultBranch,
		})
	}

	c.logger.Debug(ctx, "listed group projects", map[string]interface{}{
		"group_id": groupID,
		"projects": len(out),
	})
	return out, nil
}

// GetFileContent returns the raw content of path at ref.
// Returns domain.ErrFileNotFound when GitLab answers 404.
func (c *Client) GetFileContent(ctx context.Context, projectID int, path, ref string) ([]byte, error) {
	data, resp, err := c.files.GetRawFile(projectID, path, &gl.GetRawFileOptions{
		Ref: gl.Ptr(ref),
	}, gl.WithContext(ctx))
	if err != nil {
		if isNotFound(resp) {
			return nil, fmt.Errorf("%w: %s@%s in project %d", domain.ErrFileNotFound, path, ref, projectID)
		}
		return nil, fmt.Errorf("failed to get %s@%s in project %d: %w", path, ref, projectID, err)
	}
	return data, nil
}

// ListCommits returns the full history of ref, newest first.
func (c *Client) ListCommits(ctx context.Context, projectID int, ref string) ([]domain.Commit, error) {
	commits, err := paginate(ctx, func(page int) ([]*gl.Commit, *gl.Response, error) {
		return c.commits.ListCommits(projectID, &gl.ListCommitsOptions{
			ListOptions: c.listOptions(page),
			RefName:     gl.Ptr(ref),
		}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commits of project %d on %s: %w", projectID, ref, err)
	}

	out := make([]domain.Commit, 0, len(commits))
	for _, gc := range commits {
		out = append(out, toDomainCommit(gc))
	}

	c.logger.Debug(ctx, "listed commits", map[string]interface{}{
		"project_id": projectID,
		"ref":        ref,
		"commits":    len(out),
	})
	return out, nil
}

// GetCommitDiff returns the paths changed by a commit.
func (c *Client) GetCommitDiff(ctx context.Context, projectID int, commitID string) ([]domain.FileChange, error) {
	diffs, err := paginate(ctx, func(page int) ([]*gl.Diff, *gl.Response, error) {
		return c.commits.GetCommitDiff(projectID, commitID, &gl.GetCommitDiffOptions{
			ListOptions: c.listOptions(page),
		}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get diff of %s: %w", commitID, err)
	}

	out := make([]domain.FileChange, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, domain.FileChange{
			OldPath:     d.OldPath,
			NewPath:     d.NewPath,
			NewFile:     d.NewFile,
			RenamedFile: d.RenamedFile,
			DeletedFile: d.DeletedFile,
		})
	}
	return out, nil
}

// ListCommitStatuses returns every CI status recorded for a commit.
func (c *Client) ListCommitStatuses(ctx context.Context, projectID int, commitID string) ([]domain.CommitStatus, error) {
	statuses, err := paginate(ctx, func(page int) ([]*gl.CommitStatus, *gl.Response, error) {
		return c.commits.GetCommitStatuses(projectID, commitID, &gl.GetCommitStatusesOptions{
			ListOptions: c.listOptions(page),
		}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get statuses of %s: %w", commitID, err)
	}

	out := make([]domain.CommitStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, domain.CommitStatus{
			Name:   s.Name,
			Status: domain.StatusState(s.Status),
		})
	}
	return out, nil
}

func (c *Client) listOptions(page int) gl.ListOptions {
	return gl.ListOptions{Page: page, PerPage: c.perPage}
}

// paginate follows NextPage links until the last page.
func paginate[T any](ctx context.Context, fetch func(page int) ([]T, *gl.Response, error)) ([]T, error) {
	var all []T
	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, resp, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 || resp.NextPage == page {
			return all, nil
		}
		page = resp.NextPage
	}
}

func toDomainCommit(gc *gl.Commit) domain.Commit {
	commit := domain.Commit{
		ID:          gc.ID,
		AuthorName:  gc.AuthorName,
		AuthorEmail: gc.AuthorEmail,
		Title:       gc.Title,
		ParentIDs:   gc.ParentIDs,
	}
	switch {
	case gc.AuthoredDate != nil:
		commit.AuthoredAt = *gc.AuthoredDate
	case gc.CommittedDate != nil:
		commit.AuthoredAt = *gc.CommittedDate
	}
	return commit
}

func isNotFound(resp *gl.Response) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound
}
