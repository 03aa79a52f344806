// Package git provides adapters for auditing local Git clones.
// This package implements the domain.SourceHost interface using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// IDs of the synthetic group and project exposed by a LocalSource.
const (
	LocalGroupID   = 1
	LocalProjectID = 1
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// LocalSource implements domain.SourceHost over a single local clone.
// The clone is exposed as one project inside one group; commit statuses are
// always empty because no CI runs locally.
type LocalSource struct {
	repo    *git.Repository
	path    string
	group   domain.Group
	project domain.Project
	logger  Logger
}

// NewLocalSource opens the repository at path.
// groupPath names the synthetic group so that it matches the audit policy.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewLocalSource(ctx context.Context, path, groupPath string, log Logger) (*LocalSource, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	s := &LocalSource{
		repo:   repo,
		path:   path,
		logger: log,
		group: domain.Group{
			ID:       LocalGroupID,
			Name:     groupPath,
			Path:     groupPath,
			FullPath: groupPath,
		},
	}
	s.project = s.describeProject(ctx)

	log.Debug(ctx, "opened local repository", map[string]interface{}{
		"path":           path,
		"project":        s.project.PathWithNamespace,
		"default_branch": s.project.DefaultBranch,
	})

	return s, nil
}

// describeProject derives the synthetic project from HEAD and the origin remote.
func (s *LocalSource) describeProject(ctx context.Context) domain.Project {
	name := filepath.Base(filepath.Clean(s.path))
	if abs, err := filepath.Abs(s.path); err == nil {
		name = filepath.Base(abs)
	}

	project := domain.Project{
		ID:                LocalProjectID,
		Name:              name,
		PathWithNamespace: name,
		DefaultBranch:     plumbing.HEAD.String(),
	}

	if head, err := s.repo.Head(); err == nil && head.Name().IsBranch() {
		project.DefaultBranch = head.Name().Short()
	} else {
		// Detached or unborn HEAD - warn but continue from HEAD itself
		s.logger.Warn(ctx, "HEAD is not on a branch; auditing HEAD", map[string]interface{}{
			"path": s.path,
		})
	}

	if remote, err := s.repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		if namespace, err := parseNamespaceFromURL(remote.Config().URLs[0]); err == nil {
			project.PathWithNamespace = namespace
		}
	}

	return project
}

// ListGroups returns the synthetic group regardless of search.
func (s *LocalSource) ListGroups(_ context.Context, _ string) ([]domain.Group, error) {
	return []domain.Group{s.group}, nil
}

// ListGroupProjects returns the clone as the only project of the synthetic group.
func (s *LocalSource) ListGroupProjects(_ context.Context, groupID int) ([]domain.Project, error) {
	if groupID != LocalGroupID {
		return nil, nil
	}
	return []domain.Project{s.project}, nil
}

// GetFileContent reads path from the tree at ref.
// Returns domain.ErrFileNotFound if the file does not exist at ref.
func (s *LocalSource) GetFileContent(_ context.Context, projectID int, path, ref string) ([]byte, error) {
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}

	commit, err := s.resolveCommit(ref)
	if err != nil {
		return nil, err
	}

	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s@%s", domain.ErrFileNotFound, path, ref)
		}
		return nil, fmt.Errorf("failed to read %s@%s: %w", path, ref, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s@%s: %w", path, ref, err)
	}
	return []byte(contents), nil
}

// ListCommits walks the history of ref in committer-time order, newest first.
func (s *LocalSource) ListCommits(ctx context.Context, projectID int, ref string) ([]domain.Commit, error) {
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}

	head, err := s.resolveCommit(ref)
	if err != nil {
		return nil, err
	}

	iter, err := s.repo.Log(&git.LogOptions{
		From:  head.Hash,
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history of %s: %w", ref, err)
	}
	defer iter.Close()

	var commits []domain.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		// Check context for cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		commits = append(commits, toDomainCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history of %s: %w", ref, err)
	}

	s.logger.Debug(ctx, "walked local history", map[string]interface{}{
		"ref":     ref,
		"commits": len(commits),
	})

	return commits, nil
}

// GetCommitDiff lists the paths a commit changed relative to its first parent.
// Every file of a root commit counts as added.
func (s *LocalSource) GetCommitDiff(ctx context.Context, projectID int, commitID string) ([]domain.FileChange, error) {
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}

	commit, err := s.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", commitID, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", commitID, err)
	}

	if commit.NumParents() == 0 {
		return rootChanges(tree)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("failed to get first parent of %s: %w", commitID, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", parent.Hash, err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", commitID, err)
	}

	out := make([]domain.FileChange, 0, len(changes))
	for _, change := range changes {
		out = append(out, toFileChange(change.From.Name, change.To.Name))
	}
	return out, nil
}

// ListCommitStatuses always returns no statuses.
func (s *LocalSource) ListCommitStatuses(_ context.Context, projectID int, _ string) ([]domain.CommitStatus, error) {
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *LocalSource) checkProject(projectID int) error {
	if projectID != LocalProjectID {
		return fmt.Errorf("%w: project %d in %s", domain.ErrRepositoryNotFound, projectID, s.path)
	}
	return nil
}

func (s *LocalSource) resolveCommit(ref string) (*object.Commit, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit for %s: %w", ref, err)
	}
	return commit, nil
}

func rootChanges(tree *object.Tree) ([]domain.FileChange, error) {
	var out []domain.FileChange
	err := tree.Files().ForEach(func(f *object.File) error {
		out = append(out, toFileChange("", f.Name))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list root tree: %w", err)
	}
	return out, nil
}

// toFileChange mirrors the GitLab diff shape: added and deleted files carry
// the same path on both sides.
func toFileChange(from, to string) domain.FileChange {
	switch {
	case from == "":
		return domain.FileChange{OldPath: to, NewPath: to, NewFile: true}
	case to == "":
		return domain.FileChange{OldPath: from, NewPath: from, DeletedFile: true}
	default:
		return domain.FileChange{OldPath: from, NewPath: to, RenamedFile: from != to}
	}
}

func toDomainCommit(c *object.Commit) domain.Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}

	title, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")

	return domain.Commit{
		ID:          c.Hash.String(),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		Title:       strings.TrimSpace(title),
		ParentIDs:   parents,
		AuthoredAt:  c.Author.When,
	}
}

// Regular expressions for parsing Git remote URLs.
var (
	// httpsURLPattern matches HTTPS URLs like:
	// https://git-ce.rwth-aachen.de/course/projects/team-a.git
	// https://gitlab.com/owner/repo
	httpsURLPattern = regexp.MustCompile(`^https?://[^/]+/(.+?/[^/]+?)(?:\.git)?/?$`)

	// sshURLPattern matches SSH URLs like:
	// git@gitlab.com:course/projects/team-a.git
	// ssh://git@gitlab.com/owner/repo
	sshURLPattern = regexp.MustCompile(`^(?:ssh://)?git@[^:/]+[:/](.+?/[^/]+?)(?:\.git)?/?$`)
)

// parseNamespaceFromURL extracts the full project namespace from a remote URL.
// Nested groups are kept:
//   - https://gitlab.com/course/projects/team-a.git -> course/projects/team-a
//   - git@gitlab.com:owner/repo -> owner/repo
func parseNamespaceFromURL(url string) (string, error) {
	url = strings.TrimSpace(url)

	// Try HTTPS pattern first
	if matches := httpsURLPattern.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}

	// Try SSH pattern
	if matches := sshURLPattern.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}

	return "", fmt.Errorf("unrecognized URL format: %s", url)
}
