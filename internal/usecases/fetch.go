package usecases

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

// DefaultConcurrency is the number of host requests issued in parallel per project.
const DefaultConcurrency = 8

// FetchResult is the outcome of one per-commit host read.
type FetchResult[T any] struct {
	Value T
	Err   error
}

// CommitFetcher reads per-commit data from the host with bounded concurrency.
// Results are keyed by commit ID, so completion order never matters.
type CommitFetcher struct {
	host  domain.SourceHost
	limit int
}

// NewCommitFetcher creates a CommitFetcher issuing at most limit requests at once.
func NewCommitFetcher(host domain.SourceHost, limit int) *CommitFetcher {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &CommitFetcher{host: host, limit: limit}
}

// Statuses fetches the CI statuses of every commit.
func (f *CommitFetcher) Statuses(
	ctx context.Context,
	projectID int,
	commitIDs []string,
) map[string]FetchResult[[]domain.CommitStatus] {
	return fetchAll(ctx, f.limit, commitIDs, func(ctx context.Context, id string) ([]domain.CommitStatus, error) {
		return f.host.ListCommitStatuses(ctx, projectID, id)
	})
}

// Diffs fetches the diff of every commit.
func (f *CommitFetcher) Diffs(
	ctx context.Context,
	projectID int,
	commitIDs []string,
) map[string]FetchResult[[]domain.FileChange] {
	return fetchAll(ctx, f.limit, commitIDs, func(ctx context.Context, id string) ([]domain.FileChange, error) {
		return f.host.GetCommitDiff(ctx, projectID, id)
	})
}

// Diff fetches a single commit diff.
func (f *CommitFetcher) Diff(ctx context.Context, projectID int, commitID string) ([]domain.FileChange, error) {
	return f.host.GetCommitDiff(ctx, projectID, commitID)
}

// fetchAll runs fetch for every id with at most limit calls in flight.
// A failed fetch is recorded in its result and does not stop the others.
func fetchAll[T any](
	ctx context.Context,
	limit int,
	ids []string,
	fetch func(ctx context.Context, id string) (T, error),
) map[string]FetchResult[T] {
	results := make([]FetchResult[T], len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fetch(ctx, id)
			results[i] = FetchResult[T]{Value: v, Err: err}
			return nil
		})
	}
	// every goroutine returns nil
	_ = g.Wait()

	out := make(map[string]FetchResult[T], len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out
}

func commitIDs(commits []ClassifiedCommit) []string {
	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
	}
	return ids
}
