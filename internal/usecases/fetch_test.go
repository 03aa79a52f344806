package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MyCarrier-DevOps/team-audit/internal/domain"
)

func TestFetchAll_KeyedByID(t *testing.T) {
	defer goleak.VerifyNone(t)

	ids := make([]string, 40)
	for i := range ids {
		ids[i] = fmt.Sprintf("commit-%02d", i)
	}

	got := fetchAll(context.Background(), 4, ids, func(_ context.Context, id string) (string, error) {
		// finish in reverse order of submission
		var n int
		_, _ = fmt.Sscanf(id, "commit-%d", &n)
		time.Sleep(time.Duration(40-n) * 100 * time.Microsecond)
		return "value-" + id, nil
	})

	require.Len(t, got, len(ids))
	for _, id := range ids {
		require.NoError(t, got[id].Err)
		assert.Equal(t, "value-"+id, got[id].Value)
	}
}

func TestFetchAll_RespectsLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	const limit = 3
	var inFlight, peak atomic.Int32

	ids := make([]string, 30)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%d", i)
	}

	fetchAll(context.Background(), limit, ids, func(_ context.Context, _ string) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Positive(t, peak.Load())
}

func TestFetchAll_ErrorsStayLocal(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("502 Bad Gateway")
	got := fetchAll(context.Background(), 2, []string{"ok1", "bad", "ok2"}, func(_ context.Context, id string) (int, error) {
		if id == "bad" {
			return 0, boom
		}
		return len(id), nil
	})

	assert.NoError(t, got["ok1"].Err)
	assert.Equal(t, 3, got["ok1"].Value)
	assert.ErrorIs(t, got["bad"].Err, boom)
	assert.NoError(t, got["ok2"].Err)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	got := fetchAll(ctx, 2, []string{"a", "b"}, func(_ context.Context, _ string) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	assert.Zero(t, calls.Load())
	assert.ErrorIs(t, got["a"].Err, context.Canceled)
	assert.ErrorIs(t, got["b"].Err, context.Canceled)
}

func TestCommitFetcher_Statuses(t *testing.T) {
	defer goleak.VerifyNone(t)

	host := &mockHost{
		statuses: map[string][]domain.CommitStatus{
			"a": successStatuses(),
			"b": {{Name: "build", Status: domain.StatusFailed}},
		},
	}
	f := NewCommitFetcher(host, 0)

	got := f.Statuses(context.Background(), 7, []string{"a", "b", "c"})

	require.Len(t, got, 3)
	assert.Len(t, got["a"].Value, 2)
	assert.Equal(t, domain.StatusFailed, got["b"].Value[0].Status)
	assert.Empty(t, got["c"].Value)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, host.statusCalls)
}

func TestNewCommitFetcher_DefaultLimit(t *testing.T) {
	f := NewCommitFetcher(&mockHost{}, -1)
	assert.Equal(t, DefaultConcurrency, f.limit)
}
