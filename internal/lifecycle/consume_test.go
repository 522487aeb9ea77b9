package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/store"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func seedJob(t *testing.T, repo *store.Mem, n int, now time.Time) *domain.StoredJob {
	t.Helper()
	url := fmt.Sprintf("https://example.com/jobs/%d", n)
	id, err := domain.URLIdentity(url)
	require.NoError(t, err)
	j, err := repo.InsertNew(context.Background(), domain.JobPosting{
		Title: "Engineer", Company: "Acme", Location: "Berlin",
		URL: url, PublishedDate: now,
	}, id, now)
	require.NoError(t, err)
	return j
}

func TestFetchNewOldestFirst(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	svc := NewService(repo, clk, zap.NewNop())

	first := seedJob(t, repo, 1, t0)
	second := seedJob(t, repo, 2, t0.Add(time.Minute))
	third := seedJob(t, repo, 3, t0.Add(2*time.Minute))

	jobs, err := svc.FetchNew(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)

	// fetching does not change state
	again, err := svc.FetchNew(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, again, 3)
	assert.Equal(t, third.ID, again[2].ID)
}

func TestMarkConsumedMixed(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	svc := NewService(repo, clk, zap.NewNop())

	fresh := seedJob(t, repo, 1, t0)
	done := seedJob(t, repo, 2, t0)
	require.NoError(t, repo.BulkTransition(context.Background(), []string{done.ID}, domain.StateConsumed, t0))

	res, err := svc.MarkConsumed(context.Background(), []string{fresh.ID, done.ID, "no-such-id"})
	require.NoError(t, err)
	assert.Equal(t, ConsumeResult{Requested: 3, Marked: 1, AlreadyConsumed: 1, NotFound: 1}, res)
	assert.Equal(t, res.Requested, res.Marked+res.AlreadyConsumed+res.NotFound)
}

func TestMarkConsumedIdempotent(t *testing.T) {
	repo := store.NewMem()
	svc := NewService(repo, clock.NewFake(t0), zap.NewNop())
	j := seedJob(t, repo, 1, t0)

	res, err := svc.MarkConsumed(context.Background(), []string{j.ID})
	require.NoError(t, err)
	assert.Equal(t, ConsumeResult{Requested: 1, Marked: 1}, res)

	res, err = svc.MarkConsumed(context.Background(), []string{j.ID})
	require.NoError(t, err)
	assert.Equal(t, ConsumeResult{Requested: 1, AlreadyConsumed: 1}, res)
}

// A duplicate id inside one call is marked once and acked once.
func TestMarkConsumedDuplicateIDsInCall(t *testing.T) {
	repo := store.NewMem()
	svc := NewService(repo, clock.NewFake(t0), zap.NewNop())
	j := seedJob(t, repo, 1, t0)

	res, err := svc.MarkConsumed(context.Background(), []string{j.ID, j.ID})
	require.NoError(t, err)
	assert.Equal(t, ConsumeResult{Requested: 2, Marked: 1, AlreadyConsumed: 1}, res)
}

// STALE is terminal; acking a stale id reports it as already consumed rather
// than failing the batch.
func TestMarkConsumedStaleCountsAsAlreadyConsumed(t *testing.T) {
	repo := store.NewMem()
	svc := NewService(repo, clock.NewFake(t0), zap.NewNop())
	j := seedJob(t, repo, 1, t0)
	require.NoError(t, repo.BulkTransition(context.Background(), []string{j.ID}, domain.StateStale, t0))

	res, err := svc.MarkConsumed(context.Background(), []string{j.ID})
	require.NoError(t, err)
	assert.Equal(t, ConsumeResult{Requested: 1, AlreadyConsumed: 1}, res)

	found, err := repo.FindByIDs(context.Background(), []string{j.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.StateStale, found[0].State, "ack must not overwrite STALE")
}

func TestMarkConsumedEmptyIDs(t *testing.T) {
	svc := NewService(store.NewMem(), clock.NewFake(t0), zap.NewNop())
	_, err := svc.MarkConsumed(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarkConsumedClearsEnteredNewAt(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	svc := NewService(repo, clk, zap.NewNop())
	j := seedJob(t, repo, 1, t0)

	clk.Advance(time.Minute)
	_, err := svc.MarkConsumed(context.Background(), []string{j.ID})
	require.NoError(t, err)

	found, err := repo.FindByIDs(context.Background(), []string{j.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.StateConsumed, found[0].State)
	assert.Nil(t, found[0].EnteredNewAt)
	assert.Equal(t, t0.Add(time.Minute), found[0].StateChangedAt)
}
