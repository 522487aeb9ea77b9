package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/store"
)

func TestIsStale(t *testing.T) {
	entered := t0
	assert.False(t, IsStale(entered, entered.Add(6*24*time.Hour)))
	assert.False(t, IsStale(entered, entered.Add(NewStateTTL)), "exactly at the TTL is not yet stale")
	assert.True(t, IsStale(entered, entered.Add(NewStateTTL+time.Nanosecond)))
	assert.True(t, IsStale(entered, entered.Add(8*24*time.Hour)))
}

func TestStaleCutoff(t *testing.T) {
	now := t0
	cutoff := StaleCutoff(now)
	assert.Equal(t, now.Add(-7*24*time.Hour), cutoff)
}

func TestSweepRetiresOnlyExpired(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	sw := NewSweeper(repo, clk, zap.NewNop())

	old := seedJob(t, repo, 1, t0.Add(-8*24*time.Hour))
	fresh := seedJob(t, repo, 2, t0.Add(-6*24*time.Hour))

	swept, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	found, err := repo.FindByIDs(context.Background(), []string{old.ID, fresh.ID})
	require.NoError(t, err)
	states := map[string]domain.State{}
	for _, j := range found {
		states[j.ID] = j.State
	}
	assert.Equal(t, domain.StateStale, states[old.ID])
	assert.Equal(t, domain.StateNew, states[fresh.ID])
}

func TestSweepIgnoresTerminalStates(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	sw := NewSweeper(repo, clk, zap.NewNop())

	old := seedJob(t, repo, 1, t0.Add(-10*24*time.Hour))
	require.NoError(t, repo.BulkTransition(context.Background(), []string{old.ID}, domain.StateConsumed, t0))

	swept, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)

	found, err := repo.FindByIDs(context.Background(), []string{old.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.StateConsumed, found[0].State)
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	sw := NewSweeper(repo, clk, zap.NewNop())

	seedJob(t, repo, 1, t0.Add(-8*24*time.Hour))

	swept, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	swept, err = sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)
}

// Swept records leave the consumer queue for good.
func TestSweepRemovesFromNewQueue(t *testing.T) {
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	sw := NewSweeper(repo, clk, zap.NewNop())
	svc := NewService(repo, clk, zap.NewNop())

	seedJob(t, repo, 1, t0.Add(-9*24*time.Hour))
	keep := seedJob(t, repo, 2, t0.Add(-time.Hour))

	_, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	jobs, err := svc.FetchNew(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, keep.ID, jobs[0].ID)
}
