package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/domain"
)

// Sweeper retires NEW records that outlived the TTL. STALE records are
// terminal and drop out of the NEW-queue read path for good.
type Sweeper struct {
	repo  domain.Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewSweeper(repo domain.Repository, clk clock.Clock, log *zap.Logger) *Sweeper {
	return &Sweeper{repo: repo, clock: clk, log: log}
}

// Sweep transitions every NEW record older than the cutoff to STALE, batched
// in one transaction with one timestamp. Returns the number of records swept.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := StaleCutoff(now)

	var swept int
	err := s.repo.InTx(ctx, func(r domain.Repository) error {
		expired, err := r.FindNewOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]string, len(expired))
		for i, j := range expired {
			ids[i] = j.ID
		}
		if err := r.BulkTransition(ctx, ids, domain.StateStale, now); err != nil {
			return err
		}
		swept = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		s.log.Info("swept stale jobs", zap.Int("count", swept), zap.Time("cutoff", cutoff))
	}
	return swept, nil
}
