// Package lifecycle drives the NEW -> CONSUMED / NEW -> STALE transitions.
package lifecycle

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/domain"
)

const DefaultFetchLimit = 100

// ConsumeResult is the per-call accounting. Requested always equals
// Marked + AlreadyConsumed + NotFound.
type ConsumeResult struct {
	Requested       int `json:"requested"`
	Marked          int `json:"marked"`
	AlreadyConsumed int `json:"already_consumed"`
	NotFound        int `json:"not_found"`
}

func (r ConsumeResult) check() error {
	if r.Requested != r.Marked+r.AlreadyConsumed+r.NotFound {
		return errors.Wrapf(domain.ErrInvariant,
			"consume counts do not sum: requested=%d marked=%d already=%d missing=%d",
			r.Requested, r.Marked, r.AlreadyConsumed, r.NotFound)
	}
	return nil
}

// Service implements the read-then-mark delivery protocol: the consumer
// fetches NEW jobs, processes them, then acks by id. A crash between fetch
// and ack leaves the jobs NEW, to be re-delivered on the next fetch
// (at-least-once; the consumer dedups on its side).
type Service struct {
	repo  domain.Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewService(repo domain.Repository, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{repo: repo, clock: clk, log: log}
}

// FetchNew returns the oldest NEW jobs without changing their state.
func (s *Service) FetchNew(ctx context.Context, limit int) ([]*domain.StoredJob, error) {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	return s.repo.FetchNewOldestFirst(ctx, limit)
}

// MarkConsumed acks delivered jobs by id, in one transaction with one
// timestamp. NEW records transition to CONSUMED; records already in a
// terminal state (CONSUMED or STALE) count as AlreadyConsumed, making the
// call idempotent; unknown ids count as NotFound. Fails without touching
// the store when ids is empty.
func (s *Service) MarkConsumed(ctx context.Context, ids []string) (ConsumeResult, error) {
	if len(ids) == 0 {
		return ConsumeResult{}, errors.Wrap(domain.ErrInvalidInput, "mark consumed: empty id list")
	}

	res := ConsumeResult{Requested: len(ids)}
	now := s.clock.Now()

	err := s.repo.InTx(ctx, func(r domain.Repository) error {
		found, err := r.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.StoredJob, len(found))
		for _, j := range found {
			byID[j.ID] = j
		}

		toMark := make([]string, 0, len(ids))
		marking := make(map[string]bool, len(ids))
		for _, id := range ids {
			j, ok := byID[id]
			switch {
			case !ok:
				res.NotFound++
			case j.State == domain.StateNew && !marking[id]:
				marking[id] = true
				toMark = append(toMark, id)
				res.Marked++
			default:
				// CONSUMED, STALE, or a duplicate id in this very call.
				res.AlreadyConsumed++
			}
		}

		if len(toMark) == 0 {
			return nil
		}
		return r.BulkTransition(ctx, toMark, domain.StateConsumed, now)
	})
	if err != nil {
		return ConsumeResult{}, err
	}

	if err := res.check(); err != nil {
		return ConsumeResult{}, err
	}

	s.log.Info("jobs consumed",
		zap.Int("requested", res.Requested),
		zap.Int("marked", res.Marked),
		zap.Int("already_consumed", res.AlreadyConsumed),
		zap.Int("not_found", res.NotFound))
	return res, nil
}
