// Package ingest reconciles scraped batches against the job store.
package ingest

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/identity"
)

// Result is the per-batch accounting. Received always equals
// InsertedNew + UpdatedExisting + SkippedDuplicates.
type Result struct {
	Received          int `json:"received"`
	InsertedNew       int `json:"inserted_new"`
	UpdatedExisting   int `json:"updated_existing"`
	SkippedDuplicates int `json:"skipped_duplicates"`
}

func (r Result) check() error {
	if r.Received != r.InsertedNew+r.UpdatedExisting+r.SkippedDuplicates {
		return errors.Wrapf(domain.ErrInvariant,
			"ingest counts do not sum: received=%d inserted=%d updated=%d skipped=%d",
			r.Received, r.InsertedNew, r.UpdatedExisting, r.SkippedDuplicates)
	}
	return nil
}

type Reconciler struct {
	repo  domain.Repository
	calc  *identity.Calculator
	clock clock.Clock
	log   *zap.Logger
}

func NewReconciler(repo domain.Repository, calc *identity.Calculator, clk clock.Clock, log *zap.Logger) *Reconciler {
	return &Reconciler{repo: repo, calc: calc, clock: clk, log: log}
}

type uniquePosting struct {
	id      domain.Identity
	posting domain.JobPosting
}

// Ingest reconciles one batch, in input order, as a single transaction.
//
// Within the batch the first occurrence of an identity wins and later repeats
// are skipped. Each surviving posting is inserted as NEW if its identity is
// unseen, otherwise its business fields are refreshed in place. State and
// enteredNewAt are never touched on update, so replaying a batch can not
// re-queue a job that was already delivered: the second run reports
// insertedNew=0 and only bumps updatedAt.
//
// All records written by one call share one timestamp.
func (rc *Reconciler) Ingest(ctx context.Context, postings []domain.JobPosting) (Result, error) {
	res := Result{Received: len(postings)}

	for i := range postings {
		if err := postings[i].Validate(); err != nil {
			return Result{}, errors.Wrapf(err, "posting %d", i)
		}
	}

	now := rc.clock.Now()

	seen := make(map[domain.Identity]bool, len(postings))
	unique := make([]uniquePosting, 0, len(postings))
	for i := range postings {
		id, err := rc.calc.Calculate(&postings[i])
		if err != nil {
			return Result{}, errors.Wrapf(err, "posting %d", i)
		}
		if seen[id] {
			res.SkippedDuplicates++
			continue
		}
		seen[id] = true
		unique = append(unique, uniquePosting{id: id, posting: postings[i]})
	}

	err := rc.repo.InTx(ctx, func(r domain.Repository) error {
		for _, u := range unique {
			existing, err := r.FindByIdentity(ctx, u.id)
			if err != nil {
				return err
			}

			if existing == nil {
				_, err := r.InsertNew(ctx, u.posting, u.id, now)
				if errors.Is(err, domain.ErrConflict) {
					// Lost a concurrent first-seen race; the identity exists
					// now, so take the update path instead.
					raced, ferr := r.FindByIdentity(ctx, u.id)
					if ferr != nil {
						return ferr
					}
					if raced == nil {
						return err
					}
					if uerr := r.UpdateFields(ctx, raced.ID, u.posting, now); uerr != nil {
						return uerr
					}
					res.UpdatedExisting++
					continue
				}
				if err != nil {
					return err
				}
				res.InsertedNew++
				continue
			}

			if err := r.UpdateFields(ctx, existing.ID, u.posting, now); err != nil {
				return err
			}
			res.UpdatedExisting++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if err := res.check(); err != nil {
		return Result{}, err
	}

	rc.log.Info("batch ingested",
		zap.Int("received", res.Received),
		zap.Int("inserted_new", res.InsertedNew),
		zap.Int("updated_existing", res.UpdatedExisting),
		zap.Int("skipped_duplicates", res.SkippedDuplicates))
	return res, nil
}
