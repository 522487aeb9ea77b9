// Package poll runs the scrape sources and feeds their batches into the
// ingestion reconciler.
package poll

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/ingest"
	"jobfeed-engine/internal/scrape/email"
	"jobfeed-engine/internal/scrape/greenhouse"
	"jobfeed-engine/internal/scrape/lever"
	"jobfeed-engine/internal/scrape/types"
	"jobfeed-engine/internal/scrape/util"
	"jobfeed-engine/internal/secrets"
)

type Runner struct {
	rec    *ingest.Reconciler
	hub    *events.Hub
	log    *zap.Logger
	status atomic.Value // types.Status
}

func NewRunner(rec *ingest.Reconciler, hub *events.Hub, log *zap.Logger) *Runner {
	r := &Runner{rec: rec, hub: hub, log: log}
	r.status.Store(types.Status{})
	return r
}

func (r *Runner) Status() types.Status {
	return r.status.Load().(types.Status)
}

// RunOnce fetches every enabled source concurrently and ingests one batch
// per source. Sources are rebuilt from cfg on each run so config edits take
// effect on the next poll.
func (r *Runner) RunOnce(ctx context.Context, cfg config.Config) (ingest.Result, error) {
	fetchers := r.buildFetchers(cfg)
	if len(fetchers) == 0 {
		return ingest.Result{}, nil
	}

	st := r.Status()
	st.Running = true
	st.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	r.status.Store(st)

	var g errgroup.Group
	results := make(chan types.Result, len(fetchers))

	for _, f := range fetchers {
		f := f
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, fetchTimeout(f.Name()))
			defer cancel()

			res, err := f.Fetch(fctx)
			if err != nil {
				// a dead source must not sink the others
				r.log.Warn("source fetch failed", zap.String("source", f.Name()), zap.Error(err))
				return nil
			}
			results <- res
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	var total ingest.Result
	var runErr error

	for res := range results {
		if len(res.Postings) > 0 {
			ir, err := r.rec.Ingest(ctx, res.Postings)
			if err != nil {
				r.log.Error("ingest failed", zap.String("source", res.Source), zap.Error(err))
				runErr = err
				continue
			}
			total.Received += ir.Received
			total.InsertedNew += ir.InsertedNew
			total.UpdatedExisting += ir.UpdatedExisting
			total.SkippedDuplicates += ir.SkippedDuplicates
		}

		if res.Finalize != nil {
			if err := res.Finalize(ctx); err != nil {
				r.log.Warn("source finalize failed", zap.String("source", res.Source), zap.Error(err))
			}
		}
	}

	st = r.Status()
	st.Running = false
	st.LastInserted = total.InsertedNew
	st.LastUpdated = total.UpdatedExisting
	st.LastSkipped = total.SkippedDuplicates
	if runErr != nil {
		st.LastError = runErr.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().UTC().Format(time.RFC3339)
	}
	r.status.Store(st)

	if total.InsertedNew > 0 && r.hub != nil {
		r.hub.Publish(events.MakeEvent("", events.TypeJobsIngested, total))
	}

	return total, runErr
}

func (r *Runner) buildFetchers(cfg config.Config) []types.Fetcher {
	limiter := util.NewHostLimiter(1.0, 2)

	var fetchers []types.Fetcher
	if cfg.Sources.Greenhouse.Enabled {
		var companies []greenhouse.Company
		for _, co := range cfg.Sources.Greenhouse.Companies {
			companies = append(companies, greenhouse.Company{Slug: co.Slug, Name: co.Name})
		}
		fetchers = append(fetchers, greenhouse.New(greenhouse.Config{Companies: companies}, limiter, r.log))
	}
	if cfg.Sources.Lever.Enabled {
		var companies []lever.Company
		for _, co := range cfg.Sources.Lever.Companies {
			companies = append(companies, lever.Company{Slug: co.Slug, Name: co.Name})
		}
		fetchers = append(fetchers, lever.New(lever.Config{Companies: companies}, limiter, r.log))
	}
	if cfg.Email.Enabled {
		pw, err := secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
		if err != nil {
			r.log.Warn("email source skipped", zap.Error(err))
		} else {
			fetchers = append(fetchers, &email.Fetcher{Cfg: cfg, Password: pw, Log: r.log})
		}
	}
	return fetchers
}

func fetchTimeout(source string) time.Duration {
	switch source {
	case "greenhouse", "lever":
		return 5 * time.Minute
	default:
		return 2 * time.Minute
	}
}
