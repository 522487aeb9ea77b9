package types

import (
	"context"

	"jobfeed-engine/internal/domain"
)

type Result struct {
	Source   string
	Postings []domain.JobPosting
	// Finalize runs after the postings were ingested (e.g. mark mails seen).
	Finalize func(context.Context) error
}

type Status struct {
	LastRunAt    string `json:"last_run_at"`
	LastOkAt     string `json:"last_ok_at"`
	LastError    string `json:"last_error"`
	LastInserted int    `json:"last_inserted"`
	LastUpdated  int    `json:"last_updated"`
	LastSkipped  int    `json:"last_skipped"`
	Running      bool   `json:"running"`
}

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (Result, error)
}
