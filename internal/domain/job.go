package domain

import (
	"context"
	"time"
)

// Lifecycle state of a stored job. NEW is the only non-terminal state: a job
// leaves it exactly once, to CONSUMED (consumer ack) or STALE (TTL sweep).
type State string

const (
	StateNew      State = "new"
	StateConsumed State = "consumed"
	StateStale    State = "stale"
)

// StoredJob is one deduplicated job: the immutable posting fields plus the
// small mutable envelope the lifecycle operations touch. ID, Identity and
// CreatedAt are write-once; ingestion refreshes Posting and UpdatedAt only.
type StoredJob struct {
	ID       string     `json:"id"`
	Identity Identity   `json:"identity"`
	Posting  JobPosting `json:"posting"`
	State    State      `json:"state"`

	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	StateChangedAt time.Time `json:"state_changed_at"`

	// EnteredNewAt is set while the record is NEW and cleared on any
	// transition out of NEW.
	EnteredNewAt *time.Time `json:"entered_new_at,omitempty"`
}

// Repository is the persistence port for stored jobs. Implementations own
// concurrency control; in particular the identity columns carry unique
// constraints so that a concurrent first-seen race yields exactly one insert
// and an ErrConflict for the loser.
type Repository interface {
	// InTx runs fn against a transactional view of the repository. Every
	// write inside fn commits together or not at all. Nested calls join the
	// enclosing transaction.
	InTx(ctx context.Context, fn func(Repository) error) error

	// FindByIdentity returns the record with the given identity, or nil when
	// no such record exists.
	FindByIdentity(ctx context.Context, id Identity) (*StoredJob, error)

	// InsertNew stores a first-seen posting in state NEW with
	// enteredNewAt = now. Returns ErrConflict if the identity already exists.
	InsertNew(ctx context.Context, p JobPosting, id Identity, now time.Time) (*StoredJob, error)

	// UpdateFields refreshes the business fields of an existing record and
	// sets updatedAt. State, identity, createdAt and enteredNewAt are
	// untouched.
	UpdateFields(ctx context.Context, recordID string, p JobPosting, now time.Time) error

	// FindByIDs returns the records that exist among ids, in no particular
	// order. Missing ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) ([]*StoredJob, error)

	// BulkTransition moves all given records to state, stamping
	// stateChangedAt = now and clearing enteredNewAt.
	BulkTransition(ctx context.Context, ids []string, state State, now time.Time) error

	// FindNewOlderThan returns NEW records with enteredNewAt before cutoff.
	FindNewOlderThan(ctx context.Context, cutoff time.Time) ([]*StoredJob, error)

	// FetchNewOldestFirst returns up to limit NEW records ordered by
	// enteredNewAt ascending, id ascending. The ordering is total, so
	// repeated fetches paginate deterministically.
	FetchNewOldestFirst(ctx context.Context, limit int) ([]*StoredJob, error)
}
