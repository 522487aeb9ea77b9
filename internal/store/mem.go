package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobfeed-engine/internal/domain"
)

// Mem is an in-memory domain.Repository with the same transactional
// semantics as the sqlite one. Used by tests and by --ephemeral runs.
type Mem struct {
	mu   sync.Mutex
	byID map[string]*domain.StoredJob
	inTx bool
}

func NewMem() *Mem {
	return &Mem{byID: make(map[string]*domain.StoredJob)}
}

// InTx snapshots the state and restores it if fn fails, giving the same
// all-or-nothing behavior as a database transaction. Nested calls join the
// enclosing one.
func (m *Mem) InTx(ctx context.Context, fn func(domain.Repository) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	snapshot := make(map[string]*domain.StoredJob, len(m.byID))
	for id, j := range m.byID {
		cp := *j
		if j.EnteredNewAt != nil {
			t := *j.EnteredNewAt
			cp.EnteredNewAt = &t
		}
		snapshot[id] = &cp
	}
	m.mu.Unlock()

	tx := &Mem{byID: snapshot, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.byID = tx.byID
	m.mu.Unlock()
	return nil
}

func (m *Mem) FindByIdentity(ctx context.Context, id domain.Identity) (*domain.StoredJob, error) {
	if id.IsZero() {
		return nil, errors.Wrap(domain.ErrInvariant, "find by identity: zero identity")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.byID {
		if j.Identity == id {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Mem) InsertNew(ctx context.Context, p domain.JobPosting, id domain.Identity, now time.Time) (*domain.StoredJob, error) {
	if id.IsZero() {
		return nil, errors.Wrap(domain.ErrInvariant, "insert: zero identity")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.byID {
		if j.Identity == id {
			return nil, errors.Wrapf(domain.ErrConflict, "identity %s already stored", id)
		}
	}

	entered := now
	j := &domain.StoredJob{
		ID:             uuid.NewString(),
		Identity:       id,
		Posting:        p,
		State:          domain.StateNew,
		CreatedAt:      now,
		UpdatedAt:      now,
		StateChangedAt: now,
		EnteredNewAt:   &entered,
	}
	m.byID[j.ID] = j
	cp := *j
	return &cp, nil
}

func (m *Mem) UpdateFields(ctx context.Context, recordID string, p domain.JobPosting, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[recordID]
	if !ok {
		return errors.Wrapf(domain.ErrInvariant, "update job %s: no such record", recordID)
	}
	j.Posting = p
	j.UpdatedAt = now
	return nil
}

func (m *Mem) FindByIDs(ctx context.Context, ids []string) ([]*domain.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StoredJob
	for _, id := range ids {
		if j, ok := m.byID[id]; ok {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Mem) BulkTransition(ctx context.Context, ids []string, state domain.State, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		j, ok := m.byID[id]
		if !ok {
			continue
		}
		j.State = state
		j.StateChangedAt = now
		j.EnteredNewAt = nil
	}
	return nil
}

func (m *Mem) FindNewOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StoredJob
	for _, j := range m.byID {
		if j.State == domain.StateNew && j.EnteredNewAt != nil && j.EnteredNewAt.Before(cutoff) {
			cp := *j
			out = append(out, &cp)
		}
	}
	sortNewQueue(out)
	return out, nil
}

func (m *Mem) FetchNewOldestFirst(ctx context.Context, limit int) ([]*domain.StoredJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StoredJob
	for _, j := range m.byID {
		if j.State == domain.StateNew {
			cp := *j
			out = append(out, &cp)
		}
	}
	sortNewQueue(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// entered_new_at ascending, id as the stable tie-breaker.
func sortNewQueue(jobs []*domain.StoredJob) {
	sort.Slice(jobs, func(a, b int) bool {
		ta, tb := jobs[a].EnteredNewAt, jobs[b].EnteredNewAt
		if ta != nil && tb != nil && !ta.Equal(*tb) {
			return ta.Before(*tb)
		}
		return jobs[a].ID < jobs[b].ID
	})
}
