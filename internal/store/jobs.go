package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	gosqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"jobfeed-engine/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Jobs is the sqlite-backed domain.Repository.
type Jobs struct {
	pool *sql.DB
	q    querier
}

func NewJobs(db *DB) *Jobs {
	return &Jobs{pool: db.Pool, q: db.Pool}
}

// InTx begins a transaction and hands fn a Jobs bound to it. A Jobs that is
// already transactional joins the enclosing transaction instead of opening a
// second one.
func (s *Jobs) InTx(ctx context.Context, fn func(domain.Repository) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Jobs{pool: s.pool, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const jobColumns = `id, canonical_url, fallback_hash, title, company, location, url,
published_date, source, seniority, employment_type, tech_keywords, salary,
description_snippet, state, created_at, updated_at, state_changed_at, entered_new_at`

func (s *Jobs) FindByIdentity(ctx context.Context, id domain.Identity) (*domain.StoredJob, error) {
	if id.IsZero() {
		return nil, errors.Wrap(domain.ErrInvariant, "find by identity: zero identity")
	}

	var row *sql.Row
	if id.IsURL() {
		row = s.q.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE canonical_url = ?;`, id.URL())
	} else {
		row = s.q.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE fallback_hash = ?;`, id.Hash())
	}

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (s *Jobs) InsertNew(ctx context.Context, p domain.JobPosting, id domain.Identity, now time.Time) (*domain.StoredJob, error) {
	if id.IsZero() {
		return nil, errors.Wrap(domain.ErrInvariant, "insert: zero identity")
	}

	recordID := uuid.NewString()
	keywords, err := json.Marshal(p.TechKeywords)
	if err != nil {
		return nil, err
	}

	var canonicalURL, fallbackHash any
	if id.IsURL() {
		canonicalURL = id.URL()
	} else {
		fallbackHash = id.Hash()
	}

	ts := fmtTime(now)
	_, err = s.q.ExecContext(ctx, `
INSERT INTO jobs (id, canonical_url, fallback_hash, title, company, location, url,
  published_date, source, seniority, employment_type, tech_keywords, salary,
  description_snippet, state, created_at, updated_at, state_changed_at, entered_new_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		recordID, canonicalURL, fallbackHash, p.Title, p.Company, p.Location, p.URL,
		fmtTime(p.PublishedDate), p.Source, string(p.Seniority), string(p.EmploymentType),
		string(keywords), p.Salary, p.DescriptionSnippet,
		string(domain.StateNew), ts, ts, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Wrap the sentinel so plain errors.Is sees it; the driver error
			// rides along as the secondary cause.
			return nil, errors.WithSecondaryError(
				errors.Wrapf(domain.ErrConflict, "insert job %s", id), err)
		}
		return nil, errors.Wrapf(err, "insert job %s", id)
	}

	enteredNew := now
	return &domain.StoredJob{
		ID:             recordID,
		Identity:       id,
		Posting:        p,
		State:          domain.StateNew,
		CreatedAt:      now,
		UpdatedAt:      now,
		StateChangedAt: now,
		EnteredNewAt:   &enteredNew,
	}, nil
}

func (s *Jobs) UpdateFields(ctx context.Context, recordID string, p domain.JobPosting, now time.Time) error {
	keywords, err := json.Marshal(p.TechKeywords)
	if err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `
UPDATE jobs
SET title = ?, company = ?, location = ?, url = ?, published_date = ?,
    source = ?, seniority = ?, employment_type = ?, tech_keywords = ?,
    salary = ?, description_snippet = ?, updated_at = ?
WHERE id = ?;`,
		p.Title, p.Company, p.Location, p.URL, fmtTime(p.PublishedDate),
		p.Source, string(p.Seniority), string(p.EmploymentType), string(keywords),
		p.Salary, p.DescriptionSnippet, fmtTime(now), recordID,
	)
	if err != nil {
		return errors.Wrapf(err, "update job %s", recordID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrInvariant, "update job %s: no such record", recordID)
	}
	return nil
}

func (s *Jobs) FindByIDs(ctx context.Context, ids []string) ([]*domain.StoredJob, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `);`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *Jobs) BulkTransition(ctx context.Context, ids []string, state domain.State, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	args := []any{string(state), fmtTime(now)}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE jobs SET state = ?, state_changed_at = ?, entered_new_at = NULL
WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `);`

	_, err := s.q.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "transition %d jobs to %s", len(ids), state)
}

func (s *Jobs) FindNewOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.StoredJob, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE state = ? AND entered_new_at < ?
ORDER BY entered_new_at ASC, id ASC;`,
		string(domain.StateNew), fmtTime(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *Jobs) FetchNewOldestFirst(ctx context.Context, limit int) ([]*domain.StoredJob, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE state = ?
ORDER BY entered_new_at ASC, id ASC
LIMIT ?;`,
		string(domain.StateNew), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// fmtTime uses a fixed-width fraction so the stored strings compare
// lexicographically in the same order as the times they encode.
func fmtTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.StoredJob, error) {
	var (
		j             domain.StoredJob
		canonicalURL  sql.NullString
		fallbackHash  sql.NullString
		keywordsJSON  string
		publishedDate string
		createdAt     string
		updatedAt     string
		stateChanged  string
		enteredNewAt  sql.NullString
		state         string
		seniority     string
		employment    string
	)

	err := row.Scan(
		&j.ID, &canonicalURL, &fallbackHash,
		&j.Posting.Title, &j.Posting.Company, &j.Posting.Location, &j.Posting.URL,
		&publishedDate, &j.Posting.Source, &seniority, &employment,
		&keywordsJSON, &j.Posting.Salary, &j.Posting.DescriptionSnippet,
		&state, &createdAt, &updatedAt, &stateChanged, &enteredNewAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case canonicalURL.Valid:
		j.Identity, err = domain.URLIdentity(canonicalURL.String)
	case fallbackHash.Valid:
		j.Identity, err = domain.HashIdentity(fallbackHash.String)
	default:
		err = errors.Wrapf(domain.ErrInvariant, "job %s has no identity column", j.ID)
	}
	if err != nil {
		return nil, err
	}

	j.State = domain.State(state)
	j.Posting.Seniority = domain.Seniority(seniority)
	j.Posting.EmploymentType = domain.EmploymentType(employment)
	if err := json.Unmarshal([]byte(keywordsJSON), &j.Posting.TechKeywords); err != nil {
		return nil, errors.Wrapf(err, "job %s tech_keywords", j.ID)
	}

	if j.Posting.PublishedDate, err = parseTime(publishedDate); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if j.StateChangedAt, err = parseTime(stateChanged); err != nil {
		return nil, err
	}
	if enteredNewAt.Valid {
		t, err := parseTime(enteredNewAt.String)
		if err != nil {
			return nil, err
		}
		j.EnteredNewAt = &t
	}

	return &j, nil
}

func collectJobs(rows *sql.Rows) ([]*domain.StoredJob, error) {
	var out []*domain.StoredJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var serr *gosqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
