package store

import "database/sql"

// Migrate brings the schema up to the current version, tracked through
// PRAGMA user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  canonical_url TEXT,
  fallback_hash TEXT,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL,
  url TEXT NOT NULL,
  published_date TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  seniority TEXT NOT NULL DEFAULT '',
  employment_type TEXT NOT NULL DEFAULT '',
  tech_keywords TEXT NOT NULL DEFAULT '[]',
  salary TEXT NOT NULL DEFAULT '',
  description_snippet TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  state_changed_at TEXT NOT NULL,
  entered_new_at TEXT
);
`); err != nil {
		return err
	}

	// Exactly one identity column is non-null per row; each carries its own
	// partial unique index so concurrent first-seen inserts race safely.
	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_canonical_url
ON jobs(canonical_url)
WHERE canonical_url IS NOT NULL;
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_fallback_hash
ON jobs(fallback_hash)
WHERE fallback_hash IS NOT NULL;
`); err != nil {
		return err
	}

	// Serves "state = NEW ordered by entered_new_at, id".
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_jobs_new_queue
ON jobs(state, entered_new_at, id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}
