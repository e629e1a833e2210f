package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/util"
)

// Migrate brings the archive schema up to v1.
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

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  canonical_url TEXT NOT NULL UNIQUE,
  url TEXT NOT NULL,
  source TEXT NOT NULL,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL,
  job_type TEXT NOT NULL DEFAULT '',
  date_posted TEXT NOT NULL DEFAULT '',
  search_country TEXT NOT NULL,
  search_role TEXT NOT NULL,
  visa_mentioned INTEGER NOT NULL DEFAULT 0,
  scraped_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_jobs_scraped_at
ON jobs(scraped_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// InsertIfNew archives an accepted record, keyed by canonical URL. Returns
// false when an earlier run already has the posting.
func InsertIfNew(ctx context.Context, db *sql.DB, rec domain.JobRecord) (bool, error) {
	datePosted := ""
	if rec.DatePosted != nil {
		datePosted = rec.DatePosted.Format(time.RFC3339)
	}
	visa := 0
	if rec.VisaMentioned {
		visa = 1
	}

	res, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs(canonical_url, url, source, title, company, location, job_type, date_posted, search_country, search_role, visa_mentioned, scraped_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?);`,
		util.CanonicalizeURL(rec.URL),
		rec.URL,
		string(rec.Source),
		rec.Title,
		rec.Company,
		rec.Location,
		rec.JobType,
		datePosted,
		rec.SearchCountry,
		rec.SearchRole,
		visa,
		rec.ScrapedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CleanupOldJobs drops archive rows older than three months.
func CleanupOldJobs(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM jobs
WHERE scraped_at < datetime('now', '-3 months');
`)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
