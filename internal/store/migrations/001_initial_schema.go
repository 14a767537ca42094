package migrations

import (
	"context"
	"database/sql"
)

// initialSchema creates the five core tables: issues, dependencies,
// labels, outbox, metadata. issue_type starts out NOT NULL
// with a default of '' because early callers always supplied it; the
// version 2 migration relaxes that once type-labelling became optional.
func initialSchema(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS issues (
			id              TEXT PRIMARY KEY,
			identifier      TEXT NOT NULL UNIQUE,
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			priority        INTEGER NOT NULL,
			issue_type      TEXT NOT NULL DEFAULT '',
			assignee        TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL,
			closed_at       DATETIME,
			cached_at       DATETIME NOT NULL,
			source_repo     TEXT NOT NULL DEFAULT '.',
			content_hash    TEXT NOT NULL DEFAULT '',
			remote_state_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_identifier ON issues(identifier)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_cached_at ON issues(cached_at)`,

		`CREATE TABLE IF NOT EXISTS dependencies (
			issue_id      TEXT NOT NULL,
			depends_on_id TEXT NOT NULL,
			type          TEXT NOT NULL,
			created_at    DATETIME NOT NULL,
			created_by    TEXT NOT NULL DEFAULT '',
			UNIQUE(issue_id, depends_on_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_issue_id ON dependencies(issue_id, depends_on_id)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_depends_on ON dependencies(depends_on_id)`,

		`CREATE TABLE IF NOT EXISTS labels (
			id      TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			team_id TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS outbox (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			operation   TEXT NOT NULL,
			payload     TEXT NOT NULL,
			created_at  DATETIME NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error  TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS blocked_cache (
			issue_id TEXT PRIMARY KEY
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
