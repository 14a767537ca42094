package migrations

import (
	"context"
	"database/sql"
)

// relaxIssueTypeNotNull drops the NOT NULL constraint on issues.issue_type
// now that type-labelling is optional. SQLite has no
// ALTER COLUMN, so this rebuilds the table following SQLite's documented
// procedure: create the new shape, copy rows, drop the old table, rename.
func relaxIssueTypeNotNull(ctx context.Context, tx *sql.Tx) error {
	var alreadyNullable bool
	rows, err := tx.QueryContext(ctx, `SELECT "notnull" FROM pragma_table_info('issues') WHERE name = 'issue_type'`)
	if err != nil {
		return err
	}
	if rows.Next() {
		var notNull int
		if err := rows.Scan(&notNull); err != nil {
			rows.Close()
			return err
		}
		alreadyNullable = notNull == 0
	}
	rows.Close()
	if alreadyNullable {
		return nil
	}

	stmts := []string{
		`CREATE TABLE issues_new (
			id              TEXT PRIMARY KEY,
			identifier      TEXT NOT NULL UNIQUE,
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			priority        INTEGER NOT NULL,
			issue_type      TEXT,
			assignee        TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL,
			closed_at       DATETIME,
			cached_at       DATETIME NOT NULL,
			source_repo     TEXT NOT NULL DEFAULT '.',
			content_hash    TEXT NOT NULL DEFAULT '',
			remote_state_id TEXT NOT NULL DEFAULT ''
		)`,
		`INSERT INTO issues_new SELECT
			id, identifier, title, description, status, priority,
			NULLIF(issue_type, ''), assignee, created_at, updated_at,
			closed_at, cached_at, source_repo, content_hash, remote_state_id
		FROM issues`,
		`DROP TABLE issues`,
		`ALTER TABLE issues_new RENAME TO issues`,
		`CREATE INDEX IF NOT EXISTS idx_issues_identifier ON issues(identifier)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_cached_at ON issues(cached_at)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
