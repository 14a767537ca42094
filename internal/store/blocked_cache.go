package store

import (
	"context"
	"database/sql"
)

// queryRunner is satisfied by both *sql.DB and *sql.Tx, letting cache
// rebuilds run either standalone or nested inside a caller's transaction.
type queryRunner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// blocked_cache is a materialized view of the blocked set, rebuilt from
// scratch on every mutation that could change it: dependency add/remove,
// status change, issue delete. Keeping it materialized means reads never
// walk the dependency graph — only the much rarer write path does.
//
// Algorithm: start from the direct blocked set (targets of
// a `blocks` edge from a non-closed issue), then repeatedly pull in
// children of anything already in the set via `parent-child` edges,
// until a pass adds nothing new.
func (s *Store) rebuildBlockedCache(ctx context.Context, run queryRunner) error {
	if _, err := run.ExecContext(ctx, `DELETE FROM blocked_cache`); err != nil {
		return wrapDBError("rebuild_blocked_cache:clear", err)
	}

	blocked := make(map[string]bool)
	rows, err := run.QueryContext(ctx, `
		SELECT DISTINCT d.depends_on_id
		FROM dependencies d
		JOIN issues a ON a.id = d.issue_id
		WHERE d.type = 'blocks' AND a.status != 'closed'
	`)
	if err != nil {
		return wrapDBError("rebuild_blocked_cache:direct", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return wrapDBError("rebuild_blocked_cache:scan", err)
		}
		blocked[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrapDBError("rebuild_blocked_cache:rows", err)
	}

	// Fixed-point extension through parent-child edges: children of a
	// blocked parent are blocked too.
	for {
		added := false
		rows, err := run.QueryContext(ctx, `SELECT issue_id, depends_on_id FROM dependencies WHERE type = 'parent-child'`)
		if err != nil {
			return wrapDBError("rebuild_blocked_cache:pc", err)
		}
		type edge struct{ child, parent string }
		var edges []edge
		for rows.Next() {
			var e edge
			if err := rows.Scan(&e.child, &e.parent); err != nil {
				rows.Close()
				return wrapDBError("rebuild_blocked_cache:pc_scan", err)
			}
			edges = append(edges, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return wrapDBError("rebuild_blocked_cache:pc_rows", err)
		}
		for _, e := range edges {
			if blocked[e.parent] && !blocked[e.child] {
				blocked[e.child] = true
				added = true
			}
		}
		if !added {
			break
		}
	}

	for id := range blocked {
		if _, err := run.ExecContext(ctx, `INSERT OR IGNORE INTO blocked_cache(issue_id) VALUES (?)`, id); err != nil {
			return wrapDBError("rebuild_blocked_cache:insert", err)
		}
	}
	return nil
}

// invalidateBlockedCache rebuilds the cache using the store's own
// connection (not inside a caller's transaction). Used by accessors that
// don't already hold one open.
func (s *Store) invalidateBlockedCache(ctx context.Context) error {
	return s.rebuildBlockedCache(ctx, s.db)
}

// BlockedSet returns the current materialized blocked set as a set of
// issue identifiers.
func (s *Store) BlockedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT issue_id FROM blocked_cache`)
	if err != nil {
		return nil, wrapDBError("blocked_set", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("blocked_set:scan", err)
		}
		out[id] = true
	}
	return out, wrapDBError("blocked_set:rows", rows.Err())
}
