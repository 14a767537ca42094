package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

// UpsertDep writes a dependency edge. A duplicate (issue_id, depends_on_id,
// type) is swallowed as idempotent success. A
// second outgoing parent-child edge for the same child is rejected
// (invariant 3: at most one parent-child edge per child).
func (s *Store) UpsertDep(ctx context.Context, dep *types.Dependency) error {
	if !dep.Type.Valid() {
		return fmt.Errorf("%w: unknown dependency type %q", errs.ErrValidation, dep.Type)
	}
	if dep.CreatedAt.IsZero() {
		dep.CreatedAt = time.Now().UTC()
	}

	if dep.Type == types.DepParentChild {
		var existingParent string
		err := s.db.QueryRowContext(ctx,
			`SELECT depends_on_id FROM dependencies WHERE issue_id = ? AND type = ?`,
			dep.IssueID, string(types.DepParentChild)).Scan(&existingParent)
		if err == nil && existingParent != dep.DependsOnID {
			return fmt.Errorf("%w: %s already has parent %s", errs.ErrConflict, dep.IssueID, existingParent)
		}
		if err != nil && err != sql.ErrNoRows {
			return wrapDBError("upsert_dep:check_parent", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dependencies (issue_id, depends_on_id, type, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(issue_id, depends_on_id, type) DO NOTHING
	`, dep.IssueID, dep.DependsOnID, string(dep.Type), dep.CreatedAt, dep.CreatedBy)
	if err != nil {
		return wrapDBError("upsert_dep", err)
	}
	if err := s.invalidateBlockedCache(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// ClearDepsOf removes outgoing edges of issueID before re-hydrating
// relations from a targeted `show --sync`. With no types given it removes
// every outgoing edge, parent-child included; otherwise only edges of the
// given types.
func (s *Store) ClearDepsOf(ctx context.Context, issueID string, types_ ...types.DepType) error {
	if len(types_) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM dependencies WHERE issue_id = ?`, issueID)
		if err != nil {
			return wrapDBError("clear_deps_of", err)
		}
	} else {
		for _, t := range types_ {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM dependencies WHERE issue_id = ? AND type = ?`, issueID, string(t)); err != nil {
				return wrapDBError("clear_deps_of", err)
			}
		}
	}
	if err := s.invalidateBlockedCache(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// DeleteDep removes both orientations of an edge between a and b, as
// used by `dep remove`.
func (s *Store) DeleteDep(ctx context.Context, a, b string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM dependencies
		WHERE (issue_id = ? AND depends_on_id = ?) OR (issue_id = ? AND depends_on_id = ?)
	`, a, b, b, a)
	if err != nil {
		return wrapDBError("delete_dep", err)
	}
	if err := s.invalidateBlockedCache(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// ListDepsOut returns outgoing edges from issueID.
func (s *Store) ListDepsOut(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	return s.queryDeps(ctx, `SELECT issue_id, depends_on_id, type, created_at, created_by FROM dependencies WHERE issue_id = ?`, issueID)
}

// ListDepsIn returns incoming edges to issueID.
func (s *Store) ListDepsIn(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	return s.queryDeps(ctx, `SELECT issue_id, depends_on_id, type, created_at, created_by FROM dependencies WHERE depends_on_id = ?`, issueID)
}

func (s *Store) queryDeps(ctx context.Context, query, issueID string) ([]*types.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, wrapDBError("list_deps", err)
	}
	defer rows.Close()

	var out []*types.Dependency
	for rows.Next() {
		var d types.Dependency
		var depType string
		if err := rows.Scan(&d.IssueID, &d.DependsOnID, &depType, &d.CreatedAt, &d.CreatedBy); err != nil {
			return nil, wrapDBError("list_deps:scan", err)
		}
		d.Type = types.DepType(depType)
		out = append(out, &d)
	}
	return out, wrapDBError("list_deps:rows", rows.Err())
}

// Parent returns the parent-child target of issueID, if any.
func (s *Store) Parent(ctx context.Context, issueID string) (string, error) {
	var parent string
	err := s.db.QueryRowContext(ctx,
		`SELECT depends_on_id FROM dependencies WHERE issue_id = ? AND type = ?`,
		issueID, string(types.DepParentChild)).Scan(&parent)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrapDBError("parent", err)
	}
	return parent, nil
}

// Children returns the parent-child children of issueID (issues whose
// outgoing parent-child edge targets issueID).
func (s *Store) Children(ctx context.Context, issueID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_id FROM dependencies WHERE depends_on_id = ? AND type = ?`,
		issueID, string(types.DepParentChild))
	if err != nil {
		return nil, wrapDBError("children", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("children:scan", err)
		}
		out = append(out, id)
	}
	return out, wrapDBError("children:rows", rows.Err())
}
