package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

func contentHash(i *types.Issue) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%s\x00%s",
		i.Title, i.Description, i.Status, i.Priority, i.IssueType, i.Assignee)))
	return hex.EncodeToString(h[:8])
}

// UpsertIssue inserts or updates a single issue by its public identifier.
// cached_at is bumped to now, never decreased.
func (s *Store) UpsertIssue(ctx context.Context, issue *types.Issue) error {
	if err := issue.Validate(); err != nil {
		return err
	}
	if issue.Identifier == "" {
		issue.Identifier = issue.ID
	}
	now := time.Now().UTC()
	if issue.CachedAt.IsZero() || issue.CachedAt.Before(now) {
		issue.CachedAt = now
	}
	issue.ContentHash = contentHash(issue)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (
			id, identifier, title, description, status, priority, issue_type,
			assignee, created_at, updated_at, closed_at, cached_at,
			source_repo, content_hash, remote_state_id
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(identifier) DO UPDATE SET
			title=excluded.title, description=excluded.description,
			status=excluded.status, priority=excluded.priority,
			issue_type=excluded.issue_type, assignee=excluded.assignee,
			updated_at=excluded.updated_at, closed_at=excluded.closed_at,
			cached_at=MAX(issues.cached_at, excluded.cached_at),
			source_repo=excluded.source_repo, content_hash=excluded.content_hash,
			remote_state_id=excluded.remote_state_id
	`,
		issue.ID, issue.Identifier, issue.Title, issue.Description, string(issue.Status),
		issue.Priority, string(issue.IssueType), issue.Assignee, issue.CreatedAt, issue.UpdatedAt,
		issue.ClosedAt, issue.CachedAt, issue.SourceRepo, issue.ContentHash, issue.RemoteStateID,
	)
	if err != nil {
		return wrapDBError("upsert_issue", err)
	}
	if err := s.invalidateBlockedCache(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpsertIssues bulk-upserts a batch inside a single transaction; all
// multi-row writes run atomically or not at all.
func (s *Store) UpsertIssues(ctx context.Context, issues []*types.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError("upsert_issues", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (
			id, identifier, title, description, status, priority, issue_type,
			assignee, created_at, updated_at, closed_at, cached_at,
			source_repo, content_hash, remote_state_id
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(identifier) DO UPDATE SET
			title=excluded.title, description=excluded.description,
			status=excluded.status, priority=excluded.priority,
			issue_type=excluded.issue_type, assignee=excluded.assignee,
			updated_at=excluded.updated_at, closed_at=excluded.closed_at,
			cached_at=MAX(issues.cached_at, excluded.cached_at),
			source_repo=excluded.source_repo, content_hash=excluded.content_hash,
			remote_state_id=excluded.remote_state_id
	`)
	if err != nil {
		return wrapDBError("upsert_issues:prepare", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, issue := range issues {
		if err := issue.Validate(); err != nil {
			return err
		}
		if issue.Identifier == "" {
			issue.Identifier = issue.ID
		}
		if issue.CachedAt.IsZero() {
			issue.CachedAt = now
		}
		issue.ContentHash = contentHash(issue)
		if _, err := stmt.ExecContext(ctx,
			issue.ID, issue.Identifier, issue.Title, issue.Description, string(issue.Status),
			issue.Priority, string(issue.IssueType), issue.Assignee, issue.CreatedAt, issue.UpdatedAt,
			issue.ClosedAt, issue.CachedAt, issue.SourceRepo, issue.ContentHash, issue.RemoteStateID,
		); err != nil {
			return wrapDBError("upsert_issues:exec", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapDBError("upsert_issues:commit", err)
	}
	if err := s.invalidateBlockedCache(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

const issueColumns = `id, identifier, title, description, status, priority, issue_type,
	assignee, created_at, updated_at, closed_at, cached_at,
	source_repo, content_hash, remote_state_id`

func scanIssue(scanner interface{ Scan(...interface{}) error }) (*types.Issue, error) {
	var i types.Issue
	var issueType, assignee, sourceRepo, contentHash, remoteStateID string
	var closedAt *time.Time
	if err := scanner.Scan(
		&i.ID, &i.Identifier, &i.Title, &i.Description, &i.Status, &i.Priority, &issueType,
		&assignee, &i.CreatedAt, &i.UpdatedAt, &closedAt, &i.CachedAt,
		&sourceRepo, &contentHash, &remoteStateID,
	); err != nil {
		return nil, err
	}
	i.IssueType = types.IssueType(issueType)
	i.Assignee = assignee
	i.ClosedAt = closedAt
	i.SourceRepo = sourceRepo
	i.ContentHash = contentHash
	i.RemoteStateID = remoteStateID
	return &i, nil
}

// GetIssue looks up an issue by its internal id or its public identifier,
// matching either column in a single query.
func (s *Store) GetIssue(ctx context.Context, idOrIdentifier string) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE identifier = ? OR id = ?`,
		idOrIdentifier, idOrIdentifier)
	issue, err := scanIssue(row)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("get_issue(%s)", idOrIdentifier), err)
	}
	return issue, nil
}

// ListIssues returns every cached issue, ordered by identifier for
// deterministic output.
func (s *Store) ListIssues(ctx context.Context) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY identifier`)
	if err != nil {
		return nil, wrapDBError("list_issues", err)
	}
	defer rows.Close()

	var out []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, wrapDBError("list_issues:scan", err)
		}
		out = append(out, issue)
	}
	return out, wrapDBError("list_issues:rows", rows.Err())
}

// DeleteIssue removes an issue row and its outgoing/incoming dependency
// edges. Called optimistically before the corresponding outbox row is
// enqueued.
func (s *Store) DeleteIssue(ctx context.Context, idOrIdentifier string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError("delete_issue", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE identifier = ? OR id = ?`, idOrIdentifier, idOrIdentifier)
	if err != nil {
		return wrapDBError("delete_issue:exec", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("delete_issue(%s): %w", idOrIdentifier, errs.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE issue_id = ? OR depends_on_id = ?`, idOrIdentifier, idOrIdentifier); err != nil {
		return wrapDBError("delete_issue:deps", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapDBError("delete_issue:commit", err)
	}
	if err := s.invalidateBlockedCache(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// ClearIssues truncates the issues table, used by full sync to prune stale
// rows. Returns the number of rows removed.
// Non-parent-child dependency rows are preserved.
func (s *Store) ClearIssues(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&n); err != nil {
		return 0, wrapDBError("clear_issues:count", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM issues`); err != nil {
		return 0, wrapDBError("clear_issues", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dependencies WHERE type = ?`, string(types.DepParentChild)); err != nil {
		return 0, wrapDBError("clear_issues:deps", err)
	}
	return n, nil
}
