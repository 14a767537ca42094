package store

import (
	"context"
	"database/sql"
	"errors"
)

// UpsertLabel records a label returned by the Remote, used for repo
// scoping and type tagging.
func (s *Store) UpsertLabel(ctx context.Context, id, name, teamID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, name, team_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, team_id = excluded.team_id
	`, id, name, teamID)
	return wrapDBError("upsert_label", err)
}

// LabelByName looks up a label by its exact name, used to resolve
// repo:<name> scoping labels.
func (s *Store) LabelByName(ctx context.Context, name string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM labels WHERE name = ? LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBError("label_by_name", err)
	}
	return id, true, nil
}
