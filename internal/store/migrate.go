package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nikvdp/lb/internal/store/migrations"
)

// schemaVersion is tracked via PRAGMA user_version, a plain integer
// counter built into SQLite for exactly this purpose.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func setSchemaVersion(ctx context.Context, db *sql.DB, v int) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v))
	return err
}

// migrate brings the database from its current schema_version up to the
// latest, running each step inside its own transaction. Version 1 creates
// the base schema; subsequent steps are additive migrations such as
// "relax NOT NULL on issue_type".
func (s *Store) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := schemaVersion(ctx, s.db)
	if err != nil {
		return fmt.Errorf("reading schema_version: %w", err)
	}

	steps := migrations.Steps()
	for _, step := range steps {
		if step.Version <= cur {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", step.Version, err)
		}
		if err := step.Apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", step.Version, err)
		}
		if err := setSchemaVersion(ctx, s.db, step.Version); err != nil {
			return fmt.Errorf("recording schema_version=%d: %w", step.Version, err)
		}
		cur = step.Version
	}
	return nil
}
