package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/nikvdp/lb/internal/types"
)

// GetMeta reads a metadata value; empty string and no error if absent.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrapDBError("get_meta", err)
	}
	return v, nil
}

// SetMeta upserts a metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return wrapDBError("set_meta", err)
}

// MarkLastSync records the sync timestamp and bumps sync_run_count, used
// by needs_full_sync.
func (s *Store) MarkLastSync(ctx context.Context, now time.Time, full bool) error {
	if err := s.SetMeta(ctx, types.MetaLastSync, now.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if full {
		if err := s.SetMeta(ctx, types.MetaLastFullSync, now.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	count, err := s.GetMeta(ctx, types.MetaSyncRunCount)
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(count)
	n++
	return s.SetMeta(ctx, types.MetaSyncRunCount, strconv.Itoa(n))
}

// LastSync returns the last_sync timestamp, or the zero Time if never synced.
func (s *Store) LastSync(ctx context.Context) (time.Time, error) {
	return s.metaTime(ctx, types.MetaLastSync)
}

// LastFullSync returns the last_full_sync timestamp, or the zero Time if none.
func (s *Store) LastFullSync(ctx context.Context) (time.Time, error) {
	return s.metaTime(ctx, types.MetaLastFullSync)
}

func (s *Store) metaTime(ctx context.Context, key string) (time.Time, error) {
	v, err := s.GetMeta(ctx, key)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", key, err)
	}
	return t, nil
}

// SyncRunCount returns the number of completed sync runs.
func (s *Store) SyncRunCount(ctx context.Context) (int, error) {
	v, err := s.GetMeta(ctx, types.MetaSyncRunCount)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(v)
	return n, nil
}

// NextLocalID allocates the next LOCAL-<n> identifier for local-only mode.
func (s *Store) NextLocalID(ctx context.Context) (int, error) {
	v, err := s.GetMeta(ctx, types.MetaNextLocalID)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(v)
	n++
	if err := s.SetMeta(ctx, types.MetaNextLocalID, strconv.Itoa(n)); err != nil {
		return 0, err
	}
	return n, nil
}
