// Package store implements the local cache: a single
// SQLite-class file at <repo>/.lb/cache.db, opened in write-ahead logging
// mode, with typed accessors for issues, dependencies, labels, the
// outbox, and metadata. Migrations are gated by a schema_version counter
// (PRAGMA user_version): version 1 creates the base schema and version 2
// relaxes NOT NULL on issue_type.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/nikvdp/lb/internal/errs"
)

// Notifier is called after any cache mutation so the JSONL scheduler can
// debounce an export. Store itself doesn't know
// about exporting; it just signals.
type Notifier interface {
	NotifyMutation()
}

type noopNotifier struct{}

func (noopNotifier) NotifyMutation() {}

// Store wraps the database handle and the current notifier. One Store per
// process; initialise-on-first-use, teardown on process exit.
type Store struct {
	db       *sql.DB
	path     string
	notifier Notifier
	mu       sync.Mutex // serializes schema_version migrations only
}

// Open opens (creating if absent) the cache database at path, enables WAL
// journaling, and runs any pending migrations. Migration failure is
// fatal.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening cache.db: %v", errs.ErrStorage, err)
	}
	db.SetMaxOpenConns(1) // single-writer file; avoid SQLITE_BUSY storms across goroutines

	s := &Store{db: db, path: path, notifier: noopNotifier{}}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// SetNotifier installs the JSONL export scheduler as the mutation notifier.
func (s *Store) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

func (s *Store) notify() { s.notifier.NotifyMutation() }

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the raw handle for callers (e.g. the migration test harness)
// that need it; application code should prefer the typed accessors below.
func (s *Store) DB() *sql.DB { return s.db }

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to errs.ErrNotFound.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
