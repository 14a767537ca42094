package store

import (
	"context"
	"time"

	"github.com/nikvdp/lb/internal/types"
)

// Enqueue appends a durable outbox row describing an intended Remote
// mutation. Rows are never mutated except to bump
// retry_count / last_error (invariant 5); removal happens only on
// success via AckOutbox.
func (s *Store) Enqueue(ctx context.Context, op types.OutboxOperation, payload []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (operation, payload, created_at, retry_count, last_error)
		VALUES (?, ?, ?, 0, '')
	`, string(op), string(payload), time.Now().UTC())
	if err != nil {
		return 0, wrapDBError("enqueue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("enqueue:last_insert_id", err)
	}
	s.notify()
	return id, nil
}

// PeekOutbox returns pending rows ordered by id ascending.
func (s *Store) PeekOutbox(ctx context.Context) ([]*types.OutboxItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, payload, created_at, retry_count, last_error
		FROM outbox ORDER BY id ASC
	`)
	if err != nil {
		return nil, wrapDBError("peek_outbox", err)
	}
	defer rows.Close()

	var out []*types.OutboxItem
	for rows.Next() {
		var item types.OutboxItem
		var op, payload string
		if err := rows.Scan(&item.ID, &op, &payload, &item.CreatedAt, &item.RetryCount, &item.LastError); err != nil {
			return nil, wrapDBError("peek_outbox:scan", err)
		}
		item.Operation = types.OutboxOperation(op)
		item.Payload = []byte(payload)
		out = append(out, &item)
	}
	return out, wrapDBError("peek_outbox:rows", rows.Err())
}

// OutboxSize returns the number of pending rows, used by `sync`'s offline
// message.
func (s *Store) OutboxSize(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n)
	return n, wrapDBError("outbox_size", err)
}

// AckOutbox removes a row on successful push.
func (s *Store) AckOutbox(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("ack_outbox", err)
	}
	s.notify()
	return nil
}

// FailOutbox increments retry_count and records the error, leaving the
// row in place for a future worker invocation.
func (s *Store) FailOutbox(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox SET retry_count = retry_count + 1, last_error = ? WHERE id = ?
	`, msg, id)
	return wrapDBError("fail_outbox", err)
}
