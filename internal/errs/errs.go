// Package errs defines the sentinel error taxonomy shared by the store,
// remote client, sync engine, and worker. Callers use errors.Is against
// these values; command handlers translate them into exit codes and a
// single user-facing stderr line.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested issue, label, or outbox row is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a bad flag, unknown status/priority/type, or
	// malformed dependency spec. Reported before any side effect.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a unique-constraint violation (e.g. duplicate
	// dependency edge). Callers treat this as idempotent success.
	ErrConflict = errors.New("conflict")

	// ErrCycle indicates a dependency edge would create a parent-child cycle.
	ErrCycle = errors.New("dependency cycle detected")

	// ErrTransient indicates a retriable network failure talking to the Remote.
	ErrTransient = errors.New("transient network error")

	// ErrAuth indicates a fatal authentication failure against the Remote.
	ErrAuth = errors.New("authentication failed")

	// ErrOffline indicates a command-level network outage distinct from a
	// single retriable call. `sync`'s offline report keys off ErrTransient.
	ErrOffline = errors.New("offline")

	// ErrStorage indicates a failure to read or write the cache file itself.
	ErrStorage = errors.New("storage unavailable")
)

// Wrap attaches operation context to err, converting nothing — use the
// sentinel errors above directly when the condition is already known.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation description.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is is a thin re-export of errors.Is for call sites that only import errs.
func Is(err, target error) bool { return errors.Is(err, target) }
