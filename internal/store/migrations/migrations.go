// Package migrations holds the numbered schema steps for the local
// store, one file per step, in NNN_description.go layout.
package migrations

import (
	"context"
	"database/sql"
)

// Step is one schema migration: a monotonic version number, a short
// name for error messages, and the SQL/Go logic to apply it.
type Step struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sql.Tx) error
}

// Steps returns all migrations in ascending version order.
func Steps() []Step {
	return []Step{
		{Version: 1, Name: "initial_schema", Apply: initialSchema},
		{Version: 2, Name: "relax_issue_type_not_null", Apply: relaxIssueTypeNotNull},
	}
}
