// Package types holds the data model shared by the store, remote client,
// sync engine, and command surface: Issue, Dependency, Label, OutboxItem,
// and Metadata, plus their enums and validation rules.
package types

import (
	"fmt"
	"time"

	"github.com/nikvdp/lb/internal/errs"
)

// Status is one of the three canonical issue statuses.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// IssueType is optional; only meaningful when type-labelling is enabled.
type IssueType string

const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeChore   IssueType = "chore"
)

func (t IssueType) Valid() bool {
	switch t {
	case "", TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore:
		return true
	}
	return false
}

// DepType enumerates the four dependency edge kinds.
type DepType string

const (
	DepBlocks         DepType = "blocks"
	DepRelated        DepType = "related"
	DepParentChild    DepType = "parent-child"
	DepDiscoveredFrom DepType = "discovered-from"
)

func (d DepType) Valid() bool {
	switch d {
	case DepBlocks, DepRelated, DepParentChild, DepDiscoveredFrom:
		return true
	}
	return false
}

// Priority is an integer 0..4; 0 is most urgent.
const (
	PriorityMin = 0
	PriorityMax = 4
)

// Issue is the canonical cached issue row.
type Issue struct {
	ID          string     `json:"id"`
	Identifier  string     `json:"-"` // public identifier; differs from ID for rows pulled from the Remote
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	IssueType   IssueType  `json:"issue_type,omitempty"`
	Assignee    string     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CachedAt    time.Time  `json:"-"`

	// SourceRepo records which repo scope produced this cached row.
	SourceRepo string `json:"-"`
	// ContentHash is a hash of the visible fields, recomputed on every upsert.
	ContentHash string `json:"-"`
	// RemoteStateID is the internal remote workflow-state identifier, opaque
	// to everything except the remote client's status translation.
	RemoteStateID string `json:"-"`
}

// Validate enforces field constraints, reported before any side effect.
func (i *Issue) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("%w: title must be 500 characters or less", errs.ErrValidation)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", errs.ErrValidation, i.Status)
	}
	if i.Priority < PriorityMin || i.Priority > PriorityMax {
		return fmt.Errorf("%w: priority must be between %d and %d", errs.ErrValidation, PriorityMin, PriorityMax)
	}
	if !i.IssueType.Valid() {
		return fmt.Errorf("%w: unknown issue type %q", errs.ErrValidation, i.IssueType)
	}
	if i.Status == StatusClosed && i.ClosedAt == nil {
		return fmt.Errorf("%w: closed issue must have closed_at set", errs.ErrValidation)
	}
	if i.Status != StatusClosed && i.ClosedAt != nil {
		return fmt.Errorf("%w: closed_at must be unset unless status is closed", errs.ErrValidation)
	}
	return nil
}

// Dependency is a directed edge (issue_id, depends_on_id, type).
type Dependency struct {
	IssueID     string    `json:"issue_id"`
	DependsOnID string    `json:"depends_on_id"`
	Type        DepType   `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Label is (id, name, team_id?), used for repo scoping and type tagging.
type Label struct {
	ID     string
	Name   string
	TeamID string
}

// OutboxOperation enumerates the six outbox operation kinds.
type OutboxOperation string

const (
	OpCreate         OutboxOperation = "create"
	OpUpdate         OutboxOperation = "update"
	OpClose          OutboxOperation = "close"
	OpDelete         OutboxOperation = "delete"
	OpCreateRelation OutboxOperation = "create_relation"
	OpDeleteRelation OutboxOperation = "delete_relation"
)

// OutboxItem is a durable row describing one pending Remote mutation.
type OutboxItem struct {
	ID         int64
	Operation  OutboxOperation
	Payload    []byte // JSON-encoded operation payload
	CreatedAt  time.Time
	RetryCount int
	LastError  string
}

// Metadata keys used in the metadata table.
const (
	MetaLastSync      = "last_sync"
	MetaLastFullSync  = "last_full_sync"
	MetaSyncRunCount  = "sync_run_count"
	MetaNextLocalID   = "next_local_id"
)
