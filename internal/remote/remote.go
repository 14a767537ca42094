// Package remote implements the typed Remote client: a thin layer over
// the Remote's API exposing exactly the capabilities this repo needs, and
// no more. The Remote's own wire protocol is explicitly out of scope —
// this package documents only the interface a caller sees.
package remote

import (
	"context"
	"time"

	"github.com/nikvdp/lb/internal/types"
)

// User is the authenticated viewer.
type User struct {
	ID    string
	Email string
	Name  string
}

// Team is a Remote workspace/team.
type Team struct {
	ID  string
	Key string
	Name string
}

// RemoteLabel mirrors types.Label but keeps the Remote's own identifiers.
type RemoteLabel struct {
	ID   string
	Name string
}

// Issue is the Remote's view of an issue, pre-translation.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	StateID     string
	StateType   string // "unstarted" | "started" | "completed" | "canceled"
	Priority    int    // Remote scale: 0 none, 1 urgent, 2 high, 3 medium, 4 low
	AssigneeEmail string
	ParentID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time // set by the Remote when StateType is "completed" or "canceled"
}

// Relation is a Remote issue-to-issue relation.
type Relation struct {
	FromID string
	ToID   string
	Type   types.DepType
}

// FetchOptions controls a bulk FetchIssues call.
type FetchOptions struct {
	RepoLabelID   string
	RepoProjectID string
	Since         *time.Time
	Cursor        string
	PageSize      int
}

// CreateInput is the payload for CreateIssue.
type CreateInput struct {
	TeamID        string
	Title         string
	Description   string
	Priority      int // Remote scale
	LabelIDs      []string
	AssigneeEmail string
	ParentID      string
}

// UpdateInput is the payload for UpdateIssue; nil fields are left alone.
type UpdateInput struct {
	Title         *string
	Description   *string
	StateID       *string
	Priority      *int
	AssigneeEmail *string
	Unassign      bool
	ParentID      *string
}

// Client is the capability surface this repo needs: identify current
// user; list/resolve teams; get/create labels; resolve workflow states;
// create/update/delete issues; set parent; create/delete relations;
// create comments; fetch issues by repo scope; fetch relations.
type Client interface {
	IdentifyUser(ctx context.Context) (*User, error)
	ListTeams(ctx context.Context) ([]Team, error)
	ResolveTeam(ctx context.Context, key string) (*Team, error)

	GetOrCreateLabel(ctx context.Context, teamID, name string) (*RemoteLabel, error)
	GetOrCreateLabelGroup(ctx context.Context, teamID, groupName, childName string) (*RemoteLabel, error)

	ResolveWorkflowState(ctx context.Context, teamID string, status types.Status) (stateID string, err error)

	CreateIssue(ctx context.Context, in CreateInput) (*Issue, error)
	UpdateIssue(ctx context.Context, id string, in UpdateInput) (*Issue, error)
	DeleteIssue(ctx context.Context, id string) error
	SetParent(ctx context.Context, id, parentID string) error

	CreateRelation(ctx context.Context, fromID, toID string, t types.DepType) error
	DeleteRelation(ctx context.Context, fromID, toID string, t types.DepType) error

	CreateComment(ctx context.Context, issueID, body string) error

	FetchIssues(ctx context.Context, opts FetchOptions) (issues []Issue, nextCursor string, err error)
	FetchRelations(ctx context.Context, issueID string) (out []Relation, in []Relation, err error)
	FetchIssueWithRelations(ctx context.Context, issueID string) (*Issue, []Relation, []Relation, error)
}
