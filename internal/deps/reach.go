// Package deps implements the dependency/reachability queries: ready/blocked
// set computation and the `dep tree` walk, layered on top of the store's
// materialized blocked_cache.
package deps

import (
	"context"
	"fmt"
	"sort"

	"github.com/nikvdp/lb/internal/types"
)

// Store is the subset of store.Store that reachability needs, kept as an
// interface so tests can supply an in-memory fake.
type Store interface {
	ListIssues(ctx context.Context) ([]*types.Issue, error)
	BlockedSet(ctx context.Context) (map[string]bool, error)
	ListDepsOut(ctx context.Context, issueID string) ([]*types.Dependency, error)
	ListDepsIn(ctx context.Context, issueID string) ([]*types.Dependency, error)
}

// ReadyFilter narrows the ready set to the current viewer, unless ShowAll.
type ReadyFilter struct {
	ShowAll      bool
	ViewerEmail  string
}

// Ready returns open issues outside the blocked set, optionally restricted
// to the viewer's assigned/unassigned issues, sorted by (priority asc,
// updated_at desc).
func Ready(ctx context.Context, st Store, f ReadyFilter) ([]*types.Issue, error) {
	issues, err := st.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		return nil, err
	}

	var out []*types.Issue
	for _, i := range issues {
		if i.Status != types.StatusOpen {
			continue
		}
		if blocked[i.ID] {
			continue
		}
		if !f.ShowAll && i.Assignee != "" && i.Assignee != f.ViewerEmail {
			continue
		}
		out = append(out, i)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Priority != out[b].Priority {
			return out[a].Priority < out[b].Priority
		}
		return out[a].UpdatedAt.After(out[b].UpdatedAt)
	})
	return out, nil
}

// BlockedIssue pairs an issue with the open issues that directly block it.
type BlockedIssue struct {
	Issue      *types.Issue
	BlockedBy  []*types.Issue
}

// Blocked returns non-closed issues in the blocked set, each annotated
// with the set of open issues that directly block it.
func Blocked(ctx context.Context, st Store, f ReadyFilter) ([]BlockedIssue, error) {
	issues, err := st.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*types.Issue, len(issues))
	for _, i := range issues {
		byID[i.ID] = i
	}

	var out []BlockedIssue
	for _, i := range issues {
		if i.Status == types.StatusClosed {
			continue
		}
		if !blocked[i.ID] {
			continue
		}
		in, err := st.ListDepsIn(ctx, i.ID)
		if err != nil {
			return nil, err
		}
		var blockers []*types.Issue
		for _, d := range in {
			if d.Type != types.DepBlocks {
				continue
			}
			blocker, ok := byID[d.IssueID]
			if !ok || blocker.Status == types.StatusClosed {
				continue
			}
			blockers = append(blockers, blocker)
		}
		out = append(out, BlockedIssue{Issue: i, BlockedBy: blockers})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Issue.ID < out[b].Issue.ID })
	return out, nil
}

// TreeNode is one line of a `dep tree` render.
type TreeNode struct {
	Issue *types.Issue
	Depth int
	Ready bool
	Cycle bool
}

// Tree walks outgoing `blocks` and `parent-child` edges from rootID
// depth-first, detecting cycles via a per-call visited set, and marks
// each node [READY] iff it is open and not in the store's blocked set.
// An issue blocked only through a blocked parent-child ancestor is
// therefore not marked [READY], even with no blocks edge of its own.
func Tree(ctx context.Context, st Store, rootID string) ([]TreeNode, error) {
	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		return nil, err
	}

	var out []TreeNode
	visited := make(map[string]bool)

	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		if visited[id] {
			issue, err := lookup(ctx, st, id)
			if err != nil {
				return err
			}
			out = append(out, TreeNode{Issue: issue, Depth: depth, Cycle: true})
			return nil
		}
		visited[id] = true

		issue, err := lookup(ctx, st, id)
		if err != nil {
			return err
		}
		ready := issue.Status == types.StatusOpen && !blocked[id]
		out = append(out, TreeNode{Issue: issue, Depth: depth, Ready: ready})

		edges, err := st.ListDepsOut(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.Type != types.DepBlocks && e.Type != types.DepParentChild {
				continue
			}
			if err := walk(e.DependsOnID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(rootID, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func lookup(ctx context.Context, st Store, id string) (*types.Issue, error) {
	issues, err := st.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	for _, i := range issues {
		if i.ID == id || i.Identifier == id {
			return i, nil
		}
	}
	return nil, fmt.Errorf("issue %s not found for tree walk", id)
}
