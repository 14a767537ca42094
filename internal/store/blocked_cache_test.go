package store

import (
	"context"
	"testing"

	"github.com/nikvdp/lb/internal/types"
)

func TestBlockedSetDirectEdge(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "blocker", "target")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "blocker", DependsOnID: "target", Type: types.DepBlocks}); err != nil {
		t.Fatal(err)
	}

	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !blocked["target"] {
		t.Fatalf("expected target to be blocked, got %+v", blocked)
	}
}

func TestBlockedSetIgnoresClosedBlocker(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "blocker", "target")

	closedIssue, err := st.GetIssue(ctx, "blocker")
	if err != nil {
		t.Fatal(err)
	}
	now := closedIssue.UpdatedAt
	closedIssue.Status = types.StatusClosed
	closedIssue.ClosedAt = &now
	if err := st.UpsertIssue(ctx, closedIssue); err != nil {
		t.Fatal(err)
	}

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "blocker", DependsOnID: "target", Type: types.DepBlocks}); err != nil {
		t.Fatal(err)
	}

	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if blocked["target"] {
		t.Fatal("a closed blocker must not keep its target in the blocked set")
	}
}

func TestBlockedSetExtendsThroughParentChild(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "blocker", "parent", "child")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "blocker", DependsOnID: "parent", Type: types.DepBlocks}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "child", DependsOnID: "parent", Type: types.DepParentChild}); err != nil {
		t.Fatal(err)
	}

	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !blocked["parent"] || !blocked["child"] {
		t.Fatalf("expected blocked status to propagate to the child, got %+v", blocked)
	}
}

func TestBlockedSetClearsAfterDepRemoved(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "blocker", "target")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "blocker", DependsOnID: "target", Type: types.DepBlocks}); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteDep(ctx, "blocker", "target"); err != nil {
		t.Fatal(err)
	}

	blocked, err := st.BlockedSet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if blocked["target"] {
		t.Fatal("expected blocked set to clear once the blocking edge is removed")
	}
}
