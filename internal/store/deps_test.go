package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

func seedIssues(t *testing.T, st *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := st.UpsertIssue(context.Background(), sampleIssue(id)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestUpsertDepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "eng-1", "eng-2")

	dep := &types.Dependency{IssueID: "eng-1", DependsOnID: "eng-2", Type: types.DepBlocks}
	if err := st.UpsertDep(ctx, dep); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertDep(ctx, dep); err != nil {
		t.Fatalf("re-adding the same edge should be idempotent, got %v", err)
	}

	out, err := st.ListDepsOut(ctx, "eng-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(out))
	}
}

func TestUpsertDepRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "eng-1", "eng-2")

	dep := &types.Dependency{IssueID: "eng-1", DependsOnID: "eng-2", Type: "bogus"}
	if err := st.UpsertDep(ctx, dep); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpsertDepRejectsSecondParent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "child", "parent-a", "parent-b")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "child", DependsOnID: "parent-a", Type: types.DepParentChild}); err != nil {
		t.Fatal(err)
	}
	err := st.UpsertDep(ctx, &types.Dependency{IssueID: "child", DependsOnID: "parent-b", Type: types.DepParentChild})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected ErrConflict when assigning a second parent, got %v", err)
	}
}

func TestUpsertDepAllowsReassertingSameParent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "child", "parent-a")

	dep := &types.Dependency{IssueID: "child", DependsOnID: "parent-a", Type: types.DepParentChild}
	if err := st.UpsertDep(ctx, dep); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertDep(ctx, dep); err != nil {
		t.Fatalf("re-asserting the same parent should succeed, got %v", err)
	}
}

func TestDeleteDepRemovesBothOrientations(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "a", "b")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "a", DependsOnID: "b", Type: types.DepRelated}); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteDep(ctx, "b", "a"); err != nil {
		t.Fatal(err)
	}

	out, err := st.ListDepsOut(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected the edge to be gone regardless of call orientation, got %+v", out)
	}
}

func TestParentAndChildren(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "parent", "child-1", "child-2")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "child-1", DependsOnID: "parent", Type: types.DepParentChild}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "child-2", DependsOnID: "parent", Type: types.DepParentChild}); err != nil {
		t.Fatal(err)
	}

	parent, err := st.Parent(ctx, "child-1")
	if err != nil {
		t.Fatal(err)
	}
	if parent != "parent" {
		t.Fatalf("got parent %q, want \"parent\"", parent)
	}

	children, err := st.Children(ctx, "parent")
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %+v", children)
	}
}

func TestParentOfRootIsEmpty(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "lonely")

	parent, err := st.Parent(ctx, "lonely")
	if err != nil {
		t.Fatal(err)
	}
	if parent != "" {
		t.Fatalf("expected no parent, got %q", parent)
	}
}

func TestClearDepsOfFilteredByType(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedIssues(t, st, "a", "b", "c")

	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "a", DependsOnID: "b", Type: types.DepBlocks}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "a", DependsOnID: "c", Type: types.DepRelated}); err != nil {
		t.Fatal(err)
	}

	if err := st.ClearDepsOf(ctx, "a", types.DepBlocks); err != nil {
		t.Fatal(err)
	}
	out, err := st.ListDepsOut(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Type != types.DepRelated {
		t.Fatalf("expected only the related edge to survive, got %+v", out)
	}
}
