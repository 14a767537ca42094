package deps

import (
	"context"
	"testing"
	"time"

	"github.com/nikvdp/lb/internal/types"
)

// fakeStore is a minimal in-memory implementation of Store for testing the
// reachability queries without a database.
type fakeStore struct {
	issues  map[string]*types.Issue
	blocked map[string]bool
	out     map[string][]*types.Dependency
	in      map[string][]*types.Dependency
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		issues:  make(map[string]*types.Issue),
		blocked: make(map[string]bool),
		out:     make(map[string][]*types.Dependency),
		in:      make(map[string][]*types.Dependency),
	}
}

func (f *fakeStore) add(issue *types.Issue) {
	f.issues[issue.ID] = issue
}

func (f *fakeStore) link(issueID, dependsOnID string, typ types.DepType) {
	dep := &types.Dependency{IssueID: issueID, DependsOnID: dependsOnID, Type: typ}
	f.out[issueID] = append(f.out[issueID], dep)
	f.in[dependsOnID] = append(f.in[dependsOnID], dep)
}

func (f *fakeStore) ListIssues(ctx context.Context) ([]*types.Issue, error) {
	var out []*types.Issue
	for _, i := range f.issues {
		out = append(out, i)
	}
	return out, nil
}

func (f *fakeStore) BlockedSet(ctx context.Context) (map[string]bool, error) {
	return f.blocked, nil
}

func (f *fakeStore) ListDepsOut(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	return f.out[issueID], nil
}

func (f *fakeStore) ListDepsIn(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	return f.in[issueID], nil
}

func TestReadySkipsBlockedAndClosed(t *testing.T) {
	st := newFakeStore()
	now := time.Now()
	st.add(&types.Issue{ID: "a", Identifier: "a", Title: "a", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.add(&types.Issue{ID: "b", Identifier: "b", Title: "b", Status: types.StatusOpen, Priority: 0, UpdatedAt: now})
	st.add(&types.Issue{ID: "c", Identifier: "c", Title: "c", Status: types.StatusClosed, Priority: 0, UpdatedAt: now})
	st.blocked["a"] = true

	out, err := Ready(context.Background(), st, ReadyFilter{ShowAll: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("expected only b ready, got %+v", out)
	}
}

func TestReadySortsByPriorityThenRecency(t *testing.T) {
	st := newFakeStore()
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	st.add(&types.Issue{ID: "low-old", Identifier: "low-old", Title: "t", Status: types.StatusOpen, Priority: 3, UpdatedAt: older})
	st.add(&types.Issue{ID: "high", Identifier: "high", Title: "t", Status: types.StatusOpen, Priority: 0, UpdatedAt: older})
	st.add(&types.Issue{ID: "low-new", Identifier: "low-new", Title: "t", Status: types.StatusOpen, Priority: 3, UpdatedAt: newer})

	out, err := Ready(context.Background(), st, ReadyFilter{ShowAll: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"high", "low-new", "low-old"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, out[i].ID, id)
		}
	}
}

func TestReadyFiltersByViewerUnlessShowAll(t *testing.T) {
	st := newFakeStore()
	now := time.Now()
	st.add(&types.Issue{ID: "mine", Identifier: "mine", Title: "t", Status: types.StatusOpen, Priority: 1, Assignee: "me@example.com", UpdatedAt: now})
	st.add(&types.Issue{ID: "theirs", Identifier: "theirs", Title: "t", Status: types.StatusOpen, Priority: 1, Assignee: "them@example.com", UpdatedAt: now})
	st.add(&types.Issue{ID: "unassigned", Identifier: "unassigned", Title: "t", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})

	out, err := Ready(context.Background(), st, ReadyFilter{ViewerEmail: "me@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for _, i := range out {
		ids[i.ID] = true
	}
	if !ids["mine"] || !ids["unassigned"] || ids["theirs"] {
		t.Fatalf("expected mine+unassigned, not theirs; got %+v", ids)
	}
}

func TestBlockedReportsDirectBlockers(t *testing.T) {
	st := newFakeStore()
	now := time.Now()
	st.add(&types.Issue{ID: "target", Identifier: "target", Title: "t", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.add(&types.Issue{ID: "blocker", Identifier: "blocker", Title: "t", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.blocked["target"] = true
	st.link("blocker", "target", types.DepBlocks)

	out, err := Blocked(context.Background(), st, ReadyFilter{ShowAll: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Issue.ID != "target" {
		t.Fatalf("expected target in blocked set, got %+v", out)
	}
	if len(out[0].BlockedBy) != 1 || out[0].BlockedBy[0].ID != "blocker" {
		t.Fatalf("expected blocker to be listed, got %+v", out[0].BlockedBy)
	}
}

func TestTreeDetectsCycle(t *testing.T) {
	st := newFakeStore()
	now := time.Now()
	st.add(&types.Issue{ID: "a", Identifier: "a", Title: "a", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.add(&types.Issue{ID: "b", Identifier: "b", Title: "b", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.link("a", "b", types.DepBlocks)
	st.link("b", "a", types.DepBlocks)

	nodes, err := Tree(context.Background(), st, "a")
	if err != nil {
		t.Fatal(err)
	}
	var sawCycle bool
	for _, n := range nodes {
		if n.Cycle {
			sawCycle = true
		}
	}
	if !sawCycle {
		t.Fatalf("expected a cycle node in %+v", nodes)
	}
}

func TestTreeMarksReadyLeaf(t *testing.T) {
	st := newFakeStore()
	now := time.Now()
	st.add(&types.Issue{ID: "root", Identifier: "root", Title: "root", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.add(&types.Issue{ID: "leaf", Identifier: "leaf", Title: "leaf", Status: types.StatusOpen, Priority: 1, UpdatedAt: now})
	st.link("root", "leaf", types.DepBlocks)

	nodes, err := Tree(context.Background(), st, "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	for _, n := range nodes {
		if n.Issue.ID == "leaf" && !n.Ready {
			t.Fatal("open leaf absent from the blocked set should be ready")
		}
	}
}
