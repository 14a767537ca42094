package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, t.TempDir()+"/cache.db")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRunWritesIssuesOrderedByIdentifier(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC()

	for _, id := range []string{"eng-2", "eng-1"} {
		issue := &types.Issue{
			ID: id, Identifier: id, Title: "title " + id,
			Status: types.StatusOpen, Priority: 1, CreatedAt: now, UpdatedAt: now,
		}
		if err := st.UpsertIssue(ctx, issue); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.UpsertDep(ctx, &types.Dependency{IssueID: "eng-1", DependsOnID: "eng-2", Type: types.DepBlocks}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "issues.jsonl")
	if err := Run(ctx, st, path); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ID != "eng-1" || lines[1].ID != "eng-2" {
		t.Fatalf("expected ascending identifier order, got %+v", lines)
	}
	if len(lines[0].Dependencies) != 1 || lines[0].Dependencies[0].DependsOnID != "eng-2" {
		t.Fatalf("expected eng-1's dependency to be nested, got %+v", lines[0])
	}
}

func TestRunThenReadLinesRoundTripsTimestamps(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	closed := now.Add(time.Hour)

	issue := &types.Issue{
		ID: "eng-1", Identifier: "eng-1", Title: "closed issue",
		Status: types.StatusClosed, Priority: 1, CreatedAt: now, UpdatedAt: closed, ClosedAt: &closed,
	}
	if err := st.UpsertIssue(ctx, issue); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "issues.jsonl")
	if err := Run(ctx, st, path); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got, err := time.Parse(time.RFC3339, lines[0].ClosedAt)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(closed) {
		t.Fatalf("got closed_at %v, want %v", got, closed)
	}
}

func TestReadLinesSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.jsonl")
	content := "{\"id\":\"eng-1\",\"title\":\"a\",\"status\":\"open\",\"priority\":1,\"created_at\":\"2024-01-01T00:00:00Z\",\"updated_at\":\"2024-01-01T00:00:00Z\"}\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected blank lines to be skipped, got %d lines", len(lines))
	}
}
