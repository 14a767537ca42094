package store

import (
	"context"
	"testing"
	"time"
)

func TestGetMetaMissingIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	v, err := st.GetMeta(ctx, "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Fatalf("expected empty string, got %q", v)
	}
}

func TestSetMetaUpsertsValue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if err := st.SetMeta(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetMeta(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, err := st.GetMeta(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if v != "v2" {
		t.Fatalf("got %q, want v2", v)
	}
}

func TestMarkLastSyncBumpsRunCountAndFullSync(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	if err := st.MarkLastSync(ctx, now, true); err != nil {
		t.Fatal(err)
	}

	last, err := st.LastSync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !last.Equal(now) {
		t.Fatalf("got last sync %v, want %v", last, now)
	}

	fullSync, err := st.LastFullSync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !fullSync.Equal(now) {
		t.Fatalf("expected a full sync to also stamp last_full_sync, got %v", fullSync)
	}

	count, err := st.SyncRunCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("got run count %d, want 1", count)
	}

	if err := st.MarkLastSync(ctx, now.Add(time.Minute), false); err != nil {
		t.Fatal(err)
	}
	count, err = st.SyncRunCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("got run count %d, want 2", count)
	}
	fullSync, err = st.LastFullSync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !fullSync.Equal(now) {
		t.Fatalf("expected an incremental sync to leave last_full_sync unchanged, got %v", fullSync)
	}
}

func TestNextLocalIDIncrements(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first, err := st.NextLocalID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.NextLocalID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("got (%d, %d), want (1, 2)", first, second)
	}
}
