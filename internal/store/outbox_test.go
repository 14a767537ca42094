package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nikvdp/lb/internal/types"
)

func TestEnqueuePeekAckOutbox(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	id, err := st.Enqueue(ctx, types.OpCreate, []byte(`{"title":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero outbox id")
	}

	items, err := st.PeekOutbox(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Operation != types.OpCreate {
		t.Fatalf("unexpected outbox contents: %+v", items)
	}

	if err := st.AckOutbox(ctx, id); err != nil {
		t.Fatal(err)
	}
	size, err := st.OutboxSize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("expected outbox to be empty after ack, got size %d", size)
	}
}

func TestOutboxOrderedByID(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := st.Enqueue(ctx, types.OpUpdate, []byte(`{}`))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	items, err := st.PeekOutbox(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, item := range items {
		if item.ID != ids[i] {
			t.Fatalf("outbox not ordered by id ascending: %+v", items)
		}
	}
}

func TestFailOutboxRetainsRowAndIncrementsRetry(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	id, err := st.Enqueue(ctx, types.OpClose, []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.FailOutbox(ctx, id, errors.New("boom")); err != nil {
		t.Fatal(err)
	}

	items, err := st.PeekOutbox(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the failed row to remain queued, got %d rows", len(items))
	}
	if items[0].RetryCount != 1 || items[0].LastError != "boom" {
		t.Fatalf("expected retry_count=1 and last_error recorded, got %+v", items[0])
	}
}
