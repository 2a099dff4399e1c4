package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashtrack/internal/store"
)

func waitSnapshot[T any](t *testing.T, q *Query[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-q.Snapshots():
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return Snapshot[T]{}
	}
}

func TestSubscribeInitialSnapshot(t *testing.T) {
	n := store.NewNotifier()
	q := Subscribe(context.Background(), n, "collections", func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	defer q.Close()

	snap := waitSnapshot(t, q)
	if snap.Err != nil {
		t.Fatalf("unexpected error: %v", snap.Err)
	}
	if len(snap.Data) != 3 {
		t.Fatalf("data = %v", snap.Data)
	}
}

func TestSubscribeRefreshesOnChange(t *testing.T) {
	n := store.NewNotifier()
	calls := 0
	q := Subscribe(context.Background(), n, "deposits", func(ctx context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return []string{"a"}, nil
		}
		return []string{"a", "b"}, nil
	})
	defer q.Close()

	first := waitSnapshot(t, q)
	if len(first.Data) != 1 {
		t.Fatalf("first snapshot = %v", first.Data)
	}

	n.Broadcast("deposits")
	second := waitSnapshot(t, q)
	if len(second.Data) != 2 {
		t.Fatalf("second snapshot = %v", second.Data)
	}
}

func TestSubscribeDeliversErrorsAndRecovers(t *testing.T) {
	n := store.NewNotifier()
	fail := true
	q := Subscribe(context.Background(), n, "pendingItems", func(ctx context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("db gone")
		}
		return []int{7}, nil
	})
	defer q.Close()

	snap := waitSnapshot(t, q)
	if snap.Err == nil {
		t.Fatal("expected error snapshot")
	}

	fail = false
	n.Broadcast("pendingItems")
	snap = waitSnapshot(t, q)
	if snap.Err != nil || len(snap.Data) != 1 {
		t.Fatalf("recovery snapshot = %+v", snap)
	}
}

func TestSubscribeEndsWithContext(t *testing.T) {
	n := store.NewNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	q := Subscribe(ctx, n, "collections", func(ctx context.Context) ([]int, error) {
		return nil, nil
	})

	waitSnapshot(t, q)
	cancel()

	select {
	case _, ok := <-q.Snapshots():
		if ok {
			// A snapshot may already be in flight; the next read must
			// observe the close.
			if _, ok := <-q.Snapshots(); ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
