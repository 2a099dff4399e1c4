// Package live turns the store's change notifications into refreshing
// snapshots, the server-side half of a live query.
package live

import (
	"context"
	"time"

	"cashtrack/internal/store"
)

// Snapshot is one state of a live query: either fresh data or the error that
// prevented loading it.
type Snapshot[T any] struct {
	Data []T
	Err  error
	At   time.Time
}

// Lister loads the current contents of a collection.
type Lister[T any] func(ctx context.Context) ([]T, error)

// Query is an active live query. Snapshots arrives with the initial state
// and again after every change to the watched collection.
type Query[T any] struct {
	snapshots chan Snapshot[T]
	cancel    func()
}

// Snapshots returns the channel of query states. It is closed when the
// query's context ends or Close is called.
func (q *Query[T]) Snapshots() <-chan Snapshot[T] {
	return q.snapshots
}

// Close releases the watcher. Safe to call alongside context cancellation.
func (q *Query[T]) Close() {
	q.cancel()
}

// Subscribe starts a live query over one collection. The first snapshot is
// pushed immediately, then one per change notification. A failing list does
// not end the query: the error is delivered as a snapshot and the next
// change retries.
func Subscribe[T any](ctx context.Context, w store.Watcher, collection string, list Lister[T]) *Query[T] {
	ctx, cancel := context.WithCancel(ctx)
	changes, unwatch := w.Watch(collection)

	q := &Query[T]{
		snapshots: make(chan Snapshot[T], 1),
		cancel:    cancel,
	}

	go func() {
		defer close(q.snapshots)
		defer unwatch()

		push := func() bool {
			data, err := list(ctx)
			if ctx.Err() != nil {
				return false
			}
			snap := Snapshot[T]{Data: data, Err: err, At: time.Now().UTC()}
			select {
			case q.snapshots <- snap:
			case <-ctx.Done():
				return false
			}
			return true
		}

		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				if !push() {
					return
				}
			}
		}
	}()

	return q
}
