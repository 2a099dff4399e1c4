// Package store persists the three record collections backing the tracker
// and notifies watchers when any of them changes.
package store

import (
	"context"
	"errors"
	"time"

	"cashtrack/internal/core"
)

var (
	// ErrNotFound is returned when a record id does not resolve.
	ErrNotFound = errors.New("record not found")
	// ErrBadOrderField is returned for an ordering field outside the
	// collection's schema.
	ErrBadOrderField = errors.New("invalid order field")
)

// Order is one ordering clause for a list query. Multiple clauses are
// applied in the given sequence.
type Order struct {
	Field string
	Desc  bool
}

// Change signals that a record collection was mutated.
type Change struct {
	Collection string
	At         time.Time
}

// Ports for the HTTP layer. All implementations are satisfied by *SQLite.
type (
	CollectionStore interface {
		ListCollections(ctx context.Context, order ...Order) ([]core.Collection, error)
		GetCollection(ctx context.Context, id string) (core.Collection, error)
		PutCollection(ctx context.Context, c core.Collection) (core.Collection, error)
		DeleteCollection(ctx context.Context, id string) error
		PurgeCollectionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
		PurgeCollections(ctx context.Context) (int64, error)
	}

	DepositStore interface {
		ListDeposits(ctx context.Context, order ...Order) ([]core.Deposit, error)
		GetDeposit(ctx context.Context, id string) (core.Deposit, error)
		PutDeposit(ctx context.Context, d core.Deposit) (core.Deposit, error)
		// DeleteDeposits removes the given ids in a single transaction and
		// returns the slip references of the removed records. Single deletes
		// pass a one-element slice.
		DeleteDeposits(ctx context.Context, ids []string) ([]string, error)
		PurgeDepositsBefore(ctx context.Context, cutoff time.Time) (int64, []string, error)
		PurgeDeposits(ctx context.Context) (int64, []string, error)
	}

	PendingStore interface {
		ListPendingItems(ctx context.Context, order ...Order) ([]core.PendingItem, error)
		GetPendingItem(ctx context.Context, id string) (core.PendingItem, error)
		PutPendingItem(ctx context.Context, p core.PendingItem) (core.PendingItem, error)
		DeletePendingItem(ctx context.Context, id string) error
		PurgePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
		PurgePendingItems(ctx context.Context) (int64, error)
		// ImportPendingItems writes the batch atomically.
		ImportPendingItems(ctx context.Context, items []core.PendingItem) error
		// PromotePending creates a Collection from the pending item and
		// deletes the item in one transaction.
		PromotePending(ctx context.Context, id string) (core.Collection, error)
	}

	// Watcher exposes change notifications for live queries.
	Watcher interface {
		Watch(collection string) (<-chan Change, func())
	}

	Store interface {
		CollectionStore
		DepositStore
		PendingStore
		Watcher
	}
)
