/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"time"

	"github.com/suparena/cloudstore/internal/validate"
	"github.com/suparena/cloudstore/storagemodels"
)

// TableStore is a handle on one table of a backend. Entities cross this boundary as
// attribute maps; typing happens in the repository.
type TableStore interface {
	// Name returns the canonical (lower-case) table name.
	Name() string

	// Ensure creates the table if it does not exist.
	Ensure(ctx context.Context) error

	// Get reads one item. found is false when no item has the key.
	Get(ctx context.Context, partitionKey, rowKey string) (item storagemodels.Item, found bool, err error)

	// ScanPage returns one page of items matching filter, starting after start.
	// next is nil on the last page.
	ScanPage(ctx context.Context, filter storagemodels.KeyFilter, start storagemodels.Item, opts storagemodels.ScanOptions) (items []storagemodels.Item, next storagemodels.Item, err error)

	// Merge inserts item, or overwrites the attributes it carries on an existing item
	// with the same key. Attributes absent from item are left alone.
	Merge(ctx context.Context, item storagemodels.Item) error

	// Delete removes the item with the key. Deleting a missing item is not an error.
	Delete(ctx context.Context, partitionKey, rowKey string) error
}

// QueueStore is a handle on one queue of a backend. Every call takes the caller's
// notion of now so that visibility windows are computed against a single clock.
type QueueStore interface {
	// Name returns the queue name.
	Name() string

	// Ensure creates the queue if it does not exist.
	Ensure(ctx context.Context) error

	// Send stores a message and returns it with ID, InsertedAt, NextVisibleAt and
	// ExpiresAt filled in.
	Send(ctx context.Context, req storagemodels.SendRequest) (*storagemodels.Message, error)

	// Receive leases one visible, unexpired message until now+visibility, increments
	// its dequeue count and issues a new receipt. It returns nil when no message is
	// visible.
	Receive(ctx context.Context, now time.Time, visibility time.Duration) (*storagemodels.Message, error)

	// ChangeVisibility moves the lease identified by receipt to now+visibility and
	// returns the replacement receipt. It fails with errors.ErrInvalidHandle when the
	// receipt is not the current one or its lease has run out.
	ChangeVisibility(ctx context.Context, id, receipt string, now time.Time, visibility time.Duration) (newReceipt string, nextVisibleAt time.Time, err error)

	// Delete removes the message leased under receipt. Same handle rules as
	// ChangeVisibility.
	Delete(ctx context.Context, id, receipt string, now time.Time) error

	// ApproximateCount counts unexpired messages, visible or not.
	ApproximateCount(ctx context.Context, now time.Time) (int, error)

	// Purge removes every message.
	Purge(ctx context.Context) error
}

// TableBackend hands out table handles.
type TableBackend interface {
	OpenTable(name string) TableStore
}

// QueueBackend hands out queue handles.
type QueueBackend interface {
	OpenQueue(name string) QueueStore
}

// OpenTable validates name and returns the backend's handle for its canonical form.
// No remote call is made; the table is created on first use.
func OpenTable(b TableBackend, name string) (TableStore, error) {
	canonical, err := validate.TableName("datastore.OpenTable", name)
	if err != nil {
		return nil, err
	}
	return b.OpenTable(canonical), nil
}

// OpenQueue validates name and returns the backend's handle for it.
func OpenQueue(b QueueBackend, name string) (QueueStore, error) {
	if err := validate.QueueName("datastore.OpenQueue", name); err != nil {
		return nil, err
	}
	return b.OpenQueue(name), nil
}
