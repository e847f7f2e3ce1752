/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides in-memory implementations of the datastore interfaces for testing
package mock

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/storagemodels"
)

var errMissingKey = errors.NewValidationError("key", "item carries no partition and row key")

// Op names a mock operation for error injection.
type Op string

const (
	OpEnsure  Op = "Ensure"
	OpGet     Op = "Get"
	OpScan    Op = "Scan"
	OpMerge   Op = "Merge"
	OpDelete  Op = "Delete"
	OpSend    Op = "Send"
	OpReceive Op = "Receive"
	OpChange  Op = "ChangeVisibility"
	OpRemove  Op = "Remove"
	OpCount   Op = "Count"
	OpPurge   Op = "Purge"
)

// faults injects errors into operations. A fault with times < 0 fires forever.
type faults struct {
	mu    sync.Mutex
	err   map[Op]error
	times map[Op]int
	calls map[Op]int
}

func newFaults() *faults {
	return &faults{err: map[Op]error{}, times: map[Op]int{}, calls: map[Op]int{}}
}

func (f *faults) set(op Op, err error, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err[op] = err
	f.times[op] = times
}

// hit records a call to op and returns the injected error, if any.
func (f *faults) hit(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	err, ok := f.err[op]
	if !ok || err == nil {
		return nil
	}
	switch n := f.times[op]; {
	case n < 0:
		return err
	case n == 0:
		return nil
	default:
		f.times[op] = n - 1
		return err
	}
}

func (f *faults) count(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Backend is an in-memory table and queue backend. Handles opened with the same
// name share their data.
type Backend struct {
	mu     sync.Mutex
	tables map[string]*Table
	queues map[string]*Queue
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		tables: make(map[string]*Table),
		queues: make(map[string]*Queue),
	}
}

// OpenTable returns the table named name, creating its handle on first use.
func (b *Backend) OpenTable(name string) datastore.TableStore {
	return b.Table(name)
}

// Table is OpenTable with the concrete type, for tests that inject errors.
func (b *Backend) Table(name string) *Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tables[name]
	if !ok {
		t = NewTable(name)
		b.tables[name] = t
	}
	return t
}

// OpenQueue returns the queue named name, creating its handle on first use.
func (b *Backend) OpenQueue(name string) datastore.QueueStore {
	return b.Queue(name)
}

// Queue is OpenQueue with the concrete type.
func (b *Backend) Queue(name string) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = NewQueue(name)
		b.queues[name] = q
	}
	return q
}

// Table is an in-memory datastore.TableStore.
type Table struct {
	name   string
	mu     sync.RWMutex
	items  map[itemKey]storagemodels.Item
	exists bool
	faults *faults
}

// NewTable creates an empty table handle. The table itself exists after Ensure.
func NewTable(name string) *Table {
	return &Table{
		name:   name,
		items:  make(map[itemKey]storagemodels.Item),
		faults: newFaults(),
	}
}

// WithError makes op fail with err on every call
func (t *Table) WithError(op Op, err error) *Table {
	t.faults.set(op, err, -1)
	return t
}

// WithTransientError makes op fail with err for the next times calls
func (t *Table) WithTransientError(op Op, err error, times int) *Table {
	t.faults.set(op, err, times)
	return t
}

// Calls returns how many times op was invoked, failed calls included.
func (t *Table) Calls(op Op) int {
	return t.faults.count(op)
}

func (t *Table) Name() string { return t.name }

// Ensure marks the table as created.
func (t *Table) Ensure(ctx context.Context) error {
	if err := t.faults.hit(OpEnsure); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exists = true
	return nil
}

// Exists reports whether Ensure has run.
func (t *Table) Exists() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exists
}

// Get retrieves an item by key
func (t *Table) Get(ctx context.Context, partitionKey, rowKey string) (storagemodels.Item, bool, error) {
	if err := t.faults.hit(OpGet); err != nil {
		return nil, false, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	item, ok := t.items[itemKey{partitionKey, rowKey}]
	if !ok {
		return nil, false, nil
	}
	return maps.Clone(item), true, nil
}

// ScanPage returns matching items ordered by partition and row key.
func (t *Table) ScanPage(ctx context.Context, filter storagemodels.KeyFilter, start storagemodels.Item, opts storagemodels.ScanOptions) ([]storagemodels.Item, storagemodels.Item, error) {
	if err := t.faults.hit(OpScan); err != nil {
		return nil, nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if filter.IsPointRead() {
		item, ok := t.items[itemKey{filter.PartitionKey, filter.RowKey}]
		if !ok || start != nil {
			return nil, nil, nil
		}
		return []storagemodels.Item{maps.Clone(item)}, nil, nil
	}

	type keyed struct {
		pk, rk string
		item   storagemodels.Item
	}
	var matches []keyed
	for key, item := range t.items {
		if filter.PartitionKey != "" && key.pk != filter.PartitionKey {
			continue
		}
		matches = append(matches, keyed{pk: key.pk, rk: key.rk, item: item})
	}
	slices.SortFunc(matches, func(a, b keyed) int {
		return cmp.Or(cmp.Compare(a.pk, b.pk), cmp.Compare(a.rk, b.rk))
	})

	from := 0
	if start != nil {
		spk, srk, _ := storagemodels.KeyOf(start)
		from, _ = slices.BinarySearchFunc(matches, keyed{pk: spk, rk: srk}, func(a, b keyed) int {
			return cmp.Or(cmp.Compare(a.pk, b.pk), cmp.Compare(a.rk, b.rk))
		})
		if from < len(matches) && matches[from].pk == spk && matches[from].rk == srk {
			from++
		}
	}

	end := min(from+int(opts.PageSize), len(matches))
	page := make([]storagemodels.Item, 0, end-from)
	for _, m := range matches[from:end] {
		page = append(page, maps.Clone(m.item))
	}

	var next storagemodels.Item
	if end < len(matches) {
		last := matches[end-1]
		next = storagemodels.KeyItem(last.pk, last.rk)
	}
	return page, next, nil
}

// Merge stores item, keeping attributes of an existing item that item does not carry.
func (t *Table) Merge(ctx context.Context, item storagemodels.Item) error {
	if err := t.faults.hit(OpMerge); err != nil {
		return err
	}
	pk, rk, ok := storagemodels.KeyOf(item)
	if !ok {
		return errMissingKey
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := itemKey{pk, rk}
	merged := maps.Clone(t.items[key])
	if merged == nil {
		merged = make(storagemodels.Item, len(item))
	}
	maps.Copy(merged, item)
	t.items[key] = merged
	return nil
}

// Delete removes an item by key
func (t *Table) Delete(ctx context.Context, partitionKey, rowKey string) error {
	if err := t.faults.hit(OpDelete); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, itemKey{partitionKey, rowKey})
	return nil
}

// Helper methods for testing

// Len returns the number of stored items
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Put stores item as is, bypassing fault injection (for seeding tests).
func (t *Table) Put(item storagemodels.Item) {
	pk, rk, _ := storagemodels.KeyOf(item)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[itemKey{pk, rk}] = maps.Clone(item)
}

// itemKey identifies an item. Keys may contain any character outside / \ # ?, so
// they are kept apart rather than joined.
type itemKey struct {
	pk, rk string
}
