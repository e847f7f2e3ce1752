/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/internal/validate"
	"github.com/suparena/cloudstore/logger"
	"github.com/suparena/cloudstore/metrics"
	"github.com/suparena/cloudstore/ordering"
	"github.com/suparena/cloudstore/storagemodels"
)

// Repository stores entities of type T in one table. *T must implement
// storagemodels.Entity, which any struct embedding storagemodels.Record does.
type Repository[T any] struct {
	store    datastore.TableStore
	typeName string
	log      *zap.Logger
	metrics  *metrics.Collector
	policy   retry.Policy
	now      func() time.Time
	scanOpts []storagemodels.ScanOption
	byTime   *ordering.Sorter[T]

	ensureMu sync.Mutex
	ensured  bool
}

// New creates a repository on store. The table is created on first use.
func New[T any](store datastore.TableStore, opts ...Option) (*Repository[T], error) {
	if store == nil {
		return nil, errors.NewSourcedValidationError("repository.New", "store", "must not be nil")
	}
	typeName := reflect.TypeFor[T]().Name()
	if _, ok := any(new(T)).(storagemodels.Entity); !ok {
		return nil, errors.NewSourcedValidationError("repository.New", "T",
			fmt.Sprintf("*%s does not embed storagemodels.Record", typeName))
	}

	byTime, err := ordering.Compile[T](ordering.Asc(storagemodels.AttrTimestamp))
	if err != nil {
		return nil, err
	}

	o := options{policy: retry.DefaultPolicy(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Repository[T]{
		store:    store,
		typeName: typeName,
		log:      logger.OrNop(o.logger).With(zap.String("table", store.Name()), zap.String("type", typeName)),
		metrics:  o.metrics,
		policy:   o.policy,
		now:      o.clock,
		scanOpts: o.scan,
		byTime:   byTime,
	}, nil
}

// Table returns the canonical table name.
func (r *Repository[T]) Table() string {
	return r.store.Name()
}

// Query returns the entities matching pred, ordered by Timestamp ascending unless
// WithOrderBy says otherwise. Nothing is read until the sequence is ranged over, and
// every range runs the query again. A failure is yielded once as the last element.
func (r *Repository[T]) Query(ctx context.Context, pred Predicate[T], opts ...QueryOption) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		items, err := r.load(ctx, pred, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Find is Query collected into a slice.
func (r *Repository[T]) Find(ctx context.Context, pred Predicate[T], opts ...QueryOption) ([]*T, error) {
	return r.load(ctx, pred, opts...)
}

// QueryPage returns page pageIndex (zero-based) of pageSize entities from the ordered
// result of pred, together with the total number of matches. The whole result is read
// on every call. Pages past the end are empty.
func (r *Repository[T]) QueryPage(ctx context.Context, pred Predicate[T], pageIndex, pageSize int, opts ...QueryOption) (storagemodels.Page[T], error) {
	const source = "Repository.QueryPage"
	if err := validate.MinInt(source, "pageSize", pageSize, 1); err != nil {
		return storagemodels.Page[T]{}, err
	}
	if err := validate.MinInt(source, "pageIndex", pageIndex, 0); err != nil {
		return storagemodels.Page[T]{}, err
	}

	all, err := r.load(ctx, pred, opts...)
	if err != nil {
		return storagemodels.Page[T]{}, err
	}

	page := storagemodels.Page[T]{
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalCount: len(all),
		Items:      []*T{},
	}
	// compare indexes, not offsets: pageIndex*pageSize may overflow
	if len(all) > 0 && pageIndex <= (len(all)-1)/pageSize {
		start := pageIndex * pageSize
		end := len(all)
		if pageSize < end-start {
			end = start + pageSize
		}
		page.Items = all[start:end]
	}
	return page, nil
}

// Get reads one entity. A missing entity is an errors.ErrNotFound kind.
func (r *Repository[T]) Get(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	const source = "Repository.Get"
	if err := validate.Key(source, "partitionKey", partitionKey); err != nil {
		return nil, err
	}
	if err := validate.Key(source, "rowKey", rowKey); err != nil {
		return nil, err
	}

	started := time.Now()
	v, err := r.get(ctx, errors.OpQuery, partitionKey, rowKey)
	if err == nil && v == nil {
		err = errors.NewNotFoundError(r.typeName, partitionKey+"|"+rowKey)
	}
	r.observe(errors.OpQuery, err, started)
	return v, err
}

// Upsert inserts entity, or merges its attributes into the stored entity with the
// same keys. Timestamp is set to the current UTC time. The row key is returned.
func (r *Repository[T]) Upsert(ctx context.Context, entity *T) (string, error) {
	rec, err := r.record("Repository.Upsert", entity)
	if err != nil {
		return "", err
	}

	started := time.Now()
	err = r.upsert(ctx, entity, rec)
	r.observe(errors.OpSave, err, started)
	if err != nil {
		return "", err
	}
	r.log.Debug("entity saved", zap.String("key", rec.Key()))
	return rec.RowKey, nil
}

func (r *Repository[T]) upsert(ctx context.Context, entity *T, rec *storagemodels.Record) error {
	if err := r.ensure(ctx, errors.OpSave); err != nil {
		return err
	}

	rec.Timestamp = r.now().UTC()
	item, err := storagemodels.MarshalItem(entity)
	if err != nil {
		return r.fail(errors.OpSave, fmt.Errorf("marshal %s: %w", r.typeName, err))
	}

	err = retry.Run(ctx, r.policy, func(ctx context.Context) error {
		return r.store.Merge(ctx, item)
	}, r.notify(errors.OpSave))
	if err != nil {
		return r.fail(errors.OpSave, err)
	}
	return nil
}

// Delete removes the stored entity with entity's keys. Deleting an entity that
// does not exist is a no-op.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	rec, err := r.record("Repository.Delete", entity)
	if err != nil {
		return err
	}

	started := time.Now()
	err = r.remove(ctx, rec)
	r.observe(errors.OpDelete, err, started)
	return err
}

func (r *Repository[T]) remove(ctx context.Context, rec *storagemodels.Record) error {
	current, err := r.get(ctx, errors.OpDelete, rec.PartitionKey, rec.RowKey)
	if err != nil {
		return err
	}
	if current == nil {
		r.log.Debug("delete of missing entity ignored", zap.String("key", rec.Key()))
		return nil
	}

	err = retry.Run(ctx, r.policy, func(ctx context.Context) error {
		return r.store.Delete(ctx, rec.PartitionKey, rec.RowKey)
	}, r.notify(errors.OpDelete))
	if err != nil {
		return r.fail(errors.OpDelete, err)
	}
	return nil
}

// load runs a query to completion and returns the ordered result.
func (r *Repository[T]) load(ctx context.Context, pred Predicate[T], opts ...QueryOption) ([]*T, error) {
	const source = "Repository.Query"

	var qo queryOptions
	for _, opt := range opts {
		opt(&qo)
	}
	if pred.PartitionKey != "" {
		if err := validate.Key(source, "partitionKey", pred.PartitionKey); err != nil {
			return nil, err
		}
	}
	if pred.RowKey != "" {
		if pred.PartitionKey == "" {
			return nil, errors.NewSourcedValidationError(source, "rowKey", "requires a partitionKey")
		}
		if err := validate.Key(source, "rowKey", pred.RowKey); err != nil {
			return nil, err
		}
	}
	sorter, err := r.sorter(qo.orderBy)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	items, err := r.scan(ctx, pred, qo)
	r.observe(errors.OpQuery, err, started)
	if err != nil {
		return nil, err
	}
	sorter.Sort(items)
	return items, nil
}

func (r *Repository[T]) scan(ctx context.Context, pred Predicate[T], qo queryOptions) ([]*T, error) {
	if err := r.ensure(ctx, errors.OpQuery); err != nil {
		return nil, err
	}

	scanOpts := storagemodels.ApplyScanOptions(append(append([]storagemodels.ScanOption{}, r.scanOpts...), qo.scan...)...)
	filter := pred.keyFilter()

	type page struct {
		items []storagemodels.Item
		next  storagemodels.Item
	}

	var out []*T
	var start storagemodels.Item
	for {
		p, err := retry.Do(ctx, r.policy, func(ctx context.Context) (page, error) {
			items, next, err := r.store.ScanPage(ctx, filter, start, scanOpts)
			return page{items: items, next: next}, err
		}, r.notify(errors.OpQuery))
		if err != nil {
			return nil, r.fail(errors.OpQuery, err)
		}

		for _, item := range p.items {
			v := new(T)
			if err := storagemodels.UnmarshalItem(item, v); err != nil {
				return nil, r.fail(errors.OpQuery, fmt.Errorf("unmarshal %s: %w", r.typeName, err))
			}
			if pred.matches(v) {
				out = append(out, v)
			}
		}

		if p.next == nil {
			return out, nil
		}
		start = p.next
	}
}

// get returns nil, nil when the entity does not exist.
func (r *Repository[T]) get(ctx context.Context, op errors.TableOp, pk, rk string) (*T, error) {
	if err := r.ensure(ctx, op); err != nil {
		return nil, err
	}

	type result struct {
		item  storagemodels.Item
		found bool
	}
	res, err := retry.Do(ctx, r.policy, func(ctx context.Context) (result, error) {
		item, found, err := r.store.Get(ctx, pk, rk)
		return result{item: item, found: found}, err
	}, r.notify(op))
	if err != nil {
		return nil, r.fail(op, err)
	}
	if !res.found {
		return nil, nil
	}

	v := new(T)
	if err := storagemodels.UnmarshalItem(res.item, v); err != nil {
		return nil, r.fail(op, fmt.Errorf("unmarshal %s: %w", r.typeName, err))
	}
	return v, nil
}

// sorter compiles the requested ordering, falling back to Timestamp ascending.
func (r *Repository[T]) sorter(clauses []ordering.OrderBy) (*ordering.Sorter[T], error) {
	kept, dropped := ordering.Effective(clauses)
	if dropped > 0 {
		r.log.Warn("sort clauses after an empty property were ignored",
			zap.Int("dropped", dropped), zap.Int("kept", len(kept)))
	}
	s, err := ordering.Compile[T](kept...)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return r.byTime, nil
	}
	return s, nil
}

// ensure creates the table once. A failed attempt is retried by the next operation.
func (r *Repository[T]) ensure(ctx context.Context, op errors.TableOp) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.ensured {
		return nil
	}

	err := retry.Run(ctx, r.policy, r.store.Ensure, r.notify(op))
	if err != nil {
		return r.fail(op, err)
	}
	r.ensured = true
	r.log.Info("table ready")
	return nil
}

func (r *Repository[T]) record(source string, entity *T) (*storagemodels.Record, error) {
	if entity == nil {
		return nil, errors.NewSourcedValidationError(source, "entity", "must not be nil")
	}
	rec := any(entity).(storagemodels.Entity).TableRecord()
	if err := validate.Record(source, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// fail wraps a backend error into a TableError. Taxonomy errors pass through.
func (r *Repository[T]) fail(op errors.TableOp, err error) error {
	if errors.IsValidationError(err) || errors.IsNotFound(err) || errors.IsNotConfigured(err) {
		return err
	}
	r.log.Error("table operation failed", zap.String("op", string(op)), zap.Error(err))
	return errors.NewTableError(op, r.store.Name(), err)
}

func (r *Repository[T]) notify(op errors.TableOp) retry.NotifyFunc {
	return func(attempt int, err error, wait time.Duration) {
		r.metrics.Retry(metrics.ComponentTable, r.store.Name(), string(op))
		r.log.Warn("retrying table operation",
			zap.String("op", string(op)), zap.Int("attempt", attempt),
			zap.Duration("wait", wait), zap.Error(err))
	}
}

func (r *Repository[T]) observe(op errors.TableOp, err error, started time.Time) {
	r.metrics.Observe(metrics.ComponentTable, r.store.Name(), string(op), metrics.Outcome(err), time.Since(started))
}
