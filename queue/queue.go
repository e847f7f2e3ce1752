/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/logger"
	"github.com/suparena/cloudstore/metrics"
	"github.com/suparena/cloudstore/storagemodels"
)

const (
	// MaxMessageLifespan is how long a message lives after enqueue, delivered or not.
	MaxMessageLifespan = 7 * 24 * time.Hour
	// DefaultVisibilityTimeout is the lease granted by Dequeue and ExtendLease.
	DefaultVisibilityTimeout = time.Hour
)

// NameFor derives a queue name from a logical type identifier such as
// "Billing.InvoiceCreated": lower case, dots replaced by dashes.
func NameFor(kind string) string {
	return strings.ReplaceAll(strings.ToLower(kind), ".", "-")
}

type options struct {
	logger     *zap.Logger
	metrics    *metrics.Collector
	policy     retry.Policy
	clock      func() time.Time
	visibility time.Duration
}

// Option configures a Queue.
type Option func(*options)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records operations on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithRetryPolicy replaces the default 5 attempt exponential policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithClock sets the time source used for delays and leases.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithVisibilityTimeout overrides DefaultVisibilityTimeout.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.visibility = d
		}
	}
}

// Queue is the at-least-once message queue engine over a datastore.QueueStore.
type Queue struct {
	store      datastore.QueueStore
	log        *zap.Logger
	metrics    *metrics.Collector
	policy     retry.Policy
	now        func() time.Time
	visibility time.Duration
	lifespan   time.Duration

	ensureMu sync.Mutex
	ensured  bool
}

// New creates a queue engine on store. The queue is created on first use.
func New(store datastore.QueueStore, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, errors.NewSourcedValidationError("queue.New", "store", "must not be nil")
	}

	o := options{
		policy:     retry.DefaultPolicy(),
		clock:      time.Now,
		visibility: DefaultVisibilityTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Queue{
		store:      store,
		log:        logger.OrNop(o.logger).With(zap.String("queue", store.Name())),
		metrics:    o.metrics,
		policy:     o.policy,
		now:        o.clock,
		visibility: o.visibility,
		lifespan:   MaxMessageLifespan,
	}, nil
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.store.Name()
}

// VisibilityTimeout returns the lease length granted by Dequeue and ExtendLease.
func (q *Queue) VisibilityTimeout() time.Duration {
	return q.visibility
}

// Enqueue adds a message that is visible immediately.
func (q *Queue) Enqueue(ctx context.Context, payload string) (*storagemodels.Message, error) {
	return q.EnqueueAt(ctx, payload, q.now())
}

// EnqueueAt adds a message that becomes visible at availableAt. Times in the past
// mean no delay.
func (q *Queue) EnqueueAt(ctx context.Context, payload string, availableAt time.Time) (*storagemodels.Message, error) {
	started := time.Now()
	msg, err := q.enqueue(ctx, payload, availableAt)
	q.observe(errors.OpEnqueue, metrics.Outcome(err), started)
	return msg, err
}

func (q *Queue) enqueue(ctx context.Context, payload string, availableAt time.Time) (*storagemodels.Message, error) {
	if err := q.ensure(ctx, errors.OpEnqueue); err != nil {
		return nil, err
	}

	now := q.now()
	req := storagemodels.SendRequest{
		Payload: payload,
		Now:     now,
		Delay:   max(0, availableAt.Sub(now)),
		TTL:     q.lifespan,
	}

	msg, err := retry.Do(ctx, q.policy, func(ctx context.Context) (*storagemodels.Message, error) {
		return q.store.Send(ctx, req)
	}, q.notify(errors.OpEnqueue))
	if err != nil {
		return nil, q.fail(errors.OpEnqueue, "", err)
	}

	q.log.Debug("message enqueued", zap.String("id", msg.ID), zap.Duration("delay", req.Delay))
	return msg, nil
}

// Dequeue leases the next visible message for the visibility timeout and returns it
// with a fresh receipt. It returns nil, nil when no message is visible.
func (q *Queue) Dequeue(ctx context.Context) (*storagemodels.Message, error) {
	started := time.Now()
	msg, err := q.dequeue(ctx)

	outcome := metrics.Outcome(err)
	if err == nil && msg == nil {
		outcome = metrics.OutcomeEmpty
	}
	q.observe(errors.OpDequeue, outcome, started)
	return msg, err
}

func (q *Queue) dequeue(ctx context.Context) (*storagemodels.Message, error) {
	if err := q.ensure(ctx, errors.OpDequeue); err != nil {
		return nil, err
	}

	msg, err := retry.Do(ctx, q.policy, func(ctx context.Context) (*storagemodels.Message, error) {
		return q.store.Receive(ctx, q.now(), q.visibility)
	}, q.notify(errors.OpDequeue))
	if err != nil {
		return nil, q.fail(errors.OpDequeue, "", err)
	}
	if msg != nil {
		q.log.Debug("message delivered", zap.String("id", msg.ID), zap.Int("dequeueCount", msg.DequeueCount))
	}
	return msg, nil
}

// ExtendLease pushes the message's invisibility to now plus the visibility timeout
// and replaces msg.Receipt. A lease that has run out, or a receipt from an earlier
// delivery, fails with errors.InvalidHandleError. If a retried attempt follows one
// whose reply was lost, the store may already have rotated the receipt; the lease
// then runs out on its own and the message is redelivered.
func (q *Queue) ExtendLease(ctx context.Context, msg *storagemodels.Message) error {
	started := time.Now()
	err := q.extend(ctx, msg)
	q.observe(errors.OpExtendLease, metrics.Outcome(err), started)
	return err
}

func (q *Queue) extend(ctx context.Context, msg *storagemodels.Message) error {
	if err := q.handle("Queue.ExtendLease", msg); err != nil {
		return err
	}

	type lease struct {
		receipt string
		until   time.Time
	}
	l, err := retry.Do(ctx, q.policy, func(ctx context.Context) (lease, error) {
		receipt, until, err := q.store.ChangeVisibility(ctx, msg.ID, msg.Receipt, q.now(), q.visibility)
		return lease{receipt: receipt, until: until}, err
	}, q.notify(errors.OpExtendLease))
	if err != nil {
		return q.fail(errors.OpExtendLease, msg.ID, err)
	}

	msg.Receipt = l.receipt
	msg.NextVisibleAt = l.until
	return nil
}

// Delete removes a delivered message. Same handle rules as ExtendLease, except
// that a receipt found invalid only after a transient failure is taken as proof
// the earlier attempt went through.
func (q *Queue) Delete(ctx context.Context, msg *storagemodels.Message) error {
	started := time.Now()
	err := q.remove(ctx, msg)
	q.observe(errors.OpDeleteMsg, metrics.Outcome(err), started)
	return err
}

func (q *Queue) remove(ctx context.Context, msg *storagemodels.Message) error {
	if err := q.handle("Queue.Delete", msg); err != nil {
		return err
	}

	// A transient failure may hide a delete the store already applied; the
	// retry then sees the receipt gone. That counts as deleted.
	interrupted := false
	err := retry.Run(ctx, q.policy, func(ctx context.Context) error {
		err := q.store.Delete(ctx, msg.ID, msg.Receipt, q.now())
		switch {
		case err == nil:
			return nil
		case interrupted && errors.IsInvalidHandle(err):
			q.log.Debug("receipt gone after interrupted delete", zap.String("id", msg.ID))
			return nil
		case !retry.IsPermanent(err):
			interrupted = true
		}
		return err
	}, q.notify(errors.OpDeleteMsg))
	if err != nil {
		return q.fail(errors.OpDeleteMsg, msg.ID, err)
	}
	msg.Receipt = ""
	return nil
}

// Count returns the approximate number of messages, visible or not.
func (q *Queue) Count(ctx context.Context) (int, error) {
	started := time.Now()
	n, err := q.count(ctx)
	q.observe(errors.OpCount, metrics.Outcome(err), started)
	return n, err
}

func (q *Queue) count(ctx context.Context) (int, error) {
	if err := q.ensure(ctx, errors.OpCount); err != nil {
		return 0, err
	}
	n, err := retry.Do(ctx, q.policy, func(ctx context.Context) (int, error) {
		return q.store.ApproximateCount(ctx, q.now())
	}, q.notify(errors.OpCount))
	if err != nil {
		return 0, q.fail(errors.OpCount, "", err)
	}
	return n, nil
}

// Clear removes all messages. Messages enqueued while Clear runs may survive.
func (q *Queue) Clear(ctx context.Context) error {
	started := time.Now()
	err := q.clear(ctx)
	q.observe(errors.OpClear, metrics.Outcome(err), started)
	return err
}

func (q *Queue) clear(ctx context.Context) error {
	if err := q.ensure(ctx, errors.OpClear); err != nil {
		return err
	}
	err := retry.Run(ctx, q.policy, q.store.Purge, q.notify(errors.OpClear))
	if err != nil {
		return q.fail(errors.OpClear, "", err)
	}
	q.log.Info("queue cleared")
	return nil
}

// handle rejects messages that never came out of Dequeue.
func (q *Queue) handle(source string, msg *storagemodels.Message) error {
	if msg == nil {
		return errors.NewSourcedValidationError(source, "message", "must not be nil")
	}
	if msg.ID == "" || !msg.Leased() {
		return errors.NewInvalidHandleError(q.store.Name(), msg.ID)
	}
	return nil
}

// ensure creates the queue once. A failed attempt is retried by the next operation.
func (q *Queue) ensure(ctx context.Context, op errors.QueueOp) error {
	q.ensureMu.Lock()
	defer q.ensureMu.Unlock()
	if q.ensured {
		return nil
	}
	if err := retry.Run(ctx, q.policy, q.store.Ensure, q.notify(op)); err != nil {
		return q.fail(op, "", err)
	}
	q.ensured = true
	q.log.Info("queue ready")
	return nil
}

// fail converts a backend error into the queue's error kinds.
func (q *Queue) fail(op errors.QueueOp, messageID string, err error) error {
	switch {
	case errors.IsInvalidHandle(err):
		q.log.Debug("stale message handle", zap.String("op", string(op)), zap.String("id", messageID))
		return errors.NewInvalidHandleError(q.store.Name(), messageID)
	case errors.IsValidationError(err), errors.IsNotConfigured(err):
		return err
	}
	q.log.Error("queue operation failed", zap.String("op", string(op)), zap.Error(err))
	return errors.NewQueueError(op, q.store.Name(), err)
}

func (q *Queue) notify(op errors.QueueOp) retry.NotifyFunc {
	return func(attempt int, err error, wait time.Duration) {
		q.metrics.Retry(metrics.ComponentQueue, q.store.Name(), string(op))
		q.log.Warn("retrying queue operation",
			zap.String("op", string(op)), zap.Int("attempt", attempt),
			zap.Duration("wait", wait), zap.Error(err))
	}
}

func (q *Queue) observe(op errors.QueueOp, outcome string, started time.Time) {
	q.metrics.Observe(metrics.ComponentQueue, q.store.Name(), string(op), outcome, time.Since(started))
}
