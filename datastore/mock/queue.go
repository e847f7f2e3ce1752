/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/storagemodels"
)

type queued struct {
	seq int64
	msg storagemodels.Message
}

// Queue is an in-memory datastore.QueueStore. Lease bookkeeping runs under a
// single mutex, which gives the same per-message atomicity a remote store gives
// through conditional writes.
type Queue struct {
	name     string
	mu       sync.Mutex
	messages map[string]*queued
	seq      int64
	exists   bool
	faults   *faults
}

// NewQueue creates an empty queue handle.
func NewQueue(name string) *Queue {
	return &Queue{
		name:     name,
		messages: make(map[string]*queued),
		faults:   newFaults(),
	}
}

// WithError makes op fail with err on every call
func (q *Queue) WithError(op Op, err error) *Queue {
	q.faults.set(op, err, -1)
	return q
}

// WithTransientError makes op fail with err for the next times calls
func (q *Queue) WithTransientError(op Op, err error, times int) *Queue {
	q.faults.set(op, err, times)
	return q
}

// Calls returns how many times op was invoked, failed calls included.
func (q *Queue) Calls(op Op) int {
	return q.faults.count(op)
}

func (q *Queue) Name() string { return q.name }

// Ensure marks the queue as created.
func (q *Queue) Ensure(ctx context.Context) error {
	if err := q.faults.hit(OpEnsure); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.exists = true
	return nil
}

// Exists reports whether Ensure has run.
func (q *Queue) Exists() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exists
}

// Send stores a new message.
func (q *Queue) Send(ctx context.Context, req storagemodels.SendRequest) (*storagemodels.Message, error) {
	if err := q.faults.hit(OpSend); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	m := storagemodels.Message{
		ID:            uuid.NewString(),
		Payload:       req.Payload,
		InsertedAt:    req.Now,
		NextVisibleAt: req.Now.Add(req.Delay),
		ExpiresAt:     req.Now.Add(req.TTL),
	}
	q.messages[m.ID] = &queued{seq: q.seq, msg: m}

	out := m
	return &out, nil
}

// Receive leases the visible message that became visible first.
func (q *Queue) Receive(ctx context.Context, now time.Time, visibility time.Duration) (*storagemodels.Message, error) {
	if err := q.faults.hit(OpReceive); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.expire(now)

	var pick *queued
	for _, e := range q.messages {
		if e.msg.NextVisibleAt.After(now) {
			continue
		}
		if pick == nil || e.msg.NextVisibleAt.Before(pick.msg.NextVisibleAt) ||
			(e.msg.NextVisibleAt.Equal(pick.msg.NextVisibleAt) && e.seq < pick.seq) {
			pick = e
		}
	}
	if pick == nil {
		return nil, nil
	}

	pick.msg.DequeueCount++
	pick.msg.NextVisibleAt = now.Add(visibility)
	pick.msg.Receipt = uuid.NewString()

	out := pick.msg
	return &out, nil
}

// ChangeVisibility extends the lease held under receipt.
func (q *Queue) ChangeVisibility(ctx context.Context, id, receipt string, now time.Time, visibility time.Duration) (string, time.Time, error) {
	if err := q.faults.hit(OpChange); err != nil {
		return "", time.Time{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	e, err := q.leased(id, receipt, now)
	if err != nil {
		return "", time.Time{}, err
	}
	e.msg.Receipt = uuid.NewString()
	e.msg.NextVisibleAt = now.Add(visibility)
	return e.msg.Receipt, e.msg.NextVisibleAt, nil
}

// Delete removes the message leased under receipt.
func (q *Queue) Delete(ctx context.Context, id, receipt string, now time.Time) error {
	if err := q.faults.hit(OpRemove); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.leased(id, receipt, now); err != nil {
		return err
	}
	delete(q.messages, id)
	return nil
}

// ApproximateCount counts unexpired messages.
func (q *Queue) ApproximateCount(ctx context.Context, now time.Time) (int, error) {
	if err := q.faults.hit(OpCount); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.expire(now)
	return len(q.messages), nil
}

// Purge removes every message.
func (q *Queue) Purge(ctx context.Context) error {
	if err := q.faults.hit(OpPurge); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = make(map[string]*queued)
	return nil
}

// Peek returns a copy of the stored message, for assertions.
func (q *Queue) Peek(id string) (storagemodels.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.messages[id]
	if !ok {
		return storagemodels.Message{}, false
	}
	return e.msg, true
}

// leased returns the message if receipt still holds its lease at now.
// Caller holds q.mu.
func (q *Queue) leased(id, receipt string, now time.Time) (*queued, error) {
	e, ok := q.messages[id]
	switch {
	case !ok, receipt == "", e.msg.Receipt != receipt:
		return nil, errors.ErrInvalidHandle
	case !e.msg.ExpiresAt.After(now), !e.msg.NextVisibleAt.After(now):
		return nil, errors.ErrInvalidHandle
	}
	return e, nil
}

// expire drops messages past their lifespan. Caller holds q.mu.
func (q *Queue) expire(now time.Time) {
	for id, e := range q.messages {
		if !e.msg.ExpiresAt.After(now) {
			delete(q.messages, id)
		}
	}
}
