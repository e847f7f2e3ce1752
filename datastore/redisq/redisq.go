/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redisq

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/logger"
	"github.com/suparena/cloudstore/storagemodels"
)

// DefaultKeyPrefix namespaces every key the backend writes.
const DefaultKeyPrefix = "cloudstore:queue:"

// Backend hands out Redis queue handles sharing one client.
type Backend struct {
	client redis.UniversalClient
	prefix string
	log    *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.log = logger.OrNop(l) }
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(b *Backend) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// NewClient connects to a single Redis server at addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            addr,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})
}

// NewBackend wraps client.
func NewBackend(client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{client: client, prefix: DefaultKeyPrefix, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OpenQueue returns a handle on the named queue. Use datastore.OpenQueue to get
// name validation.
func (b *Backend) OpenQueue(name string) datastore.QueueStore {
	// the hash tag keeps a queue's keys in one cluster slot
	base := b.prefix + "{" + name + "}:"
	return &Queue{
		client: b.client,
		name:   name,
		ready:  base + "ready",
		msgs:   base + "msg:",
		log:    b.log,
	}
}

// Queue is a message queue in Redis: one hash per message and a sorted set of
// ids scored by the time they become visible. Lease transitions run as Lua
// scripts so they are atomic.
type Queue struct {
	client redis.UniversalClient
	name   string
	ready  string
	msgs   string
	log    *zap.Logger
}

var _ datastore.QueueStore = (*Queue)(nil)

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Ensure checks the server is reachable; Redis creates keys on first write.
func (q *Queue) Ensure(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("PING: %w", err)
	}
	return nil
}

// Send stores the message hash and schedules it in one MULTI/EXEC.
func (q *Queue) Send(ctx context.Context, req storagemodels.SendRequest) (*storagemodels.Message, error) {
	msg := &storagemodels.Message{
		ID:            uuid.NewString(),
		Payload:       req.Payload,
		InsertedAt:    micros(req.Now),
		NextVisibleAt: micros(req.Now.Add(req.Delay)),
		ExpiresAt:     micros(req.Now.Add(req.TTL)),
	}

	key := q.msgs + msg.ID
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"payload", msg.Payload,
			"dequeueCount", 0,
			"insertedAt", stamp(msg.InsertedAt),
			"visibleAt", stamp(msg.NextVisibleAt),
			"expiresAt", stamp(msg.ExpiresAt),
		)
		pipe.ExpireAt(ctx, key, msg.ExpiresAt)
		pipe.ZAdd(ctx, q.ready, redis.Z{Score: float64(msg.NextVisibleAt.UnixMicro()), Member: msg.ID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return msg, nil
}

// Receive leases the message with the earliest visibility time.
func (q *Queue) Receive(ctx context.Context, now time.Time, visibility time.Duration) (*storagemodels.Message, error) {
	receipt := uuid.NewString()
	res, err := receiveScript.Run(ctx, q.client, []string{q.ready},
		q.msgs, stamp(now), stamp(now.Add(visibility)), receipt).StringSlice()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	msg, err := decodeLeased(res)
	if err != nil {
		return nil, err
	}
	msg.Receipt = receipt
	return msg, nil
}

// ChangeVisibility moves a live lease and rotates its receipt.
func (q *Queue) ChangeVisibility(ctx context.Context, id, receipt string, now time.Time, visibility time.Duration) (string, time.Time, error) {
	until := micros(now.Add(visibility))
	next := uuid.NewString()

	ok, err := changeScript.Run(ctx, q.client, []string{q.ready, q.msgs + id},
		receipt, stamp(now), stamp(until), next, id).Int()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("change visibility: %w", err)
	}
	if ok == 0 {
		return "", time.Time{}, errors.ErrInvalidHandle
	}
	return next, until, nil
}

// Delete removes a message whose lease is still held under receipt.
func (q *Queue) Delete(ctx context.Context, id, receipt string, now time.Time) error {
	ok, err := deleteScript.Run(ctx, q.client, []string{q.ready, q.msgs + id},
		receipt, stamp(now), id).Int()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if ok == 0 {
		return errors.ErrInvalidHandle
	}
	return nil
}

// ApproximateCount counts unexpired messages, dropping expired ones on the way.
func (q *Queue) ApproximateCount(ctx context.Context, now time.Time) (int, error) {
	n, err := countScript.Run(ctx, q.client, []string{q.ready}, q.msgs, stamp(now)).Int()
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Purge deletes every message of the queue.
func (q *Queue) Purge(ctx context.Context) error {
	n, err := purgeScript.Run(ctx, q.client, []string{q.ready}, q.msgs).Int()
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	q.log.Debug("queue purged", zap.String("queue", q.name), zap.Int("deleted", n))
	return nil
}

// decodeLeased parses the reply of receiveScript.
func decodeLeased(res []string) (*storagemodels.Message, error) {
	if len(res) != 6 {
		return nil, retry.Permanent(fmt.Errorf("receive: unexpected reply of %d fields", len(res)))
	}
	count, err := strconv.Atoi(res[2])
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("receive: dequeueCount %q: %w", res[2], err))
	}
	times := make([]time.Time, 3)
	for i, raw := range []string{res[3], res[4], res[5]} {
		if times[i], err = parseStamp(raw); err != nil {
			return nil, retry.Permanent(fmt.Errorf("receive: %w", err))
		}
	}
	return &storagemodels.Message{
		ID:            res[0],
		Payload:       res[1],
		DequeueCount:  count,
		InsertedAt:    times[0],
		ExpiresAt:     times[1],
		NextVisibleAt: times[2],
	}, nil
}

func micros(t time.Time) time.Time {
	return t.Truncate(time.Microsecond).UTC()
}

func stamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func parseStamp(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return time.UnixMicro(n).UTC(), nil
}
