/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redisq

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/storagemodels"
)

// t0 follows the wall clock because message hashes expire in real Redis time.
var t0 = time.Now().UTC().Truncate(time.Second)

// newTestQueue skips unless a Redis server listens on localhost:6379. DB 15 and a
// per-test prefix keep runs apart.
func newTestQueue(t *testing.T) datastore.QueueStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis test")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis is not available for testing:", err)
	}

	prefix := fmt.Sprintf("test:cloudstore:%d:", time.Now().UnixNano())
	q, err := datastore.OpenQueue(NewBackend(client, WithKeyPrefix(prefix)), "orders")
	require.NoError(t, err)
	require.NoError(t, q.Ensure(ctx))
	t.Cleanup(func() { q.Purge(context.Background()) })
	return q
}

func send(t *testing.T, q datastore.QueueStore, payload string, delay time.Duration) *storagemodels.Message {
	t.Helper()
	msg, err := q.Send(context.Background(), storagemodels.SendRequest{
		Payload: payload, Now: t0, Delay: delay, TTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return msg
}

func TestDecodeLeased(t *testing.T) {
	msg, err := decodeLeased([]string{"id1", "hello", "2", stamp(t0), stamp(t0.Add(time.Hour)), stamp(t0.Add(time.Minute))})
	require.NoError(t, err)
	assert.Equal(t, "id1", msg.ID)
	assert.Equal(t, 2, msg.DequeueCount)
	assert.True(t, msg.InsertedAt.Equal(t0))
	assert.True(t, msg.ExpiresAt.Equal(t0.Add(time.Hour)))
	assert.True(t, msg.NextVisibleAt.Equal(t0.Add(time.Minute)))

	_, err = decodeLeased([]string{"id1"})
	assert.True(t, retry.IsPermanent(err))

	_, err = decodeLeased([]string{"id1", "p", "x", "1", "2", "3"})
	assert.Error(t, err)
}

func TestStampRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	got, err := parseStamp(stamp(at))
	require.NoError(t, err)
	assert.True(t, got.Equal(micros(at)))
}

func TestQueueLeaseCycle(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	sent := send(t, q, "hello", 0)

	msg, err := q.Receive(ctx, t0, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, sent.ID, msg.ID)
	assert.Equal(t, "hello", msg.Payload)
	assert.Equal(t, 1, msg.DequeueCount)
	assert.True(t, msg.NextVisibleAt.Equal(t0.Add(time.Minute)))

	// leased: invisible until the lease runs out
	none, err := q.Receive(ctx, t0.Add(30*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, none)

	receipt, until, err := q.ChangeVisibility(ctx, msg.ID, msg.Receipt, t0.Add(30*time.Second), time.Minute)
	require.NoError(t, err)
	assert.True(t, until.Equal(t0.Add(90*time.Second)))

	err = q.Delete(ctx, msg.ID, msg.Receipt, t0.Add(40*time.Second))
	assert.ErrorIs(t, err, errors.ErrInvalidHandle)

	require.NoError(t, q.Delete(ctx, msg.ID, receipt, t0.Add(40*time.Second)))

	n, err := q.ApproximateCount(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueRedeliveryAfterTimeout(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	send(t, q, "again", 0)

	first, err := q.Receive(ctx, t0, time.Minute)
	require.NoError(t, err)

	second, err := q.Receive(ctx, t0.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.DequeueCount)

	// the first delivery's lease ended exactly at the redelivery time
	_, _, err = q.ChangeVisibility(ctx, first.ID, first.Receipt, t0.Add(time.Minute), time.Minute)
	assert.ErrorIs(t, err, errors.ErrInvalidHandle)
}

func TestQueueDelayAndOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	late := send(t, q, "late", 10*time.Second)
	early := send(t, q, "early", 0)

	msg, err := q.Receive(ctx, t0, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, early.ID, msg.ID)

	msg, err = q.Receive(ctx, t0.Add(5*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, msg)

	msg, err = q.Receive(ctx, t0.Add(10*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, late.ID, msg.ID)
}

func TestQueueExpiry(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	_, err := q.Send(ctx, storagemodels.SendRequest{Payload: "short", Now: t0, TTL: time.Hour})
	require.NoError(t, err)

	n, err := q.ApproximateCount(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msg, err := q.Receive(ctx, t0.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, msg)

	n, err = q.ApproximateCount(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueuePurge(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for i := range 5 {
		send(t, q, fmt.Sprint(i), 0)
	}
	require.NoError(t, q.Purge(ctx))

	n, err := q.ApproximateCount(ctx, t0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueConcurrentReceive(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for i := range 20 {
		send(t, q, fmt.Sprint(i), 0)
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := q.Receive(ctx, t0, time.Minute)
				if err != nil || msg == nil {
					return
				}
				mu.Lock()
				seen[msg.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 20)
	for id, n := range seen {
		assert.Equal(t, 1, n, "message %s delivered %d times", id, n)
	}
}
