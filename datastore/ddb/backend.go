/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"time"

	"go.uber.org/zap"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/logger"
)

// DefaultTableWait bounds how long Ensure waits for a new table to become active.
const DefaultTableWait = 2 * time.Minute

// Backend hands out DynamoDB table and queue handles sharing one client.
type Backend struct {
	client  API
	log     *zap.Logger
	waitFor time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.log = logger.OrNop(l) }
}

// WithTableWait overrides DefaultTableWait.
func WithTableWait(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.waitFor = d
		}
	}
}

// NewBackend wraps client, usually the *dynamodb.Client returned by NewClient.
func NewBackend(client API, opts ...Option) *Backend {
	b := &Backend{client: client, log: zap.NewNop(), waitFor: DefaultTableWait}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OpenTable returns a handle on the named table. Use datastore.OpenTable to get
// name validation.
func (b *Backend) OpenTable(name string) datastore.TableStore {
	return &Table{client: b.client, name: name, log: b.log, waitFor: b.waitFor}
}

// OpenQueue returns a handle on the named queue.
func (b *Backend) OpenQueue(name string) datastore.QueueStore {
	return &Queue{client: b.client, name: name, log: b.log, waitFor: b.waitFor}
}
