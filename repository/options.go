/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"time"

	"go.uber.org/zap"

	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/metrics"
	"github.com/suparena/cloudstore/ordering"
	"github.com/suparena/cloudstore/storagemodels"
)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Collector
	policy  retry.Policy
	clock   func() time.Time
	scan    []storagemodels.ScanOption
}

// Option configures a Repository.
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

// WithClock sets the time source for Timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithScanOptions sets the default backend paging for queries.
func WithScanOptions(opts ...storagemodels.ScanOption) Option {
	return func(o *options) { o.scan = append(o.scan, opts...) }
}

type queryOptions struct {
	orderBy []ordering.OrderBy
	scan    []storagemodels.ScanOption
}

// QueryOption configures a single query.
type QueryOption func(*queryOptions)

// WithOrderBy replaces the default Timestamp ascending order.
func WithOrderBy(clauses ...ordering.OrderBy) QueryOption {
	return func(o *queryOptions) { o.orderBy = append(o.orderBy, clauses...) }
}

// WithScan adjusts backend paging for one query.
func WithScan(opts ...storagemodels.ScanOption) QueryOption {
	return func(o *queryOptions) { o.scan = append(o.scan, opts...) }
}
