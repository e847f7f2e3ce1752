/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cloudstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/cloudstore/config"
	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/datastore/ddb"
	"github.com/suparena/cloudstore/datastore/mock"
	"github.com/suparena/cloudstore/datastore/redisq"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/logger"
	"github.com/suparena/cloudstore/metrics"
	"github.com/suparena/cloudstore/queue"
	"github.com/suparena/cloudstore/repository"
)

type providerOptions struct {
	logger     *zap.Logger
	metrics    *metrics.Collector
	policy     *retry.Policy
	clock      func() time.Time
	visibility time.Duration
	tables     datastore.TableBackend
	queues     datastore.QueueBackend
}

// Option configures a Provider.
type Option func(*providerOptions)

// WithLogger replaces the logger built from LogLevel.
func WithLogger(l *zap.Logger) Option {
	return func(o *providerOptions) { o.logger = l }
}

// WithMetrics replaces the collector built from MetricsNamespace.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *providerOptions) { o.metrics = c }
}

// WithRetryPolicy applies p to every repository and queue.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *providerOptions) { o.policy = &p }
}

// WithClock sets the time source of every repository and queue.
func WithClock(now func() time.Time) Option {
	return func(o *providerOptions) { o.clock = now }
}

// WithVisibilityTimeout sets the lease length of every queue.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(o *providerOptions) { o.visibility = d }
}

// WithTableBackend bypasses StorageBackend.
func WithTableBackend(b datastore.TableBackend) Option {
	return func(o *providerOptions) { o.tables = b }
}

// WithQueueBackend bypasses QueueBackend.
func WithQueueBackend(b datastore.QueueBackend) Option {
	return func(o *providerOptions) { o.queues = b }
}

// Provider builds the configured backends once and hands out repositories and
// queues over them. It is safe for concurrent use.
type Provider struct {
	settings config.Settings
	log      *zap.Logger
	metrics  *metrics.Collector
	opts     providerOptions

	tables datastore.TableBackend
	queues datastore.QueueBackend
	repos  *MultiTypeStorage

	mu      sync.Mutex
	byName  map[string]*queue.Queue
	closers []func() error
}

// NewProvider resolves settings from src and connects the table and queue
// backends. No table or queue is created until first used.
func NewProvider(ctx context.Context, src config.Source, opts ...Option) (*Provider, error) {
	settings, err := config.Resolve(src)
	if err != nil {
		return nil, err
	}

	var o providerOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		settings: settings,
		opts:     o,
		repos:    NewMultiTypeStorage(),
		byName:   make(map[string]*queue.Queue),
	}

	p.log = o.logger
	if p.log == nil {
		if p.log, err = logger.New(settings.LogLevel); err != nil {
			return nil, err
		}
	}
	p.metrics = o.metrics
	if p.metrics == nil {
		if p.metrics, err = metrics.New(metrics.Config{Namespace: settings.MetricsNamespace}); err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	if err := p.connect(ctx); err != nil {
		return nil, err
	}

	p.log.Info("storage provider ready",
		zap.String("storageBackend", settings.StorageBackend),
		zap.String("queueBackend", settings.QueueBackend),
		zap.Stringer("connection", settings.Connection))
	return p, nil
}

// connect builds the backends the settings name, sharing one DynamoDB client and
// one in-memory store between tables and queues.
func (p *Provider) connect(ctx context.Context) error {
	var (
		dynamo *ddb.Backend
		memory *mock.Backend
	)
	dynamoBackend := func() (*ddb.Backend, error) {
		if dynamo == nil {
			client, err := ddb.NewClient(ctx, p.settings.Connection, p.log)
			if err != nil {
				return nil, err
			}
			dynamo = ddb.NewBackend(client, ddb.WithLogger(p.log))
		}
		return dynamo, nil
	}
	memoryBackend := func() *mock.Backend {
		if memory == nil {
			memory = mock.New()
		}
		return memory
	}

	p.tables = p.opts.tables
	if p.tables == nil {
		switch p.settings.StorageBackend {
		case config.BackendMemory:
			p.tables = memoryBackend()
		default:
			b, err := dynamoBackend()
			if err != nil {
				return err
			}
			p.tables = b
		}
	}

	p.queues = p.opts.queues
	if p.queues == nil {
		switch p.settings.QueueBackend {
		case config.BackendMemory:
			p.queues = memoryBackend()
		case config.BackendRedis:
			client := redisq.NewClient(p.settings.RedisAddress)
			p.closers = append(p.closers, client.Close)
			p.queues = redisq.NewBackend(client, redisq.WithLogger(p.log))
		default:
			b, err := dynamoBackend()
			if err != nil {
				return err
			}
			p.queues = b
		}
	}
	return nil
}

// Settings returns the resolved configuration.
func (p *Provider) Settings() config.Settings {
	return p.settings
}

// EnsureTable creates table if it does not exist and returns its canonical name.
// Creation runs under the provider's retry policy; failures are SaveError kinds.
func (p *Provider) EnsureTable(ctx context.Context, table string) (string, error) {
	store, err := datastore.OpenTable(p.tables, table)
	if err != nil {
		return "", err
	}

	policy := retry.DefaultPolicy()
	if p.opts.policy != nil {
		policy = *p.opts.policy
	}
	err = retry.Run(ctx, policy, store.Ensure, func(attempt int, err error, wait time.Duration) {
		p.metrics.Retry(metrics.ComponentTable, store.Name(), string(errors.OpSave))
		p.log.Warn("retrying table creation",
			zap.String("table", store.Name()), zap.Int("attempt", attempt),
			zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		p.log.Error("table creation failed", zap.String("table", store.Name()), zap.Error(err))
		return "", errors.NewTableError(errors.OpSave, store.Name(), err)
	}
	return store.Name(), nil
}

// Logger returns the provider's logger.
func (p *Provider) Logger() *zap.Logger {
	return p.log
}

// Metrics returns the provider's collector.
func (p *Provider) Metrics() *metrics.Collector {
	return p.metrics
}

// Repository returns the repository of T over table, creating it on first call.
// Names differing only in case share one repository.
func Repository[T any](p *Provider, table string) (*repository.Repository[T], error) {
	store, err := datastore.OpenTable(p.tables, table)
	if err != nil {
		return nil, err
	}

	return GetTypedStorage[T](p.repos).GetOrCreate(store.Name(), func() (*repository.Repository[T], error) {
		opts := []repository.Option{
			repository.WithLogger(p.log),
			repository.WithMetrics(p.metrics),
		}
		if p.opts.policy != nil {
			opts = append(opts, repository.WithRetryPolicy(*p.opts.policy))
		}
		if p.opts.clock != nil {
			opts = append(opts, repository.WithClock(p.opts.clock))
		}
		return repository.New[T](store, opts...)
	})
}

// Queue returns the queue for a logical message kind such as
// "Billing.InvoiceCreated", creating the engine on first call.
func (p *Provider) Queue(kind string) (*queue.Queue, error) {
	name := queue.NameFor(kind)

	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok := p.byName[name]; ok {
		return q, nil
	}

	store, err := datastore.OpenQueue(p.queues, name)
	if err != nil {
		return nil, err
	}
	opts := []queue.Option{
		queue.WithLogger(p.log),
		queue.WithMetrics(p.metrics),
	}
	if p.opts.policy != nil {
		opts = append(opts, queue.WithRetryPolicy(*p.opts.policy))
	}
	if p.opts.clock != nil {
		opts = append(opts, queue.WithClock(p.opts.clock))
	}
	if p.opts.visibility > 0 {
		opts = append(opts, queue.WithVisibilityTimeout(p.opts.visibility))
	}

	q, err := queue.New(store, opts...)
	if err != nil {
		return nil, err
	}
	p.byName[name] = q
	return q, nil
}

// Close releases backend connections and flushes the logger.
func (p *Provider) Close() error {
	p.mu.Lock()
	closers := p.closers
	p.closers = nil
	p.mu.Unlock()

	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	// Sync fails on stderr/stdout for some platforms; nothing to do about it
	_ = p.log.Sync()
	return stderrors.Join(errs...)
}
