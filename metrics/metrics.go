/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics exposes Prometheus counters and histograms for table and queue
// operations. A nil *Collector records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Components reported in the component label.
const (
	ComponentTable = "table"
	ComponentQueue = "queue"
)

// Outcomes reported in the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Config configures a Collector.
type Config struct {
	// Namespace for all metric names (default: "cloudstore")
	Namespace string
	// Registerer receives the metrics. If nil, a new registry is created.
	Registerer prometheus.Registerer
	// DurationBuckets for the duration histogram (default: prometheus.DefBuckets)
	DurationBuckets []float64
}

// Collector records operation outcomes, retries and latencies.
type Collector struct {
	operations *prometheus.CounterVec
	retries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	registry   *prometheus.Registry
}

// New creates and registers a Collector.
func New(cfg Config) (*Collector, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "cloudstore"
	}
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = prometheus.DefBuckets
	}

	c := &Collector{}
	if cfg.Registerer == nil {
		c.registry = prometheus.NewRegistry()
		cfg.Registerer = c.registry
	}

	c.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "operations_total",
			Help:      "Total number of table and queue operations by outcome",
		},
		[]string{"component", "resource", "operation", "outcome"},
	)
	c.retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "retries_total",
			Help:      "Total number of retried backend calls",
		},
		[]string{"component", "resource", "operation"},
	)
	c.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of table and queue operations in seconds, retries included",
			Buckets:   cfg.DurationBuckets,
		},
		[]string{"component", "resource", "operation"},
	)

	for _, col := range []prometheus.Collector{c.operations, c.retries, c.duration} {
		if err := cfg.Registerer.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry returns the registry New created, or nil when a Registerer was supplied.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Observe records one finished operation.
func (c *Collector) Observe(component, resource, operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(component, resource, operation, outcome).Inc()
	c.duration.WithLabelValues(component, resource, operation).Observe(elapsed.Seconds())
}

// Retry records one retried backend call.
func (c *Collector) Retry(component, resource, operation string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(component, resource, operation).Inc()
}

// Outcome maps an operation error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
