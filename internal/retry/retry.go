/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package retry runs backend calls under the exponential backoff policy shared by
// the repository and the queue.
package retry

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/suparena/cloudstore/errors"
)

// Policy describes an exponential retry schedule.
type Policy struct {
	// MaxAttempts counts the first call. Default: 5
	MaxAttempts uint
	// BaseDelay is the wait before the first retry. Default: 2s
	BaseDelay time.Duration
	// Multiplier grows the delay after every retry. Default: 2
	Multiplier float64
	// MaxDelay caps a single wait. Zero leaves the schedule uncapped.
	MaxDelay time.Duration
}

// DefaultPolicy is 5 attempts starting at 2 seconds, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Multiplier:  2,
	}
}

// normalize fills zero fields with defaults.
func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// WorstCase returns the total time spent waiting when every attempt fails.
func (p Policy) WorstCase() time.Duration {
	p = p.normalize()
	var total time.Duration
	delay := p.BaseDelay
	for i := uint(1); i < p.MaxAttempts; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		total += delay
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return total
}

// NotifyFunc observes a failed attempt before the next wait.
type NotifyFunc func(attempt int, err error, wait time.Duration)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err is one of the taxonomy kinds that retrying
// cannot fix.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	switch {
	case stderrors.As(err, &perm):
		return true
	case errors.IsInvalidHandle(err), errors.IsValidationError(err),
		errors.IsNotFound(err), errors.IsNotConfigured(err):
		return true
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

// Do calls op until it succeeds, fails permanently, or the policy runs out of
// attempts. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), notify NotifyFunc) (T, error) {
	p = p.normalize()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = p.WorstCase() + p.BaseDelay
	}

	attempt := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithMaxElapsedTime(p.WorstCase() + time.Minute),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}))
	}

	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && IsPermanent(err) {
			var perm *backoff.PermanentError
			if stderrors.As(err, &perm) {
				return v, err
			}
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op func(context.Context) error, notify NotifyFunc) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, notify)
	return err
}
