/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/cloudstore/errors"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Multiplier: 2}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, uint(5), p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)
	// 2 + 4 + 8 + 16
	assert.Equal(t, 30*time.Second, p.WorstCase())
}

func TestWorstCaseCapped(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 3 * time.Second}
	// 1 + 2 + 3
	assert.Equal(t, 6*time.Second, p.WorstCase())
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var notified []int

	v, err := Do(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", stderrors.New("throttled")
		}
		return "ok", nil
	}, func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := stderrors.New("service unavailable")

	err := Run(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return cause
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 5, calls)
}

func TestDoStopsOnPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid handle", errors.ErrInvalidHandle},
		{"validation", errors.NewValidationError("rowKey", "must not be empty")},
		{"not found", errors.NewNotFoundError("Employee", "a|b")},
		{"explicit", Permanent(stderrors.New("table does not exist"))},
		{"canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Run(context.Background(), fastPolicy(), func(context.Context) error {
				calls++
				return tt.err
			}, nil)
			require.Error(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestDoKeepsTaxonomyKind(t *testing.T) {
	err := Run(context.Background(), fastPolicy(), func(context.Context) error {
		return errors.ErrInvalidHandle
	}, nil)
	assert.True(t, errors.IsInvalidHandle(err))
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Run(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return stderrors.New("boom")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
