/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cloudstore

import (
	"context"
	stderrors "errors"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/cloudstore/config"
	"github.com/suparena/cloudstore/datastore/mock"
	"github.com/suparena/cloudstore/datastore/testmodels"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/repository"
)

func memorySource() config.Static {
	return config.Static{
		config.KeyStorageBackend: config.BackendMemory,
		config.KeyQueueBackend:   config.BackendMemory,
		config.KeyLogLevel:       "Off",
	}
}

func newMemoryProvider(t *testing.T, opts ...Option) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), memorySource(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProviderRepositoryIsCachedByCanonicalName(t *testing.T) {
	p := newMemoryProvider(t)

	a, err := Repository[testmodels.Employee](p, "Employees")
	require.NoError(t, err)
	b, err := Repository[testmodels.Employee](p, "employees")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "employees", a.Table())
}

func TestProviderRepositoryRejectsBadTableName(t *testing.T) {
	p := newMemoryProvider(t)

	for _, name := range []string{"", "ab", "1employees", "em-ployees"} {
		_, err := Repository[testmodels.Employee](p, name)
		assert.True(t, errors.IsValidationError(err), "name %q: %v", name, err)
	}
}

func TestProviderRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newMemoryProvider(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	repo, err := Repository[testmodels.Employee](p, "Employees")
	require.NoError(t, err)

	e := testmodels.NewEmployee("sales", "Ada", "Lovelace")
	rowKey, err := repo.Upsert(ctx, e)
	require.NoError(t, err)

	found, err := repo.Find(ctx, repository.ByKey[testmodels.Employee]("sales", rowKey))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada", found[0].FirstName)
	assert.True(t, found[0].Timestamp.Equal(now))

	q, err := p.Queue("Billing.InvoiceCreated")
	require.NoError(t, err)
	assert.Equal(t, "billing-invoicecreated", q.Name())

	_, err = q.Enqueue(ctx, "invoice-1")
	require.NoError(t, err)
	msg, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "invoice-1", msg.Payload)
	require.NoError(t, q.Delete(ctx, msg))
}

func TestProviderQueueIsCached(t *testing.T) {
	p := newMemoryProvider(t, WithVisibilityTimeout(time.Minute))

	a, err := p.Queue("Billing.InvoiceCreated")
	require.NoError(t, err)
	b, err := p.Queue("billing.invoicecreated")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, time.Minute, a.VisibilityTimeout())

	_, err = p.Queue("ab")
	assert.True(t, errors.IsValidationError(err))
}

func TestProviderInjectedBackends(t *testing.T) {
	backend := mock.New()
	p := newMemoryProvider(t,
		WithTableBackend(backend),
		WithQueueBackend(backend),
		WithRetryPolicy(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}))
	ctx := context.Background()

	repo, err := Repository[testmodels.Employee](p, "Employees")
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, testmodels.NewEmployee("sales", "Grace", "Hopper"))
	require.NoError(t, err)

	assert.Equal(t, 1, backend.Table("employees").Len())
}

func TestProviderEnsureTable(t *testing.T) {
	ctx := context.Background()
	cause := stderrors.New("throttled")
	backend := mock.New()
	p := newMemoryProvider(t,
		WithTableBackend(backend),
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}))

	backend.Table("employees").WithTransientError(mock.OpEnsure, cause, 2)
	name, err := p.EnsureTable(ctx, "Employees")
	require.NoError(t, err)
	assert.Equal(t, "employees", name)
	assert.True(t, backend.Table("employees").Exists())
	assert.Equal(t, 3, backend.Table("employees").Calls(mock.OpEnsure))

	backend.Table("payroll").WithError(mock.OpEnsure, cause)
	_, err = p.EnsureTable(ctx, "Payroll")
	assert.True(t, errors.IsSaveError(err), "got %v", err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, backend.Table("payroll").Calls(mock.OpEnsure))

	_, err = p.EnsureTable(ctx, "x")
	assert.True(t, errors.IsValidationError(err))
}

func TestProviderConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	src := memorySource()
	src[config.KeyQueueBackend] = "kafka"
	_, err := NewProvider(ctx, src)
	assert.True(t, errors.IsNotConfigured(err))

	src = memorySource()
	src[config.KeyConnectionString] = "Region"
	_, err = NewProvider(ctx, src)
	assert.True(t, errors.IsNotConfigured(err))

	src = memorySource()
	src[config.KeyLogLevel] = "Chatty"
	_, err = NewProvider(ctx, src)
	assert.True(t, errors.IsNotConfigured(err))
}

func TestProviderSettings(t *testing.T) {
	p := newMemoryProvider(t)
	s := p.Settings()
	assert.Equal(t, config.BackendMemory, s.StorageBackend)
	assert.True(t, s.Connection.Development)
	assert.NotNil(t, p.Metrics().Registry())
	assert.NoError(t, p.Close())
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.GitCommit)
	assert.NotEmpty(t, info.BuildDate)
	assert.Contains(t, info.Platform, "/")
}

func TestWithBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc123"},
		{Key: "vcs.time", Value: "2025-05-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "GOARCH", Value: "amd64"},
	}

	info := withBuildSettings(VersionInfo{}, settings)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Equal(t, "2025-05-01T10:00:00Z", info.BuildDate)
	assert.True(t, info.Modified)

	// linker-stamped values win
	stamped := withBuildSettings(VersionInfo{GitCommit: "release", BuildDate: "today"}, settings)
	assert.Equal(t, "release", stamped.GitCommit)
	assert.Equal(t, "today", stamped.BuildDate)
}
