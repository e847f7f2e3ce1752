//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cloudstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/cloudstore"
	"github.com/suparena/cloudstore/config"
	"github.com/suparena/cloudstore/datastore/testmodels"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/ordering"
	"github.com/suparena/cloudstore/repository"
)

// setupProvider connects with the configuration in .env or the environment
// (CLOUDSTORE_SYSTEMSTORAGECONNECTIONSTRING, ...), DynamoDB Local by default.
func setupProvider(t *testing.T) *cloudstore.Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("CLOUDSTORE_INTEGRATION") == "" {
		t.Skip("CLOUDSTORE_INTEGRATION not set, skipping integration test")
	}

	v, err := config.Load(config.Options{EnvFile: ".env"})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p, err := cloudstore.NewProvider(context.Background(), v)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestIntegrationRepository(t *testing.T) {
	p := setupProvider(t)
	ctx := context.Background()

	table := fmt.Sprintf("Employees%d", time.Now().Unix())
	repo, err := cloudstore.Repository[testmodels.Employee](p, table)
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}

	dept := fmt.Sprintf("dept-%d", time.Now().UnixNano())
	cities := []string{"Toronto", "Oakville", "Montreal"}
	for i, city := range cities {
		e := testmodels.NewEmployee(dept, fmt.Sprintf("first%d", i), "last")
		e.Address = &testmodels.Address{City: city}
		hired := strfmt.DateTime(time.Now().Add(-time.Duration(i) * time.Hour))
		e.HiredAt = &hired
		if _, err := repo.Upsert(ctx, e); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
	}

	found, err := repo.Find(ctx, repository.ByPartition[testmodels.Employee](dept),
		repository.WithOrderBy(ordering.Asc("Address.City")))
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(found) != 3 || found[0].Address.City != "Montreal" || found[2].Address.City != "Toronto" {
		t.Fatalf("Unexpected order: %v", found)
	}

	page, err := repo.QueryPage(ctx, repository.ByPartition[testmodels.Employee](dept), 1, 2)
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	if page.TotalCount != 3 || len(page.Items) != 1 {
		t.Errorf("Unexpected page: %+v", page)
	}

	for _, e := range found {
		if err := repo.Delete(ctx, e); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
	}
	if _, err := repo.Get(ctx, dept, found[0].RowKey); !errors.IsNotFound(err) {
		t.Errorf("Expected not found error, got: %v", err)
	}
}

func TestIntegrationQueue(t *testing.T) {
	p := setupProvider(t)
	ctx := context.Background()

	q, err := p.Queue(fmt.Sprintf("Integration.Test%d", time.Now().Unix()))
	if err != nil {
		t.Fatalf("Failed to open queue: %v", err)
	}
	defer q.Clear(ctx)

	if _, err := q.Enqueue(ctx, "hello"); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	msg, err := q.Dequeue(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Failed to dequeue: %v %v", msg, err)
	}
	if err := q.ExtendLease(ctx, msg); err != nil {
		t.Fatalf("Failed to extend lease: %v", err)
	}
	if err := q.Delete(ctx, msg); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := q.Delete(ctx, msg); !errors.IsInvalidHandle(err) && !errors.IsValidationError(err) {
		t.Errorf("Expected a rejected handle, got: %v", err)
	}
}
