/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/datastore/mock"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/storagemodels"
)

func item(pk, rk, name string) storagemodels.Item {
	it := storagemodels.KeyItem(pk, rk)
	it["Name"] = &types.AttributeValueMemberS{Value: name}
	return it
}

func TestMockTable(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		table := mock.NewTable("employees")

		if err := table.Merge(ctx, item("sales", "1", "Ada")); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}

		got, found, err := table.Get(ctx, "sales", "1")
		if err != nil || !found {
			t.Fatalf("Get failed: found=%v err=%v", found, err)
		}
		if got["Name"].(*types.AttributeValueMemberS).Value != "Ada" {
			t.Fatalf("Retrieved item mismatch: %+v", got)
		}

		if err := table.Delete(ctx, "sales", "1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, found, _ := table.Get(ctx, "sales", "1"); found {
			t.Fatal("Expected item to be deleted")
		}

		// deleting again is a no-op
		if err := table.Delete(ctx, "sales", "1"); err != nil {
			t.Fatalf("Second delete failed: %v", err)
		}
	})

	t.Run("MergeKeepsAttributes", func(t *testing.T) {
		table := mock.NewTable("employees")
		first := item("sales", "1", "Ada")
		first["City"] = &types.AttributeValueMemberS{Value: "Oslo"}
		table.Put(first)

		if err := table.Merge(ctx, item("sales", "1", "Grace")); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		got, _, _ := table.Get(ctx, "sales", "1")
		if got["Name"].(*types.AttributeValueMemberS).Value != "Grace" {
			t.Fatalf("Name not overwritten: %+v", got)
		}
		if _, ok := got["City"]; !ok {
			t.Fatalf("City was dropped by merge: %+v", got)
		}
	})

	t.Run("ScanPaging", func(t *testing.T) {
		table := mock.NewTable("employees")
		for i := 0; i < 7; i++ {
			table.Put(item("sales", fmt.Sprintf("%02d", i), "x"))
		}
		table.Put(item("hr", "01", "y"))

		var seen []string
		var start storagemodels.Item
		pages := 0
		for {
			items, next, err := table.ScanPage(ctx, storagemodels.KeyFilter{PartitionKey: "sales"}, start,
				storagemodels.ApplyScanOptions(storagemodels.WithPageSize(3)))
			if err != nil {
				t.Fatalf("ScanPage failed: %v", err)
			}
			pages++
			for _, it := range items {
				_, rk, _ := storagemodels.KeyOf(it)
				seen = append(seen, rk)
			}
			if next == nil {
				break
			}
			start = next
		}

		if pages != 3 || len(seen) != 7 || seen[0] != "00" || seen[6] != "06" {
			t.Fatalf("unexpected scan: pages=%d seen=%v", pages, seen)
		}

		all, _, _ := table.ScanPage(ctx, storagemodels.KeyFilter{}, nil, storagemodels.DefaultScanOptions())
		if len(all) != 8 {
			t.Fatalf("Expected full scan of 8 items, got %d", len(all))
		}

		point, _, _ := table.ScanPage(ctx, storagemodels.KeyFilter{PartitionKey: "sales", RowKey: "03"}, nil, storagemodels.DefaultScanOptions())
		if len(point) != 1 {
			t.Fatalf("Expected point scan to return 1 item, got %d", len(point))
		}
	})

	t.Run("KeysWithAllowedCharacters", func(t *testing.T) {
		keys := []struct {
			pk, rk, name string
		}{
			{"a|b", "c", "pipe in partition"},
			{"a", "b|c", "pipe in row"},
			{"a b", "c", "space in partition"},
			{"a", "b c", "space in row"},
			{"Zürich", "東京", "unicode"},
			{"a:b", "c.d", "punctuation"},
		}

		table := mock.NewTable("employees")
		for _, k := range keys {
			if err := table.Merge(ctx, item(k.pk, k.rk, k.name)); err != nil {
				t.Fatalf("Merge(%q, %q) failed: %v", k.pk, k.rk, err)
			}
		}
		if table.Len() != len(keys) {
			t.Fatalf("Expected %d distinct items, got %d", len(keys), table.Len())
		}

		for _, k := range keys {
			got, found, err := table.Get(ctx, k.pk, k.rk)
			if err != nil || !found {
				t.Fatalf("Get(%q, %q): found=%v err=%v", k.pk, k.rk, found, err)
			}
			if name := got["Name"].(*types.AttributeValueMemberS).Value; name != k.name {
				t.Errorf("Get(%q, %q) returned %q, want %q", k.pk, k.rk, name, k.name)
			}
			point, _, _ := table.ScanPage(ctx, storagemodels.KeyFilter{PartitionKey: k.pk, RowKey: k.rk}, nil, storagemodels.DefaultScanOptions())
			if len(point) != 1 {
				t.Errorf("ScanPage(%q, %q) returned %d items", k.pk, k.rk, len(point))
			}
		}

		if err := table.Delete(ctx, "a|b", "c"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, found, _ := table.Get(ctx, "a", "b|c"); !found {
			t.Error("Deleting (a|b, c) removed (a, b|c)")
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		boom := stderrors.New("boom")
		table := mock.NewTable("employees").WithTransientError(mock.OpMerge, boom, 2)

		for i := 0; i < 2; i++ {
			if err := table.Merge(ctx, item("a", "b", "c")); err != boom {
				t.Fatalf("Expected injected error, got: %v", err)
			}
		}
		if err := table.Merge(ctx, item("a", "b", "c")); err != nil {
			t.Fatalf("Expected third merge to succeed, got: %v", err)
		}
		if table.Calls(mock.OpMerge) != 3 {
			t.Fatalf("Expected 3 merge calls, got %d", table.Calls(mock.OpMerge))
		}
	})
}

func TestMockBackendSharesHandles(t *testing.T) {
	b := mock.New()

	t1, err := datastore.OpenTable(b, "Employees")
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	t2, _ := datastore.OpenTable(b, "employees")
	if t1 != t2 || t1.Name() != "employees" {
		t.Fatalf("Expected a shared canonical handle, got %q and %q", t1.Name(), t2.Name())
	}

	if _, err := datastore.OpenTable(b, "x"); !errors.IsValidationError(err) {
		t.Fatalf("Expected validation error, got: %v", err)
	}
	if _, err := datastore.OpenQueue(b, "abc"); !errors.IsValidationError(err) {
		t.Fatalf("Expected validation error, got: %v", err)
	}
}

func TestMockQueue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	q := mock.NewQueue("work-items")

	sent, err := q.Send(ctx, storagemodels.SendRequest{Payload: "p", Now: now, Delay: time.Minute, TTL: time.Hour})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if m, _ := q.Receive(ctx, now, time.Minute); m != nil {
		t.Fatal("Delayed message must not be visible yet")
	}

	now = now.Add(time.Minute)
	m, err := q.Receive(ctx, now, 10*time.Minute)
	if err != nil || m == nil {
		t.Fatalf("Receive failed: m=%v err=%v", m, err)
	}
	if m.ID != sent.ID || m.DequeueCount != 1 || m.Receipt == "" {
		t.Fatalf("Unexpected delivery: %+v", m)
	}

	receipt, _, err := q.ChangeVisibility(ctx, m.ID, m.Receipt, now, 10*time.Minute)
	if err != nil {
		t.Fatalf("ChangeVisibility failed: %v", err)
	}
	if err := q.Delete(ctx, m.ID, m.Receipt, now); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("Expected old receipt to be rejected, got: %v", err)
	}
	if err := q.Delete(ctx, m.ID, receipt, now); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if n, _ := q.ApproximateCount(ctx, now); n != 0 {
		t.Fatalf("Expected empty queue, got %d", n)
	}

	// expired messages disappear
	q.Send(ctx, storagemodels.SendRequest{Payload: "old", Now: now, TTL: time.Minute})
	if n, _ := q.ApproximateCount(ctx, now.Add(time.Minute)); n != 0 {
		t.Fatalf("Expected expired message to be dropped, got %d", n)
	}
}
