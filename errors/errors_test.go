/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("Employee", "sales|42")

	expected := `Employee with key "sales|42" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "PartitionKey",
			message:  "must not contain / \\ # ?",
			expected: `validation failed for field "PartitionKey": must not contain / \ # ?`,
		},
		{
			name:     "without field",
			message:  "missing required fields",
			expected: "validation failed: missing required fields",
		},
		{
			name:     "with source",
			source:   "Repository.QueryPage",
			field:    "pageSize",
			message:  "must be at least 1",
			expected: `validation failed in Repository.QueryPage for field "pageSize": must be at least 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSourcedValidationError(tt.source, tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !errors.Is(err, ErrInvalidInput) {
				t.Error("ValidationError should match ErrInvalidInput")
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestTableError(t *testing.T) {
	cause := errors.New("ProvisionedThroughputExceededException")

	tests := []struct {
		op    TableOp
		match error
		check func(error) bool
	}{
		{OpQuery, ErrQuery, IsQueryError},
		{OpSave, ErrSave, IsSaveError},
		{OpDelete, ErrDelete, IsDeleteError},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			err := NewTableError(tt.op, "employees", cause)

			if !errors.Is(err, tt.match) {
				t.Errorf("TableError(%s) should match %v", tt.op, tt.match)
			}
			if !tt.check(err) {
				t.Errorf("helper should accept TableError(%s)", tt.op)
			}
			if !errors.Is(err, cause) {
				t.Error("TableError should expose its cause through Unwrap")
			}

			var te *TableError
			if !errors.As(err, &te) || te.Table != "employees" {
				t.Errorf("expected TableError for employees, got %v", err)
			}
		})
	}

	// a save failure is not a query failure
	if IsQueryError(NewTableError(OpSave, "employees", cause)) {
		t.Error("Save TableError must not match ErrQuery")
	}
}

func TestQueueError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewQueueError(OpExtendLease, "cloudstore-queue-default", cause)

	expected := "queue cloudstore-queue-default: ExtendLease failed: connection reset"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsQueueOperationFailed(err) {
		t.Error("IsQueueOperationFailed should return true for QueueError")
	}
	if !errors.Is(err, cause) {
		t.Error("QueueError should expose its cause through Unwrap")
	}
}

func TestInvalidHandleError(t *testing.T) {
	err := NewInvalidHandleError("work-items", "abc")

	if !IsInvalidHandle(err) {
		t.Error("IsInvalidHandle should return true for InvalidHandleError")
	}
	if IsQueueOperationFailed(err) {
		t.Error("InvalidHandleError must not be reported as a queue operation failure")
	}
}

func TestNotConfiguredError(t *testing.T) {
	err := NewNotConfiguredError("SystemStorageConnectionString", errors.New("missing '='"))
	if !IsNotConfigured(err) {
		t.Error("IsNotConfigured should return true for NotConfiguredError")
	}

	bare := NewNotConfiguredError("RedisAddress", nil)
	if bare.Error() != `setting "RedisAddress" is not configured` {
		t.Errorf("unexpected message %q", bare.Error())
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("Employee", "123")
	wrapped := fmt.Errorf("lookup failed: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrInvalidInput,
		ErrNotConfigured,
		ErrQuery,
		ErrSave,
		ErrDelete,
		ErrQueueOperation,
		ErrInvalidHandle,
		ErrNotFound,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
