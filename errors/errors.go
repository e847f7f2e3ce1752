/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrInvalidInput is returned when argument, key or name validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured is returned when the storage connection settings are missing or malformed
	ErrNotConfigured = errors.New("storage not configured")

	// ErrQuery is returned when a table query fails after retries
	ErrQuery = errors.New("table query failed")

	// ErrSave is returned when a table write fails after retries
	ErrSave = errors.New("table save failed")

	// ErrDelete is returned when a table delete fails after retries
	ErrDelete = errors.New("table delete failed")

	// ErrQueueOperation is returned when a queue operation fails after retries
	ErrQueueOperation = errors.New("queue operation failed")

	// ErrInvalidHandle is returned when a lease receipt is stale, expired or foreign.
	// Backends return it bare; the queue engine wraps it into InvalidHandleError.
	ErrInvalidHandle = errors.New("invalid message handle")

	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")
)

// TableOp names the repository operation a TableError came from.
type TableOp string

const (
	OpQuery  TableOp = "Query"
	OpSave   TableOp = "Save"
	OpDelete TableOp = "Delete"
)

// QueueOp names the queue operation a QueueError came from.
type QueueOp string

const (
	OpEnqueue     QueueOp = "Enqueue"
	OpDequeue     QueueOp = "Dequeue"
	OpDeleteMsg   QueueOp = "Delete"
	OpExtendLease QueueOp = "ExtendLease"
	OpClear       QueueOp = "Clear"
	OpCount       QueueOp = "Count"
)

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Source  string
	Message string
}

func (e *ValidationError) Error() string {
	prefix := "validation failed"
	if e.Source != "" {
		prefix = fmt.Sprintf("%s in %s", prefix, e.Source)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s for field %q: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotConfiguredError reports a missing or unusable configuration setting.
type NotConfiguredError struct {
	Setting string
	Cause   error
}

func (e *NotConfiguredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("setting %q is not usable: %v", e.Setting, e.Cause)
	}
	return fmt.Sprintf("setting %q is not configured", e.Setting)
}

func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

func (e *NotConfiguredError) Unwrap() error {
	return e.Cause
}

// TableError wraps a backend failure raised while working on a table.
type TableError struct {
	Op    TableOp
	Table string
	Cause error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %s: %s failed: %v", e.Table, e.Op, e.Cause)
}

func (e *TableError) Is(target error) bool {
	switch e.Op {
	case OpQuery:
		return target == ErrQuery
	case OpSave:
		return target == ErrSave
	case OpDelete:
		return target == ErrDelete
	}
	return false
}

func (e *TableError) Unwrap() error {
	return e.Cause
}

// QueueError wraps a backend failure raised while working on a queue.
type QueueError struct {
	Op    QueueOp
	Queue string
	Cause error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue %s: %s failed: %v", e.Queue, e.Op, e.Cause)
}

func (e *QueueError) Is(target error) bool {
	return target == ErrQueueOperation
}

func (e *QueueError) Unwrap() error {
	return e.Cause
}

// InvalidHandleError is returned by ExtendLease and Delete when the message's
// receipt no longer identifies the current lease.
type InvalidHandleError struct {
	Queue     string
	MessageID string
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("queue %s: message %q handle is stale or foreign", e.Queue, e.MessageID)
}

func (e *InvalidHandleError) Is(target error) bool {
	return target == ErrInvalidHandle
}

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Helper functions for creating errors

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewSourcedValidationError creates a ValidationError that names the failing operation.
func NewSourcedValidationError(source, field, message string) error {
	return &ValidationError{Field: field, Source: source, Message: message}
}

// NewNotConfiguredError creates a new NotConfiguredError
func NewNotConfiguredError(setting string, cause error) error {
	return &NotConfiguredError{Setting: setting, Cause: cause}
}

// NewTableError creates a new TableError
func NewTableError(op TableOp, table string, cause error) error {
	return &TableError{Op: op, Table: table, Cause: cause}
}

// NewQueueError creates a new QueueError
func NewQueueError(op QueueOp, queue string, cause error) error {
	return &QueueError{Op: op, Queue: queue, Cause: cause}
}

// NewInvalidHandleError creates a new InvalidHandleError
func NewInvalidHandleError(queue, messageID string) error {
	return &InvalidHandleError{Queue: queue, MessageID: messageID}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotConfigured checks if an error is a configuration error
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsQueryError checks if an error is a wrapped query failure
func IsQueryError(err error) bool {
	return errors.Is(err, ErrQuery)
}

// IsSaveError checks if an error is a wrapped save failure
func IsSaveError(err error) bool {
	return errors.Is(err, ErrSave)
}

// IsDeleteError checks if an error is a wrapped delete failure
func IsDeleteError(err error) bool {
	return errors.Is(err, ErrDelete)
}

// IsQueueOperationFailed checks if an error is a wrapped queue failure
func IsQueueOperationFailed(err error) bool {
	return errors.Is(err, ErrQueueOperation)
}

// IsInvalidHandle checks if an error is a stale lease handle error
func IsInvalidHandle(err error) bool {
	return errors.Is(err, ErrInvalidHandle)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
