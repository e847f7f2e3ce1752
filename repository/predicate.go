/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import "github.com/suparena/cloudstore/storagemodels"

// Predicate selects entities. PartitionKey and RowKey are evaluated by the backend;
// Where runs on every entity the backend returns. Empty parts match everything.
type Predicate[T any] struct {
	PartitionKey string
	RowKey       string
	Where        func(*T) bool
}

// All matches every entity in the table.
func All[T any]() Predicate[T] {
	return Predicate[T]{}
}

// ByPartition matches every entity in a partition.
func ByPartition[T any](partitionKey string) Predicate[T] {
	return Predicate[T]{PartitionKey: partitionKey}
}

// ByKey matches the single entity with the given keys.
func ByKey[T any](partitionKey, rowKey string) Predicate[T] {
	return Predicate[T]{PartitionKey: partitionKey, RowKey: rowKey}
}

// Match filters the whole table with fn.
func Match[T any](fn func(*T) bool) Predicate[T] {
	return Predicate[T]{Where: fn}
}

// And narrows p with fn.
func (p Predicate[T]) And(fn func(*T) bool) Predicate[T] {
	prev := p.Where
	if prev == nil {
		p.Where = fn
		return p
	}
	p.Where = func(v *T) bool { return prev(v) && fn(v) }
	return p
}

func (p Predicate[T]) keyFilter() storagemodels.KeyFilter {
	return storagemodels.KeyFilter{PartitionKey: p.PartitionKey, RowKey: p.RowKey}
}

func (p Predicate[T]) matches(v *T) bool {
	return p.Where == nil || p.Where(v)
}
