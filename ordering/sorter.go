/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ordering

import (
	"reflect"
	"slices"
)

type compiledClause struct {
	clause OrderBy
	acc    *accessor
}

// Sorter orders slices of *T by a fixed list of compiled clauses.
type Sorter[T any] struct {
	clauses []compiledClause
}

// Compile builds a Sorter for T from clauses. The first clause is the primary key,
// every later clause breaks ties left by the ones before it.
//
// Clauses after an empty property are dropped (see Effective). Compile returns a nil
// Sorter when no clause remains; callers supply their own default ordering then.
// Unknown fields and field types that cannot be ordered fail with a validation error.
func Compile[T any](clauses ...OrderBy) (*Sorter[T], error) {
	kept, _ := Effective(clauses)
	if len(kept) == 0 {
		return nil, nil
	}

	root := reflect.TypeFor[T]()
	s := &Sorter[T]{clauses: make([]compiledClause, 0, len(kept))}
	for _, c := range kept {
		acc, err := compileAccessor(root, c.Property)
		if err != nil {
			return nil, err
		}
		s.clauses = append(s.clauses, compiledClause{clause: c, acc: acc})
	}
	return s, nil
}

// MustCompile is Compile for clause lists known to be valid.
func MustCompile[T any](clauses ...OrderBy) *Sorter[T] {
	s, err := Compile[T](clauses...)
	if err != nil {
		panic(err)
	}
	return s
}

// Clauses returns the clauses the sorter applies.
func (s *Sorter[T]) Clauses() []OrderBy {
	if s == nil {
		return nil
	}
	out := make([]OrderBy, len(s.clauses))
	for i, c := range s.clauses {
		out[i] = c.clause
	}
	return out
}

// Compare is the composite three-way comparison. Values behind nil pointers sort
// before everything else in ascending order.
func (s *Sorter[T]) Compare(a, b *T) int {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	for _, c := range s.clauses {
		r := compareValues(c.acc, va, vb)
		if c.clause.Direction == Descending {
			r = -r
		}
		if r != 0 {
			return r
		}
	}
	return 0
}

// Sort orders items in place. Items equal under every clause keep their order.
func (s *Sorter[T]) Sort(items []*T) {
	if s == nil || len(items) < 2 {
		return
	}
	slices.SortStableFunc(items, s.Compare)
}

func compareValues(acc *accessor, a, b reflect.Value) int {
	x, okA := acc.value(a)
	y, okB := acc.value(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return acc.compare(x, y)
}
