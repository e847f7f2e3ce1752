/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ordering

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/suparena/cloudstore/errors"
)

var timeType = reflect.TypeFor[time.Time]()

// accessorCache holds compiled paths keyed by root type and path.
var accessorCache sync.Map

type cacheKey struct {
	root reflect.Type
	path string
}

// accessor is a property path compiled into field index chains.
type accessor struct {
	path    string
	steps   [][]int
	leaf    reflect.Type
	compare func(a, b reflect.Value) int
}

// compileAccessor resolves path against root, one segment at a time.
func compileAccessor(root reflect.Type, path string) (*accessor, error) {
	key := cacheKey{root: root, path: path}
	if cached, ok := accessorCache.Load(key); ok {
		return cached.(*accessor), nil
	}

	acc := &accessor{path: path}
	t := root
	for _, segment := range strings.Split(path, ".") {
		t = deref(t)
		if t.Kind() != reflect.Struct {
			return nil, pathError(path, fmt.Sprintf("%s is not a struct", t))
		}
		f, ok := t.FieldByName(segment)
		if !ok {
			return nil, pathError(path, fmt.Sprintf("%s has no field %q", t, segment))
		}
		if !f.IsExported() {
			return nil, pathError(path, fmt.Sprintf("field %q of %s is not exported", segment, t))
		}
		acc.steps = append(acc.steps, f.Index)
		t = f.Type
	}

	acc.leaf = deref(t)
	cmpFn, err := comparerFor(acc.leaf)
	if err != nil {
		return nil, pathError(path, err.Error())
	}
	acc.compare = cmpFn

	actual, _ := accessorCache.LoadOrStore(key, acc)
	return actual.(*accessor), nil
}

// value walks v along the compiled steps. ok is false when a nil pointer sits on
// the path.
func (a *accessor) value(v reflect.Value) (reflect.Value, bool) {
	for _, step := range a.steps {
		s, ok := indirect(v)
		if !ok {
			return reflect.Value{}, false
		}
		// FieldByIndexErr fails on nil embedded pointers
		next, err := s.FieldByIndexErr(step)
		if err != nil {
			return reflect.Value{}, false
		}
		v = next
	}
	return indirect(v)
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// comparerFor returns a three-way comparison for values of type t.
func comparerFor(t reflect.Type) (func(a, b reflect.Value) int, error) {
	if t.Kind() == reflect.Struct && t.ConvertibleTo(timeType) {
		return func(a, b reflect.Value) int {
			return a.Convert(timeType).Interface().(time.Time).Compare(b.Convert(timeType).Interface().(time.Time))
		}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) }, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }, nil
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }, nil
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case !a.Bool():
				return -1
			}
			return 1
		}, nil
	}
	return nil, fmt.Errorf("%s values cannot be ordered", t)
}

func pathError(path, msg string) error {
	return errors.NewSourcedValidationError("ordering.Compile", path, msg)
}
