/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cloudstore

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/suparena/cloudstore/repository"
)

// TypedStorage holds the repositories of entity type T by table name.
type TypedStorage[T any] struct {
	mu    sync.RWMutex
	repos map[string]*repository.Repository[T]
}

// NewTypedStorage creates an empty TypedStorage for type T.
func NewTypedStorage[T any]() *TypedStorage[T] {
	return &TypedStorage[T]{
		repos: make(map[string]*repository.Repository[T]),
	}
}

// Register adds a repository under key.
func (ts *TypedStorage[T]) Register(key string, repo *repository.Repository[T]) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.repos[key]; exists {
		return fmt.Errorf("repository with key %q already registered", key)
	}
	ts.repos[key] = repo
	return nil
}

// Get retrieves the repository registered under key.
func (ts *TypedStorage[T]) Get(key string) (*repository.Repository[T], error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	repo, exists := ts.repos[key]
	if !exists {
		return nil, fmt.Errorf("repository with key %q not found", key)
	}
	return repo, nil
}

// GetOrCreate returns the repository under key, building and registering it with
// create when there is none yet. create runs at most once per key.
func (ts *TypedStorage[T]) GetOrCreate(key string, create func() (*repository.Repository[T], error)) (*repository.Repository[T], error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if repo, exists := ts.repos[key]; exists {
		return repo, nil
	}
	repo, err := create()
	if err != nil {
		return nil, err
	}
	ts.repos[key] = repo
	return repo, nil
}

// Remove drops the repository under key.
func (ts *TypedStorage[T]) Remove(key string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.repos[key]; !exists {
		return fmt.Errorf("repository with key %q not found", key)
	}
	delete(ts.repos, key)
	return nil
}

// List returns the registered keys in sorted order.
func (ts *TypedStorage[T]) List() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	keys := make([]string, 0, len(ts.repos))
	for k := range ts.repos {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MultiTypeStorage holds one TypedStorage per entity type.
type MultiTypeStorage struct {
	mu       sync.Mutex
	storages map[reflect.Type]any
}

// NewMultiTypeStorage creates an empty MultiTypeStorage.
func NewMultiTypeStorage() *MultiTypeStorage {
	return &MultiTypeStorage{
		storages: make(map[reflect.Type]any),
	}
}

// GetTypedStorage returns the TypedStorage for T, creating it if necessary.
func GetTypedStorage[T any](mts *MultiTypeStorage) *TypedStorage[T] {
	mts.mu.Lock()
	defer mts.mu.Unlock()

	typ := reflect.TypeFor[T]()
	if storage, exists := mts.storages[typ]; exists {
		return storage.(*TypedStorage[T])
	}

	storage := NewTypedStorage[T]()
	mts.storages[typ] = storage
	return storage
}

// RegisterRepository registers repo for type T under key.
func RegisterRepository[T any](mts *MultiTypeStorage, key string, repo *repository.Repository[T]) error {
	return GetTypedStorage[T](mts).Register(key, repo)
}

// GetRepository returns the repository for type T under key.
func GetRepository[T any](mts *MultiTypeStorage, key string) (*repository.Repository[T], error) {
	return GetTypedStorage[T](mts).Get(key)
}

// RemoveRepository drops the repository for type T under key.
func RemoveRepository[T any](mts *MultiTypeStorage, key string) error {
	return GetTypedStorage[T](mts).Remove(key)
}

// ListRepositories lists the keys registered for type T.
func ListRepositories[T any](mts *MultiTypeStorage) []string {
	return GetTypedStorage[T](mts).List()
}
