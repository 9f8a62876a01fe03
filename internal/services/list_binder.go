package services

import (
	"context"
	"sync"

	"smooth/internal/models"
	"smooth/internal/repositories"
)

// ListBinder mirrors the last list a repository reported. It only changes
// when a snapshot or re-fetch arrives.
type ListBinder[T any] struct {
	mu      sync.RWMutex
	entries []models.Entry[T]
	loaded  bool
}

// NewListBinder creates an empty, not yet loaded ListBinder.
func NewListBinder[T any]() *ListBinder[T] {
	return &ListBinder[T]{}
}

// Bind subscribes the binder to repo.
func (b *ListBinder[T]) Bind(ctx context.Context, repo repositories.RecordRepository[T]) (func(), error) {
	return repo.Subscribe(ctx, b.Replace)
}

// Replace swaps the whole list for entries.
func (b *ListBinder[T]) Replace(entries []models.Entry[T]) {
	list := make([]models.Entry[T], len(entries))
	copy(list, entries)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = list
	b.loaded = true
}

// Items returns a copy of the current list.
func (b *ListBinder[T]) Items() []models.Entry[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Entry[T], len(b.entries))
	copy(out, b.entries)
	return out
}

// Find looks an entry up by key.
func (b *ListBinder[T]) Find(key string) (models.Entry[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range b.entries {
		if e.Key == key {
			return e, true
		}
	}
	return models.Entry[T]{}, false
}

// Loaded reports whether a first list has arrived. Until then the list view
// shows a loading indicator.
func (b *ListBinder[T]) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}
