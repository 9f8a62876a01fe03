package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTree is an in-memory implementation of TreeStore.
type MemoryTree struct {
	collections map[string]map[string]map[string]string
	mu          sync.RWMutex
	watchers    *watchers
}

// NewMemoryTree creates a new, empty MemoryTree.
func NewMemoryTree() *MemoryTree {
	return &MemoryTree{
		collections: make(map[string]map[string]map[string]string),
		watchers:    newWatchers(),
	}
}

// NewKey returns a time ordered key.
func (t *MemoryTree) NewKey(string) string {
	return NewKey()
}

// Set writes a child, creating it if needed.
func (t *MemoryTree) Set(_ context.Context, collection, key string, value map[string]string) error {
	t.mu.Lock()
	if t.collections[collection] == nil {
		t.collections[collection] = make(map[string]map[string]string)
	}
	t.collections[collection][key] = copyValue(value)
	t.mu.Unlock()

	t.publish(collection)
	return nil
}

// Update overwrites the fields of an existing child.
func (t *MemoryTree) Update(_ context.Context, collection, key string, value map[string]string) error {
	t.mu.Lock()
	current, ok := t.collections[collection][key]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	for k, v := range value {
		current[k] = v
	}
	t.mu.Unlock()

	t.publish(collection)
	return nil
}

// Remove deletes a child. Removing a missing child is not an error.
func (t *MemoryTree) Remove(_ context.Context, collection, key string) error {
	t.mu.Lock()
	delete(t.collections[collection], key)
	t.mu.Unlock()

	t.publish(collection)
	return nil
}

// Get returns every child of collection, oldest first.
func (t *MemoryTree) Get(_ context.Context, collection string) ([]Node, error) {
	return t.snapshot(collection), nil
}

// Watch delivers the current snapshot synchronously, then one per change.
func (t *MemoryTree) Watch(ctx context.Context, collection string, fn SnapshotFunc) (func(), error) {
	cancel := t.watchers.add(collection, fn)
	fn(t.snapshot(collection))
	return bindContext(ctx, cancel), nil
}

func (t *MemoryTree) snapshot(collection string) []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	nodes := make([]Node, 0, len(t.collections[collection]))
	for key, value := range t.collections[collection] {
		nodes = append(nodes, Node{Key: key, Value: copyValue(value)})
	}
	sortNodes(nodes)
	return nodes
}

func (t *MemoryTree) publish(collection string) {
	if !t.watchers.has(collection) {
		return
	}
	t.watchers.notify(collection, t.snapshot(collection))
}
