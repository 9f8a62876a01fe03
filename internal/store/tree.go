package store

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key does not exist in the backend.
var ErrNotFound = errors.New("not found")

// Node is one child of a collection in a tree store. Values are flat
// field->string mappings.
type Node struct {
	Key   string
	Value map[string]string
}

// SnapshotFunc receives the entire collection, oldest child first.
type SnapshotFunc func(nodes []Node)

// TreeStore is a real-time tree database: collections of keyed children that
// push a full snapshot to watchers on every change.
type TreeStore interface {
	// NewKey returns a fresh child key without contacting the backend.
	NewKey(collection string) string
	Set(ctx context.Context, collection, key string, value map[string]string) error
	// Update writes value over an existing child, failing with ErrNotFound
	// when the key is unknown.
	Update(ctx context.Context, collection, key string, value map[string]string) error
	Remove(ctx context.Context, collection, key string) error
	Get(ctx context.Context, collection string) ([]Node, error)
	// Watch delivers the current snapshot and then one snapshot per change
	// until the returned cancel func is called or ctx is done.
	Watch(ctx context.Context, collection string, fn SnapshotFunc) (cancel func(), err error)
}

// NewKey returns a time ordered key, so lexical key order is insertion order.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
}

func copyValue(v map[string]string) map[string]string {
	out := make(map[string]string, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}
