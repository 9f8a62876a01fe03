package store_test

import (
	"context"
	"testing"

	"smooth/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTree_SetGetOrdered(t *testing.T) {
	tree := store.NewMemoryTree()
	ctx := context.Background()

	first := tree.NewKey("products")
	second := tree.NewKey("products")
	require.Less(t, first, second)

	require.NoError(t, tree.Set(ctx, "products", second, map[string]string{"name": "B"}))
	require.NoError(t, tree.Set(ctx, "products", first, map[string]string{"name": "A"}))

	nodes, err := tree.Get(ctx, "products")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, first, nodes[0].Key)
	assert.Equal(t, "A", nodes[0].Value["name"])
	assert.Equal(t, second, nodes[1].Key)
}

func TestMemoryTree_UpdateUnknownKey(t *testing.T) {
	tree := store.NewMemoryTree()
	err := tree.Update(context.Background(), "products", "missing", map[string]string{"name": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryTree_WatchDeliversFullSnapshots(t *testing.T) {
	tree := store.NewMemoryTree()
	ctx := context.Background()

	var snapshots [][]store.Node
	cancel, err := tree.Watch(ctx, "suppliers", func(nodes []store.Node) {
		snapshots = append(snapshots, nodes)
	})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Empty(t, snapshots[0])

	key := tree.NewKey("suppliers")
	require.NoError(t, tree.Set(ctx, "suppliers", key, map[string]string{"phone": "1"}))
	require.NoError(t, tree.Set(ctx, "suppliers", tree.NewKey("suppliers"), map[string]string{"phone": "2"}))
	require.NoError(t, tree.Update(ctx, "suppliers", key, map[string]string{"phone": "3"}))
	require.NoError(t, tree.Remove(ctx, "suppliers", key))

	require.Len(t, snapshots, 5)
	assert.Len(t, snapshots[2], 2)
	assert.Equal(t, "3", snapshots[3][0].Value["phone"])
	assert.Len(t, snapshots[4], 1)

	cancel()
	require.NoError(t, tree.Set(ctx, "suppliers", tree.NewKey("suppliers"), map[string]string{}))
	assert.Len(t, snapshots, 5)
}

func TestMemoryTree_WatchIsPerCollection(t *testing.T) {
	tree := store.NewMemoryTree()
	calls := 0
	_, err := tree.Watch(context.Background(), "products", func([]store.Node) { calls++ })
	require.NoError(t, err)

	require.NoError(t, tree.Set(context.Background(), "suppliers", "k", map[string]string{}))
	assert.Equal(t, 1, calls)
}

func TestMemoryTree_SnapshotsAreCopies(t *testing.T) {
	tree := store.NewMemoryTree()
	ctx := context.Background()
	value := map[string]string{"name": "A"}
	require.NoError(t, tree.Set(ctx, "products", "k", value))
	value["name"] = "changed"

	nodes, err := tree.Get(ctx, "products")
	require.NoError(t, err)
	nodes[0].Value["name"] = "mutated"

	nodes, err = tree.Get(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "A", nodes[0].Value["name"])
}
