package repositories

import (
	"context"
	"fmt"

	"smooth/internal/models"
	"smooth/internal/store"

	"go.uber.org/zap"
)

// TreeRepository stores records as children of a tree store collection.
type TreeRepository[T any] struct {
	tree       store.TreeStore
	collection string
	logger     *zap.Logger
}

// NewTreeRepository creates a TreeRepository for collection.
func NewTreeRepository[T any](tree store.TreeStore, collection string, logger *zap.Logger) *TreeRepository[T] {
	return &TreeRepository[T]{
		tree:       tree,
		collection: collection,
		logger:     logger.With(zap.String("collection", collection)),
	}
}

// Create reserves a key from the store, then writes the record under it.
func (r *TreeRepository[T]) Create(ctx context.Context, record T) (string, error) {
	fields, err := models.ToFields(record)
	if err != nil {
		return "", err
	}
	key := r.tree.NewKey(r.collection)
	if err := r.tree.Set(ctx, r.collection, key, fields); err != nil {
		return "", fmt.Errorf("failed to create record in %s: %w", r.collection, err)
	}
	return key, nil
}

// Update writes every field of record under key.
func (r *TreeRepository[T]) Update(ctx context.Context, key string, record T) error {
	fields, err := models.ToFields(record)
	if err != nil {
		return err
	}
	if err := r.tree.Update(ctx, r.collection, key, fields); err != nil {
		return fmt.Errorf("failed to update record %s in %s: %w", key, r.collection, err)
	}
	return nil
}

// Delete removes the record stored under key.
func (r *TreeRepository[T]) Delete(ctx context.Context, key string) error {
	if err := r.tree.Remove(ctx, r.collection, key); err != nil {
		return fmt.Errorf("failed to delete record %s from %s: %w", key, r.collection, err)
	}
	return nil
}

// Subscribe rebuilds the whole list from every snapshot, newest first.
func (r *TreeRepository[T]) Subscribe(ctx context.Context, onSnapshot SnapshotFunc[T]) (func(), error) {
	cancel, err := r.tree.Watch(ctx, r.collection, func(nodes []store.Node) {
		onSnapshot(r.entries(nodes))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.collection, err)
	}
	return cancel, nil
}

// Refresh does nothing: the store pushes snapshots itself.
func (r *TreeRepository[T]) Refresh(context.Context) error {
	return nil
}

// UpdateMode is PushDriven.
func (r *TreeRepository[T]) UpdateMode() UpdateMode {
	return PushDriven
}

func (r *TreeRepository[T]) entries(nodes []store.Node) []models.Entry[T] {
	entries := make([]models.Entry[T], 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		record, err := models.FromStrings[T](nodes[i].Value)
		if err != nil {
			r.logger.Warn("skipping undecodable node", zap.String("key", nodes[i].Key), zap.Error(err))
			continue
		}
		entries = append(entries, models.Entry[T]{Key: nodes[i].Key, Record: record})
	}
	return entries
}
