package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TreeNode is the row backing one child of a GormTree collection.
type TreeNode struct {
	Collection string `gorm:"primaryKey;type:varchar(64)"`
	NodeKey    string `gorm:"primaryKey;type:varchar(64)"`
	Value      string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GormTree is a TreeStore on top of a SQL database. Snapshots are pushed to
// watchers of the same process after every write.
type GormTree struct {
	db       *gorm.DB
	logger   *zap.Logger
	watchers *watchers
}

// NewGormTree creates a GormTree, migrating the tree_nodes table.
func NewGormTree(db *gorm.DB, logger *zap.Logger) (*GormTree, error) {
	if err := db.AutoMigrate(&TreeNode{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tree nodes: %w", err)
	}
	return &GormTree{
		db:       db,
		logger:   logger,
		watchers: newWatchers(),
	}, nil
}

// NewKey returns a time ordered key.
func (t *GormTree) NewKey(string) string {
	return NewKey()
}

// Set creates or replaces a child.
func (t *GormTree) Set(ctx context.Context, collection, key string, value map[string]string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
	}
	node := TreeNode{Collection: collection, NodeKey: key, Value: string(raw)}
	if err := t.db.WithContext(ctx).Save(&node).Error; err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, key, err)
	}
	t.publish(ctx, collection)
	return nil
}

// Update merges value into an existing child.
func (t *GormTree) Update(ctx context.Context, collection, key string, value map[string]string) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var node TreeNode
		if err := tx.First(&node, "collection = ? AND node_key = ?", collection, key).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
			}
			return fmt.Errorf("failed to load %s/%s: %w", collection, key, err)
		}

		current := map[string]string{}
		if err := json.Unmarshal([]byte(node.Value), &current); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
		}
		for k, v := range value {
			current[k] = v
		}
		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
		}

		res := tx.Model(&TreeNode{}).
			Where("collection = ? AND node_key = ?", collection, key).
			Update("value", string(raw))
		if res.Error != nil {
			return fmt.Errorf("failed to update %s/%s: %w", collection, key, res.Error)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.publish(ctx, collection)
	return nil
}

// Remove deletes a child.
func (t *GormTree) Remove(ctx context.Context, collection, key string) error {
	res := t.db.WithContext(ctx).Delete(&TreeNode{}, "collection = ? AND node_key = ?", collection, key)
	if res.Error != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", collection, key, res.Error)
	}
	t.publish(ctx, collection)
	return nil
}

// Get returns every child of collection, oldest first.
func (t *GormTree) Get(ctx context.Context, collection string) ([]Node, error) {
	var rows []TreeNode
	if err := t.db.WithContext(ctx).Where("collection = ?", collection).Order("node_key asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", collection, err)
	}

	nodes := make([]Node, 0, len(rows))
	for _, row := range rows {
		value := map[string]string{}
		if err := json.Unmarshal([]byte(row.Value), &value); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, row.NodeKey, err)
		}
		nodes = append(nodes, Node{Key: row.NodeKey, Value: value})
	}
	return nodes, nil
}

// Watch delivers the current snapshot synchronously, then one per write made
// through this GormTree.
func (t *GormTree) Watch(ctx context.Context, collection string, fn SnapshotFunc) (func(), error) {
	nodes, err := t.Get(ctx, collection)
	if err != nil {
		return nil, err
	}
	cancel := t.watchers.add(collection, fn)
	fn(nodes)
	return bindContext(ctx, cancel), nil
}

func (t *GormTree) publish(ctx context.Context, collection string) {
	if !t.watchers.has(collection) {
		return
	}
	nodes, err := t.Get(context.WithoutCancel(ctx), collection)
	if err != nil {
		t.logger.Warn("failed to load snapshot", zap.String("collection", collection), zap.Error(err))
		return
	}
	t.watchers.notify(collection, nodes)
}
