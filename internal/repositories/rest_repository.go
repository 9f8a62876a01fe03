package repositories

import (
	"context"
	"fmt"

	"smooth/internal/models"
	"smooth/internal/store"

	"go.uber.org/zap"
)

// RestCollection is the REST client a RestRepository talks to.
type RestCollection interface {
	List(ctx context.Context) ([]store.Document, error)
	Create(ctx context.Context, fields map[string]string) (string, error)
	Replace(ctx context.Context, id string, fields map[string]string) error
	Delete(ctx context.Context, id string) error
}

// RestRepository stores records in a REST collection. The server never pushes
// changes, so subscribers only hear about the list through Refresh.
type RestRepository[T any] struct {
	client      RestCollection
	subscribers *subscribers[T]
	logger      *zap.Logger
}

// NewRestRepository creates a RestRepository.
func NewRestRepository[T any](client RestCollection, logger *zap.Logger) *RestRepository[T] {
	return &RestRepository[T]{
		client:      client,
		subscribers: newSubscribers[T](),
		logger:      logger,
	}
}

// Create posts the record and returns the server-assigned id.
func (r *RestRepository[T]) Create(ctx context.Context, record T) (string, error) {
	fields, err := models.ToFields(record)
	if err != nil {
		return "", err
	}
	id, err := r.client.Create(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	return id, nil
}

// Update replaces the document with every field of record.
func (r *RestRepository[T]) Update(ctx context.Context, key string, record T) error {
	fields, err := models.ToFields(record)
	if err != nil {
		return err
	}
	if err := r.client.Replace(ctx, key, fields); err != nil {
		return fmt.Errorf("failed to update record %s: %w", key, err)
	}
	return nil
}

// Delete removes the document.
func (r *RestRepository[T]) Delete(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// Subscribe registers onSnapshot and fetches the initial list. The
// subscription stays registered even when that first fetch fails.
func (r *RestRepository[T]) Subscribe(ctx context.Context, onSnapshot SnapshotFunc[T]) (func(), error) {
	unsubscribe := r.subscribers.add(onSnapshot)

	entries, err := r.fetch(ctx)
	if err != nil {
		return unsubscribe, err
	}
	onSnapshot(entries)
	return unsubscribe, nil
}

// Refresh fetches the list and hands it to every subscriber in server order.
func (r *RestRepository[T]) Refresh(ctx context.Context) error {
	entries, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	r.subscribers.notify(entries)
	return nil
}

// UpdateMode is Refetch.
func (r *RestRepository[T]) UpdateMode() UpdateMode {
	return Refetch
}

func (r *RestRepository[T]) fetch(ctx context.Context) ([]models.Entry[T], error) {
	docs, err := r.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	entries := make([]models.Entry[T], 0, len(docs))
	for _, doc := range docs {
		record, err := models.FromFields[T](doc)
		if err != nil {
			r.logger.Warn("skipping undecodable document", zap.String("id", doc.ID()), zap.Error(err))
			continue
		}
		entries = append(entries, models.Entry[T]{Key: doc.ID(), Record: record})
	}
	return entries, nil
}
