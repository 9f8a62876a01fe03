package repositories

import (
	"context"

	"smooth/internal/models"
)

// UpdateMode tells callers how a repository's list stays current.
type UpdateMode int

const (
	// PushDriven repositories deliver a new snapshot to subscribers after
	// every change on their own.
	PushDriven UpdateMode = iota
	// Refetch repositories have no change notification; Refresh must be
	// called after every mutation.
	Refetch
)

func (m UpdateMode) String() string {
	switch m {
	case PushDriven:
		return "push-driven"
	case Refetch:
		return "refetch"
	default:
		return "unknown"
	}
}

// SnapshotFunc receives the full, ordered list of persisted records.
type SnapshotFunc[T any] func(entries []models.Entry[T])

// RecordRepository maps records of one entity type onto a remote store.
type RecordRepository[T any] interface {
	// Create persists a new record and returns its identity.
	Create(ctx context.Context, record T) (string, error)
	// Update replaces every field of the record stored under key.
	Update(ctx context.Context, key string, record T) error
	Delete(ctx context.Context, key string) error
	// Subscribe registers onSnapshot for list changes. The returned func
	// unsubscribes.
	Subscribe(ctx context.Context, onSnapshot SnapshotFunc[T]) (func(), error)
	// Refresh re-reads the list and hands it to subscribers. It is a no-op
	// for PushDriven repositories.
	Refresh(ctx context.Context) error
	UpdateMode() UpdateMode
}
