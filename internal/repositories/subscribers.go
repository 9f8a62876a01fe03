package repositories

import (
	"sync"

	"smooth/internal/models"
)

type subscribers[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]SnapshotFunc[T]
}

func newSubscribers[T any]() *subscribers[T] {
	return &subscribers[T]{fns: make(map[int]SnapshotFunc[T])}
}

func (s *subscribers[T]) add(fn SnapshotFunc[T]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[T]) notify(entries []models.Entry[T]) {
	s.mu.Lock()
	fns := make([]SnapshotFunc[T], 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		out := make([]models.Entry[T], len(entries))
		copy(out, entries)
		fn(out)
	}
}
