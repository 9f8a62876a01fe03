package store

import (
	"context"
	"sync"
)

// watchers fans snapshots out to the watchers of each collection.
type watchers struct {
	mu     sync.Mutex
	nextID int
	byColl map[string]map[int]SnapshotFunc
}

func newWatchers() *watchers {
	return &watchers{byColl: make(map[string]map[int]SnapshotFunc)}
}

func (w *watchers) add(collection string, fn SnapshotFunc) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	if w.byColl[collection] == nil {
		w.byColl[collection] = make(map[int]SnapshotFunc)
	}
	w.byColl[collection][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.byColl[collection], id)
		})
	}
}

func (w *watchers) has(collection string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byColl[collection]) > 0
}

// notify calls every watcher of collection outside the lock.
func (w *watchers) notify(collection string, nodes []Node) {
	w.mu.Lock()
	fns := make([]SnapshotFunc, 0, len(w.byColl[collection]))
	for _, fn := range w.byColl[collection] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(cloneNodes(nodes))
	}
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Node{Key: n.Key, Value: copyValue(n.Value)}
	}
	return out
}

// bindContext also runs cancel once ctx is done.
func bindContext(ctx context.Context, cancel func()) func() {
	done := ctx.Done()
	if done == nil {
		return cancel
	}

	stop := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-done:
		case <-stop:
		}
		cancel()
	}()
	return func() { once.Do(func() { close(stop) }) }
}
