package store_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"smooth/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollection mimics a mock REST API collection with numeric ids.
type fakeCollection struct {
	mu     sync.Mutex
	nextID int
	docs   []map[string]interface{}
	bodies []map[string]interface{}
}

func (f *fakeCollection) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/reviews"), "/")
	switch {
	case r.Method == http.MethodGet && id == "":
		_ = json.NewEncoder(w).Encode(f.docs)
	case r.Method == http.MethodPost:
		var doc map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.bodies = append(f.bodies, cloneDoc(doc))
		f.nextID++
		doc["id"] = f.nextID
		f.docs = append(f.docs, doc)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(doc)
	case r.Method == http.MethodPut:
		var doc map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.bodies = append(f.bodies, cloneDoc(doc))
		for i, d := range f.docs {
			if strconv.Itoa(int(toFloat(d["id"]))) == id {
				doc["id"] = d["id"]
				f.docs[i] = doc
				_ = json.NewEncoder(w).Encode(doc)
				return
			}
		}
		http.Error(w, `"Not found"`, http.StatusNotFound)
	case r.Method == http.MethodDelete:
		for i, d := range f.docs {
			if strconv.Itoa(int(toFloat(d["id"]))) == id {
				f.docs = append(f.docs[:i], f.docs[i+1:]...)
				_ = json.NewEncoder(w).Encode(d)
				return
			}
		}
		http.Error(w, `"Not found"`, http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func cloneDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return -1
}

func newRestCollection(t *testing.T) (*store.RestCollection, *fakeCollection) {
	t.Helper()
	fake := &fakeCollection{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := store.NewRestCollection(srv.URL, "reviews", time.Second)
	require.NoError(t, err)
	return c, fake
}

func TestRestCollection_Lifecycle(t *testing.T) {
	c, fake := newRestCollection(t)
	ctx := context.Background()

	id, err := c.Create(ctx, map[string]string{"id": "ignored", "customerName": "Ana", "grade": "5"})
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	assert.NotContains(t, fake.bodies[0], "id")

	_, err = c.Create(ctx, map[string]string{"customerName": "Bia", "grade": "0"})
	require.NoError(t, err)

	docs, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0].ID())
	assert.Equal(t, "Ana", docs[0]["customerName"])

	require.NoError(t, c.Replace(ctx, "2", map[string]string{"customerName": "Bia", "grade": "3"}))
	docs, err = c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", docs[1]["grade"])

	require.NoError(t, c.Delete(ctx, "1"))
	docs, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2", docs[0].ID())
}

func TestRestCollection_UnknownID(t *testing.T) {
	c, _ := newRestCollection(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Replace(ctx, "42", map[string]string{"grade": "1"}), store.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "42"), store.ErrNotFound)
}

func TestRestCollection_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := store.NewRestCollection(url, "reviews", 200*time.Millisecond)
	require.NoError(t, err)
	_, err = c.List(context.Background())
	assert.Error(t, err)
}

func TestRestCollection_CancelledContext(t *testing.T) {
	c, _ := newRestCollection(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
