package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	minStreamBackoff = time.Second
	maxStreamBackoff = 30 * time.Second
)

// FirebaseConfig holds Realtime Database connection details.
type FirebaseConfig struct {
	// DatabaseURL is the database root, e.g. https://project.firebaseio.com.
	DatabaseURL string
	// Auth is an optional database secret or ID token sent as ?auth=.
	Auth    string
	Timeout time.Duration
}

// FirebaseTree is a TreeStore backed by the Firebase Realtime Database REST
// API. Watch keeps a server-sent events stream open and re-reads the
// collection whenever the server reports a change.
type FirebaseTree struct {
	cfg    FirebaseConfig
	stream *http.Client
	logger *zap.Logger
}

// NewFirebaseTree creates a FirebaseTree.
func NewFirebaseTree(cfg FirebaseConfig, logger *zap.Logger) (*FirebaseTree, error) {
	if _, err := url.ParseRequestURI(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("invalid firebase database url %q: %w", cfg.DatabaseURL, err)
	}
	cfg.DatabaseURL = strings.TrimRight(cfg.DatabaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &FirebaseTree{
		cfg:    cfg,
		stream: &http.Client{},
		logger: logger,
	}, nil
}

// NewKey returns a time ordered key. Keys are generated locally, like the
// Firebase SDK's push ids, so no round trip is needed.
func (t *FirebaseTree) NewKey(string) string {
	return NewKey()
}

// Set writes a child with PUT.
func (t *FirebaseTree) Set(ctx context.Context, collection, key string, value map[string]string) error {
	code, body, err := send(ctx, fiber.Put(t.url(collection, key)), t.cfg.Timeout, value)
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, key, err)
	}
	if !success(code) {
		return fmt.Errorf("failed to set %s/%s: %s", collection, key, remoteError(code, body))
	}
	return nil
}

// Update writes value over an existing child with PATCH.
func (t *FirebaseTree) Update(ctx context.Context, collection, key string, value map[string]string) error {
	exists, err := t.exists(ctx, collection, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}

	code, body, err := send(ctx, fiber.Patch(t.url(collection, key)), t.cfg.Timeout, value)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, key, err)
	}
	if !success(code) {
		return fmt.Errorf("failed to update %s/%s: %s", collection, key, remoteError(code, body))
	}
	return nil
}

// Remove deletes a child.
func (t *FirebaseTree) Remove(ctx context.Context, collection, key string) error {
	code, body, err := send(ctx, fiber.Delete(t.url(collection, key)), t.cfg.Timeout, nil)
	if err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", collection, key, err)
	}
	if !success(code) {
		return fmt.Errorf("failed to remove %s/%s: %s", collection, key, remoteError(code, body))
	}
	return nil
}

// Get reads the whole collection, oldest child first.
func (t *FirebaseTree) Get(ctx context.Context, collection string) ([]Node, error) {
	code, body, err := send(ctx, fiber.Get(t.url(collection)), t.cfg.Timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", collection, err)
	}
	if !success(code) {
		return nil, fmt.Errorf("failed to get %s: %s", collection, remoteError(code, body))
	}

	var children map[string]map[string]interface{}
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	nodes := make([]Node, 0, len(children))
	for key, raw := range children {
		value, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
		}
		nodes = append(nodes, Node{Key: key, Value: value})
	}
	sortNodes(nodes)
	return nodes, nil
}

// Watch streams the collection until cancelled, reconnecting with backoff.
func (t *FirebaseTree) Watch(ctx context.Context, collection string, fn SnapshotFunc) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	go t.watch(ctx, collection, fn)
	return cancel, nil
}

func (t *FirebaseTree) watch(ctx context.Context, collection string, fn SnapshotFunc) {
	backoff := minStreamBackoff
	for {
		connected, err := t.listen(ctx, collection, fn)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = minStreamBackoff
		}
		t.logger.Warn("snapshot stream interrupted",
			zap.String("collection", collection),
			zap.Duration("retry_in", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxStreamBackoff)
	}
}

// listen consumes one event stream. connected reports whether the server
// accepted the stream before it ended.
func (t *FirebaseTree) listen(ctx context.Context, collection string, fn SnapshotFunc) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url(collection), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.stream.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream rejected with status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if line != "" {
			continue
		}

		switch event {
		case "put", "patch":
			nodes, err := t.Get(ctx, collection)
			if err != nil {
				return true, err
			}
			fn(nodes)
		case "cancel":
			return true, errors.New("stream cancelled by server")
		case "auth_revoked":
			return true, errors.New("stream credential revoked")
		}
		event = ""
	}
	if err := scanner.Err(); err != nil {
		return true, err
	}
	return true, errors.New("stream closed by server")
}

func (t *FirebaseTree) exists(ctx context.Context, collection, key string) (bool, error) {
	code, body, err := send(ctx, fiber.Get(t.url(collection, key)+"&shallow=true"), t.cfg.Timeout, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
	}
	if !success(code) {
		return false, fmt.Errorf("failed to read %s/%s: %s", collection, key, remoteError(code, body))
	}
	return !bytes.Equal(bytes.TrimSpace(body), []byte("null")), nil
}

func (t *FirebaseTree) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	q := url.Values{}
	if t.cfg.Auth != "" {
		q.Set("auth", t.cfg.Auth)
	}
	return t.cfg.DatabaseURL + "/" + strings.Join(escaped, "/") + ".json?" + q.Encode()
}

func remoteError(code int, body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		return fmt.Sprintf("status %d: %s", code, strings.Trim(string(payload.Error), `"`))
	}
	return fmt.Sprintf("status %d", code)
}
