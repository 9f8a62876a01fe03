package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
)

// Document is one JSON object of a REST collection.
type Document map[string]interface{}

// ID returns the document's "id" field as a string.
func (d Document) ID() string {
	return cast.ToString(d["id"])
}

// RestCollection talks to a JSON REST collection: GET lists, POST creates,
// PUT /id replaces and DELETE /id removes.
type RestCollection struct {
	endpoint string
	timeout  time.Duration
}

// NewRestCollection creates a client for baseURL/collection.
func NewRestCollection(baseURL, collection string, timeout time.Duration) (*RestCollection, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid rest base url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RestCollection{
		endpoint: strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(collection),
		timeout:  timeout,
	}, nil
}

// List returns every document in server order.
func (c *RestCollection) List(ctx context.Context) ([]Document, error) {
	code, body, err := send(ctx, fiber.Get(c.endpoint), c.timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.endpoint, err)
	}
	if !success(code) {
		return nil, fmt.Errorf("failed to list %s: status %d", c.endpoint, code)
	}

	var docs []Document
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.endpoint, err)
	}
	return docs, nil
}

// Create posts fields (without id) and returns the id the server assigned.
func (c *RestCollection) Create(ctx context.Context, fields map[string]string) (string, error) {
	code, body, err := send(ctx, fiber.Post(c.endpoint), c.timeout, withoutID(fields))
	if err != nil {
		return "", fmt.Errorf("failed to create in %s: %w", c.endpoint, err)
	}
	if !success(code) {
		return "", fmt.Errorf("failed to create in %s: status %d", c.endpoint, code)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to decode created document: %w", err)
	}
	id := doc.ID()
	if id == "" {
		return "", fmt.Errorf("server returned no id for created document")
	}
	return id, nil
}

// Replace overwrites the document with every field in fields.
func (c *RestCollection) Replace(ctx context.Context, id string, fields map[string]string) error {
	code, _, err := send(ctx, fiber.Put(c.documentURL(id)), c.timeout, withoutID(fields))
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", id, err)
	}
	return statusError("replace", id, code)
}

// Delete removes the document.
func (c *RestCollection) Delete(ctx context.Context, id string) error {
	code, _, err := send(ctx, fiber.Delete(c.documentURL(id)), c.timeout, nil)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return statusError("delete", id, code)
}

func (c *RestCollection) documentURL(id string) string {
	return c.endpoint + "/" + url.PathEscape(id)
}

func statusError(op, id string, code int) error {
	switch {
	case success(code):
		return nil
	case code == fiber.StatusNotFound:
		return fmt.Errorf("failed to %s %s: %w", op, id, ErrNotFound)
	default:
		return fmt.Errorf("failed to %s %s: status %d", op, id, code)
	}
}

func withoutID(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}
