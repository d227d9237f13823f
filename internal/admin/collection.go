// Package admin backs the dashboard: one collection per entity with
// create, update and delete that keep a local copy in step with the backend.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"authorsite/internal/platform/backend"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrNoID     = errors.New("record has no id")
)

// Record is anything the backend identifies by "_id".
type Record interface {
	GetID() string
}

// Options customise how a collection talks to the backend.
type Options[T Record] struct {
	// ListPath overrides the path used by Load.
	ListPath string
	// Encode turns a record into the outbound request body.
	Encode func(T) (any, error)
	// Decoded runs on every record read back from the backend.
	Decoded func(*T)
}

// Collection mirrors one backend collection for the dashboard.
type Collection[T Record] struct {
	backend backend.Doer
	path    string
	opts    Options[T]

	mu    sync.RWMutex
	items []T
}

func NewCollection[T Record](doer backend.Doer, path string, opts Options[T]) *Collection[T] {
	if opts.ListPath == "" {
		opts.ListPath = path
	}
	return &Collection[T]{backend: doer, path: path, opts: opts}
}

// Load replaces the local copy with the backend's list.
func (c *Collection[T]) Load(ctx context.Context, token string) error {
	resp, err := c.backend.Do(ctx, backend.Request{Method: http.MethodGet, Path: c.opts.ListPath, Token: token})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	var items []T
	if err := resp.DecodeList(&items); err != nil {
		return fmt.Errorf("decode %s: %w", c.opts.ListPath, err)
	}
	for i := range items {
		c.decoded(&items[i])
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks a record up in the local copy.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.GetID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Create POSTs item and appends the backend's copy locally.
func (c *Collection[T]) Create(ctx context.Context, token string, item T) (T, error) {
	created, err := c.send(ctx, http.MethodPost, c.path, token, item)
	if err != nil {
		return created, err
	}
	c.mu.Lock()
	c.items = append(c.items, created)
	c.mu.Unlock()
	return created, nil
}

// Update PUTs item under id and replaces the local copy of it.
func (c *Collection[T]) Update(ctx context.Context, token, id string, item T) (T, error) {
	if id == "" {
		var zero T
		return zero, ErrNoID
	}
	updated, err := c.send(ctx, http.MethodPut, backend.ItemPath(c.path, id), token, item)
	if err != nil {
		return updated, err
	}
	c.replace(id, updated)
	return updated, nil
}

func (c *Collection[T]) Delete(ctx context.Context, token, id string) error {
	if id == "" {
		return ErrNoID
	}
	resp, err := c.backend.Do(ctx, backend.Request{Method: http.MethodDelete, Path: backend.ItemPath(c.path, id), Token: token})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.GetID() == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (c *Collection[T]) send(ctx context.Context, method, path, token string, item T) (T, error) {
	var zero T
	body, err := c.encode(item)
	if err != nil {
		return zero, err
	}
	resp, err := c.backend.Do(ctx, backend.Request{Method: method, Path: path, Token: token, Body: body})
	if err != nil {
		return zero, err
	}
	if err := resp.Err(); err != nil {
		return zero, err
	}

	var out T
	if err := resp.DecodeRecord(&out); err != nil {
		return zero, fmt.Errorf("decode %s: %w", path, err)
	}
	if out.GetID() == "" {
		// some endpoints answer with a bare message; keep what was sent
		out = item
	}
	c.decoded(&out)
	return out, nil
}

func (c *Collection[T]) replace(id string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.GetID() == id {
			c.items[i] = item
			return
		}
	}
	c.items = append(c.items, item)
}

func (c *Collection[T]) encode(item T) (any, error) {
	if c.opts.Encode == nil {
		return item, nil
	}
	return c.opts.Encode(item)
}

func (c *Collection[T]) decoded(item *T) {
	if c.opts.Decoded != nil {
		c.opts.Decoded(item)
	}
}
