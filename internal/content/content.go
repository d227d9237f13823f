// Package content fetches site content from the backend and substitutes
// static fallback content whenever the backend fails or has nothing to show.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"authorsite/internal/fallback"
	"authorsite/internal/platform/backend"
)

var ErrUnknownType = errors.New("unknown content type")

type Type string

const (
	FeaturedBook Type = "featured-book"
	Books        Type = "books"
	Blog         Type = "blog"
	Reviews      Type = "reviews"
	Gallery      Type = "gallery"
)

var endpoints = map[Type]string{
	FeaturedBook: "/api/books/featured",
	Books:        "/api/books",
	Blog:         "/api/blog",
	Reviews:      "/api/reviews",
	Gallery:      "/api/gallery",
}

// Types lists every content type in a stable order.
func Types() []Type {
	return []Type{FeaturedBook, Books, Blog, Reviews, Gallery}
}

type Source string

const (
	SourceBackend  Source = "backend"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type Result struct {
	Type      Type
	Payload   json.RawMessage
	Source    Source
	FetchedAt time.Time
}

type Accessor struct {
	backend backend.Doer
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[Type]Result
}

// NewAccessor caches successful backend payloads for ttl. Each entry is
// tagged with its content type so it can be expired early via Revalidate.
func NewAccessor(doer backend.Doer, ttl time.Duration) *Accessor {
	return &Accessor{
		backend: doer,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[Type]Result),
	}
}

// Get returns the backend payload for t unmodified, or the fallback payload
// when the call fails, answers non-2xx, or returns an empty collection.
// Empty and unavailable are deliberately treated the same.
func (a *Accessor) Get(ctx context.Context, t Type) (Result, error) {
	endpoint, ok := endpoints[t]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	if cached, ok := a.cached(t); ok {
		return cached, nil
	}

	resp, err := a.backend.Do(ctx, backend.Request{Method: http.MethodGet, Path: endpoint})
	switch {
	case err != nil:
		return a.fallback(t, err.Error())
	case !resp.OK():
		return a.fallback(t, fmt.Sprintf("status %d", resp.StatusCode))
	case !json.Valid(resp.Body):
		return a.fallback(t, "invalid json")
	case isEmpty(resp.Body):
		return a.fallback(t, "empty")
	}

	res := Result{Type: t, Payload: resp.Body, Source: SourceBackend, FetchedAt: a.now()}
	a.mu.Lock()
	a.cache[t] = res
	a.mu.Unlock()
	return res, nil
}

// Revalidate drops the cached entry tagged tag. It reports whether tag names
// a known content type.
func (a *Accessor) Revalidate(tag string) bool {
	t := Type(tag)
	if _, ok := endpoints[t]; !ok {
		return false
	}
	a.mu.Lock()
	delete(a.cache, t)
	a.mu.Unlock()
	log.Printf("content revalidated tag=%s", tag)
	return true
}

func (a *Accessor) cached(t Type) (Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.cache[t]
	if !ok {
		return Result{}, false
	}
	if a.now().Sub(res.FetchedAt) >= a.ttl {
		delete(a.cache, t)
		return Result{}, false
	}
	res.Source = SourceCache
	return res, true
}

func (a *Accessor) fallback(t Type, reason string) (Result, error) {
	log.Printf("content fallback type=%s reason=%q", t, reason)
	payload, err := FallbackPayload(t)
	if err != nil {
		return Result{}, err
	}
	return Result{Type: t, Payload: payload, Source: SourceFallback, FetchedAt: a.now()}, nil
}

// FallbackPayload is the static content for t, JSON encoded.
func FallbackPayload(t Type) (json.RawMessage, error) {
	var v any
	switch t {
	case FeaturedBook:
		v = fallback.FeaturedBook()
	case Books:
		v = fallback.Books()
	case Blog:
		v = fallback.BlogPosts()
	case Reviews:
		v = fallback.Reviews()
	case Gallery:
		v = fallback.GalleryImages()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return json.Marshal(v)
}

// envelopeKeys are the wrapper fields the backend may put a payload under.
var envelopeKeys = []string{"data", "books", "book", "posts", "blogs", "reviews", "images", "gallery"}

// unwrap returns the inner payload of an enveloped response, or raw itself.
func unwrap(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	for _, key := range envelopeKeys {
		if inner, ok := obj[key]; ok {
			return bytes.TrimSpace(inner)
		}
	}
	return trimmed
}

func isEmpty(raw json.RawMessage) bool {
	inner := unwrap(raw)
	if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
		return true
	}
	switch inner[0] {
	case '[':
		var items []json.RawMessage
		return json.Unmarshal(inner, &items) == nil && len(items) == 0
	case '{':
		var obj map[string]json.RawMessage
		return json.Unmarshal(inner, &obj) == nil && len(obj) == 0
	}
	return false
}
