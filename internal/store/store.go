// Package store persists per-visitor key/value state the way a browser's
// local storage would: string values under string keys, one namespace per
// visitor session.
package store

import (
	"context"
	"sync"
)

type LocalStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Namespacer hands out the storage for one visitor session.
type Namespacer interface {
	Namespace(id string) LocalStorage
}

// Listeners is a change-notification registry shared by the visitor stores.
type Listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

// Add registers fn and returns a function that unregisters it.
func (l *Listeners) Add(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

// Notify calls every registered listener outside the registry lock.
func (l *Listeners) Notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
