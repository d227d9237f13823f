// Package cart is a visitor's shopping cart, persisted in full to visitor
// storage after every change.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"authorsite/internal/entity"
	"authorsite/internal/store"
)

// StorageKey is the visitor storage key holding the cart.
const StorageKey = "cart"

type Store struct {
	storage   store.LocalStorage
	listeners store.Listeners

	mu    sync.RWMutex
	items []entity.CartItem
}

func NewStore(storage store.LocalStorage) *Store {
	return &Store{storage: storage}
}

// Hydrate loads the cart from storage. Unreadable data starts an empty cart.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, ok, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("read cart: %w", err)
	}
	var items []entity.CartItem
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			log.Printf("cart hydrate ignoring unreadable data: %v", err)
			items = nil
		}
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.listeners.Notify()
	return nil
}

// AddToCart bumps the quantity of the line with the same id and format, or
// appends a new line with quantity 1.
func (s *Store) AddToCart(ctx context.Context, item entity.CartItem) error {
	return s.mutate(ctx, func(items []entity.CartItem) []entity.CartItem {
		for i := range items {
			if items[i].ID == item.ID && items[i].Format == item.Format {
				items[i].Quantity++
				return items
			}
		}
		item.Quantity = 1
		return append(items, item)
	})
}

// UpdateQuantity sets the quantity on every line with id. Callers must not
// pass non-positive values; nothing is clamped here.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	return s.mutate(ctx, func(items []entity.CartItem) []entity.CartItem {
		for i := range items {
			if items[i].ID == id {
				items[i].Quantity = quantity
			}
		}
		return items
	})
}

// RemoveFromCart deletes every line with id, whatever its format.
func (s *Store) RemoveFromCart(ctx context.Context, id string) error {
	return s.mutate(ctx, func(items []entity.CartItem) []entity.CartItem {
		kept := items[:0]
		for _, it := range items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func([]entity.CartItem) []entity.CartItem { return nil })
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []entity.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) GetTotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

func (s *Store) GetSubtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, it := range s.items {
		total += it.LineTotal()
	}
	return total
}

func (s *Store) Subscribe(fn func()) func() {
	return s.listeners.Add(fn)
}

func (s *Store) mutate(ctx context.Context, fn func([]entity.CartItem) []entity.CartItem) error {
	s.mu.Lock()
	next := fn(append([]entity.CartItem(nil), s.items...))
	raw, err := json.Marshal(emptyIfNil(next))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.storage.SetItem(ctx, StorageKey, string(raw)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist cart: %w", err)
	}
	s.items = next
	s.mu.Unlock()
	s.listeners.Notify()
	return nil
}

func emptyIfNil(items []entity.CartItem) []entity.CartItem {
	if items == nil {
		return []entity.CartItem{}
	}
	return items
}
