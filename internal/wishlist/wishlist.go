// Package wishlist is a visitor's saved-for-later list. Items never expire.
package wishlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"authorsite/internal/entity"
	"authorsite/internal/store"
)

const StorageKey = "wishlist"

type Store struct {
	storage   store.LocalStorage
	listeners store.Listeners
	now       func() time.Time

	mu    sync.RWMutex
	items []entity.WishlistItem
}

func NewStore(storage store.LocalStorage) *Store {
	return &Store{storage: storage, now: time.Now}
}

func (s *Store) Hydrate(ctx context.Context) error {
	raw, ok, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("read wishlist: %w", err)
	}
	var items []entity.WishlistItem
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			log.Printf("wishlist hydrate ignoring unreadable data: %v", err)
			items = nil
		}
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.listeners.Notify()
	return nil
}

// AddToWishlist is a no-op when the id is already saved. AddedAt is set on
// insertion and never changed afterwards.
func (s *Store) AddToWishlist(ctx context.Context, item entity.WishlistItem) error {
	if s.IsInWishlist(item.ID) {
		return nil
	}
	return s.mutate(ctx, func(items []entity.WishlistItem) []entity.WishlistItem {
		for _, it := range items {
			if it.ID == item.ID {
				return items
			}
		}
		item.AddedAt = s.now().UTC()
		return append(items, item)
	})
}

func (s *Store) RemoveFromWishlist(ctx context.Context, id string) error {
	return s.mutate(ctx, func(items []entity.WishlistItem) []entity.WishlistItem {
		kept := items[:0]
		for _, it := range items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

func (s *Store) IsInWishlist(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) Items() []entity.WishlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.WishlistItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Subscribe(fn func()) func() {
	return s.listeners.Add(fn)
}

func (s *Store) mutate(ctx context.Context, fn func([]entity.WishlistItem) []entity.WishlistItem) error {
	s.mu.Lock()
	next := fn(append([]entity.WishlistItem(nil), s.items...))
	if next == nil {
		next = []entity.WishlistItem{}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.storage.SetItem(ctx, StorageKey, string(raw)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist wishlist: %w", err)
	}
	s.items = next
	s.mu.Unlock()
	s.listeners.Notify()
	return nil
}
