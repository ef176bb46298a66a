package collection

import (
	"fmt"
	"sync"
)

// Store holds the in-memory ordered list of one parent's collection.
//
// The store keeps no history. Callers that mutate optimistically take a
// snapshot with List and restore it with Replace when the remote call fails.
type Store[T Item[T]] struct {
	mu    sync.RWMutex
	items []T
}

func NewStore[T Item[T]](items []T) *Store[T] {
	s := &Store[T]{}
	s.Replace(items)
	return s
}

// List returns a copy of the current list.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// At returns the item at index.
func (s *Store[T]) At(index int) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	if index < 0 || index >= len(s.items) {
		return zero, fmt.Errorf("item %d of %d: %w", index, len(s.items), ErrIndexOutOfRange)
	}
	return s.items[index], nil
}

func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]T(nil), items...)
}

// UpsertAt replaces the item at index, keeping position index+1. A negative
// index appends the item at position N+1. It returns the slot used.
func (s *Store[T]) UpsertAt(item T, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 {
		s.items = append(s.items, item.WithPosition(len(s.items)+1))
		return len(s.items) - 1, nil
	}
	if index >= len(s.items) {
		return 0, fmt.Errorf("item %d of %d: %w", index, len(s.items), ErrIndexOutOfRange)
	}
	s.items[index] = item.WithPosition(index + 1)
	return index, nil
}

// RemoveAt removes the item at index and renumbers the items after it.
func (s *Store[T]) RemoveAt(index int) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if index < 0 || index >= len(s.items) {
		return zero, fmt.Errorf("item %d of %d: %w", index, len(s.items), ErrIndexOutOfRange)
	}
	removed := s.items[index]
	s.items = Remove(s.items, index)
	return removed, nil
}
