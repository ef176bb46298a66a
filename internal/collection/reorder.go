package collection

import (
	"context"

	"rsd-cli/internal/postgrest"
)

// Renumber returns a copy of items with positions 1..N in slice order.
func Renumber[T Item[T]](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.WithPosition(i + 1)
	}
	return out
}

// Insert places item at index (clamped to [0, N]); items from index onward
// shift up by one.
func Insert[T Item[T]](items []T, item T, index int) []T {
	if index < 0 {
		index = 0
	}
	if index > len(items) {
		index = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, item)
	out = append(out, items[index:]...)
	return Renumber(out)
}

// Remove drops the item at index; items after it shift down by one. An
// out-of-range index returns the list renumbered but otherwise unchanged.
func Remove[T Item[T]](items []T, index int) []T {
	if index < 0 || index >= len(items) {
		return Renumber(items)
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	return Renumber(out)
}

// Move relocates the item at from to index to. Every item between the two
// slots shifts by one in the opposite direction.
func Move[T Item[T]](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, ErrIndexOutOfRange
	}
	moved := items[from]
	rest := make([]T, 0, len(items)-1)
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)
	return Insert(rest, moved, to), nil
}

// Contiguous reports whether items carry positions exactly 1..N in slice
// order.
func Contiguous[T Item[T]](items []T) bool {
	for i, it := range items {
		if it.ItemPosition() != i+1 {
			return false
		}
	}
	return true
}

// PositionsChanged reports whether any item's position differs between the
// two lists, matched by identity.
func PositionsChanged[T Item[T]](before, after []T) bool {
	old := make(map[string]int, len(before))
	for _, it := range before {
		old[it.ItemID()] = it.ItemPosition()
	}
	for _, it := range after {
		if p, ok := old[it.ItemID()]; !ok || p != it.ItemPosition() {
			return true
		}
	}
	return false
}

// Repositioner accepts the full order of a parent's collection as whole rows
// carrying their new positions.
type Repositioner[T any] interface {
	Reposition(ctx context.Context, parentID string, items []T) postgrest.MutationResult[struct{}]
}

// Engine submits reorders. It always sends the whole list rather than the
// items whose position changed, so the server never observes a partial order.
type Engine[T Item[T]] struct {
	remote Repositioner[T]
}

func NewEngine[T Item[T]](remote Repositioner[T]) *Engine[T] {
	return &Engine[T]{remote: remote}
}

// Apply submits list, which must already be renumbered, as the parent's order.
func (e *Engine[T]) Apply(ctx context.Context, parentID string, list []T) postgrest.MutationResult[struct{}] {
	return e.remote.Reposition(ctx, parentID, list)
}
