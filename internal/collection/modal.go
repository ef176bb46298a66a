package collection

import (
	"context"
	"fmt"
	"sync"
)

type Mode int

const (
	ModalClosed Mode = iota
	ModalEditing
	ModalConfirmDelete
)

func (m Mode) String() string {
	switch m {
	case ModalEditing:
		return "editing"
	case ModalConfirmDelete:
		return "confirm-delete"
	default:
		return "closed"
	}
}

// ModalState is the item being added, edited or deleted. HasIndex is false
// while adding.
type ModalState[T any] struct {
	Mode     Mode
	Item     T
	Index    int
	HasIndex bool
}

// Controller gates editor mutations behind an explicit open/submit cycle.
// Opening and cancelling never touch the store or the network.
type Controller[T Item[T]] struct {
	editor *Editor[T]

	mu    sync.Mutex
	state ModalState[T]
}

func NewController[T Item[T]](editor *Editor[T]) *Controller[T] {
	return &Controller[T]{editor: editor}
}

func (c *Controller[T]) Editor() *Editor[T] { return c.editor }

func (c *Controller[T]) State() ModalState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller[T]) transition(from Mode, next ModalState[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != from {
		return fmt.Errorf("%s -> %s: %w", c.state.Mode, next.Mode, ErrInvalidTransition)
	}
	c.state = next
	return nil
}

// OpenAdd starts editing a new, unpersisted draft.
func (c *Controller[T]) OpenAdd(draft T) error {
	return c.transition(ModalClosed, ModalState[T]{Mode: ModalEditing, Item: draft})
}

func (c *Controller[T]) OpenEdit(index int) error {
	item, err := c.editor.store.At(index)
	if err != nil {
		return fmt.Errorf("open edit: %w", ErrInvalidTransition)
	}
	return c.transition(ModalClosed, ModalState[T]{Mode: ModalEditing, Item: item, Index: index, HasIndex: true})
}

func (c *Controller[T]) OpenDelete(index int) error {
	item, err := c.editor.store.At(index)
	if err != nil {
		return fmt.Errorf("open delete: %w", ErrInvalidTransition)
	}
	return c.transition(ModalClosed, ModalState[T]{Mode: ModalConfirmDelete, Item: item, Index: index, HasIndex: true})
}

func (c *Controller[T]) Cancel() {
	c.mu.Lock()
	c.state = ModalState[T]{}
	c.mu.Unlock()
}

// SubmitEdit saves data. On failure the modal stays open holding data so the
// user can retry or cancel.
func (c *Controller[T]) SubmitEdit(ctx context.Context, data T) (T, error) {
	var zero T
	st := c.State()
	if st.Mode != ModalEditing {
		return zero, fmt.Errorf("submit while %s: %w", st.Mode, ErrInvalidTransition)
	}
	index := -1
	if st.HasIndex {
		index = st.Index
	}

	saved, err := c.editor.Save(ctx, data, index)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		st.Item = data
		c.state = st
		return zero, err
	}
	c.state = ModalState[T]{}
	return saved, nil
}

// ConfirmDelete removes the item and closes the modal, whatever the outcome.
func (c *Controller[T]) ConfirmDelete(ctx context.Context) error {
	st := c.State()
	if st.Mode != ModalConfirmDelete {
		return fmt.Errorf("confirm delete while %s: %w", st.Mode, ErrInvalidTransition)
	}
	err := c.editor.Remove(ctx, st.Index)
	c.Cancel()
	return err
}
