package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"rsd-cli/internal/postgrest"
)

// ErrDuplicate rejects an add that would duplicate an existing item. It is
// detected locally, before any network call.
var ErrDuplicate = fmt.Errorf("already in the list: %w", postgrest.ErrConflict)

// Remote is the data API of one child collection.
type Remote[T any] interface {
	List(ctx context.Context, parentID string) ([]T, error)
	Create(ctx context.Context, item T) postgrest.MutationResult[T]
	Update(ctx context.Context, item T) postgrest.MutationResult[T]
	DeleteByIDs(ctx context.Context, ids []string) postgrest.MutationResult[struct{}]
	Reposition(ctx context.Context, parentID string, items []T) postgrest.MutationResult[struct{}]
}

type EditorOptions[T any] struct {
	// Noun names one item in notifications, e.g. "keyword".
	Noun string
	// Duplicate reports whether candidate duplicates existing. Nil disables the check.
	Duplicate func(existing, candidate T) bool
	// Gate is shared by editors of the same parent. Nil gives the editor its own.
	Gate     *Gate
	Notifier Notifier
	Logger   *slog.Logger
}

// Editor runs optimistic add, edit, remove and move operations for one
// parent's collection: it mutates the store first, calls the remote, then
// commits the server's answer or restores the snapshot it took.
type Editor[T Item[T]] struct {
	parentID  string
	noun      string
	store     *Store[T]
	remote    Remote[T]
	engine    *Engine[T]
	gate      *Gate
	notify    Notifier
	logger    *slog.Logger
	duplicate func(existing, candidate T) bool

	// outOfOrder is set while the server holds positions other than the
	// store's 1..N. The next mutation submits the store's order first.
	outOfOrder atomic.Bool
}

func NewEditor[T Item[T]](parentID string, remote Remote[T], opts EditorOptions[T]) *Editor[T] {
	e := &Editor[T]{
		parentID:  parentID,
		noun:      opts.Noun,
		store:     NewStore[T](nil),
		remote:    remote,
		engine:    NewEngine[T](remote),
		gate:      opts.Gate,
		notify:    opts.Notifier,
		logger:    opts.Logger,
		duplicate: opts.Duplicate,
	}
	if e.noun == "" {
		e.noun = "item"
	}
	if e.gate == nil {
		e.gate = &Gate{}
	}
	if e.notify == nil {
		e.notify = nopNotifier{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

func (e *Editor[T]) ParentID() string { return e.parentID }
func (e *Editor[T]) Noun() string     { return e.noun }
func (e *Editor[T]) Items() []T       { return e.store.List() }
func (e *Editor[T]) Store() *Store[T] { return e.store }

// Load fetches the collection. A failed read leaves an empty list, logs a
// warning and returns the error for callers that want to report it.
func (e *Editor[T]) Load(ctx context.Context) ([]T, error) {
	items, err := e.remote.List(ctx, e.parentID)
	if err != nil {
		e.logger.WarnContext(ctx, "load collection failed", "noun", e.noun, "parent", e.parentID, "error", err)
		e.store.Replace(nil)
		e.outOfOrder.Store(false)
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ItemPosition() < items[j].ItemPosition() })
	renumbered := Renumber(items)
	stale := PositionsChanged(items, renumbered)
	if stale {
		e.logger.DebugContext(ctx, "server positions are not contiguous", "noun", e.noun, "parent", e.parentID)
	}
	e.outOfOrder.Store(stale)
	e.store.Replace(renumbered)
	return e.store.List(), nil
}

// reconcile submits the store's order when the server's positions are stale,
// so a created or updated row never takes a position another row still has.
func (e *Editor[T]) reconcile(ctx context.Context) error {
	if !e.outOfOrder.Load() {
		return nil
	}
	if res := e.engine.Apply(ctx, e.parentID, persisted(e.store.List())); !res.OK() {
		e.fail(ctx, "reorder "+e.noun+"s", res.Err)
		return res.Err
	}
	e.outOfOrder.Store(false)
	return nil
}

func persisted[T Item[T]](items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.ItemID() != "" {
			out = append(out, it)
		}
	}
	return out
}

func (e *Editor[T]) acquire(op string) (func(), error) {
	release, err := e.gate.TryAcquire(e.parentID)
	if err != nil {
		e.notify.Info(op + " skipped: " + err.Error())
		return nil, err
	}
	return release, nil
}

func (e *Editor[T]) isDuplicate(list []T, candidate T, skip int) bool {
	if e.duplicate == nil {
		return false
	}
	for i, it := range list {
		if i == skip {
			continue
		}
		if e.duplicate(it, candidate) {
			return true
		}
	}
	return false
}

// Save creates item when index < 0, otherwise updates the item at index.
func (e *Editor[T]) Save(ctx context.Context, item T, index int) (T, error) {
	if index < 0 {
		return e.create(ctx, item)
	}
	return e.update(ctx, item, index)
}

func (e *Editor[T]) create(ctx context.Context, item T) (T, error) {
	var zero T
	op := "add " + e.noun
	release, err := e.acquire(op)
	if err != nil {
		return zero, err
	}
	defer release()

	snapshot := e.store.List()
	if e.isDuplicate(snapshot, item, -1) {
		e.notify.Info(fmt.Sprintf("%s is already in the list", e.noun))
		return zero, ErrDuplicate
	}
	if err := e.reconcile(ctx); err != nil {
		return zero, err
	}

	idx, _ := e.store.UpsertAt(item.WithParent(e.parentID), -1)
	draft, _ := e.store.At(idx)

	res := e.remote.Create(ctx, draft)
	if !res.OK() {
		e.store.Replace(snapshot)
		e.fail(ctx, op, res.Err)
		return zero, res.Err
	}
	created := res.Payload.WithPosition(idx + 1)
	_, _ = e.store.UpsertAt(created, idx)
	e.logger.DebugContext(ctx, "collection item created", "noun", e.noun, "parent", e.parentID, "id", created.ItemID())
	e.notify.Success(fmt.Sprintf("%s added", e.noun))
	return created, nil
}

func (e *Editor[T]) update(ctx context.Context, item T, index int) (T, error) {
	var zero T
	op := "update " + e.noun
	release, err := e.acquire(op)
	if err != nil {
		return zero, err
	}
	defer release()

	snapshot := e.store.List()
	if index >= len(snapshot) {
		return zero, fmt.Errorf("%s: %w", op, ErrIndexOutOfRange)
	}
	if e.isDuplicate(snapshot, item, index) {
		e.notify.Info(fmt.Sprintf("%s is already in the list", e.noun))
		return zero, ErrDuplicate
	}
	if err := e.reconcile(ctx); err != nil {
		return zero, err
	}

	item = item.WithParent(e.parentID).WithPosition(index + 1)
	_, _ = e.store.UpsertAt(item, index)

	res := e.remote.Update(ctx, item)
	if !res.OK() {
		e.store.Replace(snapshot)
		e.fail(ctx, op, res.Err)
		return zero, res.Err
	}
	updated := res.Payload.WithPosition(index + 1)
	_, _ = e.store.UpsertAt(updated, index)
	e.notify.Success(fmt.Sprintf("%s updated", e.noun))
	return updated, nil
}

// Remove deletes the item at index and closes the gap in the remote order.
// An item that was never created remotely is only dropped locally.
func (e *Editor[T]) Remove(ctx context.Context, index int) error {
	op := "remove " + e.noun
	release, err := e.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	snapshot := e.store.List()
	removed, err := e.store.RemoveAt(index)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if removed.ItemID() == "" {
		return nil
	}

	res := e.remote.DeleteByIDs(ctx, []string{removed.ItemID()})
	if !res.OK() {
		e.store.Replace(snapshot)
		e.fail(ctx, op, res.Err)
		return res.Err
	}

	// The server still holds the old positions of the remaining items.
	confirmed := make([]T, 0, len(snapshot)-1)
	confirmed = append(confirmed, snapshot[:index]...)
	confirmed = append(confirmed, snapshot[index+1:]...)

	renumbered := e.store.List()
	if e.outOfOrder.Load() || PositionsChanged(confirmed, renumbered) {
		if res := e.engine.Apply(ctx, e.parentID, persisted(renumbered)); !res.OK() {
			// The delete stands. The store keeps 1..N and the next mutation
			// submits that order again.
			e.outOfOrder.Store(true)
			e.fail(ctx, "reorder "+e.noun+"s", res.Err)
			return res.Err
		}
		e.outOfOrder.Store(false)
	}
	e.notify.Success(fmt.Sprintf("%s removed", e.noun))
	return nil
}

// Move relocates the item at from to index to and submits the full order.
func (e *Editor[T]) Move(ctx context.Context, from, to int) error {
	op := "reorder " + e.noun + "s"
	release, err := e.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	snapshot := e.store.List()
	moved, err := Move(snapshot, from, to)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if from == to {
		return nil
	}
	e.store.Replace(moved)

	if res := e.engine.Apply(ctx, e.parentID, moved); !res.OK() {
		e.store.Replace(snapshot)
		e.fail(ctx, op, res.Err)
		return res.Err
	}
	e.outOfOrder.Store(false)
	return nil
}

func (e *Editor[T]) fail(ctx context.Context, op string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, postgrest.ErrUnauthorized) {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "collection mutation failed", "op", op, "parent", e.parentID, "error", err)
	e.notify.Error(FailureMessage(op, err))
}
