package collection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rsd-cli/internal/model"
	"rsd-cli/internal/postgrest"
)

func newKeywordEditor(t *testing.T, remote *fakeRemote) (*Editor[model.Keyword], *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	e := NewEditor[model.Keyword]("s1", remote, EditorOptions[model.Keyword]{
		Noun:      "keyword",
		Duplicate: sameKeyword,
		Notifier:  n,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	_, err := e.Load(context.Background())
	require.NoError(t, err)
	return e, n
}

func TestEditor_LoadSortsByPosition(t *testing.T) {
	t.Parallel()
	e, _ := newKeywordEditor(t, newFakeRemote(kw("b", "beta", 2), kw("a", "alpha", 1), kw("c", "gamma", 3)))
	require.Equal(t, []string{"alpha", "beta", "gamma"}, keywordTexts(e.Items()))
}

func TestEditor_LoadFailureDegradesToEmptyList(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1))
	e, _ := newKeywordEditor(t, remote)
	require.Len(t, e.Items(), 1)

	remote.failList = &postgrest.Error{Op: "list", Kind: postgrest.ErrTransport, Message: "connection refused"}
	items, err := e.Load(context.Background())
	require.ErrorIs(t, err, postgrest.ErrTransport)
	require.Empty(t, items)
	require.Empty(t, e.Items())
}

// Removing the first of two keywords deletes it and renumbers the other.
func TestEditor_RemoveFirstRenumbers(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e, n := newKeywordEditor(t, remote)

	require.NoError(t, e.Remove(context.Background(), 0))

	items := e.Items()
	require.Len(t, items, 1)
	require.Equal(t, "beta", items[0].Keyword)
	require.Equal(t, 1, items[0].Position)
	require.Equal(t, []string{"list", "delete:a", "reposition:b=1"}, remote.Calls())
	require.Empty(t, n.errs)
}

func TestEditor_RemoveLastSkipsReposition(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e, _ := newKeywordEditor(t, remote)

	require.NoError(t, e.Remove(context.Background(), 1))
	require.Equal(t, []string{"list", "delete:b"}, remote.Calls())
}

// Duplicate text is rejected before any network call.
func TestEditor_DuplicateAddRejectedLocally(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e, n := newKeywordEditor(t, remote)

	_, err := e.Save(context.Background(), model.Keyword{Keyword: "  ALPHA "}, -1)
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, postgrest.ErrConflict)
	require.Equal(t, []string{"alpha", "beta"}, keywordTexts(e.Items()))
	require.Equal(t, []string{"list"}, remote.Calls())
	require.Len(t, n.infos, 1)
	require.Empty(t, n.errs)
}

func TestEditor_AddAppendsWithServerIdentity(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e, _ := newKeywordEditor(t, remote)

	created, err := e.Save(context.Background(), model.Keyword{Keyword: "gamma"}, -1)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, 3, created.Position)
	require.Equal(t, "s1", created.Software)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, keywordTexts(e.Items()))
}

func TestEditor_AddFailureRollsBack(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1))
	e, n := newKeywordEditor(t, remote)
	remote.failCreate = &postgrest.Error{Op: "create", Status: 400, Kind: postgrest.ErrValidation, Message: "keyword too long"}

	_, err := e.Save(context.Background(), model.Keyword{Keyword: "gamma"}, -1)
	require.ErrorIs(t, err, postgrest.ErrValidation)
	require.Equal(t, []string{"alpha"}, keywordTexts(e.Items()))
	require.Equal(t, []string{"add keyword failed: keyword too long"}, n.errs)
}

// An update whose target vanished leaves the list unchanged and reports the error.
func TestEditor_UpdateNotFoundLeavesListUnchanged(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e, n := newKeywordEditor(t, remote)
	before := e.Items()

	remote.mu.Lock()
	delete(remote.rows, "b")
	remote.mu.Unlock()

	_, err := e.Save(context.Background(), kw("b", "BETA", 2), 1)
	require.ErrorIs(t, err, postgrest.ErrNotFound)
	require.Equal(t, before, e.Items())
	require.Len(t, n.errs, 1)
}

func TestEditor_DeleteOfAlreadyDeletedItemMatchesFirstDelete(t *testing.T) {
	t.Parallel()
	first := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e1, _ := newKeywordEditor(t, first)
	require.NoError(t, e1.Remove(context.Background(), 0))

	// The fake treats deleting a missing id as success, like the client does for 404.
	second := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e2, n := newKeywordEditor(t, second)
	second.mu.Lock()
	delete(second.rows, "a")
	second.mu.Unlock()
	require.NoError(t, e2.Remove(context.Background(), 0))

	require.Equal(t, e1.Items(), e2.Items())
	require.Empty(t, n.errs)
}

func TestEditor_RemoveUnpersistedItemMakesNoCall(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1))
	e, _ := newKeywordEditor(t, remote)
	_, err := e.Store().UpsertAt(model.Keyword{Keyword: "draft"}, -1)
	require.NoError(t, err)

	require.NoError(t, e.Remove(context.Background(), 1))
	require.Equal(t, []string{"alpha"}, keywordTexts(e.Items()))
	require.Equal(t, []string{"list"}, remote.Calls())
}

func TestEditor_MoveSubmitsFullOrder(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3))
	e, _ := newKeywordEditor(t, remote)

	require.NoError(t, e.Move(context.Background(), 2, 0))
	require.Equal(t, []string{"gamma", "alpha", "beta"}, keywordTexts(e.Items()))
	require.Equal(t, []int{1, 2, 3}, positionsOf(e.Items()))
	require.Equal(t, []string{"list", "reposition:c=1,a=2,b=3"}, remote.Calls())
}

func TestEditor_MoveFailureRestoresOrder(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3))
	e, n := newKeywordEditor(t, remote)
	before := e.Items()
	remote.failReposition = &postgrest.Error{Op: "reposition", Status: 503, Kind: postgrest.ErrTransport, Message: "unavailable"}

	err := e.Move(context.Background(), 2, 0)
	require.ErrorIs(t, err, postgrest.ErrTransport)
	require.Equal(t, before, e.Items())
	require.Equal(t, []string{"reorder keywords failed: unavailable"}, n.errs)
}

func TestEditor_RemoveRepositionFailureKeepsContiguousPositions(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3))
	e, n := newKeywordEditor(t, remote)
	remote.failReposition = errors.New("boom")

	err := e.Remove(context.Background(), 0)
	require.Error(t, err)
	// The delete went through; the survivors are numbered locally while the
	// server still has 2 and 3.
	require.Equal(t, []string{"beta", "gamma"}, keywordTexts(e.Items()))
	require.Equal(t, []int{1, 2}, positionsOf(e.Items()))
	require.Equal(t, []int{2, 3}, remote.serverPositions("s1"))
	require.Equal(t, []string{"reorder keywords failed: boom"}, n.errs)
}

func TestEditor_AddAfterFailedRepositionResubmitsOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3))
	e, _ := newKeywordEditor(t, remote)

	remote.failReposition = errors.New("boom")
	require.Error(t, e.Remove(ctx, 0))
	remote.failReposition = nil

	created, err := e.Save(ctx, model.Keyword{Keyword: "delta"}, -1)
	require.NoError(t, err)
	require.Equal(t, 3, created.Position)
	require.Equal(t, []string{"beta", "gamma", "delta"}, keywordTexts(e.Items()))
	require.Equal(t, []int{1, 2, 3}, positionsOf(e.Items()))
	require.Equal(t, []int{1, 2, 3}, remote.serverPositions("s1"))
	require.Equal(t, []string{"list", "delete:a", "reposition:b=1,c=2", "reposition:b=1,c=2", "create"}, remote.Calls())
}

func TestEditor_StaleOrderBlocksAddUntilResubmitted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3))
	e, n := newKeywordEditor(t, remote)

	remote.failReposition = errors.New("boom")
	require.Error(t, e.Remove(ctx, 0))

	_, err := e.Save(ctx, model.Keyword{Keyword: "delta"}, -1)
	require.Error(t, err)
	require.Equal(t, []string{"beta", "gamma"}, keywordTexts(e.Items()))
	require.NotContains(t, remote.Calls(), "create")
	require.Len(t, n.errs, 2)
}

// Gapped server positions are numbered 1..N on load without writing; the
// first mutation submits the corrected order.
func TestEditor_LoadRenumbersGappedPositions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := newFakeRemote(kw("b", "beta", 5), kw("a", "alpha", 2), kw("c", "gamma", 9))
	e, _ := newKeywordEditor(t, remote)

	require.Equal(t, []string{"alpha", "beta", "gamma"}, keywordTexts(e.Items()))
	require.Equal(t, []int{1, 2, 3}, positionsOf(e.Items()))
	require.Equal(t, []string{"list"}, remote.Calls())

	updated, err := e.Save(ctx, kw("c", "GAMMA", 3), 2)
	require.NoError(t, err)
	require.Equal(t, 3, updated.Position)
	require.Equal(t, []string{"list", "reposition:a=1,b=2,c=3", "update"}, remote.Calls())
	require.Equal(t, []int{1, 2, 3}, remote.serverPositions("s1"))
}

func TestEditor_LoadOfContiguousListMakesNoExtraCalls(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1), kw("b", "beta", 2))
	e, _ := newKeywordEditor(t, remote)

	_, err := e.Save(context.Background(), kw("b", "BETA", 2), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"list", "update"}, remote.Calls())
}

func TestEditor_ConcurrentMutationIsRejected(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote(kw("a", "alpha", 1))
	remote.block = make(chan struct{})
	e, n := newKeywordEditor(t, remote)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = e.Save(context.Background(), model.Keyword{Keyword: "beta"}, -1)
	}()
	require.Eventually(t, func() bool { return e.gate.Busy("s1") }, timeout, tick)

	err := e.Move(context.Background(), 0, 1)
	require.ErrorIs(t, err, ErrBusy)

	close(remote.block)
	wg.Wait()
	require.Equal(t, []string{"alpha", "beta"}, keywordTexts(e.Items()))
	require.NotEmpty(t, n.infos)
}
