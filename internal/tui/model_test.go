package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"rsd-cli/internal/collection"
	"rsd-cli/internal/model"
	"rsd-cli/internal/postgrest"
	"rsd-cli/internal/registry"
)

type memKeywords struct {
	mu             sync.Mutex
	rows           map[string]model.Keyword
	next           int
	calls          []string
	failReposition error
}

func (r *memKeywords) record(c string) { r.calls = append(r.calls, c) }

func (r *memKeywords) List(_ context.Context, parent string) ([]model.Keyword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("list")
	var out []model.Keyword
	for _, k := range r.rows {
		if k.Software == parent {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memKeywords) Create(_ context.Context, k model.Keyword) postgrest.MutationResult[model.Keyword] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("create")
	r.next++
	k.ID = fmt.Sprintf("k%d", r.next)
	r.rows[k.ID] = k
	return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusSuccess, Payload: k}
}

func (r *memKeywords) Update(_ context.Context, k model.Keyword) postgrest.MutationResult[model.Keyword] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("update")
	r.rows[k.ID] = k
	return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusSuccess, Payload: k}
}

func (r *memKeywords) DeleteByIDs(_ context.Context, ids []string) postgrest.MutationResult[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("delete")
	for _, id := range ids {
		delete(r.rows, id)
	}
	return postgrest.MutationResult[struct{}]{Status: postgrest.StatusSuccess}
}

func (r *memKeywords) Reposition(_ context.Context, _ string, items []model.Keyword) postgrest.MutationResult[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("reposition")
	if r.failReposition != nil {
		return postgrest.MutationResult[struct{}]{Status: postgrest.StatusFailure, Err: r.failReposition}
	}
	for _, k := range items {
		r.rows[k.ID] = k
	}
	return postgrest.MutationResult[struct{}]{Status: postgrest.StatusSuccess}
}

func (r *memKeywords) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestModel(t *testing.T, words ...string) (listModel[model.Keyword], *memKeywords) {
	t.Helper()
	remote := &memKeywords{rows: map[string]model.Keyword{}}
	for i, w := range words {
		id := fmt.Sprintf("seed-%d", i+1)
		remote.rows[id] = model.Keyword{ID: id, Software: "sw", Keyword: w, Position: i + 1}
	}
	spec := registry.Keywords()
	notes := &flashNotifier{}
	ed := collection.NewEditor[model.Keyword]("sw", remote, collection.EditorOptions[model.Keyword]{
		Noun:      spec.Noun,
		Duplicate: spec.Duplicate,
		Notifier:  notes,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	m := newListModel(context.Background(), spec, collection.NewController(ed), notes, "keywords of software sw")
	m = runCmd(t, m, m.Init())
	if m.busy {
		t.Fatalf("expected idle model after load")
	}
	return m, remote
}

func press(t *testing.T, m listModel[model.Keyword], k tea.KeyMsg) (listModel[model.Keyword], tea.Cmd) {
	t.Helper()
	mAny, cmd := m.Update(k)
	return mAny.(listModel[model.Keyword]), cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// runCmd executes a load or mutation command and feeds its message back.
func runCmd(t *testing.T, m listModel[model.Keyword], cmd tea.Cmd) listModel[model.Keyword] {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	mAny, _ := m.Update(cmd())
	return mAny.(listModel[model.Keyword])
}

func rowTitles(m listModel[model.Keyword]) []string {
	var out []string
	for _, it := range m.list.Items() {
		out = append(out, it.(row).Title())
	}
	return out
}

func TestListModel_LoadRendersPositions(t *testing.T) {
	m, _ := newTestModel(t, "alpha", "beta")
	got := rowTitles(m)
	if strings.Join(got, "|") != "1. alpha|2. beta" {
		t.Fatalf("unexpected rows: %v", got)
	}
	view := m.View()
	if !strings.Contains(view, "1. alpha") || !strings.Contains(view, "keywords of software sw") {
		t.Fatalf("view missing rows or heading:\n%s", view)
	}
}

func TestListModel_EmptyListHint(t *testing.T) {
	m, _ := newTestModel(t)
	if !strings.Contains(m.View(), "No keywords yet") {
		t.Fatalf("expected empty hint, got:\n%s", m.View())
	}
}

func TestListModel_AddSubmitsAndFlashes(t *testing.T) {
	m, remote := newTestModel(t, "alpha")

	m, _ = press(t, m, runes("a"))
	if got := m.ctl.State().Mode; got != collection.ModalEditing {
		t.Fatalf("expected editing modal, got %v", got)
	}
	m.inputs[0].SetValue("  gamma ")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.busy {
		t.Fatalf("expected busy while saving")
	}
	m = runCmd(t, m, cmd)

	if got := m.ctl.State().Mode; got != collection.ModalClosed {
		t.Fatalf("expected modal closed, got %v", got)
	}
	if got := rowTitles(m); strings.Join(got, "|") != "1. alpha|2. gamma" {
		t.Fatalf("unexpected rows: %v", got)
	}
	if m.list.Index() != 1 {
		t.Fatalf("expected the new row selected, got %d", m.list.Index())
	}
	if m.flash.kind != noteSuccess || m.flash.text != "keyword added" {
		t.Fatalf("unexpected flash: %+v", m.flash)
	}
	if calls := remote.Calls(); calls[len(calls)-1] != "create" {
		t.Fatalf("expected create call, got %v", calls)
	}
}

func TestListModel_InvalidInputStaysInModal(t *testing.T) {
	m, remote := newTestModel(t, "alpha")

	m, _ = press(t, m, runes("a"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		t.Fatalf("expected no command for invalid input")
	}
	if m.ctl.State().Mode != collection.ModalEditing {
		t.Fatalf("expected modal to stay open")
	}
	if !strings.Contains(m.problem, "required") {
		t.Fatalf("expected required-field problem, got %q", m.problem)
	}
	if calls := remote.Calls(); len(calls) != 1 {
		t.Fatalf("expected only the initial list call, got %v", calls)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.ctl.State().Mode != collection.ModalClosed || m.inputs != nil {
		t.Fatalf("expected esc to close the modal")
	}
}

func TestListModel_DuplicateKeepsModalOpen(t *testing.T) {
	m, _ := newTestModel(t, "alpha")

	m, _ = press(t, m, runes("a"))
	m.inputs[0].SetValue("ALPHA")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	if m.ctl.State().Mode != collection.ModalEditing {
		t.Fatalf("expected modal to stay open after duplicate")
	}
	if m.inputs[0].Value() != "ALPHA" {
		t.Fatalf("expected submitted value kept, got %q", m.inputs[0].Value())
	}
	if !strings.Contains(m.flash.text, "already in the list") {
		t.Fatalf("unexpected flash: %+v", m.flash)
	}
}

func TestListModel_DeleteConfirmAndCancel(t *testing.T) {
	m, remote := newTestModel(t, "alpha", "beta")

	m, _ = press(t, m, runes("d"))
	if m.ctl.State().Mode != collection.ModalConfirmDelete {
		t.Fatalf("expected confirm modal")
	}
	if !strings.Contains(m.View(), `Delete keyword "alpha"?`) {
		t.Fatalf("confirm text missing:\n%s", m.View())
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.ctl.State().Mode != collection.ModalClosed {
		t.Fatalf("expected cancel to close without a command")
	}

	m, _ = press(t, m, runes("d"))
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(t, m, cmd)

	if got := rowTitles(m); strings.Join(got, "|") != "1. beta" {
		t.Fatalf("unexpected rows: %v", got)
	}
	want := []string{"list", "delete", "reposition"}
	if got := remote.Calls(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
}

func TestListModel_MutatingKeysIgnoredWhileBusy(t *testing.T) {
	m, remote := newTestModel(t, "alpha", "beta")

	m, moveCmd := press(t, m, runes("J"))
	if !m.busy || moveCmd == nil {
		t.Fatalf("expected move to start")
	}
	for _, k := range []tea.KeyMsg{runes("a"), runes("d"), runes("e"), runes("K"), runes("r")} {
		var cmd tea.Cmd
		m, cmd = press(t, m, k)
		if cmd != nil {
			t.Fatalf("key %q produced a command while busy", k.String())
		}
		if m.ctl.State().Mode != collection.ModalClosed {
			t.Fatalf("key %q opened a modal while busy", k.String())
		}
	}
	if got := remote.Calls(); len(got) != 1 {
		t.Fatalf("expected no remote calls yet, got %v", got)
	}

	m = runCmd(t, m, moveCmd)
	if m.busy {
		t.Fatalf("expected idle after move")
	}
	if got := rowTitles(m); strings.Join(got, "|") != "1. beta|2. alpha" {
		t.Fatalf("unexpected rows: %v", got)
	}
	if m.list.Index() != 1 {
		t.Fatalf("expected cursor to follow the moved row, got %d", m.list.Index())
	}
}

func TestListModel_MoveFailureRollsBackAndFlashes(t *testing.T) {
	m, remote := newTestModel(t, "alpha", "beta")
	remote.failReposition = &postgrest.Error{Op: "reposition", Kind: postgrest.ErrTransport, Message: "unavailable"}

	m, cmd := press(t, m, runes("J"))
	m = runCmd(t, m, cmd)

	if got := rowTitles(m); strings.Join(got, "|") != "1. alpha|2. beta" {
		t.Fatalf("expected original order, got %v", got)
	}
	if m.flash.kind != noteError || m.flash.text != "reorder keywords failed: unavailable" {
		t.Fatalf("unexpected flash: %+v", m.flash)
	}
}

func TestListModel_MoveAtEdgeIsNoop(t *testing.T) {
	m, _ := newTestModel(t, "alpha", "beta")
	m, cmd := press(t, m, runes("K"))
	if cmd != nil || m.busy {
		t.Fatalf("expected no move above the first row")
	}
}

func TestListModel_FlashExpiresBySequence(t *testing.T) {
	m, _ := newTestModel(t, "alpha")
	_ = m.setFlash(note{kind: noteInfo, text: "first"})
	stale := m.flashSeq
	_ = m.setFlash(note{kind: noteInfo, text: "second"})

	mAny, _ := m.Update(flashDoneMsg{seq: stale})
	m = mAny.(listModel[model.Keyword])
	if m.flash.text != "second" {
		t.Fatalf("stale timer cleared the flash")
	}
	mAny, _ = m.Update(flashDoneMsg{seq: m.flashSeq})
	m = mAny.(listModel[model.Keyword])
	if m.flash.text != "" {
		t.Fatalf("expected flash cleared")
	}
}

func TestListModel_CopyIDUsesClipboard(t *testing.T) {
	var copied string
	prev := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyToClipboard = prev })

	m, remote := newTestModel(t, "astronomy", "python")
	before := len(remote.Calls())
	m, _ = press(t, m, runes("y"))
	if copied != "seed-1" {
		t.Fatalf("copied %q; want seed-1", copied)
	}
	if !strings.Contains(m.flash.text, "copied seed-1") {
		t.Fatalf("flash = %q", m.flash.text)
	}
	if len(remote.Calls()) != before {
		t.Fatalf("copy must not call the remote: %v", remote.Calls())
	}
}

func TestClipboardCommands_EveryPlatformHasOne(t *testing.T) {
	for _, goos := range []string{"darwin", "windows", "linux", "freebsd"} {
		cmds := clipboardCommands(goos)
		if len(cmds) == 0 || len(cmds[0]) == 0 {
			t.Fatalf("%s: no clipboard command", goos)
		}
	}
	if got := clipboardCommands("linux")[0][0]; got != "wl-copy" {
		t.Fatalf("linux prefers %q; want wl-copy", got)
	}
}
