package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rsd-cli/internal/collection"
	"rsd-cli/internal/registry"
)

const flashDuration = 4 * time.Second

type keyMap struct {
	Add      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Reload   key.Binding
	CopyID   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Edit:     key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter/e", "edit")),
	Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
	MoveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
	Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	CopyID:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) mutating(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.Add, k.Edit, k.Delete, k.MoveUp, k.MoveDown, k.Reload)
}

func (k keyMap) helpLine() string {
	parts := make([]string, 0, 8)
	for _, b := range []key.Binding{k.Add, k.Edit, k.Delete, k.MoveUp, k.MoveDown, k.Reload, k.CopyID, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "   ")
}

type loadedMsg struct{ err error }

// mutationDoneMsg reports a finished editor call. selectIndex >= 0 moves the
// cursor there on success.
type mutationDoneMsg struct {
	op          string
	err         error
	selectIndex int
}

type flashDoneMsg struct{ seq int }

// listModel renders one ordered collection. It owns no item state: rows are
// rebuilt from the editor's store after every load or mutation.
type listModel[T collection.Item[T]] struct {
	ctx     context.Context
	spec    registry.Spec[T]
	ctl     *collection.Controller[T]
	notes   *flashNotifier
	heading string

	list list.Model

	inputs       []textinput.Model
	focus        int
	problem      string
	confirmFocus confirmModalFocus

	// busy is set while a load or mutation command is outstanding.
	busy bool

	flash    note
	flashSeq int

	width  int
	height int
}

func newListModel[T collection.Item[T]](ctx context.Context, spec registry.Spec[T], ctl *collection.Controller[T], notes *flashNotifier, heading string) listModel[T] {
	l := list.New(nil, newCompactItemDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := listModel[T]{
		ctx:     ctx,
		spec:    spec,
		ctl:     ctl,
		notes:   notes,
		heading: heading,
		list:    l,
		busy:    true,
	}
	m.list.SetSize(80, m.listHeight())
	return m
}

func (m listModel[T]) Init() tea.Cmd { return m.loadCmd() }

func (m listModel[T]) loadCmd() tea.Cmd {
	ctx, ed := m.ctx, m.ctl.Editor()
	return func() tea.Msg {
		_, err := ed.Load(ctx)
		return loadedMsg{err: err}
	}
}

func (m *listModel[T]) listHeight() int {
	if m.height <= 0 {
		return 12
	}
	// heading, flash line and help line
	if h := m.height - 3; h > 1 {
		return h
	}
	return 1
}

func (m *listModel[T]) refreshRows() {
	items := m.ctl.Editor().Items()
	rows := make([]list.Item, 0, len(items))
	for _, it := range items {
		rows = append(rows, row{id: it.ItemID(), position: it.ItemPosition(), title: m.spec.Title(it)})
	}
	idx := m.list.Index()
	m.list.SetItems(rows)
	switch {
	case len(rows) == 0:
		m.list.ResetSelected()
	case idx >= len(rows):
		m.list.Select(len(rows) - 1)
	}
}

func (m *listModel[T]) setFlash(n note) tea.Cmd {
	m.flash = n
	m.flashSeq++
	seq := m.flashSeq
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

// drainNotes shows the newest queued notification.
func (m *listModel[T]) drainNotes() tea.Cmd {
	notes := m.notes.drain()
	if len(notes) == 0 {
		return nil
	}
	return m.setFlash(notes[len(notes)-1])
}

func (m listModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, m.listHeight())
		return m, nil

	case loadedMsg:
		m.busy = false
		m.refreshRows()
		if msg.err != nil {
			cmd := m.setFlash(note{kind: noteError, text: collection.FailureMessage("load "+m.spec.Noun+"s", msg.err)})
			return m, cmd
		}
		return m, nil

	case mutationDoneMsg:
		m.busy = false
		m.refreshRows()
		if msg.err == nil && msg.selectIndex >= 0 && msg.selectIndex < len(m.list.Items()) {
			m.list.Select(msg.selectIndex)
		}
		if m.ctl.State().Mode == collection.ModalEditing {
			// Failed save: the modal stays open with the submitted values.
			if msg.err != nil {
				m.problem = msg.err.Error()
			}
		} else {
			m.closeModal()
		}
		cmd := m.drainNotes()
		return m, cmd

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = note{}
		}
		return m, nil

	case tea.KeyMsg:
		switch m.ctl.State().Mode {
		case collection.ModalEditing:
			return m.updateEditModal(msg)
		case collection.ModalConfirmDelete:
			return m.updateConfirmModal(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m listModel[T]) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, keys.CopyID) {
		cmd := m.copySelectedID()
		return m, cmd
	}
	if keys.mutating(msg) {
		if m.busy {
			return m, nil
		}
		return m.dispatch(msg)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m listModel[T]) dispatch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Add):
		var draft T
		if err := m.ctl.OpenAdd(draft); err != nil {
			return m, nil
		}
		m.openInputs(draft)
	case key.Matches(msg, keys.Edit):
		if err := m.ctl.OpenEdit(m.list.Index()); err != nil {
			return m, nil
		}
		m.openInputs(m.ctl.State().Item)
	case key.Matches(msg, keys.Delete):
		if err := m.ctl.OpenDelete(m.list.Index()); err != nil {
			return m, nil
		}
		m.confirmFocus = confirmFocusConfirm
	case key.Matches(msg, keys.MoveUp):
		return m.move(-1)
	case key.Matches(msg, keys.MoveDown):
		return m.move(1)
	case key.Matches(msg, keys.Reload):
		m.busy = true
		return m, m.loadCmd()
	}
	return m, nil
}

func (m *listModel[T]) copySelectedID() tea.Cmd {
	r, ok := m.list.SelectedItem().(row)
	if !ok || r.id == "" {
		return nil
	}
	if err := copyToClipboard(r.id); err != nil {
		return m.setFlash(note{kind: noteError, text: "copy id failed: " + err.Error()})
	}
	return m.setFlash(note{kind: noteInfo, text: "copied " + r.id})
}

func (m listModel[T]) move(delta int) (tea.Model, tea.Cmd) {
	from := m.list.Index()
	to := from + delta
	if len(m.list.Items()) == 0 || to < 0 || to >= len(m.list.Items()) {
		return m, nil
	}
	m.busy = true
	ctx, ed := m.ctx, m.ctl.Editor()
	return m, func() tea.Msg {
		return mutationDoneMsg{op: "move", err: ed.Move(ctx, from, to), selectIndex: to}
	}
}

func (m *listModel[T]) openInputs(item T) {
	m.inputs = make([]textinput.Model, len(m.spec.Fields))
	for i, f := range m.spec.Fields {
		m.inputs[i] = newFieldInput(f, m.spec.Value(item, f.Key))
	}
	m.problem = ""
	m.focusInput(0)
}

func (m *listModel[T]) focusInput(i int) {
	if len(m.inputs) == 0 {
		return
	}
	i = (i + len(m.inputs)) % len(m.inputs)
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.inputs[i].Focus()
	m.focus = i
}

func (m *listModel[T]) closeModal() {
	m.inputs = nil
	m.focus = 0
	m.problem = ""
}

func (m listModel[T]) updateEditModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.busy {
			return m, nil
		}
		m.ctl.Cancel()
		m.closeModal()
		return m, nil
	case "tab", "down":
		m.focusInput(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.focusInput(m.focus - 1)
		return m, nil
	case "ctrl+s":
		return m.submitEdit()
	case "enter":
		if m.focus < len(m.inputs)-1 {
			m.focusInput(m.focus + 1)
			return m, nil
		}
		return m.submitEdit()
	}
	if m.busy || len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m listModel[T]) submitEdit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	st := m.ctl.State()
	values := make(map[string]string, len(m.spec.Fields))
	for i, f := range m.spec.Fields {
		values[f.Key] = m.inputs[i].Value()
	}
	data, err := m.spec.Apply(st.Item, values)
	if err != nil {
		m.problem = err.Error()
		return m, nil
	}

	selectIndex := len(m.list.Items())
	if st.HasIndex {
		selectIndex = st.Index
	}
	m.busy = true
	m.problem = ""
	ctx, ctl := m.ctx, m.ctl
	return m, func() tea.Msg {
		_, err := ctl.SubmitEdit(ctx, data)
		return mutationDoneMsg{op: "save", err: err, selectIndex: selectIndex}
	}
}

func (m listModel[T]) updateConfirmModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc", "n":
		m.ctl.Cancel()
		return m, nil
	case "tab", "shift+tab", "left", "right":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
		return m, nil
	case "enter", "y":
		if msg.String() == "enter" && m.confirmFocus == confirmFocusCancel {
			m.ctl.Cancel()
			return m, nil
		}
		m.busy = true
		ctx, ctl := m.ctx, m.ctl
		return m, func() tea.Msg {
			return mutationDoneMsg{op: "delete", err: ctl.ConfirmDelete(ctx), selectIndex: -1}
		}
	}
	return m, nil
}

func (m listModel[T]) View() string {
	w := m.width
	if w <= 0 {
		w = 80
	}

	header := lipgloss.NewStyle().Bold(true).Render(m.heading)
	if m.busy {
		header += styleMuted().Render("  working…")
	}

	st := m.ctl.State()
	var body string
	switch st.Mode {
	case collection.ModalEditing:
		verb := "Add"
		if st.HasIndex {
			verb = "Edit"
		}
		modal := renderEditModal(w, verb+" "+m.spec.Noun, m.spec.Fields, m.inputs, m.focus, m.problem)
		body = lipgloss.Place(w, m.listHeight(), lipgloss.Center, lipgloss.Center, modal)
	case collection.ModalConfirmDelete:
		text := fmt.Sprintf("Delete %s %q?", m.spec.Noun, m.spec.Title(st.Item))
		modal := renderConfirmModal(w, "Delete "+m.spec.Noun, text, "Delete", "Cancel", m.confirmFocus)
		body = lipgloss.Place(w, m.listHeight(), lipgloss.Center, lipgloss.Center, modal)
	default:
		if len(m.list.Items()) == 0 {
			body = styleMuted().Render(fmt.Sprintf("No %ss yet. Press a to add one.", m.spec.Noun))
		} else {
			body = m.list.View()
		}
	}
	body = normalizePane(body, w, m.listHeight())

	flash := ""
	if m.flash.text != "" {
		flash = styleFlash(m.flash.kind).Render(m.flash.text)
	}
	return strings.Join([]string{header, body, flash, styleMuted().Render(keys.helpLine())}, "\n")
}
