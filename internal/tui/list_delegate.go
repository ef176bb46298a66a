package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// row is one collection item as displayed: "<position>. <title>".
type row struct {
	id       string
	position int
	title    string
}

func (r row) FilterValue() string { return r.title }

func (r row) Title() string {
	return fmt.Sprintf("%d. %s", r.position, r.title)
}

type compactItemDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	draft    lipgloss.Style
}

func newCompactItemDelegate() compactItemDelegate {
	return compactItemDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
		draft: styleMuted().Italic(true),
	}
}

func (d compactItemDelegate) Height() int                             { return 1 }
func (d compactItemDelegate) Spacing() int                            { return 0 }
func (d compactItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d compactItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	style := d.normal
	txt := fmt.Sprint(item)
	if r, ok := item.(row); ok {
		txt = r.Title()
		if r.id == "" {
			// Optimistic insert still waiting for the server.
			style = d.draft
		}
	}
	if index == m.Index() {
		style = d.selected
	}

	line := txt
	lineW := xansi.StringWidth(line)
	if lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Cut(line, 0, contentW-1) + "…"
	}
	fmt.Fprint(w, style.Render(line))
}
