package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"rsd-cli/internal/registry"
)

func renderInputLine(bodyW int, inputView string) string {
	if bodyW < 10 {
		bodyW = 10
	}

	// Inputs must stay on one visual line; a wrapped view looks like a
	// newline was inserted while typing.
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	inputView = strings.ReplaceAll(inputView, "\r", " ")

	line := lipgloss.PlaceHorizontal(
		bodyW,
		lipgloss.Left,
		" "+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > bodyW {
		line = xansi.Cut(line, 0, bodyW) + "\x1b[0m"
	}
	return line
}

func newFieldInput(f registry.Field, value string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = f.Help
	if in.Placeholder == "" {
		in.Placeholder = f.Label
	}
	in.CharLimit = 200
	in.Width = 40
	in.SetValue(value)
	return in
}

func renderEditModal(width int, title string, fields []registry.Field, inputs []textinput.Model, focus int, problem string) string {
	bodyW := modalBodyWidth(width)
	var b strings.Builder
	for i, f := range fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		st := styleMuted()
		if i == focus {
			st = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
		}
		b.WriteString(st.Render(label))
		b.WriteString("\n")
		b.WriteString(renderInputLine(bodyW, inputs[i].View()))
		b.WriteString("\n")
	}
	if problem != "" {
		b.WriteString("\n")
		b.WriteString(styleFlash(noteError).Render(problem))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Width(bodyW).Render("tab/shift+tab: field   enter/ctrl+s: save   esc: cancel"))
	return renderModalBox(width, title, b.String())
}
