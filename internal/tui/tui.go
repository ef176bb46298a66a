// Package tui is the interactive list view for one ordered child collection.
package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"rsd-cli/internal/collection"
	"rsd-cli/internal/postgrest"
	"rsd-cli/internal/registry"
)

type Options struct {
	// Heading is shown above the list, e.g. "keywords of software sat-tracker".
	Heading string
	Logger  *slog.Logger
	Gate    *collection.Gate
}

// Run edits parentID's collection of spec's kind until the user quits.
func Run[T collection.Item[T]](ctx context.Context, spec registry.Spec[T], client *postgrest.Client, parentID string, opts Options) error {
	applyThemePreference()
	applyColorProfilePreference()

	notes := &flashNotifier{}
	ed := spec.NewEditor(client, parentID, collection.EditorOptions[T]{
		Notifier: notes,
		Logger:   opts.Logger,
		Gate:     opts.Gate,
	})
	heading := opts.Heading
	if heading == "" {
		heading = string(spec.Kind) + " of " + spec.Parent + " " + parentID
	}
	m := newListModel(ctx, spec, collection.NewController(ed), notes, heading)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
