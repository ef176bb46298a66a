package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"rsd-cli/internal/registry"
	"rsd-cli/internal/tui"
)

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <kind> <parent-id>",
		Short: "Edit a collection interactively",
		Long: strings.TrimSpace(`
Opens a full-screen list of one ordered collection.

Kinds: contributors, keywords (of a software id), links, organisations (of a project id).

Keys: a add, enter/e edit, d delete, K/J move up/down, r reload, y copy id, q quit.
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := registry.ParseKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			parentID := strings.TrimSpace(args[1])
			if parentID == "" {
				return writeErr(cmd, fmt.Errorf("parent id is required"))
			}

			// The alternate screen owns the terminal; only a log file receives logs.
			logger := app.logger
			if app.cfg.LogFile == "" {
				logger = slog.New(slog.DiscardHandler)
			}
			opts := tui.Options{Logger: logger, Gate: &app.gate}
			client := app.client()
			ctx := cmd.Context()

			switch kind {
			case registry.KindContributors:
				err = tui.Run(ctx, registry.Contributors(), client, parentID, opts)
			case registry.KindKeywords:
				err = tui.Run(ctx, registry.Keywords(), client, parentID, opts)
			case registry.KindLinks:
				err = tui.Run(ctx, registry.Links(), client, parentID, opts)
			case registry.KindOrganisations:
				err = tui.Run(ctx, registry.Organisations(), client, parentID, opts)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}
