package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"rsd-cli/internal/format"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{
				"version": Version,
				"go":      runtime.Version(),
			}})
		},
	}
}
