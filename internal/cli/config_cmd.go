package cli

import (
	"github.com/spf13/cobra"

	"rsd-cli/internal/config"
	"rsd-cli/internal/format"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented config.yaml unless one exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(app.ConfigDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  map[string]any{"path": path},
				Hints: []string{"rsd config show"},
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.cfg
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{
				"path":      c.Path,
				"api_url":   c.APIURL,
				"token":     redact(c.Token),
				"account":   c.Account,
				"rows":      c.Rows,
				"log_level": c.LogLevel,
				"log_file":  c.LogFile,
				"dev": map[string]any{
					"addr":   c.Dev.Addr,
					"db":     c.Dev.DB,
					"secret": redact(c.Dev.Secret),
				},
			}})
		},
	})
	return cmd
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "<redacted>"
}
