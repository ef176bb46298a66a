package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rsd-cli/internal/config"
	"rsd-cli/internal/devapi"
	"rsd-cli/internal/format"
)

const devSecretFile = "dev-secret"

func newDevServerCmd(app *App) *cobra.Command {
	var addr string
	var dbPath string
	var seed bool
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local PostgREST-compatible API backed by SQLite",
		Long: `Serves the software, contributor, keyword, project link and organisation
tables with PostgREST query, filter and Prefer semantics, and prints a signed
token for the seeded maintainer account so mutations can be tried locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.cfg.Dev.Addr
			}
			if dbPath == "" {
				dbPath = app.cfg.Dev.DB
			}
			if _, err := config.WriteDefault(app.ConfigDir); err != nil {
				return writeErr(cmd, err)
			}

			secret := []byte(app.cfg.Dev.Secret)
			if len(secret) == 0 {
				var err error
				secret, err = devapi.LoadOrInitSecret(filepath.Join(app.ConfigDir, devSecretFile))
				if err != nil {
					return writeErr(cmd, err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := devapi.Open(ctx, dbPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()
			if seed {
				if err := devapi.Seed(ctx, db); err != nil {
					return writeErr(cmd, err)
				}
			}

			srv := devapi.New(db, secret, devapi.WithLogger(app.logger))
			token, err := srv.IssueToken(devapi.SeedMaintainerID, ttl)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := writeOut(cmd, app, format.Envelope{
				Data: map[string]any{
					"addr":    addr,
					"db":      dbPath,
					"account": devapi.SeedMaintainerID,
					"token":   token,
				},
				Meta: map[string]any{
					"software": devapi.SeedSoftwareID,
					"project":  devapi.SeedProjectID,
				},
				Hints: []string{
					"export RSD_API_URL=http://" + addr,
					"export RSD_TOKEN=<token above>",
					"rsd keywords list " + devapi.SeedSoftwareID,
				},
			}); err != nil {
				return err
			}

			err = srv.ListenAndServe(ctx, addr)
			if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:3500)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (default <config-dir>/dev.sqlite)")
	cmd.Flags().BoolVar(&seed, "seed", true, "Insert demo records when missing")
	cmd.Flags().DurationVar(&ttl, "token-ttl", 12*time.Hour, "Lifetime of the printed token")
	return cmd
}
