package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rsd-cli/internal/collection"
	"rsd-cli/internal/config"
	"rsd-cli/internal/format"
	"rsd-cli/internal/postgrest"
)

// Version is set at build time with -ldflags "-X rsd-cli/internal/cli.Version=...".
var Version = "dev"

type App struct {
	ConfigDir  string
	APIURL     string
	Token      string
	Account    string
	LogLevel   string
	LogFile    string
	PrettyJSON bool
	Format     string

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	gate     collection.Gate
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "rsd",
		Short:        "Research Software Directory client: browse software and edit ordered collections",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start a local development API with demo data
  rsd dev-server

  # Browse software
  rsd software list --search tracker
  rsd software show sat-tracker --render

  # Edit collections from scripts
  rsd keywords add <software-id> -f keyword=astronomy
  rsd contributors move <software-id> 3 1

  # Edit a collection interactively
  rsd edit keywords <software-id>
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.closeLog != nil {
				return app.closeLog()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("RSD_CONFIG_DIR", ""), "Config directory (default ~/.rsd)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("RSD_API_URL", ""), "Base URL of the PostgREST API")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("RSD_TOKEN", ""), "Bearer JWT used for mutations")
	cmd.PersistentFlags().StringVar(&app.Account, "account", envOr("RSD_ACCOUNT", ""), "Account id used for maintainer checks")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("RSD_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", envOr("RSD_LOG_FILE", ""), "Append logs to this file instead of stderr")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("RSD_FORMAT", "json"), "Output format (json)")

	cmd.AddCommand(newSoftwareCmd(app))
	for _, c := range newCollectionCmds(app) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newDevServerCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

// setup resolves configuration (flag > env > file > default) and the logger.
func (app *App) setup(cmd *cobra.Command) error {
	if app.ConfigDir == "" {
		app.ConfigDir = config.DefaultDir()
	}
	cfg, err := config.Load(app.ConfigDir)
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.APIURL != "" {
		cfg.APIURL = app.APIURL
	}
	if app.Token != "" {
		cfg.Token = app.Token
	}
	if app.Account != "" {
		cfg.Account = app.Account
	}
	if app.LogLevel != "" {
		cfg.LogLevel = app.LogLevel
	}
	if app.LogFile != "" {
		cfg.LogFile = app.LogFile
	}
	app.cfg = cfg

	logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.logger = logger
	app.closeLog = closeLog
	return nil
}

func (app *App) client() *postgrest.Client {
	return postgrest.New(app.cfg.APIURL,
		postgrest.WithToken(app.cfg.Token),
		postgrest.WithLogger(app.logger),
	)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
