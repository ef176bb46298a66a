package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"rsd-cli/internal/format"
	"rsd-cli/internal/postgrest"
)

var errDoctorIssuesFound = errors.New("doctor found errors")

type doctorIssue struct {
	Check   string `json:"check"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type doctorReport struct {
	ConfigPath string        `json:"configPath"`
	APIURL     string        `json:"apiUrl"`
	Software   int           `json:"software"`
	Issues     []doctorIssue `json:"issues"`
}

func (r doctorReport) hasErrors() bool {
	for _, is := range r.Issues {
		if is.Level == "error" {
			return true
		}
	}
	return false
}

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check config, credential and API reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := doctorReport{
				ConfigPath: app.cfg.Path,
				APIURL:     app.cfg.APIURL,
				Issues:     []doctorIssue{},
			}
			if report.ConfigPath == "" {
				report.Issues = append(report.Issues, doctorIssue{"config", "warn", "no config file; run rsd config init"})
			}
			if problem := postgrest.CredentialProblem(app.cfg.Token, time.Now()); problem != "" {
				report.Issues = append(report.Issues, doctorIssue{"token", "warn", problem + "; mutations will be rejected"})
			}
			page, err := app.client().ListPage(cmd.Context(), postgrest.ListParams{Rows: postgrest.DefaultRows})
			if err != nil {
				report.Issues = append(report.Issues, doctorIssue{"api", "error", err.Error()})
			} else {
				report.Software = page.Count
			}

			if err := writeOut(cmd, app, format.Envelope{
				Data: report,
				Meta: map[string]any{
					"issues":    len(report.Issues),
					"hasErrors": report.hasErrors(),
				},
				Hints: []string{"rsd config show"},
			}); err != nil {
				return err
			}
			if fail && report.hasErrors() {
				return errDoctorIssuesFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if errors are found")
	return cmd
}
