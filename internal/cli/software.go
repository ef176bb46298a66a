package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rsd-cli/internal/format"
	"rsd-cli/internal/postgrest"
	"rsd-cli/internal/registry"
)

func newSoftwareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "software",
		Short: "Browse published software",
	}
	cmd.AddCommand(newSoftwareListCmd(app))
	cmd.AddCommand(newSoftwareShowCmd(app))
	return cmd
}

func newSoftwareListCmd(app *App) *cobra.Command {
	var search string
	var keywords []string
	var page int
	var rows int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List software, most mentioned first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows == 0 {
				rows = app.cfg.Rows
			}
			p := postgrest.ListParams{Search: search, Keywords: keywords, Page: page, Rows: rows}.Normalize()
			res := registry.SoftwareList(cmd.Context(), app.client(), p, app.logger)

			env := format.Envelope{
				Data: res.Items,
				Meta: map[string]any{
					"count": res.Count,
					"page":  res.Page,
					"rows":  res.Rows,
					"pages": registry.PageCount(res.Count, res.Rows),
				},
			}
			if (res.Page+1)*res.Rows < res.Count {
				env.Hints = append(env.Hints, nextPageHint(p))
			}
			return writeOut(cmd, app, env)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Match brand name or short statement")
	cmd.Flags().StringArrayVar(&keywords, "keyword", nil, "Require a keyword (repeatable)")
	cmd.Flags().IntVar(&page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&rows, "rows", 0, "Rows per page (12, 24 or 48; default from config)")
	return cmd
}

func nextPageHint(p postgrest.ListParams) string {
	parts := []string{"rsd software list", fmt.Sprintf("--page %d", p.Page+1), fmt.Sprintf("--rows %d", p.Rows)}
	if s := strings.TrimSpace(p.Search); s != "" {
		parts = append(parts, fmt.Sprintf("--search %q", s))
	}
	for _, k := range p.Keywords {
		parts = append(parts, fmt.Sprintf("--keyword %q", k))
	}
	return strings.Join(parts, " ")
}

func newSoftwareShowCmd(app *App) *cobra.Command {
	var render bool
	var width int

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one software record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := app.client().Software(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !render {
				return writeOut(cmd, app, format.Envelope{Data: sw})
			}

			md := "# " + sw.BrandName + "\n"
			if sw.ShortStatement != nil {
				md += "\n_" + *sw.ShortStatement + "_\n"
			}
			if sw.Description != nil {
				md += "\n" + *sw.Description + "\n"
			}
			if width <= 0 {
				width = terminalWidth()
			}
			out, err := renderMarkdown(md, width)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the description as terminal markdown instead of JSON")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width for --render (default: terminal width)")
	return cmd
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	return 80
}

func renderMarkdown(md string, width int) (string, error) {
	// WithAutoStyle can block on terminal queries; pick the style explicitly.
	style := "dark"
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
