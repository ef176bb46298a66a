package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rsd-cli/internal/collection"
	"rsd-cli/internal/format"
	"rsd-cli/internal/model"
	"rsd-cli/internal/registry"
)

// loader overrides how a kind's list command reads the collection. The
// returned map is merged into the output meta.
type loader[T collection.Item[T]] func(ctx context.Context, app *App, parentID string) ([]T, map[string]any, error)

func newCollectionCmds(app *App) []*cobra.Command {
	return []*cobra.Command{
		newKindCmd(app, registry.Contributors(), nil),
		newKindCmd(app, registry.Keywords(), nil),
		newKindCmd(app, registry.Links(), nil),
		newKindCmd(app, registry.Organisations(), loadOrganisations),
	}
}

// loadOrganisations resolves maintainer rights for the configured account and
// reports the editable organisation ids under meta.editable.
func loadOrganisations(ctx context.Context, app *App, project string) ([]model.Organisation, map[string]any, error) {
	orgs, err := registry.LoadOrganisations(ctx, app.client(), project, app.cfg.Account, app.logger)
	if err != nil {
		return nil, nil, err
	}
	editable := []string{}
	for _, o := range orgs {
		if o.CanEdit {
			editable = append(editable, o.Organisation)
		}
	}
	return orgs, map[string]any{"account": app.cfg.Account, "editable": editable}, nil
}

func newKindCmd[T collection.Item[T]](app *App, spec registry.Spec[T], load loader[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(spec.Kind),
		Short: fmt.Sprintf("Manage the ordered %s of a %s", spec.Kind, spec.Parent),
	}
	cmd.AddCommand(newKindListCmd(app, spec, load))
	cmd.AddCommand(newKindAddCmd(app, spec))
	cmd.AddCommand(newKindEditCmd(app, spec))
	cmd.AddCommand(newKindRemoveCmd(app, spec))
	cmd.AddCommand(newKindMoveCmd(app, spec))
	cmd.AddCommand(newKindFieldsCmd(app, spec))
	return cmd
}

func newEditor[T collection.Item[T]](app *App, spec registry.Spec[T], parentID string) *collection.Editor[T] {
	return spec.NewEditor(app.client(), parentID, collection.EditorOptions[T]{
		Notifier: collection.LogNotifier{Logger: app.logger},
		Logger:   app.logger,
		Gate:     &app.gate,
	})
}

// loadEditor builds an editor and reads the current collection. Every
// mutating command starts from the server's order.
func loadEditor[T collection.Item[T]](ctx context.Context, app *App, spec registry.Spec[T], parentID string) (*collection.Editor[T], error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, fmt.Errorf("%s id is required", spec.Parent)
	}
	ed := newEditor(app, spec, parentID)
	if _, err := ed.Load(ctx); err != nil {
		return nil, err
	}
	return ed, nil
}

func kindMeta[T collection.Item[T]](spec registry.Spec[T], parentID string, count int) map[string]any {
	return map[string]any{
		"kind":   string(spec.Kind),
		"parent": parentID,
		"count":  count,
	}
}

func listHint[T collection.Item[T]](spec registry.Spec[T], parentID string) string {
	return fmt.Sprintf("rsd %s list %s", spec.Kind, parentID)
}

func newKindListCmd[T collection.Item[T]](app *App, spec registry.Spec[T], load loader[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "list <" + spec.Parent + "-id>",
		Short: fmt.Sprintf("List %s in order", spec.Kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID := strings.TrimSpace(args[0])
			var items []T
			var extra map[string]any
			var err error
			if load != nil {
				items, extra, err = load(cmd.Context(), app, parentID)
			} else {
				var ed *collection.Editor[T]
				ed, err = loadEditor(cmd.Context(), app, spec, parentID)
				if ed != nil {
					items = ed.Items()
				}
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if items == nil {
				items = []T{}
			}
			meta := kindMeta(spec, parentID, len(items))
			for k, v := range extra {
				meta[k] = v
			}
			return writeOut(cmd, app, format.Envelope{Data: items, Meta: meta})
		},
	}
}

func newKindAddCmd[T collection.Item[T]](app *App, spec registry.Spec[T]) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:     "add <" + spec.Parent + "-id>",
		Short:   fmt.Sprintf("Append a %s", spec.Noun),
		Example: fmt.Sprintf("  rsd %s add <%s-id> %s", spec.Kind, spec.Parent, exampleFields(spec)),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFieldArgs(fields)
			if err != nil {
				return writeErr(cmd, err)
			}
			var draft T
			item, err := spec.Apply(draft, values)
			if err != nil {
				return writeErr(cmd, err)
			}
			ed, err := loadEditor(cmd.Context(), app, spec, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			created, err := ed.Save(cmd.Context(), item, -1)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("add %s: %w", spec.Noun, err))
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  created,
				Meta:  kindMeta(spec, ed.ParentID(), len(ed.Items())),
				Hints: []string{listHint(spec, ed.ParentID())},
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Field value as key=value (repeatable)")
	return cmd
}

func newKindEditCmd[T collection.Item[T]](app *App, spec registry.Spec[T]) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "edit <" + spec.Parent + "-id> <position>",
		Short: fmt.Sprintf("Change fields of the %s at a 1-based position", spec.Noun),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFieldArgs(fields)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(values) == 0 {
				return writeErr(cmd, fmt.Errorf("nothing to change: pass at least one --field"))
			}
			ed, err := loadEditor(cmd.Context(), app, spec, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			index, err := parsePosition(args[1], len(ed.Items()))
			if err != nil {
				return writeErr(cmd, err)
			}
			current := ed.Items()[index]
			item, err := spec.Apply(current, values)
			if err != nil {
				return writeErr(cmd, err)
			}
			updated, err := ed.Save(cmd.Context(), item, index)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("update %s: %w", spec.Noun, err))
			}
			return writeOut(cmd, app, format.Envelope{
				Data: updated,
				Meta: kindMeta(spec, ed.ParentID(), len(ed.Items())),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Field value as key=value (repeatable)")
	return cmd
}

func newKindRemoveCmd[T collection.Item[T]](app *App, spec registry.Spec[T]) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <" + spec.Parent + "-id> <position>",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete the %s at a 1-based position and close the gap", spec.Noun),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := loadEditor(cmd.Context(), app, spec, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			index, err := parsePosition(args[1], len(ed.Items()))
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ed.Remove(cmd.Context(), index); err != nil {
				return writeErr(cmd, fmt.Errorf("remove %s: %w", spec.Noun, err))
			}
			items := ed.Items()
			return writeOut(cmd, app, format.Envelope{
				Data: items,
				Meta: kindMeta(spec, ed.ParentID(), len(items)),
			})
		},
	}
}

func newKindMoveCmd[T collection.Item[T]](app *App, spec registry.Spec[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "move <" + spec.Parent + "-id> <from> <to>",
		Short: fmt.Sprintf("Move a %s to another 1-based position", spec.Noun),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := loadEditor(cmd.Context(), app, spec, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			n := len(ed.Items())
			from, err := parsePosition(args[1], n)
			if err != nil {
				return writeErr(cmd, err)
			}
			to, err := parsePosition(args[2], n)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ed.Move(cmd.Context(), from, to); err != nil {
				return writeErr(cmd, fmt.Errorf("move %s: %w", spec.Noun, err))
			}
			items := ed.Items()
			return writeOut(cmd, app, format.Envelope{
				Data: items,
				Meta: kindMeta(spec, ed.ParentID(), len(items)),
			})
		},
	}
}

func newKindFieldsCmd[T collection.Item[T]](app *App, spec registry.Spec[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: fmt.Sprintf("List the fields a %s accepts", spec.Noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type field struct {
				Key      string `json:"key"`
				Label    string `json:"label"`
				Required bool   `json:"required"`
				Help     string `json:"help,omitempty"`
			}
			out := make([]field, 0, len(spec.Fields))
			for _, f := range spec.Fields {
				out = append(out, field{Key: f.Key, Label: f.Label, Required: f.Required, Help: f.Help})
			}
			return writeOut(cmd, app, format.Envelope{
				Data: out,
				Meta: map[string]any{"kind": string(spec.Kind), "parent": spec.Parent},
			})
		},
	}
}

func exampleFields[T collection.Item[T]](spec registry.Spec[T]) string {
	var parts []string
	for _, f := range spec.Fields {
		if f.Required {
			parts = append(parts, "-f "+f.Key+"=...")
		}
	}
	return strings.Join(parts, " ")
}

// parseFieldArgs turns repeated key=value flags into a map. A later value for
// the same key wins.
func parseFieldArgs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fieldArgError{arg: a}
		}
		out[k] = v
	}
	return out, nil
}

// parsePosition converts a 1-based position argument to an index into a list
// of count items.
func parsePosition(arg string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > count {
		return 0, errPosition(arg, count)
	}
	return n - 1, nil
}
