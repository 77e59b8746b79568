package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resourceSpec describes one record type for the generic list/show/add/
// update/rm commands.
type resourceSpec[T domain.Record] struct {
	noun    string
	plural  string
	aliases []string
	of      func(ws *reconcile.Workspace) *reconcile.Resource[T]
	// projectOf enables the --project filter on list.
	projectOf func(T) string
	label     func(T) string
	defaults  func(now time.Time) T
	fields    []field[T]
	list      func(v *view, items []T) string
	detail    func(v *view, item T) string
}

// view carries what renderers need to look up related records.
type view struct {
	ctx context.Context
	ws  *reconcile.Workspace
	now time.Time
}

func (v *view) projects() formatter.Names {
	return formatter.ProjectNames(v.ws.Projects.Query(v.ctx).Data)
}

func (v *view) users() formatter.Names {
	return formatter.UserNames(v.ws.Users.Query(v.ctx).Data)
}

type listOptions struct {
	json  bool
	limit int
}

// listFlags are shared by every listing command.
func listFlags(o *listOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.BoolVar(&o.json, "json", false, "Print JSON instead of a table")
	fs.IntVar(&o.limit, "limit", 0, "Show at most N records (0 shows all)")
	return fs
}

func (o listOptions) apply(n int) int {
	if o.limit > 0 && o.limit < n {
		return o.limit
	}
	return n
}

func newResourceCmd[T domain.Record](app *App, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     spec.noun,
		Aliases: spec.aliases,
		Short:   "Manage " + spec.plural,
	}
	cmd.AddCommand(
		newResourceListCmd(app, spec),
		newResourceShowCmd(app, spec),
		newResourceAddCmd(app, spec),
		newResourceUpdateCmd(app, spec),
		newResourceRemoveCmd(app, spec),
	)
	return cmd
}

func newResourceListCmd[T domain.Record](app *App, spec resourceSpec[T]) *cobra.Command {
	var opts listOptions
	var project string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + spec.plural,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			r := spec.of(ws)

			var st reconcile.State[T]
			if project != "" {
				pid, err := resolveID(ctx, ws.Projects, project, "project")
				if err != nil {
					return err
				}
				scope := reconcile.Scope{Field: "projectId", Value: pid}
				st = r.QueryWhere(ctx, scope, func(it T) bool { return spec.projectOf(it) == pid })
			} else {
				st = r.Query(ctx)
			}
			app.notePlaceholder(cmd, spec.plural, st.IsPlaceholder, st.Error)

			items := st.Data[:opts.apply(len(st.Data))]
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			v := &view{ctx: ctx, ws: ws, now: app.now()}
			fmt.Fprintln(cmd.OutOrStdout(), spec.list(v, items))
			return nil
		},
	}

	cmd.Flags().AddFlagSet(listFlags(&opts))
	if spec.projectOf != nil {
		cmd.Flags().StringVar(&project, "project", "", "Only "+spec.plural+" of this project (ID or unique prefix)")
	}
	return cmd
}

func newResourceShowCmd[T domain.Record](app *App, spec resourceSpec[T]) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show " + spec.noun + " details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			r := spec.of(ws)
			id, err := resolveID(ctx, r, args[0], spec.noun)
			if err != nil {
				return err
			}

			item, ok, err := r.Get(ctx, id)
			if !ok {
				if err != nil {
					return err
				}
				return fmt.Errorf("%s not found: %q", spec.noun, args[0])
			}
			app.notePlaceholder(cmd, spec.noun, err != nil, err)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), item)
			}
			v := &view{ctx: ctx, ws: ws, now: app.now()}
			fmt.Fprintln(cmd.OutOrStdout(), spec.detail(v, item))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a card")
	return cmd
}

func newResourceAddCmd[T domain.Record](app *App, spec resourceSpec[T]) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a " + spec.noun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}

			item := spec.defaults(app.now())
			if _, err := applyFields(editCtx{ctx: ctx, ws: ws}, cmd.Flags(), spec.fields, &item); err != nil {
				return err
			}
			created, err := spec.of(ws).Create(ctx, item)
			if err != nil {
				return fmt.Errorf("creating %s: %w", spec.noun, err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s %s\n", spec.noun, formatter.Bold(spec.label(created)), formatter.TruncID(created.GetID()))
			return nil
		},
	}

	bindFields(cmd.Flags(), spec.fields)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the created record as JSON")
	return cmd
}

func newResourceUpdateCmd[T domain.Record](app *App, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a " + spec.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			r := spec.of(ws)
			id, err := resolveID(ctx, r, args[0], spec.noun)
			if err != nil {
				return err
			}

			item, ok, err := r.Get(ctx, id)
			if !ok {
				if err != nil {
					return err
				}
				return fmt.Errorf("%s not found: %q", spec.noun, args[0])
			}

			n, err := applyFields(editCtx{ctx: ctx, ws: ws}, cmd.Flags(), spec.fields, &item)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("nothing to update: pass at least one field flag")
			}

			updated, err := r.Update(ctx, item)
			if err != nil {
				return fmt.Errorf("updating %s: %w", spec.noun, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s %s\n", spec.noun, formatter.Bold(spec.label(updated)), formatter.TruncID(updated.GetID()))
			return nil
		},
	}

	bindFields(cmd.Flags(), spec.fields)
	return cmd
}

func newResourceRemoveCmd[T domain.Record](app *App, spec resourceSpec[T]) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a " + spec.noun,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			r := spec.of(ws)
			id, err := resolveID(ctx, r, args[0], spec.noun)
			if err != nil {
				return err
			}

			label := domain.ShortID(id)
			if item, ok := r.Mirror().Get(id); ok {
				label = spec.label(item)
			}

			if !yes && app.interactive() {
				ok, err := app.confirm(fmt.Sprintf("Delete %s %q?", spec.noun, label))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Cancelled."))
					return nil
				}
			}

			if err := r.Delete(ctx, id); err != nil {
				return fmt.Errorf("deleting %s: %w", spec.noun, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s %s\n", spec.noun, formatter.Bold(label), formatter.TruncID(id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}
