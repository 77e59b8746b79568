package cli

import (
	"fmt"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Browse workspace users",
	}

	var opts listOptions
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			st := ws.Users.Query(ctx)
			app.notePlaceholder(cmd, "users", st.IsPlaceholder, st.Error)

			users := st.Data[:opts.apply(len(st.Data))]
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), users)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatUserList(users))
			return nil
		},
	}
	list.Flags().AddFlagSet(listFlags(&opts))

	cmd.AddCommand(list)
	return cmd
}

func newTeamCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "team",
		Aliases: []string{"teams"},
		Short:   "Browse team spaces",
	}

	var opts listOptions
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List team spaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			st := ws.TeamSpaces.Query(ctx)
			app.notePlaceholder(cmd, "team spaces", st.IsPlaceholder, st.Error)

			teams := st.Data[:opts.apply(len(st.Data))]
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), teams)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTeamList(teams))
			return nil
		},
	}
	list.Flags().AddFlagSet(listFlags(&opts))

	cmd.AddCommand(list)
	return cmd
}
