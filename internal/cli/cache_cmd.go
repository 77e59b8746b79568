package cli

import (
	"fmt"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear cached data",
	}
	cmd.AddCommand(
		newCacheStatusCmd(app),
		newCacheClearCmd(app),
	)
	return cmd
}

func newCacheStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached queries and the last mirror sync per resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			now := app.now()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.FormatCacheEntries(ws.Cache().Entries(), now))

			states, err := ws.SyncStates(ctx)
			if err != nil {
				return fmt.Errorf("reading sync state: %w", err)
			}
			fmt.Fprintln(out, formatter.FormatSyncStates(states, now))
			return nil
		},
	}
}

func newCacheClearCmd(app *App) *cobra.Command {
	var mirrors, yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached queries, and with --mirror the local snapshots too",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}

			if mirrors && !yes && app.interactive() {
				ok, err := app.confirm("Delete every local snapshot? Offline reads will be empty until the next sync.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Cancelled."))
					return nil
				}
			}

			n := ws.ClearCache()
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached %s\n", n, plural(n, "query", "queries"))
			if mirrors {
				if err := ws.ClearMirrors(ctx); err != nil {
					return fmt.Errorf("clearing mirrors: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared local mirrors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mirrors, "mirror", false, "Also delete the local snapshots")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
