package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [RESOURCE...]",
		Short: "Refresh the local mirror from the server",
		Long: "Refresh the local mirror from the server. With no arguments every resource\n" +
			"is synced; otherwise only the named ones (" + strings.Join(domain.AllResources, ", ") + ").",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			if ws.Offline() {
				return fmt.Errorf("sync needs the server: %w", reconcile.ErrOffline)
			}

			var syncers []reconcile.Syncer
			for _, name := range args {
				s, ok := ws.Resource(name)
				if !ok {
					return fmt.Errorf("unknown resource %q (want one of %s)", name, strings.Join(domain.AllResources, ", "))
				}
				syncers = append(syncers, s)
			}

			stop := func() {}
			if app.interactive() {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Syncing…")
			}
			var results []reconcile.SyncResult
			if len(syncers) == 0 {
				results = ws.SyncAll(ctx)
			} else {
				for _, s := range syncers {
					n, err := s.Refresh(ctx)
					results = append(results, reconcile.SyncResult{Resource: s.Name(), Count: n, Err: err})
				}
			}
			stop()

			states, err := ws.SyncStates(ctx)
			if err != nil {
				app.logger().Warn("Sync states unavailable", zap.Error(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSyncResults(results, states, app.now()))

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d resources failed to sync", failed, len(results))
			}
			return nil
		},
	}
}
