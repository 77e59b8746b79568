package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/alexanderramin/tally/internal/api"
	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/alexanderramin/tally/internal/stats"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDashboardCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Workspace summary",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}

			local := false
			summary, err := ws.Dashboard(ctx)
			if err != nil {
				if !ws.Offline() {
					app.logger().Warn("Dashboard unavailable, summarizing local data", zap.Error(err))
					fmt.Fprintln(cmd.ErrOrStderr(), formatter.PlaceholderNote("dashboard", err))
				}
				s := localSummary(ctx, ws, app.now())
				summary, local = &s, true
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatDashboard(*summary, local))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of cards")
	return cmd
}

// localSummary rebuilds the dashboard from whatever the workspace can read,
// which offline means the mirrors.
func localSummary(ctx context.Context, ws *reconcile.Workspace, now time.Time) api.DashboardSummary {
	var s api.DashboardSummary

	projects := ws.Projects.Query(ctx).Data
	s.TotalProjects = len(projects)
	for _, p := range projects {
		if p.Status == domain.ProjectActive {
			s.ActiveProjects++
		}
	}

	day := today(now)
	for _, t := range ws.Tasks.Query(ctx).Data {
		switch {
		case t.IsDone():
			s.CompletedTasks++
		default:
			s.OpenTasks++
			if t.DueDate != nil && t.DueDate.Before(day) {
				s.OverdueTasks++
			}
		}
	}

	s.Budgeted = moneyOf(stats.TotalsByCurrency(ws.Budgets.Query(ctx).Data))
	spent := stats.TotalsByCurrency(ws.Costs.Query(ctx).Data)
	for cur, amt := range stats.TotalsByCurrency(ws.Expenses.Query(ctx).Data) {
		spent[cur] = spent[cur].Add(amt)
	}
	s.Spent = moneyOf(spent)

	s.UnreadNotifications = domain.UnreadCount(ws.Notifications.Query(ctx).Data)
	return s
}

func moneyOf(totals map[string]decimal.Decimal) []domain.Money {
	out := make([]domain.Money, 0, len(totals))
	for _, cur := range slices.Sorted(maps.Keys(totals)) {
		out = append(out, domain.Money{Amount: totals[cur], Currency: cur})
	}
	return out
}
