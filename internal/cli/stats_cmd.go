package cli

import (
	"fmt"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/stats"
	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Totals, budget usage and task progress",
	}
	cmd.AddCommand(
		newStatsBudgetCmd(app),
		newStatsTotalsCmd(app),
		newStatsMonthlyCmd(app),
		newStatsTasksCmd(app),
		newStatsCategoriesCmd(app),
		newStatsVelocityCmd(app),
	)
	return cmd
}

func newStatsBudgetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Budgeted against spent per project and currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			budgets := ws.Budgets.Query(ctx)
			costs := ws.Costs.Query(ctx)
			expenses := ws.Expenses.Query(ctx)
			app.notePlaceholder(cmd, "budgets", budgets.IsPlaceholder, budgets.Error)

			rows := stats.BudgetUtilization(budgets.Data, costs.Data, expenses.Data)
			v := &view{ctx: ctx, ws: ws, now: app.now()}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatUtilization(rows, v.projects()))
			return nil
		},
	}
}

func newStatsTotalsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Sum of budgets, costs, expenses and contracts per currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			lines := []formatter.CurrencyTotals{
				{Label: "Budgets", Totals: stats.TotalsByCurrency(ws.Budgets.Query(ctx).Data)},
				{Label: "Costs", Totals: stats.TotalsByCurrency(ws.Costs.Query(ctx).Data)},
				{Label: "Expenses", Totals: stats.TotalsByCurrency(ws.Expenses.Query(ctx).Data)},
				{Label: "Contracts", Totals: stats.TotalsByCurrency(ws.Contracts.Query(ctx).Data)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCurrencyTotals(lines))
			return nil
		},
	}
}

func newStatsMonthlyCmd(app *App) *cobra.Command {
	var currency, from, to string
	var expensesOnly bool

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Spending per calendar month in one currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}

			end := app.now()
			if to != "" {
				if end, err = parseDate(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}
			start := end.AddDate(0, -5, 0)
			if from != "" {
				if start, err = parseDate(from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if end.Before(start) {
				return fmt.Errorf("--from %s is after --to %s", start.Format(dateLayout), end.Format(dateLayout))
			}

			cur := domain.NormalizeCurrency(currency)
			out := cmd.OutOrStdout()
			expenses := ws.Expenses.Query(ctx).Data
			if !expensesOnly {
				costs := ws.Costs.Query(ctx).Data
				fmt.Fprintln(out, formatter.FormatMonthly("Costs", cur, stats.MonthlyBuckets(costs, cur, start, end)))
			}
			fmt.Fprintln(out, formatter.FormatMonthly("Expenses", cur, stats.MonthlyBuckets(expenses, cur, start, end)))
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "EUR", "Currency to report")
	cmd.Flags().StringVar(&from, "from", "", "First month (YYYY-MM-DD, default five months before --to)")
	cmd.Flags().StringVar(&to, "to", "", "Last month (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&expensesOnly, "expenses", false, "Only report expenses")
	return cmd
}

func newStatsTasksCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task counts per status and completion rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}

			tasks := ws.Tasks.Query(ctx).Data
			if project != "" {
				pid, err := resolveID(ctx, ws.Projects, project, "project")
				if err != nil {
					return err
				}
				tasks = ws.Tasks.QueryWhere(ctx, byProject(pid), func(t domain.Task) bool { return t.ProjectID == pid }).Data
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTaskStats(stats.TaskStatusCounts(tasks), stats.CompletionRate(tasks)))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only tasks of this project (ID or unique prefix)")
	return cmd
}

func newStatsCategoriesCmd(app *App) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Expenses per category in one currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			cur := domain.NormalizeCurrency(currency)
			cats := stats.ExpensesByCategory(ws.Expenses.Query(ctx).Data, cur)
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCategories(cur, cats))
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "EUR", "Currency to report")
	return cmd
}

func newStatsVelocityCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Done against planned tasks per sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}

			sprints := ws.Sprints.Query(ctx).Data
			tasks := ws.Tasks.Query(ctx).Data
			if project != "" {
				pid, err := resolveID(ctx, ws.Projects, project, "project")
				if err != nil {
					return err
				}
				sprints = filter(sprints, func(s domain.Sprint) bool { return s.ProjectID == pid })
				tasks = filter(tasks, func(t domain.Task) bool { return t.ProjectID == pid })
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatVelocity(stats.SprintVelocity(sprints, tasks)))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only sprints of this project (ID or unique prefix)")
	return cmd
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
