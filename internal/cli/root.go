package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "tally" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tally",
		Short:         "Projects, tasks and costs from the terminal, online or off",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&app.offline, "offline", false, "Read from the local mirror only; never contact the server")

	root.AddCommand(
		newResourceCmd(app, projectCommand),
		newResourceCmd(app, taskCommand),
		newResourceCmd(app, sprintCommand),
		newResourceCmd(app, budgetCommand),
		newResourceCmd(app, costCommand),
		newResourceCmd(app, expenseCommand),
		newResourceCmd(app, contractCommand),
		newUserCmd(app),
		newTeamCmd(app),
		newStatsCmd(app),
		newDashboardCmd(app),
		newNotificationsCmd(app),
		newSyncCmd(app),
		newCacheCmd(app),
	)

	return root
}
