package domain

// Resource names. They double as REST path segments, cache key roots and
// mirror storage key prefixes.
const (
	ResourceProjects      = "projects"
	ResourceTasks         = "tasks"
	ResourceSprints       = "sprints"
	ResourceBudgets       = "budgets"
	ResourceCosts         = "costs"
	ResourceExpenses      = "expenses"
	ResourceContracts     = "contracts"
	ResourceUsers         = "users"
	ResourceTeamSpaces    = "team-spaces"
	ResourceNotifications = "notifications"
)

// AllResources lists every mirrored resource in sync order.
var AllResources = []string{
	ResourceProjects,
	ResourceSprints,
	ResourceTasks,
	ResourceBudgets,
	ResourceCosts,
	ResourceExpenses,
	ResourceContracts,
	ResourceUsers,
	ResourceTeamSpaces,
	ResourceNotifications,
}
