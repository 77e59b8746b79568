package cli

import (
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/alexanderramin/tally/internal/stats"
)

func byProject(projectID string) reconcile.Scope {
	return reconcile.Scope{Field: "projectId", Value: projectID}
}

var projectCommand = resourceSpec[domain.Project]{
	noun:     "project",
	plural:   "projects",
	aliases:  []string{"projects", "p"},
	of:       func(ws *reconcile.Workspace) *reconcile.Resource[domain.Project] { return ws.Projects },
	label:    func(p domain.Project) string { return p.Name },
	defaults: func(time.Time) domain.Project { return domain.Project{Status: domain.ProjectPlanning} },
	fields: []field[domain.Project]{
		textField("name", "Project name", func(p *domain.Project) *string { return &p.Name }),
		textField("description", "Description", func(p *domain.Project) *string { return &p.Description }),
		enumField("status", "planning, active, on-hold, completed or cancelled", func(p *domain.Project) *domain.ProjectStatus { return &p.Status }),
		optDateField("start", "Start date", func(p *domain.Project) **time.Time { return &p.StartDate }),
		optDateField("end", "End date", func(p *domain.Project) **time.Time { return &p.EndDate }),
		refField("owner", "Owning user", domain.ResourceUsers, func(p *domain.Project) *string { return &p.OwnerID }),
		refField("team", "Team space", domain.ResourceTeamSpaces, func(p *domain.Project) *string { return &p.TeamSpaceID }),
	},
	list: func(_ *view, items []domain.Project) string { return formatter.FormatProjectList(items) },
	detail: func(v *view, p domain.Project) string {
		scope := byProject(p.ID)
		mine := func(id string) bool { return id == p.ID }
		sprints := v.ws.Sprints.QueryWhere(v.ctx, scope, func(s domain.Sprint) bool { return mine(s.ProjectID) }).Data
		tasks := v.ws.Tasks.QueryWhere(v.ctx, scope, func(t domain.Task) bool { return mine(t.ProjectID) }).Data
		budgets := v.ws.Budgets.QueryWhere(v.ctx, scope, func(b domain.Budget) bool { return mine(b.ProjectID) }).Data
		costs := v.ws.Costs.QueryWhere(v.ctx, scope, func(c domain.Cost) bool { return mine(c.ProjectID) }).Data

		parts := []string{formatter.FormatProjectDetail(p, v.users(), v.now)}
		if tree := formatter.RenderTree(formatter.ProjectTree(sprints, tasks)); tree != "" {
			parts = append(parts, formatter.RenderBox("Plan", tree))
		}
		if util := stats.BudgetUtilization(budgets, costs, nil); len(util) > 0 {
			parts = append(parts, formatter.FormatUtilization(util, formatter.Names{p.ID: p.Name}))
		}
		return strings.Join(parts, "\n")
	},
}

var taskCommand = resourceSpec[domain.Task]{
	noun:      "task",
	plural:    "tasks",
	aliases:   []string{"tasks", "t"},
	of:        func(ws *reconcile.Workspace) *reconcile.Resource[domain.Task] { return ws.Tasks },
	projectOf: func(t domain.Task) string { return t.ProjectID },
	label:     func(t domain.Task) string { return t.Title },
	defaults: func(time.Time) domain.Task {
		return domain.Task{Status: domain.TaskTodo, Priority: domain.PriorityMedium}
	},
	fields: []field[domain.Task]{
		textField("title", "Task title", func(t *domain.Task) *string { return &t.Title }),
		textField("description", "Description", func(t *domain.Task) *string { return &t.Description }),
		refField("project", "Project", domain.ResourceProjects, func(t *domain.Task) *string { return &t.ProjectID }),
		refField("sprint", "Sprint", domain.ResourceSprints, func(t *domain.Task) *string { return &t.SprintID }),
		refField("assignee", "Assigned user", domain.ResourceUsers, func(t *domain.Task) *string { return &t.AssigneeID }),
		enumField("status", "todo, in-progress, review or done", func(t *domain.Task) *domain.TaskStatus { return &t.Status }),
		enumField("priority", "low, medium, high or urgent", func(t *domain.Task) *domain.TaskPriority { return &t.Priority }),
		optDateField("due", "Due date", func(t *domain.Task) **time.Time { return &t.DueDate }),
		hoursField("estimate", "Estimated hours", func(t *domain.Task) *float64 { return &t.EstimatedHours }),
	},
	list: func(v *view, items []domain.Task) string {
		return formatter.FormatTaskList(items, v.projects(), v.now)
	},
	detail: func(v *view, t domain.Task) string {
		return formatter.FormatTaskDetail(t, v.projects(), v.users(), v.now)
	},
}

var sprintCommand = resourceSpec[domain.Sprint]{
	noun:      "sprint",
	plural:    "sprints",
	aliases:   []string{"sprints"},
	of:        func(ws *reconcile.Workspace) *reconcile.Resource[domain.Sprint] { return ws.Sprints },
	projectOf: func(s domain.Sprint) string { return s.ProjectID },
	label:     func(s domain.Sprint) string { return s.Name },
	defaults:  func(time.Time) domain.Sprint { return domain.Sprint{Status: domain.SprintPlanned} },
	fields: []field[domain.Sprint]{
		textField("name", "Sprint name", func(s *domain.Sprint) *string { return &s.Name }),
		textField("goal", "Sprint goal", func(s *domain.Sprint) *string { return &s.Goal }),
		refField("project", "Project", domain.ResourceProjects, func(s *domain.Sprint) *string { return &s.ProjectID }),
		enumField("status", "planned, active or completed", func(s *domain.Sprint) *domain.SprintStatus { return &s.Status }),
		dateField("start", "Start date (YYYY-MM-DD)", func(s *domain.Sprint) *time.Time { return &s.StartDate }),
		dateField("end", "End date (YYYY-MM-DD)", func(s *domain.Sprint) *time.Time { return &s.EndDate }),
	},
	list: func(v *view, items []domain.Sprint) string {
		return formatter.FormatSprintList(items, v.projects())
	},
	detail: func(v *view, s domain.Sprint) string {
		tasks := v.ws.Tasks.QueryWhere(v.ctx, byProject(s.ProjectID), func(t domain.Task) bool { return t.ProjectID == s.ProjectID }).Data
		out := formatter.FormatSprintDetail(s, v.projects(), v.now)
		if vel := stats.SprintVelocity([]domain.Sprint{s}, tasks); len(vel) == 1 && vel[0].Total > 0 {
			out += "\n" + formatter.FormatVelocity(vel)
		}
		return out
	},
}

var budgetCommand = resourceSpec[domain.Budget]{
	noun:      "budget",
	plural:    "budgets",
	aliases:   []string{"budgets"},
	of:        func(ws *reconcile.Workspace) *reconcile.Resource[domain.Budget] { return ws.Budgets },
	projectOf: func(b domain.Budget) string { return b.ProjectID },
	label:     func(b domain.Budget) string { return b.Name },
	defaults:  func(time.Time) domain.Budget { return domain.Budget{} },
	fields: []field[domain.Budget]{
		textField("name", "Budget name", func(b *domain.Budget) *string { return &b.Name }),
		refField("project", "Project", domain.ResourceProjects, func(b *domain.Budget) *string { return &b.ProjectID }),
		amountField(func(b *domain.Budget) *domain.Money { return &b.Money }),
		currencyField(func(b *domain.Budget) *domain.Money { return &b.Money }),
		optDateField("from", "Period start", func(b *domain.Budget) **time.Time { return &b.PeriodStart }),
		optDateField("to", "Period end", func(b *domain.Budget) **time.Time { return &b.PeriodEnd }),
	},
	list: func(v *view, items []domain.Budget) string {
		return formatter.FormatBudgetList(items, v.projects())
	},
	detail: func(v *view, b domain.Budget) string {
		return formatter.FormatBudgetDetail(b, v.projects(), v.now)
	},
}

var costCommand = resourceSpec[domain.Cost]{
	noun:      "cost",
	plural:    "costs",
	aliases:   []string{"costs"},
	of:        func(ws *reconcile.Workspace) *reconcile.Resource[domain.Cost] { return ws.Costs },
	projectOf: func(c domain.Cost) string { return c.ProjectID },
	label:     func(c domain.Cost) string { return c.Description },
	defaults:  func(now time.Time) domain.Cost { return domain.Cost{Date: today(now)} },
	fields: []field[domain.Cost]{
		textField("description", "What the cost was for", func(c *domain.Cost) *string { return &c.Description }),
		refField("project", "Project", domain.ResourceProjects, func(c *domain.Cost) *string { return &c.ProjectID }),
		refField("task", "Task", domain.ResourceTasks, func(c *domain.Cost) *string { return &c.TaskID }),
		textField("category", "Category", func(c *domain.Cost) *string { return &c.Category }),
		amountField(func(c *domain.Cost) *domain.Money { return &c.Money }),
		currencyField(func(c *domain.Cost) *domain.Money { return &c.Money }),
		dateField("date", "Date booked (YYYY-MM-DD, default today)", func(c *domain.Cost) *time.Time { return &c.Date }),
	},
	list: func(v *view, items []domain.Cost) string {
		return formatter.FormatCostList(items, v.projects())
	},
	detail: func(v *view, c domain.Cost) string {
		return formatter.FormatCostDetail(c, v.projects(), v.now)
	},
}

var expenseCommand = resourceSpec[domain.Expense]{
	noun:      "expense",
	plural:    "expenses",
	aliases:   []string{"expenses"},
	of:        func(ws *reconcile.Workspace) *reconcile.Resource[domain.Expense] { return ws.Expenses },
	projectOf: func(e domain.Expense) string { return e.ProjectID },
	label:     func(e domain.Expense) string { return e.Description },
	defaults:  func(now time.Time) domain.Expense { return domain.Expense{Date: today(now)} },
	fields: []field[domain.Expense]{
		textField("description", "What was bought", func(e *domain.Expense) *string { return &e.Description }),
		textField("category", "Category, e.g. travel", func(e *domain.Expense) *string { return &e.Category }),
		textField("vendor", "Vendor", func(e *domain.Expense) *string { return &e.Vendor }),
		refField("project", "Project", domain.ResourceProjects, func(e *domain.Expense) *string { return &e.ProjectID }),
		amountField(func(e *domain.Expense) *domain.Money { return &e.Money }),
		currencyField(func(e *domain.Expense) *domain.Money { return &e.Money }),
		dateField("date", "Date spent (YYYY-MM-DD, default today)", func(e *domain.Expense) *time.Time { return &e.Date }),
	},
	list: func(v *view, items []domain.Expense) string {
		return formatter.FormatExpenseList(items, v.projects())
	},
	detail: func(v *view, e domain.Expense) string {
		return formatter.FormatExpenseDetail(e, v.projects(), v.now)
	},
}

var contractCommand = resourceSpec[domain.Contract]{
	noun:      "contract",
	plural:    "contracts",
	aliases:   []string{"contracts"},
	of:        func(ws *reconcile.Workspace) *reconcile.Resource[domain.Contract] { return ws.Contracts },
	projectOf: func(c domain.Contract) string { return c.ProjectID },
	label:     func(c domain.Contract) string { return c.Title },
	defaults: func(now time.Time) domain.Contract {
		return domain.Contract{Status: domain.ContractDraft, StartDate: today(now)}
	},
	fields: []field[domain.Contract]{
		textField("title", "Contract title", func(c *domain.Contract) *string { return &c.Title }),
		textField("counterparty", "Other party", func(c *domain.Contract) *string { return &c.Counterparty }),
		refField("project", "Project", domain.ResourceProjects, func(c *domain.Contract) *string { return &c.ProjectID }),
		enumField("status", "draft, active, expired or terminated", func(c *domain.Contract) *domain.ContractStatus { return &c.Status }),
		amountField(func(c *domain.Contract) *domain.Money { return &c.Money }),
		currencyField(func(c *domain.Contract) *domain.Money { return &c.Money }),
		dateField("start", "Start date (YYYY-MM-DD, default today)", func(c *domain.Contract) *time.Time { return &c.StartDate }),
		optDateField("end", "End date", func(c *domain.Contract) **time.Time { return &c.EndDate }),
	},
	list: func(v *view, items []domain.Contract) string {
		return formatter.FormatContractList(items, v.now)
	},
	detail: func(v *view, c domain.Contract) string {
		return formatter.FormatContractDetail(c, v.projects(), v.now)
	},
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
