package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/shopspring/decimal"
)

// Names maps record IDs to display names, e.g. project ID to project name.
type Names map[string]string

// Of returns the name for id, falling back to the short ID.
func (n Names) Of(id string) string {
	if id == "" {
		return Dim("--")
	}
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return TruncID(id)
}

// ProjectNames indexes projects by ID.
func ProjectNames(projects []domain.Project) Names {
	out := make(Names, len(projects))
	for _, p := range projects {
		out[p.ID] = p.Name
	}
	return out
}

// UserNames indexes users by ID.
func UserNames(users []domain.User) Names {
	out := make(Names, len(users))
	for _, u := range users {
		out[u.ID] = u.Name
	}
	return out
}

func emptyList(kind string) string {
	return Dim(fmt.Sprintf("No %s found.", kind))
}

func FormatProjectList(projects []domain.Project) string {
	if len(projects) == 0 {
		return emptyList("projects")
	}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			TruncID(p.ID),
			Bold(p.Name),
			ProjectStatusPill(p.Status),
			DateRange(p.StartDate, p.EndDate),
		})
	}
	return RenderBox("Projects", RenderTable([]string{"ID", "NAME", "STATUS", "DATES"}, rows))
}

func FormatTaskList(tasks []domain.Task, projects Names, now time.Time) string {
	if len(tasks) == 0 {
		return emptyList("tasks")
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			TruncID(t.ID),
			Truncate(t.Title, 40),
			projects.Of(t.ProjectID),
			TaskStatusPill(t.Status),
			PriorityBadge(t.Priority),
			DueDateStyled(t.DueDate, t.IsDone(), now),
		})
	}
	return RenderBox("Tasks", RenderTable([]string{"ID", "TITLE", "PROJECT", "STATUS", "PRIORITY", "DUE"}, rows))
}

func FormatSprintList(sprints []domain.Sprint, projects Names) string {
	if len(sprints) == 0 {
		return emptyList("sprints")
	}
	rows := make([][]string, 0, len(sprints))
	for _, s := range sprints {
		rows = append(rows, []string{
			TruncID(s.ID),
			Bold(s.Name),
			projects.Of(s.ProjectID),
			SprintStatusPill(s.Status),
			DateRange(&s.StartDate, &s.EndDate),
		})
	}
	return RenderBox("Sprints", RenderTable([]string{"ID", "NAME", "PROJECT", "STATUS", "DATES"}, rows))
}

func FormatBudgetList(budgets []domain.Budget, projects Names) string {
	if len(budgets) == 0 {
		return emptyList("budgets")
	}
	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		rows = append(rows, []string{
			TruncID(b.ID),
			Bold(b.Name),
			projects.Of(b.ProjectID),
			FormatMoney(b.Money),
			DateRange(b.PeriodStart, b.PeriodEnd),
		})
	}
	t := Table{
		Headers: []string{"ID", "NAME", "PROJECT", "AMOUNT", "PERIOD"},
		Rows:    rows,
		Align:   RightAlign(5, 3),
		Footer:  totalsFooter(5, 3, budgets),
	}
	return RenderBox("Budgets", t.Render())
}

func FormatCostList(costs []domain.Cost, projects Names) string {
	if len(costs) == 0 {
		return emptyList("costs")
	}
	rows := make([][]string, 0, len(costs))
	for _, c := range costs {
		rows = append(rows, []string{
			TruncID(c.ID),
			ShortDate(c.Date),
			Truncate(c.Description, 36),
			projects.Of(c.ProjectID),
			OrDash(c.Category),
			FormatMoney(c.Money),
		})
	}
	t := Table{
		Headers: []string{"ID", "DATE", "DESCRIPTION", "PROJECT", "CATEGORY", "AMOUNT"},
		Rows:    rows,
		Align:   RightAlign(6, 5),
		Footer:  totalsFooter(6, 5, costs),
	}
	return RenderBox("Costs", t.Render())
}

func FormatExpenseList(expenses []domain.Expense, projects Names) string {
	if len(expenses) == 0 {
		return emptyList("expenses")
	}
	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []string{
			TruncID(e.ID),
			ShortDate(e.Date),
			Truncate(e.Description, 36),
			StylePurple.Render(e.Category),
			OrDash(e.Vendor),
			projects.Of(e.ProjectID),
			FormatMoney(e.Money),
		})
	}
	t := Table{
		Headers: []string{"ID", "DATE", "DESCRIPTION", "CATEGORY", "VENDOR", "PROJECT", "AMOUNT"},
		Rows:    rows,
		Align:   RightAlign(7, 6),
		Footer:  totalsFooter(7, 6, expenses),
	}
	return RenderBox("Expenses", t.Render())
}

func FormatContractList(contracts []domain.Contract, now time.Time) string {
	if len(contracts) == 0 {
		return emptyList("contracts")
	}
	rows := make([][]string, 0, len(contracts))
	for _, c := range contracts {
		end := Dim("open-ended")
		if c.EndDate != nil {
			end = DueDateStyled(c.EndDate, !c.ActiveOn(now), now)
		}
		rows = append(rows, []string{
			TruncID(c.ID),
			Bold(Truncate(c.Title, 32)),
			c.Counterparty,
			ContractStatusPill(c.Status),
			FormatMoney(c.Money),
			end,
		})
	}
	t := Table{
		Headers: []string{"ID", "TITLE", "COUNTERPARTY", "STATUS", "VALUE", "ENDS"},
		Rows:    rows,
		Align:   RightAlign(6, 4),
	}
	return RenderBox("Contracts", t.Render())
}

func FormatUserList(users []domain.User) string {
	if len(users) == 0 {
		return emptyList("users")
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{TruncID(u.ID), Bold(u.Name), u.Email, OrDash(string(u.Role))})
	}
	return RenderBox("Users", RenderTable([]string{"ID", "NAME", "EMAIL", "ROLE"}, rows))
}

func FormatTeamList(teams []domain.TeamSpace) string {
	if len(teams) == 0 {
		return emptyList("team spaces")
	}
	rows := make([][]string, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, []string{
			TruncID(t.ID),
			Bold(t.Name),
			strconv.Itoa(len(t.MemberIDs)),
			OrDash(Truncate(t.Description, 48)),
		})
	}
	tbl := Table{
		Headers: []string{"ID", "NAME", "MEMBERS", "DESCRIPTION"},
		Rows:    rows,
		Align:   RightAlign(4, 2),
	}
	return RenderBox("Team spaces", tbl.Render())
}

// NotificationLine renders one notification as a single line.
func NotificationLine(n domain.Notification, now time.Time) string {
	marker := StyleYellow.Render("●")
	title := Bold(n.Title)
	if n.Read {
		marker = Dim("○")
		title = StyleFg.Render(n.Title)
	}
	line := fmt.Sprintf("%s %s %s", marker, title, Dim("· "+HumanTimestamp(n.CreatedAt, now)))
	if n.Message != "" {
		line += "\n  " + Dim(Truncate(n.Message, 72))
	}
	return line
}

func FormatNotificationList(ns []domain.Notification, now time.Time) string {
	if len(ns) == 0 {
		return emptyList("notifications")
	}
	unread := 0
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		if !n.Read {
			unread++
		}
		lines = append(lines, TruncID(n.ID)+"  "+NotificationLine(n, now))
	}
	title := fmt.Sprintf("Notifications (%d unread)", unread)
	return RenderBox(title, strings.Join(lines, "\n"))
}

// totalsFooter sums amounts per currency into the given column.
func totalsFooter[T domain.Priced](cols, at int, items []T) []string {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, it := range items {
		m := it.Price()
		if _, ok := totals[m.Currency]; !ok {
			order = append(order, m.Currency)
		}
		totals[m.Currency] = totals[m.Currency].Add(m.Amount)
	}
	parts := make([]string, 0, len(order))
	for _, c := range order {
		parts = append(parts, FormatMoney(domain.Money{Amount: totals[c], Currency: c}))
	}
	footer := make([]string, cols)
	footer[0] = Bold("Total")
	footer[at] = Bold(strings.Join(parts, " + "))
	return footer
}
