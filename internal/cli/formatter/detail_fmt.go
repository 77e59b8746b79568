package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled value of a detail card.
type Field struct {
	Label string
	Value string
}

// RenderDetail renders labelled fields in a box, labels right-padded to a
// common width.
func RenderDetail(title string, fields []Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Label))
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		label := Dim(f.Label + strings.Repeat(" ", width-lipgloss.Width(f.Label)))
		lines = append(lines, fmt.Sprintf("%s  %s", label, OrDash(f.Value)))
	}
	return RenderBox(title, strings.Join(lines, "\n"))
}

func stamps(created, updated time.Time, now time.Time) []Field {
	return []Field{
		{"Created", HumanTimestamp(created, now)},
		{"Updated", HumanTimestamp(updated, now)},
	}
}

func FormatProjectDetail(p domain.Project, users Names, now time.Time) string {
	fields := []Field{
		{"ID", p.ID},
		{"Name", Bold(p.Name)},
		{"Status", ProjectStatusPill(p.Status)},
		{"Dates", DateRange(p.StartDate, p.EndDate)},
		{"Owner", optionalName(users, p.OwnerID)},
		{"Team space", p.TeamSpaceID},
		{"Description", p.Description},
	}
	return RenderDetail("Project", append(fields, stamps(p.CreatedAt, p.UpdatedAt, now)...))
}

func FormatTaskDetail(t domain.Task, projects, users Names, now time.Time) string {
	hours := ""
	if t.EstimatedHours > 0 {
		hours = fmt.Sprintf("%gh", t.EstimatedHours)
	}
	fields := []Field{
		{"ID", t.ID},
		{"Title", Bold(t.Title)},
		{"Project", projects.Of(t.ProjectID)},
		{"Sprint", t.SprintID},
		{"Status", TaskStatusPill(t.Status)},
		{"Priority", PriorityBadge(t.Priority)},
		{"Assignee", optionalName(users, t.AssigneeID)},
		{"Due", dueWithDate(t.DueDate, t.IsDone(), now)},
		{"Estimate", hours},
		{"Description", t.Description},
	}
	return RenderDetail("Task", append(fields, stamps(t.CreatedAt, t.UpdatedAt, now)...))
}

func FormatSprintDetail(s domain.Sprint, projects Names, now time.Time) string {
	fields := []Field{
		{"ID", s.ID},
		{"Name", Bold(s.Name)},
		{"Project", projects.Of(s.ProjectID)},
		{"Status", SprintStatusPill(s.Status)},
		{"Dates", DateRange(&s.StartDate, &s.EndDate)},
		{"Goal", s.Goal},
	}
	return RenderDetail("Sprint", append(fields, stamps(s.CreatedAt, s.UpdatedAt, now)...))
}

func FormatBudgetDetail(b domain.Budget, projects Names, now time.Time) string {
	fields := []Field{
		{"ID", b.ID},
		{"Name", Bold(b.Name)},
		{"Project", projects.Of(b.ProjectID)},
		{"Amount", FormatMoney(b.Money)},
		{"Period", DateRange(b.PeriodStart, b.PeriodEnd)},
	}
	return RenderDetail("Budget", append(fields, stamps(b.CreatedAt, b.UpdatedAt, now)...))
}

func FormatCostDetail(c domain.Cost, projects Names, now time.Time) string {
	fields := []Field{
		{"ID", c.ID},
		{"Description", Bold(c.Description)},
		{"Project", projects.Of(c.ProjectID)},
		{"Task", c.TaskID},
		{"Category", c.Category},
		{"Amount", FormatMoney(c.Money)},
		{"Date", ShortDate(c.Date)},
	}
	return RenderDetail("Cost", append(fields, stamps(c.CreatedAt, c.UpdatedAt, now)...))
}

func FormatExpenseDetail(e domain.Expense, projects Names, now time.Time) string {
	project := ""
	if e.ProjectID != "" {
		project = projects.Of(e.ProjectID)
	}
	fields := []Field{
		{"ID", e.ID},
		{"Description", Bold(e.Description)},
		{"Category", StylePurple.Render(e.Category)},
		{"Vendor", e.Vendor},
		{"Project", project},
		{"Amount", FormatMoney(e.Money)},
		{"Date", ShortDate(e.Date)},
	}
	return RenderDetail("Expense", append(fields, stamps(e.CreatedAt, e.UpdatedAt, now)...))
}

func FormatContractDetail(c domain.Contract, projects Names, now time.Time) string {
	project := ""
	if c.ProjectID != "" {
		project = projects.Of(c.ProjectID)
	}
	active := StyleDim.Render("no")
	if c.ActiveOn(now) {
		active = StyleGreen.Render("yes")
	}
	fields := []Field{
		{"ID", c.ID},
		{"Title", Bold(c.Title)},
		{"Counterparty", c.Counterparty},
		{"Status", ContractStatusPill(c.Status)},
		{"Value", FormatMoney(c.Money)},
		{"Term", DateRange(&c.StartDate, c.EndDate)},
		{"In force today", active},
		{"Project", project},
	}
	return RenderDetail("Contract", append(fields, stamps(c.CreatedAt, c.UpdatedAt, now)...))
}

func optionalName(names Names, id string) string {
	if id == "" {
		return ""
	}
	return names.Of(id)
}

func dueWithDate(due *time.Time, done bool, now time.Time) string {
	if due == nil {
		return ""
	}
	if done {
		return Dim(ShortDate(*due))
	}
	return fmt.Sprintf("%s %s", ShortDate(*due), DueDateStyled(due, false, now))
}
