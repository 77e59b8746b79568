package testutil

import (
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Day returns midnight UTC of the given date.
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Amount parses a decimal literal, panicking on bad input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Project options
type ProjectOption func(*domain.Project)

func WithProjectStatus(s domain.ProjectStatus) ProjectOption {
	return func(p *domain.Project) {
		p.Status = s
	}
}

func WithProjectDates(start, end time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.StartDate = &start
		p.EndDate = &end
	}
}

func NewTestProject(name string, opts ...ProjectOption) domain.Project {
	now := time.Now().UTC()
	p := domain.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    domain.ProjectActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Task options
type TaskOption func(*domain.Task)

func WithTaskStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithSprint(id string) TaskOption {
	return func(t *domain.Task) {
		t.SprintID = id
	}
}

func WithDueDate(d time.Time) TaskOption {
	return func(t *domain.Task) {
		t.DueDate = &d
	}
}

func NewTestTask(projectID, title string, opts ...TaskOption) domain.Task {
	now := time.Now().UTC()
	t := domain.Task{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Title:     title,
		Status:    domain.TaskTodo,
		Priority:  domain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func NewTestSprint(projectID, name string, start, end time.Time) domain.Sprint {
	now := time.Now().UTC()
	return domain.Sprint{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Status:    domain.SprintActive,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewTestBudget(projectID, amount, currency string) domain.Budget {
	now := time.Now().UTC()
	return domain.Budget{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      "Budget " + currency,
		Money:     domain.Money{Amount: Amount(amount), Currency: currency},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewTestCost(projectID, amount, currency string, date time.Time) domain.Cost {
	now := time.Now().UTC()
	return domain.Cost{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Description: "cost " + amount,
		Money:       domain.Money{Amount: Amount(amount), Currency: currency},
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewTestExpense(category, amount, currency string, date time.Time) domain.Expense {
	now := time.Now().UTC()
	return domain.Expense{
		ID:          uuid.New().String(),
		Description: category + " " + amount,
		Category:    category,
		Money:       domain.Money{Amount: Amount(amount), Currency: currency},
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewTestContract(title, amount, currency string, start time.Time) domain.Contract {
	now := time.Now().UTC()
	return domain.Contract{
		ID:           uuid.New().String(),
		Title:        title,
		Counterparty: "Acme GmbH",
		Status:       domain.ContractActive,
		Money:        domain.Money{Amount: Amount(amount), Currency: currency},
		StartDate:    start,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewTestNotification(title string) domain.Notification {
	return domain.Notification{
		ID:        uuid.New().String(),
		Type:      "info",
		Title:     title,
		Message:   title,
		CreatedAt: time.Now().UTC(),
	}
}
