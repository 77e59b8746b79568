package domain

import "time"

type Budget struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Money
	PeriodStart *time.Time `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time `json:"periodEnd,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (b Budget) GetID() string { return b.ID }

// OccurredAt places the budget at the start of its period, falling back to
// its creation time.
func (b Budget) OccurredAt() time.Time {
	if b.PeriodStart != nil {
		return *b.PeriodStart
	}
	return b.CreatedAt
}

func (b Budget) Validate() error {
	v := newValidator("budget")
	v.required("name", b.Name)
	v.required("projectId", b.ProjectID)
	v.money(b.Money)
	v.ordered("periodStart", b.PeriodStart, "periodEnd", b.PeriodEnd)
	return v.err()
}

// Cost is a cost booked against a project and optionally one of its tasks.
type Cost struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	TaskID      string `json:"taskId,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Money
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Cost) GetID() string         { return c.ID }
func (c Cost) OccurredAt() time.Time { return c.Date }

func (c Cost) Validate() error {
	v := newValidator("cost")
	v.required("description", c.Description)
	v.required("projectId", c.ProjectID)
	v.money(c.Money)
	if c.Date.IsZero() {
		v.fail("date", "is required")
	}
	return v.err()
}

type Expense struct {
	ID        string `json:"id"`
	ProjectID   string `json:"projectId,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Vendor      string `json:"vendor,omitempty"`
	Money
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e Expense) GetID() string         { return e.ID }
func (e Expense) OccurredAt() time.Time { return e.Date }

func (e Expense) Validate() error {
	v := newValidator("expense")
	v.required("description", e.Description)
	v.required("category", e.Category)
	v.money(e.Money)
	if e.Date.IsZero() {
		v.fail("date", "is required")
	}
	return v.err()
}

type Contract struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"projectId,omitempty"`
	Title        string         `json:"title"`
	Counterparty string         `json:"counterparty"`
	Status       ContractStatus `json:"status"`
	Money
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (c Contract) GetID() string         { return c.ID }
func (c Contract) OccurredAt() time.Time { return c.StartDate }

func (c Contract) Validate() error {
	v := newValidator("contract")
	v.required("title", c.Title)
	v.required("counterparty", c.Counterparty)
	v.money(c.Money)
	if c.Status != "" && !ValidContractStatuses[c.Status] {
		v.fail("status", "is not a known contract status")
	}
	if c.StartDate.IsZero() {
		v.fail("startDate", "is required")
	}
	v.ordered("startDate", timePtr(c.StartDate), "endDate", c.EndDate)
	return v.err()
}

// ActiveOn reports whether the contract covers the given day.
func (c Contract) ActiveOn(day time.Time) bool {
	if c.Status != ContractActive {
		return false
	}
	if day.Before(c.StartDate) {
		return false
	}
	return c.EndDate == nil || !day.After(*c.EndDate)
}
