package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProjectValidate(t *testing.T) {
	start := day(2026, 3, 1)
	end := day(2026, 2, 1)

	tests := []struct {
		name    string
		project Project
		fields  []string
	}{
		{"valid", Project{Name: "Website"}, nil},
		{"missing name", Project{}, []string{"name"}},
		{"unknown status", Project{Name: "x", Status: "paused"}, []string{"status"}},
		{"end before start", Project{Name: "x", StartDate: &start, EndDate: &end}, []string{"endDate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.fields {
				assert.True(t, verr.Has(f), "expected %s to fail", f)
			}
		})
	}
}

func TestFinancialValidate_AmountAndCurrency(t *testing.T) {
	cost := Cost{
		ProjectID:   "p1",
		Description: "hosting",
		Money:       Money{Amount: decimal.NewFromInt(-5), Currency: "eur"},
		Date:        day(2026, 1, 10),
	}
	err := cost.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("amount"))
	assert.True(t, verr.Has("currency"))
	assert.Contains(t, err.Error(), "invalid cost")

	cost.Money = Money{Amount: decimal.RequireFromString("12.50"), Currency: "EUR"}
	assert.NoError(t, cost.Validate())
}

func TestBudgetValidate_CollectsAllFields(t *testing.T) {
	err := Budget{}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
	assert.Equal(t, "budget", verr.Resource)
}

func TestSprintValidate_DateOrdering(t *testing.T) {
	s := Sprint{Name: "S1", ProjectID: "p1", StartDate: day(2026, 1, 14), EndDate: day(2026, 1, 1)}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endDate must not be before startDate")

	s.EndDate = day(2026, 1, 28)
	assert.NoError(t, s.Validate())
}

func TestContractActiveOn(t *testing.T) {
	end := day(2026, 6, 30)
	c := Contract{Status: ContractActive, StartDate: day(2026, 1, 1), EndDate: &end}

	assert.True(t, c.ActiveOn(day(2026, 3, 1)))
	assert.True(t, c.ActiveOn(end))
	assert.False(t, c.ActiveOn(day(2025, 12, 31)))
	assert.False(t, c.ActiveOn(day(2026, 7, 1)))

	c.Status = ContractDraft
	assert.False(t, c.ActiveOn(day(2026, 3, 1)))
}

func TestMoneyJSONIsFlat(t *testing.T) {
	e := Expense{ID: "e1", Description: "train", Category: "travel",
		Money: Money{Amount: decimal.RequireFromString("42.10"), Currency: "USD"}}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "USD", raw["currency"])
	assert.Equal(t, "42.1", raw["amount"])

	var back Expense
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e2","amount":19.99,"currency":"USD"}`), &back))
	assert.True(t, back.Amount.Equal(decimal.RequireFromString("19.99")))
}

func TestUnreadCount(t *testing.T) {
	assert.Equal(t, 0, UnreadCount(nil))
	assert.Equal(t, 2, UnreadCount([]Notification{{ID: "a"}, {ID: "b", Read: true}, {ID: "c"}}))
}
