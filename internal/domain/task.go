package domain

import "time"

type Task struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"projectId"`
	SprintID       string       `json:"sprintId,omitempty"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority,omitempty"`
	AssigneeID     string       `json:"assigneeId,omitempty"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	EstimatedHours float64      `json:"estimatedHours,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func (t Task) GetID() string { return t.ID }

func (t Task) Validate() error {
	v := newValidator("task")
	v.required("title", t.Title)
	v.required("projectId", t.ProjectID)
	if t.Priority != "" && !ValidTaskPriorities[t.Priority] {
		v.fail("priority", "is not a known priority")
	}
	v.nonNegative("estimatedHours", t.EstimatedHours)
	return v.err()
}

// IsDone reports whether the task is in the final board column.
func (t Task) IsDone() bool { return t.Status == TaskDone }

type Sprint struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal,omitempty"`
	Status    SprintStatus `json:"status"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (s Sprint) GetID() string { return s.ID }

func (s Sprint) Validate() error {
	v := newValidator("sprint")
	v.required("name", s.Name)
	v.required("projectId", s.ProjectID)
	if s.StartDate.IsZero() {
		v.fail("startDate", "is required")
	}
	if s.EndDate.IsZero() {
		v.fail("endDate", "is required")
	}
	v.ordered("startDate", timePtr(s.StartDate), "endDate", timePtr(s.EndDate))
	return v.err()
}
