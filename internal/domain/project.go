package domain

import "time"

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	TeamSpaceID string        `json:"teamSpaceId,omitempty"`
	OwnerID     string        `json:"ownerId,omitempty"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (p Project) GetID() string { return p.ID }

// Validate applies the project form rules.
func (p Project) Validate() error {
	v := newValidator("project")
	v.required("name", p.Name)
	if p.Status != "" && !ValidProjectStatuses[p.Status] {
		v.fail("status", "is not a known project status")
	}
	v.ordered("startDate", p.StartDate, "endDate", p.EndDate)
	return v.err()
}

// DisplayID returns the first 8 characters of the ID for compact listings.
func (p Project) DisplayID() string {
	return ShortID(p.ID)
}

// ShortID truncates an identifier to 8 characters.
func ShortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
