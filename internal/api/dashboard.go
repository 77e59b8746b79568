package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/alexanderramin/tally/internal/domain"
)

// DashboardSummary is the server-side aggregate shown on the dashboard.
type DashboardSummary struct {
	TotalProjects       int            `json:"totalProjects"`
	ActiveProjects      int            `json:"activeProjects"`
	OpenTasks           int            `json:"openTasks"`
	OverdueTasks        int            `json:"overdueTasks"`
	CompletedTasks      int            `json:"completedTasks"`
	Budgeted            []domain.Money `json:"budgeted"`
	Spent               []domain.Money `json:"spent"`
	UnreadNotifications int            `json:"unreadNotifications"`
}

func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	var out DashboardSummary
	if err := c.do(ctx, http.MethodGet, "/dashboard/summary", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("loading dashboard summary: %w", err)
	}
	return &out, nil
}

// MarkNotificationRead marks one notification read and returns it.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	var out domain.Notification
	path := "/" + domain.ResourceNotifications + "/" + url.PathEscape(id) + "/read"
	if err := c.do(ctx, http.MethodPatch, path, nil, nil, &out); err != nil {
		return out, fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return out, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	path := "/" + domain.ResourceNotifications + "/unread-count"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return 0, fmt.Errorf("loading unread count: %w", err)
	}
	return out.Count, nil
}
