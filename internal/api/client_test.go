package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResource_CRUDRoundTrip(t *testing.T) {
	srv := testutil.NewFakeAPI(t)
	srv.Token = "secret"
	c := NewClient(Config{BaseURL: srv.URL, Token: "secret"}, NoopObserver{})
	projects := NewResource[domain.Project](c, domain.ResourceProjects)
	ctx := context.Background()

	created, err := projects.Create(ctx, domain.Project{Name: "Website", Status: domain.ProjectActive})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	list, err := projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Website", list[0].Name)

	created.Name = "Website v2"
	updated, err := projects.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Website v2", updated.Name)

	got, err := projects.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Website v2", got.Name)

	require.NoError(t, projects.Delete(ctx, created.ID))
	_, err = projects.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResource_ListWhereFiltersByQuery(t *testing.T) {
	srv := testutil.NewFakeAPI(t)
	p1 := testutil.NewTestProject("One")
	p2 := testutil.NewTestProject("Two")
	srv.Seed(domain.ResourceTasks,
		testutil.NewTestTask(p1.ID, "a"),
		testutil.NewTestTask(p2.ID, "b"),
	)

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	tasks := NewResource[domain.Task](c, domain.ResourceTasks)

	got, err := tasks.ListWhere(context.Background(), url.Values{"projectId": {p2.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)
}

func TestClient_UnauthorizedWithoutToken(t *testing.T) {
	srv := testutil.NewFakeAPI(t)
	srv.Token = "secret"
	c := NewClient(Config{BaseURL: srv.URL}, nil)

	_, err := NewResource[domain.Budget](c, domain.ResourceBudgets).List(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestClient_ValidationMessageList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode":400,"message":["amount must be positive","currency is required"],"error":"Bad Request"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := NewResource[domain.Cost](c, domain.ResourceCosts).Create(context.Background(), domain.Cost{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount must be positive; currency is required")
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClient_DataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"s1","name":"Sprint 1","projectId":"p1"}],"total":1}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	got, err := NewResource[domain.Sprint](c, domain.ResourceSprints).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sprint 1", got[0].Name)
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: base}, nil)
	_, err := NewResource[domain.Task](c, domain.ResourceTasks).List(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_NotificationsEndpoints(t *testing.T) {
	srv := testutil.NewFakeAPI(t)
	n1 := testutil.NewTestNotification("budget exceeded")
	n2 := testutil.NewTestNotification("task assigned")
	srv.Seed(domain.ResourceNotifications, n1, n2)
	c := NewClient(Config{BaseURL: srv.URL}, nil)
	ctx := context.Background()

	count, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	read, err := c.MarkNotificationRead(ctx, n1.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	count, err = c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_DashboardSummary(t *testing.T) {
	srv := testutil.NewFakeAPI(t)
	srv.SetSummary(map[string]any{
		"totalProjects": 3,
		"openTasks":     7,
		"spent":         []map[string]any{{"amount": "120.50", "currency": "EUR"}},
	})
	c := NewClient(Config{BaseURL: srv.URL}, nil)

	sum, err := c.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalProjects)
	assert.Equal(t, 7, sum.OpenTasks)
	require.Len(t, sum.Spent, 1)
	assert.Equal(t, "120.5", sum.Spent[0].Amount.String())
	require.NoError(t, c.Ping(context.Background()))
}

func TestLogObserver_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	srv := testutil.NewFakeAPI(t)
	srv.FailNext(http.MethodGet, "/contracts", http.StatusInternalServerError)

	c := NewClient(Config{BaseURL: srv.URL}, NewLogObserver(zap.New(core)))
	contracts := NewResource[domain.Contract](c, domain.ResourceContracts)

	_, err := contracts.List(context.Background())
	require.Error(t, err)
	_, err = contracts.List(context.Background())
	require.NoError(t, err)

	warn := logs.FilterMessage("API call failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "HTTP_500", warn[0].ContextMap()["error_code"])
	assert.Equal(t, 1, logs.FilterMessage("API call").Len())
}

func TestClient_SendsRequestIDReportedToObserver(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := NewClient(Config{BaseURL: srv.URL}, NewLogObserver(zap.New(core)))
	_, err := NewResource[domain.User](c, domain.ResourceUsers).List(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	entries := logs.FilterMessage("API call").All()
	require.Len(t, entries, 1)
	assert.Equal(t, seen, entries[0].ContextMap()["request_id"])
}
