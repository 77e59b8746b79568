package reconcile

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/tally/internal/api"
	"github.com/alexanderramin/tally/internal/cache"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/mirror"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	srv     *testutil.FakeAPI
	client  *api.Client
	cache   *cache.Cache
	storage mirror.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := testutil.NewFakeAPI(t)
	return &fixture{
		srv:     srv,
		client:  api.NewClient(api.Config{BaseURL: srv.URL}, api.NoopObserver{}),
		cache:   cache.New(),
		storage: mirror.NewMemoryStorage(),
	}
}

func newProjects(t *testing.T, f *fixture, opts ...ResourceOption) *Resource[domain.Project] {
	t.Helper()
	store, err := mirror.Open[domain.Project](context.Background(), domain.ResourceProjects, f.storage)
	require.NoError(t, err)
	return NewResource[domain.Project](api.NewResource[domain.Project](f.client, domain.ResourceProjects), f.cache, store, opts...)
}

func TestQuery_FreshResultReplacesMirror(t *testing.T) {
	f := newFixture(t)
	a := testutil.NewTestProject("Alpha")
	b := testutil.NewTestProject("Beta")
	f.srv.Seed(domain.ResourceProjects, a, b)
	projects := newProjects(t, f)
	ctx := context.Background()

	st := projects.Query(ctx)
	require.NoError(t, st.Error)
	assert.False(t, st.IsPlaceholder)
	assert.Equal(t, []string{a.ID, b.ID}, domain.IDs(st.Data))
	assert.Equal(t, []string{a.ID, b.ID}, domain.IDs(projects.Mirror().List()))
	assert.False(t, st.UpdatedAt.IsZero())

	// Fresh within the stale window: no second request.
	projects.Query(ctx)
	assert.Equal(t, 1, f.srv.Requests(http.MethodGet, "/projects"))
}

func TestQuery_FailureServesMirrorPlaceholder(t *testing.T) {
	f := newFixture(t)
	projects := newProjects(t, f)
	ctx := context.Background()

	cached := testutil.NewTestProject("Cached")
	require.NoError(t, projects.Mirror().Replace(ctx, []domain.Project{cached}))
	f.srv.FailNext(http.MethodGet, "/projects", http.StatusInternalServerError)

	st := projects.Query(ctx)
	require.Error(t, st.Error)
	assert.True(t, st.IsPlaceholder)
	assert.Equal(t, []string{cached.ID}, domain.IDs(st.Data))
	// The failed fetch did not wipe the mirror.
	assert.Equal(t, 1, projects.Mirror().Len())
}

func TestQuery_FailureRecordsSyncError(t *testing.T) {
	f := newFixture(t)
	storage := mirror.NewSQLiteStorage(testutil.NewTestDB(t))
	f.storage = storage
	projects := newProjects(t, f)
	f.srv.FailNext(http.MethodGet, "/projects", http.StatusBadGateway)

	st := projects.Query(context.Background())
	require.Error(t, st.Error)

	states, err := storage.SyncStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, domain.ResourceProjects, states[0].Resource)
	assert.Contains(t, states[0].LastError, "502")
}

func TestCreate_PrependsAndInvalidates(t *testing.T) {
	f := newFixture(t)
	existing := testutil.NewTestProject("Existing")
	f.srv.Seed(domain.ResourceProjects, existing)
	projects := newProjects(t, f)
	ctx := context.Background()

	projects.Query(ctx)

	created, err := projects.Create(ctx, domain.Project{Name: "New", Status: domain.ProjectPlanning})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// A read of the mirror before any refetch already shows the record first.
	assert.Equal(t, []string{created.ID, existing.ID}, domain.IDs(projects.Cached().Data))

	snap, ok := f.cache.Peek(projects.Key())
	require.True(t, ok)
	assert.True(t, snap.Stale)

	st := projects.Query(ctx)
	require.NoError(t, st.Error)
	assert.Len(t, st.Data, 2)
	assert.Equal(t, 2, f.srv.Requests(http.MethodGet, "/projects"))
}

func TestCreate_ServerFailureLeavesMirrorUnchanged(t *testing.T) {
	f := newFixture(t)
	existing := testutil.NewTestProject("Existing")
	f.srv.Seed(domain.ResourceProjects, existing)
	projects := newProjects(t, f)
	ctx := context.Background()
	projects.Query(ctx)

	f.srv.FailNext(http.MethodPost, "/projects", http.StatusInternalServerError)
	_, err := projects.Create(ctx, domain.Project{Name: "Doomed"})
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, []string{existing.ID}, domain.IDs(projects.Mirror().List()))

	snap, _ := f.cache.Peek(projects.Key())
	assert.False(t, snap.Stale)
	assert.False(t, projects.IsCreating())
}

func TestCreate_InvalidRecordNeverReachesServer(t *testing.T) {
	f := newFixture(t)
	projects := newProjects(t, f)

	_, err := projects.Create(context.Background(), domain.Project{Status: domain.ProjectActive})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("name"))
	assert.Zero(t, f.srv.Requests(http.MethodPost, "/projects"))
}

func TestUpdate_ReplacesMirrorEntryInPlace(t *testing.T) {
	f := newFixture(t)
	a := testutil.NewTestProject("Alpha")
	b := testutil.NewTestProject("Beta")
	f.srv.Seed(domain.ResourceProjects, a, b)
	projects := newProjects(t, f)
	ctx := context.Background()
	projects.Query(ctx)

	b.Name = "Beta v2"
	updated, err := projects.Update(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "Beta v2", updated.Name)

	list := projects.Mirror().List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, "Beta v2", list[1].Name)
}

func TestDelete_RemovesFromMirror(t *testing.T) {
	f := newFixture(t)
	a := testutil.NewTestProject("Alpha")
	b := testutil.NewTestProject("Beta")
	f.srv.Seed(domain.ResourceProjects, a, b)
	projects := newProjects(t, f)
	ctx := context.Background()
	projects.Query(ctx)

	require.NoError(t, projects.Delete(ctx, a.ID))
	assert.Equal(t, []string{b.ID}, domain.IDs(projects.Mirror().List()))

	err := projects.Delete(ctx, "missing")
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, []string{b.ID}, domain.IDs(projects.Mirror().List()))
}

func TestMutation_InFlightFlags(t *testing.T) {
	f := newFixture(t)
	projects := newProjects(t, f)
	f.srv.SetLatency(150 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := projects.Create(context.Background(), domain.Project{Name: "Slow"})
		assert.NoError(t, err)
	}()

	require.Eventually(t, projects.IsCreating, time.Second, 5*time.Millisecond)
	assert.False(t, projects.IsUpdating())
	assert.False(t, projects.IsDeleting())
	wg.Wait()
	assert.False(t, projects.IsCreating())
}

func TestLoad_PlaceholderThenFresh(t *testing.T) {
	f := newFixture(t)
	fresh := testutil.NewTestProject("Fresh")
	f.srv.Seed(domain.ResourceProjects, fresh)
	projects := newProjects(t, f)
	ctx := context.Background()

	old := testutil.NewTestProject("Old")
	require.NoError(t, projects.Mirror().Replace(ctx, []domain.Project{old}))

	st := projects.Load(ctx)
	assert.True(t, st.IsLoading)
	assert.True(t, st.IsPlaceholder)
	assert.Equal(t, []string{old.ID}, domain.IDs(st.Data))

	done := projects.Wait(ctx)
	require.NoError(t, done.Error)
	assert.False(t, done.IsLoading)
	assert.False(t, done.IsPlaceholder)
	assert.Equal(t, []string{fresh.ID}, domain.IDs(done.Data))
	assert.Equal(t, []string{fresh.ID}, domain.IDs(projects.Mirror().List()))
}

func TestLoad_AfterMutationRefetchesEvenWhenEarlierLoadWasNeverAwaited(t *testing.T) {
	f := newFixture(t)
	existing := testutil.NewTestProject("Existing")
	f.srv.Seed(domain.ResourceProjects, existing)
	projects := newProjects(t, f)
	ctx := context.Background()

	projects.Load(ctx)
	require.Eventually(t, func() bool {
		snap, ok := f.cache.Peek(projects.Key())
		return ok && snap.HasData && !snap.Fetching
	}, time.Second, 5*time.Millisecond)

	created, err := projects.Create(ctx, domain.Project{Name: "New", Status: domain.ProjectPlanning})
	require.NoError(t, err)

	st := projects.Load(ctx)
	assert.Equal(t, []string{created.ID, existing.ID}, domain.IDs(st.Data))

	done := projects.Wait(ctx)
	require.NoError(t, done.Error)
	assert.False(t, done.IsPlaceholder)
	assert.ElementsMatch(t, []string{created.ID, existing.ID}, domain.IDs(done.Data))
}

func TestWait_AfterMutationIgnoresOlderRefresh(t *testing.T) {
	f := newFixture(t)
	existing := testutil.NewTestProject("Existing")
	f.srv.Seed(domain.ResourceProjects, existing)
	projects := newProjects(t, f)
	ctx := context.Background()

	projects.Load(ctx)
	created, err := projects.Create(ctx, domain.Project{Name: "New", Status: domain.ProjectPlanning})
	require.NoError(t, err)

	done := projects.Wait(ctx)
	require.NoError(t, done.Error)
	assert.ElementsMatch(t, []string{created.ID, existing.ID}, domain.IDs(done.Data))
}

func TestQuery_ReturnsCopyOfCachedList(t *testing.T) {
	f := newFixture(t)
	a := testutil.NewTestProject("Alpha")
	f.srv.Seed(domain.ResourceProjects, a)
	projects := newProjects(t, f)
	ctx := context.Background()

	st := projects.Query(ctx)
	require.Len(t, st.Data, 1)
	st.Data[0].Name = "Scribbled"

	again := projects.Query(ctx)
	require.Len(t, again.Data, 1)
	assert.Equal(t, "Alpha", again.Data[0].Name)
	assert.Equal(t, 1, f.srv.Requests(http.MethodGet, "/projects"))
}

func TestQueryWhere_RefreshesOnlyTheScope(t *testing.T) {
	f := newFixture(t)
	p1 := testutil.NewTestProject("One")
	p2 := testutil.NewTestProject("Two")
	t1 := testutil.NewTestTask(p1.ID, "one-a")
	t2 := testutil.NewTestTask(p2.ID, "two-a")
	f.srv.Seed(domain.ResourceTasks, t1, t2)

	ctx := context.Background()
	store, err := mirror.Open[domain.Task](ctx, domain.ResourceTasks, f.storage)
	require.NoError(t, err)
	tasks := NewResource[domain.Task](api.NewResource[domain.Task](f.client, domain.ResourceTasks), f.cache, store)

	other := testutil.NewTestTask(p2.ID, "mirrored only")
	require.NoError(t, store.Replace(ctx, []domain.Task{other}))

	inP1 := func(t domain.Task) bool { return t.ProjectID == p1.ID }
	st := tasks.QueryWhere(ctx, Scope{Field: "projectId", Value: p1.ID}, inP1)
	require.NoError(t, st.Error)
	assert.Equal(t, []string{t1.ID}, domain.IDs(st.Data))
	assert.ElementsMatch(t, []string{t1.ID, other.ID}, domain.IDs(store.List()))

	// Scoped entries are invalidated with the resource.
	_, err = tasks.Create(ctx, domain.Task{ProjectID: p1.ID, Title: "one-b", Status: domain.TaskTodo, Priority: domain.PriorityLow})
	require.NoError(t, err)
	snap, ok := f.cache.Peek(cache.Key{domain.ResourceTasks, "projectId", p1.ID})
	require.True(t, ok)
	assert.True(t, snap.Stale)

	f.srv.FailNext(http.MethodGet, "/tasks", http.StatusServiceUnavailable)
	st = tasks.QueryWhere(ctx, Scope{Field: "projectId", Value: p1.ID}, inP1)
	require.Error(t, st.Error)
	assert.True(t, st.IsPlaceholder)
	assert.Len(t, st.Data, 2)
}

func TestGet_FallsBackToMirror(t *testing.T) {
	f := newFixture(t)
	projects := newProjects(t, f)
	ctx := context.Background()

	cached := testutil.NewTestProject("Cached")
	require.NoError(t, projects.Mirror().Add(ctx, cached))
	f.srv.FailNext(http.MethodGet, "/projects/"+cached.ID, http.StatusBadGateway)

	got, ok, err := projects.Get(ctx, cached.ID)
	require.Error(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Cached", got.Name)
}

func TestOffline_ReadsMirrorAndRefusesWrites(t *testing.T) {
	f := newFixture(t)
	projects := newProjects(t, f, WithOffline(true))
	ctx := context.Background()
	cached := testutil.NewTestProject("Cached")
	require.NoError(t, projects.Mirror().Add(ctx, cached))

	st := projects.Query(ctx)
	require.NoError(t, st.Error)
	assert.True(t, st.IsPlaceholder)
	assert.Equal(t, []string{cached.ID}, domain.IDs(st.Data))

	_, err := projects.Create(ctx, domain.Project{Name: "x"})
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorIs(t, projects.Delete(ctx, cached.ID), ErrOffline)
	assert.Zero(t, f.srv.Requests(http.MethodGet, "/projects"))
}

func TestMutation_ObserverReceivesEvents(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.InfoLevel)
	projects := newProjects(t, f, WithObserver(NewLogUseCaseObserver(zap.New(core))))
	ctx := context.Background()

	_, err := projects.Create(ctx, domain.Project{Name: "Observed"})
	require.NoError(t, err)
	f.srv.FailNext(http.MethodDelete, "/projects/gone", http.StatusNotFound)
	require.Error(t, projects.Delete(ctx, "gone"))

	ok := logs.FilterMessage("Mutation applied").All()
	require.Len(t, ok, 1)
	assert.Equal(t, "projects.create", ok[0].ContextMap()["use_case"])

	failed := logs.FilterMessage("Mutation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "gone", failed[0].ContextMap()["id"])
}
