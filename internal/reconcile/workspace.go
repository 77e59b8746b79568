package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/tally/internal/api"
	"github.com/alexanderramin/tally/internal/cache"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/mirror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// DashboardKey caches the server-side dashboard summary.
	DashboardKey = cache.Key{"dashboard", "summary"}
	// UnreadKey caches the unread notification count.
	UnreadKey = cache.Key{domain.ResourceNotifications, "unread-count"}
)

// syncConcurrency bounds parallel list requests during SyncAll.
const syncConcurrency = 4

// Syncer is the type-independent face of a Resource.
type Syncer interface {
	Name() string
	Refresh(ctx context.Context) (int, error)
	ClearMirror(ctx context.Context) error
}

// SyncResult reports the refresh of one resource.
type SyncResult struct {
	Resource string
	Count    int
	Err      error
}

// WorkspaceOptions configures OpenWorkspace.
type WorkspaceOptions struct {
	// Cache holds per-resource overrides of the cache defaults.
	Cache    map[string]cache.Options
	Offline  bool
	Logger   *zap.Logger
	Observer UseCaseObserver
}

// Workspace bundles one Resource per resource type over a shared cache and
// mirror storage.
type Workspace struct {
	Projects      *Resource[domain.Project]
	Tasks         *Resource[domain.Task]
	Sprints       *Resource[domain.Sprint]
	Budgets       *Resource[domain.Budget]
	Costs         *Resource[domain.Cost]
	Expenses      *Resource[domain.Expense]
	Contracts     *Resource[domain.Contract]
	Users         *Resource[domain.User]
	TeamSpaces    *Resource[domain.TeamSpace]
	Notifications *Resource[domain.Notification]

	client  *api.Client
	cache   *cache.Cache
	storage mirror.Storage
	opts    WorkspaceOptions
	logger  *zap.Logger
	syncers []Syncer
}

// OpenWorkspace loads every mirror from storage and wires the resources.
func OpenWorkspace(ctx context.Context, client *api.Client, c *cache.Cache, storage mirror.Storage, opts WorkspaceOptions) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = NoopUseCaseObserver{}
	}
	w := &Workspace{
		client:  client,
		cache:   c,
		storage: storage,
		opts:    opts,
		logger:  opts.Logger,
	}

	var err error
	if w.Projects, err = open[domain.Project](ctx, w, domain.ResourceProjects, DashboardKey); err != nil {
		return nil, err
	}
	if w.Sprints, err = open[domain.Sprint](ctx, w, domain.ResourceSprints); err != nil {
		return nil, err
	}
	if w.Tasks, err = open[domain.Task](ctx, w, domain.ResourceTasks, DashboardKey); err != nil {
		return nil, err
	}
	if w.Budgets, err = open[domain.Budget](ctx, w, domain.ResourceBudgets, DashboardKey); err != nil {
		return nil, err
	}
	if w.Costs, err = open[domain.Cost](ctx, w, domain.ResourceCosts, DashboardKey); err != nil {
		return nil, err
	}
	if w.Expenses, err = open[domain.Expense](ctx, w, domain.ResourceExpenses, DashboardKey); err != nil {
		return nil, err
	}
	if w.Contracts, err = open[domain.Contract](ctx, w, domain.ResourceContracts); err != nil {
		return nil, err
	}
	if w.Users, err = open[domain.User](ctx, w, domain.ResourceUsers); err != nil {
		return nil, err
	}
	if w.TeamSpaces, err = open[domain.TeamSpace](ctx, w, domain.ResourceTeamSpaces); err != nil {
		return nil, err
	}
	if w.Notifications, err = open[domain.Notification](ctx, w, domain.ResourceNotifications, DashboardKey); err != nil {
		return nil, err
	}

	w.syncers = []Syncer{
		w.Projects, w.Sprints, w.Tasks, w.Budgets, w.Costs,
		w.Expenses, w.Contracts, w.Users, w.TeamSpaces, w.Notifications,
	}
	return w, nil
}

func open[T domain.Record](ctx context.Context, w *Workspace, name string, related ...cache.Key) (*Resource[T], error) {
	store, err := mirror.Open[T](ctx, name, w.storage, mirror.WithLogger(w.logger))
	if err != nil {
		return nil, err
	}
	return NewResource[T](api.NewResource[T](w.client, name), w.cache, store,
		WithCacheOptions(w.opts.Cache[name]),
		WithRelated(related...),
		WithOffline(w.opts.Offline),
		WithLogger(w.logger),
		WithObserver(w.opts.Observer),
	), nil
}

func (w *Workspace) Offline() bool       { return w.opts.Offline }
func (w *Workspace) Cache() *cache.Cache { return w.cache }
func (w *Workspace) Client() *api.Client { return w.client }

// Resources lists every resource in sync order.
func (w *Workspace) Resources() []Syncer {
	out := make([]Syncer, len(w.syncers))
	copy(out, w.syncers)
	return out
}

// Resource looks a resource up by name.
func (w *Workspace) Resource(name string) (Syncer, bool) {
	for _, s := range w.syncers {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// SyncAll refreshes every resource from the server. Failures are reported
// per resource; one failing list does not stop the others.
func (w *Workspace) SyncAll(ctx context.Context) []SyncResult {
	if w.opts.Offline {
		out := make([]SyncResult, len(w.syncers))
		for i, s := range w.syncers {
			out[i] = SyncResult{Resource: s.Name(), Err: ErrOffline}
		}
		return out
	}

	results := make([]SyncResult, len(w.syncers))
	var g errgroup.Group
	g.SetLimit(syncConcurrency)
	for i, s := range w.syncers {
		g.Go(func() error {
			n, err := s.Refresh(ctx)
			results[i] = SyncResult{Resource: s.Name(), Count: n, Err: err}
			if err != nil {
				w.logger.Warn("Sync failed", zap.String("resource", s.Name()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SyncStates returns the recorded refreshes when the storage tracks them.
func (w *Workspace) SyncStates(ctx context.Context) ([]mirror.SyncState, error) {
	rec, ok := w.storage.(mirror.SyncRecorder)
	if !ok {
		return nil, nil
	}
	return rec.SyncStates(ctx)
}

// Dashboard returns the server-side summary through the cache.
func (w *Workspace) Dashboard(ctx context.Context) (*api.DashboardSummary, error) {
	if w.opts.Offline {
		return nil, ErrOffline
	}
	return cache.Fetch(ctx, w.cache, DashboardKey, w.opts.Cache["dashboard"], w.client.DashboardSummary)
}

// UnreadCount asks the server for the unread count and falls back to
// counting the mirrored notifications.
func (w *Workspace) UnreadCount(ctx context.Context) (int, bool, error) {
	if w.opts.Offline {
		return domain.UnreadCount(w.Notifications.Mirror().List()), true, nil
	}
	n, err := cache.Fetch(ctx, w.cache, UnreadKey, w.opts.Cache[domain.ResourceNotifications], w.client.UnreadCount)
	if err != nil {
		return domain.UnreadCount(w.Notifications.Mirror().List()), true, err
	}
	return n, false, nil
}

// MarkRead marks a notification read on the server and in the mirror.
func (w *Workspace) MarkRead(ctx context.Context, id string) (domain.Notification, error) {
	if w.opts.Offline {
		return domain.Notification{}, ErrOffline
	}
	n, err := w.client.MarkNotificationRead(ctx, id)
	if err != nil {
		return n, err
	}
	if err := w.Notifications.Settle(ctx, n); err != nil {
		w.logger.Warn("Failed to patch mirror", zap.String("resource", domain.ResourceNotifications), zap.Error(err))
	}
	return n, nil
}

// ClearCache drops every cached query and returns how many there were.
func (w *Workspace) ClearCache() int {
	return w.cache.Remove(cache.Key{})
}

// ClearMirrors empties every local snapshot.
func (w *Workspace) ClearMirrors(ctx context.Context) error {
	var errs []error
	for _, s := range w.syncers {
		if err := s.ClearMirror(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("clearing mirrors: %w", errors.Join(errs...))
	}
	return nil
}
