// Package reconcile is the single read and write path for server data. Each
// Resource puts the query cache in front of the REST API, falls back to the
// local mirror when the server cannot answer, and patches the mirror after a
// successful mutation so reads reflect the change before the next refetch.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/tally/internal/cache"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/mirror"
	"go.uber.org/zap"
)

// Remote is the server side of a resource. *api.Resource satisfies it.
type Remote[T domain.Record] interface {
	Name() string
	List(ctx context.Context) ([]T, error)
	ListWhere(ctx context.Context, query url.Values) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

// State is what a read hands to the caller.
type State[T any] struct {
	Data []T
	// IsLoading is set on the placeholder returned by Load while the
	// refresh is still running.
	IsLoading bool
	// IsPlaceholder marks data served from the mirror instead of the server.
	IsPlaceholder bool
	Error         error
	UpdatedAt     time.Time
}

// Scope narrows a list query to one server-side filter, e.g. projectId=<id>.
type Scope struct {
	Field string
	Value string
}

func (s Scope) key(resource string) cache.Key {
	return cache.Key{resource, s.Field, s.Value}
}

// ErrOffline is returned by operations that need the server while the
// workspace runs from the mirror only.
var ErrOffline = errors.New("offline: server operations are disabled")

type validator interface {
	Validate() error
}

// Resource reconciles one resource type.
type Resource[T domain.Record] struct {
	name     string
	remote   Remote[T]
	cache    *cache.Cache
	store    *mirror.Store[T]
	opts     cache.Options
	related  []cache.Key
	offline  bool
	logger   *zap.Logger
	observer UseCaseObserver

	creating atomic.Int32
	updating atomic.Int32
	deleting atomic.Int32
	// mutations counts successful mutations so a list fetched before one of
	// them does not overwrite the patched mirror.
	mutations atomic.Uint64

	loadMu  sync.Mutex
	pending *refresh[T]
}

type refresh[T any] struct {
	done  chan struct{}
	seq   uint64
	state State[T]
}

// current reports whether p may still answer Wait: its fetch has not finished
// yet and no mutation was accepted since it started.
func (p *refresh[T]) current(seq uint64) bool {
	if p == nil || p.seq != seq {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ResourceOption configures a Resource.
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	opts     cache.Options
	related  []cache.Key
	offline  bool
	logger   *zap.Logger
	observer UseCaseObserver
}

// WithCacheOptions overrides the cache's default staleness for this resource.
func WithCacheOptions(o cache.Options) ResourceOption {
	return func(r *resourceOptions) { r.opts = o }
}

// WithRelated names further cache keys to invalidate after every mutation,
// e.g. the dashboard summary after a cost is recorded.
func WithRelated(keys ...cache.Key) ResourceOption {
	return func(r *resourceOptions) { r.related = append(r.related, keys...) }
}

// WithOffline serves reads from the mirror only.
func WithOffline(offline bool) ResourceOption {
	return func(r *resourceOptions) { r.offline = offline }
}

func WithLogger(l *zap.Logger) ResourceOption {
	return func(r *resourceOptions) { r.logger = l }
}

func WithObserver(o UseCaseObserver) ResourceOption {
	return func(r *resourceOptions) { r.observer = o }
}

// NewResource wires remote, c and store together.
func NewResource[T domain.Record](remote Remote[T], c *cache.Cache, store *mirror.Store[T], opts ...ResourceOption) *Resource[T] {
	o := resourceOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = NoopUseCaseObserver{}
	}
	name := remote.Name()
	return &Resource[T]{
		name:     name,
		remote:   remote,
		cache:    c,
		store:    store,
		opts:     o.opts,
		related:  o.related,
		offline:  o.offline,
		logger:   o.logger.Named("reconcile").With(zap.String("resource", name)),
		observer: o.observer,
	}
}

func (r *Resource[T]) Name() string { return r.name }

// Mirror exposes the local store, mostly for listeners that push server
// events into it.
func (r *Resource[T]) Mirror() *mirror.Store[T] { return r.store }

// Key is the cache key root of this resource.
func (r *Resource[T]) Key() cache.Key { return cache.Key{r.name} }

// Cached returns the mirror contents without touching the network.
func (r *Resource[T]) Cached() State[T] {
	return State[T]{Data: r.store.List(), IsPlaceholder: true}
}

// Query returns the fresh list, fetching it when the cached copy is stale.
// When the fetch fails the mirror snapshot is returned as placeholder together
// with the error.
func (r *Resource[T]) Query(ctx context.Context) State[T] {
	if r.offline {
		return r.Cached()
	}
	data, err := cache.Fetch(ctx, r.cache, r.Key(), r.opts, r.fetchAll)
	if err != nil {
		return State[T]{Data: r.store.List(), IsPlaceholder: true, Error: err}
	}
	return State[T]{Data: slices.Clone(data), UpdatedAt: r.updatedAt(r.Key())}
}

// Load returns the mirror placeholder at once and refreshes in the
// background. Wait blocks for the refreshed state.
func (r *Resource[T]) Load(ctx context.Context) State[T] {
	placeholder := r.Cached()
	if r.offline {
		return placeholder
	}
	placeholder.IsLoading = true

	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	seq := r.mutations.Load()
	if !r.pending.current(seq) {
		p := &refresh[T]{done: make(chan struct{}), seq: seq}
		r.pending = p
		go func() {
			p.state = r.Query(ctx)
			close(p.done)
		}()
	}
	return placeholder
}

// Wait returns the result of the refresh started by the latest Load, or runs
// a Query when none is pending or a mutation was accepted after it started.
func (r *Resource[T]) Wait(ctx context.Context) State[T] {
	r.loadMu.Lock()
	p := r.pending
	r.loadMu.Unlock()
	if p == nil || p.seq != r.mutations.Load() {
		return r.Query(ctx)
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return State[T]{Data: r.store.List(), IsPlaceholder: true, Error: ctx.Err()}
	}

	r.loadMu.Lock()
	if r.pending == p {
		r.pending = nil
	}
	r.loadMu.Unlock()
	return p.state
}

// QueryWhere lists the records matching scope on the server. The mirror is
// refreshed for the matching records only, and match selects the placeholder
// when the server cannot answer.
func (r *Resource[T]) QueryWhere(ctx context.Context, scope Scope, match func(T) bool) State[T] {
	if r.offline {
		return State[T]{Data: r.store.Filter(match), IsPlaceholder: true}
	}
	key := scope.key(r.name)
	data, err := cache.Fetch(ctx, r.cache, key, r.opts, func(ctx context.Context) ([]T, error) {
		seq := r.mutations.Load()
		items, err := r.remote.ListWhere(ctx, url.Values{scope.Field: {scope.Value}})
		if err != nil {
			return nil, err
		}
		if r.mutations.Load() == seq {
			if err := r.store.ReplaceMatching(ctx, match, items); err != nil {
				r.logger.Warn("Failed to refresh mirror", zap.String("scope", key.String()), zap.Error(err))
			}
		}
		return items, nil
	})
	if err != nil {
		return State[T]{Data: r.store.Filter(match), IsPlaceholder: true, Error: err}
	}
	return State[T]{Data: slices.Clone(data), UpdatedAt: r.updatedAt(key)}
}

// Get returns one record, falling back to the mirror copy when the server
// cannot answer.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, bool, error) {
	if r.offline {
		item, ok := r.store.Get(id)
		return item, ok, nil
	}
	key := cache.Key{r.name, "id", id}
	item, err := cache.Fetch(ctx, r.cache, key, r.opts, func(ctx context.Context) (T, error) {
		return r.remote.Get(ctx, id)
	})
	if err != nil {
		cached, ok := r.store.Get(id)
		return cached, ok, err
	}
	return item, true, nil
}

// Create sends item to the server and prepends the server's copy to the
// mirror. Nothing local changes when the server rejects it.
func (r *Resource[T]) Create(ctx context.Context, item T) (created T, err error) {
	r.creating.Add(1)
	defer r.creating.Add(-1)
	start := time.Now()
	defer func() { r.observe(ctx, "create", start, created.GetID(), err) }()

	if r.offline {
		return created, ErrOffline
	}
	if err := validate(item); err != nil {
		return created, err
	}
	created, err = r.remote.Create(ctx, item)
	if err != nil {
		return created, err
	}
	r.settled()
	r.patch("create", func() error { return r.store.Add(ctx, created) })
	return created, nil
}

// Update sends item to the server and replaces the mirror entry with the
// server's copy.
func (r *Resource[T]) Update(ctx context.Context, item T) (updated T, err error) {
	r.updating.Add(1)
	defer r.updating.Add(-1)
	start := time.Now()
	defer func() { r.observe(ctx, "update", start, item.GetID(), err) }()

	if r.offline {
		return updated, ErrOffline
	}
	if err := validate(item); err != nil {
		return updated, err
	}
	updated, err = r.remote.Update(ctx, item)
	if err != nil {
		return updated, err
	}
	r.settled()
	r.patch("update", func() error { return r.store.Upsert(ctx, updated) })
	return updated, nil
}

// Delete removes id on the server and then from the mirror.
func (r *Resource[T]) Delete(ctx context.Context, id string) (err error) {
	r.deleting.Add(1)
	defer r.deleting.Add(-1)
	start := time.Now()
	defer func() { r.observe(ctx, "delete", start, id, err) }()

	if r.offline {
		return ErrOffline
	}
	if err := r.remote.Delete(ctx, id); err != nil {
		return err
	}
	r.settled()
	r.patch("delete", func() error { return r.store.Remove(ctx, id) })
	return nil
}

// Receive applies a record pushed by the server outside a request/response
// cycle. It is prepended like a create.
func (r *Resource[T]) Receive(ctx context.Context, item T) error {
	r.settled()
	if err := r.store.Add(ctx, item); err != nil {
		return fmt.Errorf("applying pushed %s: %w", r.name, err)
	}
	return nil
}

// Settle records a server-side change to an existing record made through a
// side endpoint, such as marking a notification read.
func (r *Resource[T]) Settle(ctx context.Context, item T) error {
	r.settled()
	if err := r.store.Upsert(ctx, item); err != nil {
		return fmt.Errorf("applying %s %s: %w", r.name, item.GetID(), err)
	}
	return nil
}

func (r *Resource[T]) IsCreating() bool { return r.creating.Load() > 0 }
func (r *Resource[T]) IsUpdating() bool { return r.updating.Load() > 0 }
func (r *Resource[T]) IsDeleting() bool { return r.deleting.Load() > 0 }

// Refresh drops the cached list and refetches it. It returns the number of
// records now mirrored.
func (r *Resource[T]) Refresh(ctx context.Context) (int, error) {
	r.cache.Invalidate(r.Key())
	st := r.Query(ctx)
	if st.Error != nil {
		return 0, st.Error
	}
	return len(st.Data), nil
}

// ClearMirror empties the local snapshot of this resource.
func (r *Resource[T]) ClearMirror(ctx context.Context) error {
	return r.store.Clear(ctx)
}

func (r *Resource[T]) fetchAll(ctx context.Context) ([]T, error) {
	seq := r.mutations.Load()
	items, err := r.remote.List(ctx)
	if err != nil {
		r.recordSyncError(ctx, err)
		return nil, err
	}
	if r.mutations.Load() != seq {
		// A mutation landed while the list was in flight; the cache entry
		// is already stale and the mirror holds the newer view.
		return items, nil
	}
	if err := r.store.ReplaceSynced(ctx, items); err != nil {
		r.logger.Warn("Failed to refresh mirror", zap.Error(err))
	}
	return items, nil
}

func (r *Resource[T]) recordSyncError(ctx context.Context, syncErr error) {
	rec, ok := r.store.Storage().(mirror.SyncRecorder)
	if !ok {
		return
	}
	if err := rec.RecordSyncError(ctx, r.name, syncErr); err != nil {
		r.logger.Debug("Failed to record sync error", zap.Error(err))
	}
}

// settled runs after the server accepted a mutation.
func (r *Resource[T]) settled() {
	r.mutations.Add(1)
	r.cache.Invalidate(r.Key())
	for _, k := range r.related {
		r.cache.Invalidate(k)
	}
}

// patch applies a mirror change after a successful mutation. The server
// already holds the change, so a local failure is logged and the next
// refetch repairs the mirror.
func (r *Resource[T]) patch(op string, apply func() error) {
	if err := apply(); err != nil {
		r.logger.Warn("Failed to patch mirror", zap.String("op", op), zap.Error(err))
	}
}

func (r *Resource[T]) updatedAt(key cache.Key) time.Time {
	snap, ok := r.cache.Peek(key)
	if !ok {
		return time.Time{}
	}
	return snap.UpdatedAt
}

func (r *Resource[T]) observe(ctx context.Context, op string, start time.Time, id string, err error) {
	fields := map[string]any{"resource": r.name}
	if id != "" {
		fields["id"] = id
	}
	r.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      r.name + "." + op,
		Duration:  time.Since(start),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
		StartedAt: start,
	})
}

func validate(item any) error {
	v, ok := item.(validator)
	if !ok {
		return nil
	}
	return v.Validate()
}
