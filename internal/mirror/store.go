// Package mirror holds per-resource local copies of server data. A Store keeps
// the last-known list of one resource type in display order and persists the
// full snapshot on every write, so the CLI can render without a round trip.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Update when the record is not in the store.
var ErrNotFound = errors.New("record not in mirror")

// StorageKey returns the durable storage key for a resource type.
func StorageKey(resource string) string {
	return resource + "-storage"
}

// Store is the mirror of one resource type. Entries are unique by ID and keep
// insertion order; new records go to the front. Writers are serialized and
// the last write wins.
type Store[T domain.Record] struct {
	mu       sync.RWMutex
	resource string
	storage  Storage
	logger   *zap.Logger
	now      func() time.Time

	items []T
	index map[string]int
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open loads the store for resource from storage. A missing snapshot yields
// an empty store; an unreadable one is logged and also treated as empty.
func Open[T domain.Record](ctx context.Context, resource string, storage Storage, opts ...Option) (*Store[T], error) {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		resource: resource,
		storage:  storage,
		logger:   o.logger.Named("mirror").With(zap.String("resource", resource)),
		now:      o.now,
		index:    make(map[string]int),
	}

	payload, err := storage.Load(ctx, StorageKey(resource))
	switch {
	case errors.Is(err, ErrNoSnapshot):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("opening %s mirror: %w", resource, err)
	}

	items, err := decodeSnapshot[T](payload)
	if err != nil {
		s.logger.Warn("Discarding unreadable mirror snapshot", zap.Error(err))
		return s, nil
	}
	s.items, s.index = dedupe(items)
	return s, nil
}

// Storage returns the backing snapshot storage.
func (s *Store[T]) Storage() Storage { return s.storage }

// Resource returns the resource type name.
func (s *Store[T]) Resource() string { return s.resource }

// List returns a copy of the entries in display order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Filter returns the entries matching keep, in display order.
func (s *Store[T]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Add prepends item. An existing entry with the same ID is dropped so the ID
// appears exactly once, at the front.
func (s *Store[T]) Add(ctx context.Context, item T) error {
	return s.write(ctx, func(cur []T) ([]T, error) {
		next := make([]T, 0, len(cur)+1)
		next = append(next, item)
		for _, it := range cur {
			if it.GetID() != item.GetID() {
				next = append(next, it)
			}
		}
		return next, nil
	})
}

// Update replaces the entry with item's ID in place.
func (s *Store[T]) Update(ctx context.Context, item T) error {
	return s.write(ctx, func(cur []T) ([]T, error) {
		pos := -1
		for i, it := range cur {
			if it.GetID() == item.GetID() {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("%s %s: %w", s.resource, item.GetID(), ErrNotFound)
		}
		next := make([]T, len(cur))
		copy(next, cur)
		next[pos] = item
		return next, nil
	})
}

// Upsert updates the entry in place when present and prepends it otherwise.
func (s *Store[T]) Upsert(ctx context.Context, item T) error {
	if _, ok := s.Get(item.GetID()); ok {
		err := s.Update(ctx, item)
		if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return s.Add(ctx, item)
}

// Remove deletes the entry with id. Removing an absent id is a no-op.
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	return s.write(ctx, func(cur []T) ([]T, error) {
		next := make([]T, 0, len(cur))
		for _, it := range cur {
			if it.GetID() != id {
				next = append(next, it)
			}
		}
		return next, nil
	})
}

// Replace overwrites the store with items, typically a fresh server list.
// Duplicate IDs keep their first occurrence.
func (s *Store[T]) Replace(ctx context.Context, items []T) error {
	return s.write(ctx, func([]T) ([]T, error) {
		next, _ := dedupe(items)
		return next, nil
	})
}

// ReplaceMatching swaps the entries selected by match for items, leaving
// every other entry in place. The new items go to the front in the given
// order. Used for scoped refreshes such as the tasks of one project.
func (s *Store[T]) ReplaceMatching(ctx context.Context, match func(T) bool, items []T) error {
	return s.write(ctx, func(cur []T) ([]T, error) {
		fresh, seen := dedupe(items)
		next := make([]T, 0, len(cur)+len(fresh))
		next = append(next, fresh...)
		for _, it := range cur {
			if match(it) {
				continue
			}
			if _, dup := seen[it.GetID()]; dup {
				continue
			}
			next = append(next, it)
		}
		return next, nil
	})
}

// ReplaceSynced is Replace for a list that came from the server. Storages
// that implement SyncRecorder also record the refresh.
func (s *Store[T]) ReplaceSynced(ctx context.Context, items []T) error {
	rec, ok := s.storage.(SyncRecorder)
	if !ok {
		return s.Replace(ctx, items)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, index := dedupe(items)
	now := s.now()
	payload, err := encodeSnapshot(next, now)
	if err != nil {
		return fmt.Errorf("persisting %s mirror: %w", s.resource, err)
	}
	state := SyncState{Resource: s.resource, LastSyncedAt: now, ItemCount: len(next)}
	if err := rec.SaveSynced(ctx, StorageKey(s.resource), payload, state); err != nil {
		return fmt.Errorf("persisting %s mirror: %w", s.resource, err)
	}
	s.items, s.index = next, index
	return nil
}

// Clear empties the store and removes its snapshot.
func (s *Store[T]) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(ctx, StorageKey(s.resource)); err != nil {
		return fmt.Errorf("clearing %s mirror: %w", s.resource, err)
	}
	s.items = nil
	s.index = make(map[string]int)
	return nil
}

// write computes the next list, persists it, then swaps it in. Memory only
// changes when the snapshot was saved.
func (s *Store[T]) write(ctx context.Context, mutate func(cur []T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := mutate(s.items)
	if err != nil {
		return err
	}
	payload, err := encodeSnapshot(next, s.now())
	if err != nil {
		return fmt.Errorf("persisting %s mirror: %w", s.resource, err)
	}
	if err := s.storage.Save(ctx, StorageKey(s.resource), payload); err != nil {
		return fmt.Errorf("persisting %s mirror: %w", s.resource, err)
	}

	s.items = next
	s.index = make(map[string]int, len(next))
	for i, it := range next {
		s.index[it.GetID()] = i
	}
	return nil
}

func dedupe[T domain.Record](items []T) ([]T, map[string]int) {
	out := make([]T, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if _, seen := index[it.GetID()]; seen {
			continue
		}
		index[it.GetID()] = len(out)
		out = append(out, it)
	}
	return out, index
}
