package mirror

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNoSnapshot is returned by Storage.Load when nothing is stored under a key.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Storage is durable key/value storage for mirror snapshots.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// SyncState records the last successful server refresh of a resource.
type SyncState struct {
	Resource     string
	LastSyncedAt time.Time
	ItemCount    int
	LastError    string
}

// SyncRecorder is implemented by storages that can record a server refresh
// together with the snapshot it produced.
type SyncRecorder interface {
	SaveSynced(ctx context.Context, key string, payload []byte, state SyncState) error
	RecordSyncError(ctx context.Context, resource string, syncErr error) error
	SyncStates(ctx context.Context) ([]SyncState, error)
}

// MemoryStorage keeps snapshots in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	data  map[string][]byte
	syncs map[string]SyncState
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data:  make(map[string][]byte),
		syncs: make(map[string]SyncState),
	}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(payload))
	copy(b, payload)
	m.data[key] = b
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStorage) SaveSynced(ctx context.Context, key string, payload []byte, state SyncState) error {
	if err := m.Save(ctx, key, payload); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs[state.Resource] = state
	return nil
}

func (m *MemoryStorage) RecordSyncError(_ context.Context, resource string, syncErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.syncs[resource]
	st.Resource = resource
	if syncErr != nil {
		st.LastError = syncErr.Error()
	}
	m.syncs[resource] = st
	return nil
}

func (m *MemoryStorage) SyncStates(_ context.Context) ([]SyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SyncState, 0, len(m.syncs))
	for _, s := range m.syncs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out, nil
}
