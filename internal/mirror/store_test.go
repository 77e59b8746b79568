package mirror

import (
	"context"
	"testing"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProjects(t *testing.T, storage Storage) *Store[domain.Project] {
	t.Helper()
	s, err := Open[domain.Project](context.Background(), "projects", storage)
	require.NoError(t, err)
	return s
}

func TestStore_AddPrependsAndStaysUnique(t *testing.T) {
	ctx := context.Background()
	s := openProjects(t, NewMemoryStorage())

	a := testutil.NewTestProject("Alpha")
	b := testutil.NewTestProject("Beta")
	require.NoError(t, s.Add(ctx, a))
	require.NoError(t, s.Add(ctx, b))
	assert.Equal(t, []string{b.ID, a.ID}, domain.IDs(s.List()))

	// Re-adding an existing ID moves it to the front exactly once.
	a.Name = "Alpha v2"
	require.NoError(t, s.Add(ctx, a))
	items := s.List()
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, "Alpha v2", items[0].Name)
}

func TestStore_UpdateKeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := openProjects(t, NewMemoryStorage())

	a := testutil.NewTestProject("Alpha")
	b := testutil.NewTestProject("Beta")
	c := testutil.NewTestProject("Gamma")
	require.NoError(t, s.Replace(ctx, []domain.Project{a, b, c}))

	b.Name = "Beta renamed"
	require.NoError(t, s.Update(ctx, b))
	items := s.List()
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, domain.IDs(items))
	assert.Equal(t, "Beta renamed", items[1].Name)

	missing := testutil.NewTestProject("Nope")
	assert.ErrorIs(t, s.Update(ctx, missing), ErrNotFound)
}

func TestStore_RemoveAndIdempotentRemove(t *testing.T) {
	ctx := context.Background()
	s := openProjects(t, NewMemoryStorage())

	a := testutil.NewTestProject("Alpha")
	require.NoError(t, s.Add(ctx, a))
	require.NoError(t, s.Remove(ctx, a.ID))
	_, ok := s.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Remove(ctx, a.ID))
}

func TestStore_ReplaceCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	s := openProjects(t, NewMemoryStorage())

	a := testutil.NewTestProject("Alpha")
	dup := a
	dup.Name = "shadow"
	require.NoError(t, s.Replace(ctx, []domain.Project{a, dup}))

	items := s.List()
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Name)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	storage := NewSQLiteStorage(testutil.NewTestDB(t))

	a := testutil.NewTestProject("Alpha")
	b := testutil.NewTestProject("Beta")
	s := openProjects(t, storage)
	require.NoError(t, s.Add(ctx, a))
	require.NoError(t, s.Add(ctx, b))

	reopened := openProjects(t, storage)
	assert.Equal(t, []string{b.ID, a.ID}, domain.IDs(reopened.List()))

	keys, err := storage.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"projects-storage"}, keys)
}

func TestStore_FailedPersistLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	storage := &testutil.FailingStorage{Inner: NewMemoryStorage(), FailOn: 2}
	s := openProjects(t, storage)

	a := testutil.NewTestProject("Alpha")
	require.NoError(t, s.Add(ctx, a))

	err := s.Add(ctx, testutil.NewTestProject("Beta"))
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, []string{a.ID}, domain.IDs(s.List()))
}

func TestStore_UnreadableSnapshotIsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, StorageKey("projects"), []byte("{not json")))

	s := openProjects(t, storage)
	assert.Equal(t, 0, s.Len())
}

func TestStore_ClearRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := openProjects(t, storage)
	require.NoError(t, s.Add(ctx, testutil.NewTestProject("Alpha")))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	_, err := storage.Load(ctx, StorageKey("projects"))
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestStore_ReplaceSyncedRecordsSyncState(t *testing.T) {
	ctx := context.Background()
	storage := NewSQLiteStorage(testutil.NewTestDB(t))
	s, err := Open[domain.Task](ctx, "tasks", storage)
	require.NoError(t, err)

	p := testutil.NewTestProject("Alpha")
	tasks := []domain.Task{testutil.NewTestTask(p.ID, "one"), testutil.NewTestTask(p.ID, "two")}
	require.NoError(t, s.ReplaceSynced(ctx, tasks))

	states, err := storage.SyncStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "tasks", states[0].Resource)
	assert.Equal(t, 2, states[0].ItemCount)
	assert.False(t, states[0].LastSyncedAt.IsZero())
	assert.Empty(t, states[0].LastError)

	require.NoError(t, storage.RecordSyncError(ctx, "tasks", assert.AnError))
	states, err = storage.SyncStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, assert.AnError.Error(), states[0].LastError)
	assert.Equal(t, 2, states[0].ItemCount)
}

func TestStore_Filter(t *testing.T) {
	ctx := context.Background()
	s, err := Open[domain.Task](ctx, "tasks", NewMemoryStorage())
	require.NoError(t, err)

	p1 := testutil.NewTestProject("One")
	p2 := testutil.NewTestProject("Two")
	require.NoError(t, s.Replace(ctx, []domain.Task{
		testutil.NewTestTask(p1.ID, "a"),
		testutil.NewTestTask(p2.ID, "b"),
		testutil.NewTestTask(p1.ID, "c"),
	}))

	got := s.Filter(func(t domain.Task) bool { return t.ProjectID == p1.ID })
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "c", got[1].Title)
}

func TestStore_ReplaceMatchingKeepsOtherScopes(t *testing.T) {
	ctx := context.Background()
	s, err := Open[domain.Task](ctx, "tasks", NewMemoryStorage())
	require.NoError(t, err)

	p1 := testutil.NewTestProject("One")
	p2 := testutil.NewTestProject("Two")
	stale := testutil.NewTestTask(p1.ID, "stale")
	other := testutil.NewTestTask(p2.ID, "other")
	require.NoError(t, s.Replace(ctx, []domain.Task{stale, other}))

	fresh := testutil.NewTestTask(p1.ID, "fresh")
	inP1 := func(t domain.Task) bool { return t.ProjectID == p1.ID }
	require.NoError(t, s.ReplaceMatching(ctx, inP1, []domain.Task{fresh}))

	assert.Equal(t, []string{fresh.ID, other.ID}, domain.IDs(s.List()))
}
