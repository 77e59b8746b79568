package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func countingFetcher(calls *atomic.Int32, value string) Fetcher {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

var testOpts = Options{StaleTime: 30 * time.Second, GCTime: 5 * time.Minute}

func TestFetch_FreshWithinStaleWindow(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()
	var calls atomic.Int32
	key := Key{"projects"}

	v, err := c.Fetch(ctx, key, testOpts, countingFetcher(&calls, "first"))
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	clock.Advance(29 * time.Second)
	v, err = c.Fetch(ctx, key, testOpts, countingFetcher(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "first", v, "fresh data is served from cache")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RefetchesAfterStaleTime(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()
	var calls atomic.Int32
	key := Key{"costs"}

	_, err := c.Fetch(ctx, key, testOpts, countingFetcher(&calls, "first"))
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	v, err := c.Fetch(ctx, key, testOpts, countingFetcher(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_ZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c := New()
	var calls atomic.Int32
	opts := Options{StaleTime: 0, GCTime: time.Minute}

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), Key{"tasks"}, opts, countingFetcher(&calls, "x"))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvalidate_ForcesRefetchUnderPrefix(t *testing.T) {
	c := New(WithClock(newFakeClock().Now))
	ctx := context.Background()
	var calls atomic.Int32

	all := Key{"tasks"}
	scoped := Key{"tasks", "project", "p1"}
	other := Key{"costs"}
	for _, k := range []Key{all, scoped, other} {
		_, err := c.Fetch(ctx, k, testOpts, countingFetcher(&calls, k.String()))
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), calls.Load())

	assert.Equal(t, 2, c.Invalidate(Key{"tasks"}))

	_, err := c.Fetch(ctx, scoped, testOpts, countingFetcher(&calls, "again"))
	require.NoError(t, err)
	_, err = c.Fetch(ctx, other, testOpts, countingFetcher(&calls, "again"))
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load(), "only the invalidated key refetches")
}

func TestFetch_ErrorKeepsPreviousData(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()
	key := Key{"budgets"}
	boom := errors.New("server down")

	_, err := c.Fetch(ctx, key, testOpts, func(context.Context) (any, error) { return "v1", nil })
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = c.Fetch(ctx, key, testOpts, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	snap, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, "v1", snap.Data)
	assert.ErrorIs(t, snap.Err, boom)
	assert.True(t, snap.Stale)
}

func TestFetch_DeduplicatesConcurrentCalls(t *testing.T) {
	c := New(WithClock(newFakeClock().Now))
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), Key{"contracts"}, testOpts, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestFetch_InvalidationDuringFetchLeavesEntryStale(t *testing.T) {
	c := New(WithClock(newFakeClock().Now))
	key := Key{"expenses"}
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Fetch(context.Background(), key, testOpts, func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
		assert.NoError(t, err)
	}()

	<-started
	c.Invalidate(Key{"expenses"})
	close(release)
	<-done

	snap, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, "old", snap.Data)
	assert.True(t, snap.Stale)
}

func TestFetch_AfterInvalidationDoesNotJoinOlderRequest(t *testing.T) {
	c := New(WithClock(newFakeClock().Now))
	key := Key{"budgets"}
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Fetch(context.Background(), key, testOpts, func(context.Context) (any, error) {
			close(started)
			<-release
			return "before", nil
		})
		assert.NoError(t, err)
	}()

	<-started
	c.Invalidate(key)

	v, err := c.Fetch(context.Background(), key, testOpts, func(context.Context) (any, error) {
		return "after", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after", v)

	close(release)
	<-done
	snap, ok := c.Peek(key)
	require.True(t, ok)
	assert.True(t, snap.Stale)
}

func TestFetch_CallerCancellation(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	cancel()
	_, err := c.Fetch(ctx, Key{"users"}, testOpts, func(context.Context) (any, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetAndRemove(t *testing.T) {
	c := New(WithClock(newFakeClock().Now))
	c.Set(Key{"sprints"}, []string{"s1"}, testOpts)
	c.Set(Key{"sprints", "project", "p1"}, []string{"s1"}, testOpts)

	snap, ok := c.Peek(Key{"sprints"})
	require.True(t, ok)
	assert.False(t, snap.Stale)
	assert.Len(t, c.Entries(), 2)

	assert.Equal(t, 2, c.Remove(Key{"sprints"}))
	_, ok = c.Peek(Key{"sprints"})
	assert.False(t, ok)
}

func TestGC_RemovesUnusedEntries(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	var calls atomic.Int32
	short := Options{StaleTime: time.Second, GCTime: time.Minute}

	_, err := c.Fetch(context.Background(), Key{"team-spaces"}, short, countingFetcher(&calls, "x"))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), Key{"projects"}, testOpts, countingFetcher(&calls, "y"))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.GC())
	_, ok := c.Peek(Key{"team-spaces"})
	assert.False(t, ok)
	_, ok = c.Peek(Key{"projects"})
	assert.True(t, ok)
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestTypedFetch(t *testing.T) {
	c := New()
	got, err := Fetch(context.Background(), c, Key{"projects"}, testOpts, func(context.Context) ([]int, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	_, err = Fetch(context.Background(), c, Key{"projects"}, testOpts, func(context.Context) (string, error) {
		return "never called", nil
	})
	assert.ErrorContains(t, err, "holds []int")
}

func TestKeyHasPrefix(t *testing.T) {
	k := Key{"tasks", "project", "p1"}
	assert.True(t, k.HasPrefix(Key{"tasks"}))
	assert.True(t, k.HasPrefix(Key{}))
	assert.True(t, k.HasPrefix(k))
	assert.False(t, k.HasPrefix(Key{"task"}))
	assert.False(t, Key{"tasks"}.HasPrefix(k))
	assert.Equal(t, "tasks/project/p1", k.String())
}
