package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryStore(t *testing.T, ttl time.Duration) (*InMemoryFlashStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := newInMemoryFlashStore(ttl, time.Hour, clock.Now)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func TestInMemoryFlashStore_PutTake(t *testing.T) {
	ctx := context.Background()

	t.Run("messages are returned once", func(t *testing.T) {
		store, _ := newTestMemoryStore(t, time.Minute)

		require.NoError(t, store.Put(ctx, "s1", "Message", "Person Saved Successfully"))
		require.NoError(t, store.Put(ctx, "s1", "Error", "boom"))

		got, err := store.Take(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Message": "Person Saved Successfully", "Error": "boom"}, got)

		got, err = store.Take(ctx, "s1")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("same key is replaced", func(t *testing.T) {
		store, _ := newTestMemoryStore(t, time.Minute)

		require.NoError(t, store.Put(ctx, "s1", "Message", "first"))
		require.NoError(t, store.Put(ctx, "s1", "Message", "second"))

		got, err := store.Take(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Message": "second"}, got)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		store, _ := newTestMemoryStore(t, time.Minute)

		require.NoError(t, store.Put(ctx, "s1", "Message", "for s1"))

		got, err := store.Take(ctx, "s2")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 1, store.Size())
	})

	t.Run("expired messages are dropped", func(t *testing.T) {
		store, clock := newTestMemoryStore(t, time.Minute)

		require.NoError(t, store.Put(ctx, "s1", "Message", "stale"))
		clock.Advance(2 * time.Minute)

		got, err := store.Take(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("put refreshes the ttl", func(t *testing.T) {
		store, clock := newTestMemoryStore(t, time.Minute)

		require.NoError(t, store.Put(ctx, "s1", "Message", "a"))
		clock.Advance(50 * time.Second)
		require.NoError(t, store.Put(ctx, "s1", "Error", "b"))
		clock.Advance(50 * time.Second)

		got, err := store.Take(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestInMemoryFlashStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestMemoryStore(t, time.Minute)

	require.NoError(t, store.Put(ctx, "old", "Message", "x"))
	clock.Advance(30 * time.Second)
	require.NoError(t, store.Put(ctx, "new", "Message", "y"))
	clock.Advance(45 * time.Second)

	store.cleanup()
	assert.Equal(t, 1, store.Size())

	got, err := store.Take(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "y", got["Message"])
}

func TestInMemoryFlashStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryFlashStore(time.Minute)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "s1", "Message", "once"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Take(ctx, "s1")
			assert.NoError(t, err)
			if got["Message"] == "once" {
				mu.Lock()
				seen++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, seen)
}

func TestInMemoryFlashStore_CloseTwice(t *testing.T) {
	store := NewInMemoryFlashStore(time.Minute)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
