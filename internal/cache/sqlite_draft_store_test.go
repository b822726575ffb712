package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) DraftStore {
	t.Helper()
	store, err := NewSQLiteDraftStore(filepath.Join(t.TempDir(), "nested", "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteDraftStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", `{"a":1}`, "origin-1"))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, value)

	require.NoError(t, store.Set(ctx, "k", `{"a":2}`, "origin-1"))
	value, _, _ = store.Get(ctx, "k")
	assert.Equal(t, `{"a":2}`, value)

	require.NoError(t, store.Remove(ctx, "k", "origin-1"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteDraftStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	var mu sync.Mutex
	var changes []DraftChange
	cancel, err := store.Subscribe(ctx, "k", func(c DraftChange) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, c)
	})
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "k", "v1", "a"))
	require.NoError(t, store.Set(ctx, "other", "x", "a"))
	require.NoError(t, store.Remove(ctx, "k", "b"))

	cancel()
	cancel()
	require.NoError(t, store.Set(ctx, "k", "v2", "a"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []DraftChange{
		{Key: "k", Value: "v1", Origin: "a"},
		{Key: "k", Removed: true, Origin: "b"},
	}, changes)
}

func TestSQLiteDraftStoreClosed(t *testing.T) {
	store, err := NewSQLiteDraftStore(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, _, err = store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Set(context.Background(), "k", "v", "o"), ErrStoreClosed)
}

func TestSQLiteDraftStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drafts.db")

	store, err := NewSQLiteDraftStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", "kept", "o"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteDraftStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	value, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", value)
}
