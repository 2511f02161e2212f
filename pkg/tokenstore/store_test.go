package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	return store, &now
}

func TestMemoryStoreSetAndGet(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "calendar", "tok-1", 5*time.Minute))

	value, err := store.Get(ctx, "calendar")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", value)
}

func TestMemoryStoreUnknownKey(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiryReadsAsMissing(t *testing.T) {
	store, now := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "calendar", "tok-1", time.Minute))

	*now = now.Add(61 * time.Second)
	_, err := store.Get(ctx, "calendar")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "calendar", "old", time.Minute))
	require.NoError(t, store.Set(ctx, "calendar", "new", time.Minute))

	value, err := store.Get(ctx, "calendar")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestMemoryStoreDelete(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "calendar", "tok-1", time.Minute))
	require.NoError(t, store.Delete(ctx, "calendar"))

	_, err := store.Get(ctx, "calendar")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "calendar"))
}
