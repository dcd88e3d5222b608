package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

func TestSyncStateStore_Transitions(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "shopify_orders")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, store.MarkRunning(ctx, "shopify_orders"))
	require.NoError(t, store.MarkError(ctx, "shopify_orders", "boom"))

	state, err := store.Get(ctx, "shopify_orders")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, state.Status)
	assert.Equal(t, 1, state.ErrorCount)

	at := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkSuccess(ctx, "shopify_orders", at, "c-1", domain.Metadata{"pages": 2}))

	state, err = store.Get(ctx, "shopify_orders")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, state.Status)
	assert.Equal(t, 0, state.ErrorCount)
	require.NotNil(t, state.LastSyncedAt)
	assert.True(t, state.LastSyncedAt.Equal(at))

	last, err := store.GetLastSync(ctx, "shopify_orders")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(at))
}

func TestSyncStateStore_AllOrdered(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	require.NoError(t, store.MarkRunning(ctx, "zeta"))
	require.NoError(t, store.MarkRunning(ctx, "alpha"))

	states, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "alpha", states[0].Domain)
	assert.Equal(t, "zeta", states[1].Domain)
}

func TestSyncStateStore_CleanupErrors(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	require.NoError(t, store.MarkError(ctx, "dead", "gone"))
	require.NoError(t, store.MarkSuccess(ctx, "live", time.Now().UTC(), "", nil))

	removed, err := store.CleanupErrors(ctx, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "dead")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
