package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewWithClient(rdb), mr
}

func TestAuthToken_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetAuthToken(ctx, "user-1", "tok-abc"))

	token, err := store.AuthToken(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)

	require.NoError(t, store.ClearAuthToken(ctx, "user-1"))

	token, err = store.AuthToken(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestAuthToken_MissingIsEmptyNotError(t *testing.T) {
	store, _ := newTestStore(t)

	token, err := store.AuthToken(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestProductHandoff_OneShot(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetProductHandoff(ctx, "user-1", `{"product_id":"cb-123"}`))

	got, err := store.TakeProductHandoff(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, `{"product_id":"cb-123"}`, got)

	// Second take finds nothing: the handoff is consumed on read.
	got, err = store.TakeProductHandoff(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductHandoff_Expires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetProductHandoff(ctx, "user-1", `{"product_id":"cb-9"}`))

	mr.FastForward(defaultHandoffTTL + 1)

	got, err := store.TakeProductHandoff(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
