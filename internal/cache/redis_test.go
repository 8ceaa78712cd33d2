package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rc, err := NewRedisCache("redis://" + srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return rc, srv
}

func TestLookupMissAndHit(t *testing.T) {
	rc, _ := newTestCache(t)
	ctx := context.Background()

	_, ok, err := rc.Lookup(ctx, "apisports:/teams")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Set(ctx, "apisports:/teams", `[{"id":1}]`, time.Hour))

	value, ok, err := rc.Lookup(ctx, "apisports:/teams")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, value)
}

func TestSetHonorsTTL(t *testing.T) {
	rc, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k", "v", time.Minute))
	srv.FastForward(2 * time.Minute)

	_, ok, err := rc.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAndHealth(t *testing.T) {
	rc, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.HealthCheck(ctx))
	require.NoError(t, rc.Set(ctx, "k", "v", 0))
	require.NoError(t, rc.Delete(ctx, "k"))

	_, ok, err := rc.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not a url")
	assert.Error(t, err)
}
