package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/permission"
	"dinehub.io/backoffice/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *PermissionCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client, time.Minute)
}

var cashierRows = []permission.FlatPermission{
	{ModuleID: 1, ModuleName: "Dashboard", View: true},
	{ModuleID: 7, ModuleName: "Order Management", View: true, Create: true},
}

func TestRoleKey(t *testing.T) {
	assert.Equal(t, "backoffice:perm:role:3:42", RoleKey(3, 42))
}

func TestPermissionCache_SetGet(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 1, 5, cashierRows))
	assert.True(t, mr.Exists(RoleKey(1, 5)))
	assert.Equal(t, time.Minute, mr.TTL(RoleKey(1, 5)))

	rows, ok, err := c.Get(ctx, 1, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cashierRows, rows)

	_, ok, err = c.Get(ctx, 2, 5)
	require.NoError(t, err)
	assert.False(t, ok, "entries are scoped per restaurant")
}

func TestPermissionCache_Expiry(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, 5, cashierRows))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, 1, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCache_Invalidate(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, 5, cashierRows))
	require.NoError(t, c.Invalidate(ctx, 1, 5))
	assert.False(t, mr.Exists(RoleKey(1, 5)))

	require.NoError(t, c.Invalidate(ctx, 1, 99), "invalidating a missing key is not an error")
}

func TestPermissionCache_CorruptEntryIsMiss(t *testing.T) {
	mr, c := setupTestCache(t)
	require.NoError(t, mr.Set(RoleKey(1, 5), "{not json"))

	_, ok, err := c.Get(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCache_RedisDown(t *testing.T) {
	mr, c := setupTestCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), 1, 5)
	assert.Error(t, err)
}

func TestPermissionCache_NilIsDisabled(t *testing.T) {
	var c *PermissionCache
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1, 5)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Set(ctx, 1, 5, cashierRows))
	assert.NoError(t, c.Invalidate(ctx, 1, 5))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestOpen_DisabledWithoutAddr(t *testing.T) {
	c, err := Open(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestOpen_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := Open(context.Background(), config.RedisConfig{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(context.Background(), 1, 1, cashierRows))
	require.NoError(t, c.Ping(context.Background()))
}
