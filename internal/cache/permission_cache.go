// Package cache keeps the flat permission rows of roles in Redis so RBAC
// checks do not hit PostgreSQL on every request.
//
// Import Path: dinehub.io/backoffice/internal/cache
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/permission"
	"dinehub.io/backoffice/internal/pkg/logger"
)

const keyPrefix = "backoffice:perm:role"

// RoleKey returns the cache key of one role.
func RoleKey(restaurantID, roleID int64) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, restaurantID, roleID)
}

// PermissionCache stores permission rows per role. A nil *PermissionCache
// is a disabled cache: reads miss and writes are no-ops.
type PermissionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New wraps an existing client.
func New(client redis.UniversalClient, ttl time.Duration) *PermissionCache {
	return &PermissionCache{client: client, ttl: ttl}
}

// Open connects to Redis per cfg and pings it. It returns nil, nil when no
// address is configured.
func Open(ctx context.Context, cfg config.RedisConfig) (*PermissionCache, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	logger.Info("Permission cache connected", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return New(client, cfg.TTL), nil
}

// Get returns the cached rows of a role. ok is false on a miss.
func (c *PermissionCache) Get(ctx context.Context, restaurantID, roleID int64) (rows []permission.FlatPermission, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, RoleKey(restaurantID, roleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		logger.Warn("Discarding unreadable permission cache entry",
			zap.Int64("restaurant_id", restaurantID),
			zap.Int64("role_id", roleID),
			zap.Error(err),
		)
		return nil, false, nil
	}
	return rows, true, nil
}

// Set stores the rows of a role for the configured TTL.
func (c *PermissionCache) Set(ctx context.Context, restaurantID, roleID int64, rows []permission.FlatPermission) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode permission rows: %w", err)
	}
	if err := c.client.Set(ctx, RoleKey(restaurantID, roleID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the entry of a role.
func (c *PermissionCache) Invalidate(ctx context.Context, restaurantID, roleID int64) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, RoleKey(restaurantID, roleID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the connection. A disabled cache is always reachable.
func (c *PermissionCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *PermissionCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
