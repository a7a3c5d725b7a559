package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vendora/vendora-backend/internal/logging"
	"github.com/vendora/vendora-backend/internal/rbac"
)

// PermissionCache is a read-through Redis cache in front of a
// rbac.PermissionStore. Writers to roles or permissions must call Invalidate
// for the affected role; the TTL only bounds staleness if they don't.
// Redis failures fall back to the store.
type PermissionCache struct {
	client *redis.Client
	store  rbac.PermissionStore
	ttl    time.Duration
}

func NewPermissionCache(client *redis.Client, store rbac.PermissionStore, ttl time.Duration) *PermissionCache {
	return &PermissionCache{
		client: client,
		store:  store,
		ttl:    ttl,
	}
}

func (c *PermissionCache) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]rbac.Permission, error) {
	key := permissionKey(roleID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var perms []rbac.Permission
		if jsonErr := json.Unmarshal(raw, &perms); jsonErr == nil {
			return perms, nil
		}
		logging.Warn("discarding unreadable permission cache entry", "role_id", roleID)
	case errors.Is(err, redis.Nil):
	default:
		logging.Warn("permission cache read failed", "role_id", roleID, "error", err)
	}

	perms, err := c.store.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(perms)
	if err != nil {
		return nil, fmt.Errorf("encoding permissions: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logging.Warn("permission cache write failed", "role_id", roleID, "error", err)
	}
	return perms, nil
}

// Invalidate drops the cached set of a role.
func (c *PermissionCache) Invalidate(ctx context.Context, roleID uuid.UUID) error {
	if err := c.client.Del(ctx, permissionKey(roleID)).Err(); err != nil {
		return fmt.Errorf("invalidating permissions of role %s: %w", roleID, err)
	}
	return nil
}

func permissionKey(roleID uuid.UUID) string {
	return fmt.Sprintf("rbac:permissions:%s", roleID)
}
