// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"campusboard/internal/models"
)

const (
	// RegistryKey is the Valkey hash holding the cached category list.
	RegistryKey = "registry:categories"

	// DefaultRegistryTTL bounds how long a cached list lives without a
	// newer write replacing it.
	DefaultRegistryTTL = 10 * time.Minute
)

// setIfNewer stores the list only when the cached version is missing or
// lower, so a reader that loaded an old row cannot overwrite a newer list
// written after it.
//
// KEYS[1] registry hash, ARGV[1] version, ARGV[2] list JSON, ARGV[3] TTL ms.
var setIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'version'))
if cur and cur >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'list', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RegistryCache caches the category list in Valkey. Errors are logged and
// treated as misses so the database stays the source of truth.
type RegistryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistryCache creates a registry cache backed by the given Valkey client.
func NewRegistryCache(client *redis.Client, ttl time.Duration) *RegistryCache {
	if ttl == 0 {
		ttl = DefaultRegistryTTL
	}
	return &RegistryCache{client: client, ttl: ttl}
}

// Get returns the cached list and version. ok is false on a miss.
func (rc *RegistryCache) Get(ctx context.Context) ([]models.Category, int64, bool) {
	vals, err := rc.client.HMGet(ctx, RegistryKey, "version", "list").Result()
	if err != nil {
		slog.Warn("registry cache get error", "error", err)
		return nil, 0, false
	}
	rawVersion, _ := vals[0].(string)
	rawList, _ := vals[1].(string)
	if rawVersion == "" || rawList == "" {
		return nil, 0, false
	}

	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		slog.Warn("registry cache decode error", "error", err)
		return nil, 0, false
	}
	var list []models.Category
	if err := json.Unmarshal([]byte(rawList), &list); err != nil {
		slog.Warn("registry cache decode error", "error", err)
		return nil, 0, false
	}
	slog.Debug("registry cache hit", "version", version)
	return list, version, true
}

// Set stores list at version unless the cache already holds the same or a
// newer version.
func (rc *RegistryCache) Set(ctx context.Context, list []models.Category, version int64) {
	raw, err := json.Marshal(list)
	if err != nil {
		slog.Warn("registry cache encode error", "error", err)
		return
	}
	stored, err := setIfNewer.Run(ctx, rc.client, []string{RegistryKey}, version, raw, rc.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Warn("registry cache set error", "error", err)
		return
	}
	if stored == 0 {
		slog.Debug("registry cache kept newer entry", "version", version)
	}
}
