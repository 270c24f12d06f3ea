// Package cache implements the USER_ROLE_ACCESS cache the Notifier (C8)
// consults to resolve a client/product/user's GUIDs before writing a
// notification. Grounded on
// original_source/sifthub/datastores/product/redis/{user_role_access_cache,store}.py:
// a single Redis hash named USER_ROLE_ACCESS, fields keyed per
// client/product/user, write-through to the client service on a miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/sifthub/export-worker/internal/serializer"
)

// hashName is the single Redis hash every role mapping lives in, matching
// the source's __USER_ROLE_CONFIG_KEY constant.
const hashName = "USER_ROLE_ACCESS"

// userRoleLoadPath is appended with "{userId}/{clientId}/{productId}",
// matching USER_ROLE_MAPPING_DATA_LOAD_CACHE_BY_ID_ENDPOINT in
// original_source/sifthub/configs/http_configs.py.
const userRoleLoadPath = "/api/v1/client-service/user-role/load-cache-by-id/"

// DefaultTTL is the write-through entry lifetime. The source's set()
// (store.py) writes hash fields with no expiry at all — only set_ex (used
// elsewhere for single-key values) carries a TTL. A never-expiring GUID
// mapping cache is a poor fit for a long-lived worker process, so this
// implementation applies a TTL to the whole hash via Redis's per-key
// (not per-field) expiry semantics; see DESIGN.md for why 1 hour was
// chosen as the Open Question's resolution.
const DefaultTTL = time.Hour

// UserRoleAccess is the resolved mapping the client service returns: the
// GUIDs the Notifier needs to address the
// pd/{productGuid}/cl/{clientGuid}/usr/{userGuid} notification path.
type UserRoleAccess struct {
	ClientGUID  string `json:"clientGuid"`
	ProductGUID string `json:"productGuid"`
	UserGUID    string `json:"userGuid"`
}

// Cache resolves UserRoleAccess by (clientID, productID, userID), caching
// in Redis and falling through to the client service on a miss.
type Cache struct {
	redis      *redis.Client
	http       *httpclient.Client
	serializer serializer.Serializer
	baseURL    string
	ttl        time.Duration
	logger     *zap.Logger
}

// Config wires a Cache's dependencies.
type Config struct {
	Redis      *redis.Client
	HTTP       *httpclient.Client
	ClientBase string // scheme+host of the client service, e.g. "https://client-service.internal"
	TTL        time.Duration
	Logger     *zap.Logger
}

// New builds a Cache from Config, defaulting TTL when unset.
func New(cfg Config) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		redis:      cfg.Redis,
		http:       cfg.HTTP,
		serializer: serializer.NewJSON(),
		baseURL:    cfg.ClientBase,
		ttl:        ttl,
		logger:     cfg.Logger.Named("cache.userrole"),
	}
}

// hashKey mirrors __build_hash_key_by_user_id's "CLIENT_{c}_PRODUCT_{p}_USERID_{u}" shape.
func hashKey(clientID, productID, userID int64) string {
	return fmt.Sprintf("CLIENT_%d_PRODUCT_%d_USERID_%d", clientID, productID, userID)
}

// Resolve returns the UserRoleAccess for (clientID, productID, userID),
// serving from the Redis hash on a hit and loading from the client service
// and populating the cache on a miss, matching
// find_role_mapping_by_user_id's fallthrough.
func (c *Cache) Resolve(ctx context.Context, clientID, productID, userID int64) (UserRoleAccess, error) {
	field := hashKey(clientID, productID, userID)

	if access, ok, err := c.get(ctx, field); err != nil {
		c.logger.Warn("cache read failed, falling through to client service", zap.Error(err))
	} else if ok {
		return access, nil
	} else {
		c.logger.Info("role mapping not found in cache", zap.Int64("userId", userID))
	}

	access, err := c.load(ctx, clientID, productID, userID)
	if err != nil {
		return UserRoleAccess{}, err
	}

	if err := c.set(ctx, field, access); err != nil {
		c.logger.Warn("failed to populate cache after load", zap.Error(err))
	}
	return access, nil
}

func (c *Cache) get(ctx context.Context, field string) (UserRoleAccess, bool, error) {
	raw, err := c.redis.HGet(ctx, hashName, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return UserRoleAccess{}, false, nil
	}
	if err != nil {
		return UserRoleAccess{}, false, fmt.Errorf("%w: hget %s/%s: %v", apperr.ErrTransientUpstream, hashName, field, err)
	}
	var access UserRoleAccess
	if err := c.serializer.Unmarshal(raw, &access); err != nil {
		return UserRoleAccess{}, false, fmt.Errorf("cache: decode cached role mapping: %w", err)
	}
	return access, true, nil
}

func (c *Cache) set(ctx context.Context, field string, access UserRoleAccess) error {
	raw, err := c.serializer.Marshal(access)
	if err != nil {
		return fmt.Errorf("cache: encode role mapping: %w", err)
	}
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, hashName, field, raw)
	pipe.Expire(ctx, hashName, c.ttl)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: hset %s/%s: %v", apperr.ErrTransientUpstream, hashName, field, err)
	}
	return nil
}

func (c *Cache) load(ctx context.Context, clientID, productID, userID int64) (UserRoleAccess, error) {
	path := fmt.Sprintf("%s%d/%d/%d", userRoleLoadPath, userID, clientID, productID)
	env, err := c.http.PostJSON(ctx, c.baseURL, path, struct{}{})
	if err != nil {
		return UserRoleAccess{}, fmt.Errorf("cache: load role mapping: %w", err)
	}
	if !env.Ok() {
		return UserRoleAccess{}, fmt.Errorf("%w: client service returned status %d for user %d", apperr.ErrTransientUpstream, env.Status, userID)
	}
	var access UserRoleAccess
	if err := c.serializer.Unmarshal(env.Data, &access); err != nil {
		return UserRoleAccess{}, fmt.Errorf("cache: decode client service response: %w", err)
	}
	return access, nil
}
