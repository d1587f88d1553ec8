package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-directory-service/internal/domain/user"
)

// UserCache defines the interface for user caching operations.
type UserCache interface {
	// Get retrieves a user from cache by ID.
	// Returns nil if user is not found in cache.
	Get(ctx context.Context, id string) (*domain.User, error)

	// Version returns the invalidation counter of a user. Read it before
	// loading the user from the database and pass it to Set.
	Version(ctx context.Context, id string) (int64, error)

	// Set stores a user with the configured TTL unless the user was
	// invalidated after version was read. It reports whether it stored.
	Set(ctx context.Context, user *domain.User, version int64) (bool, error)

	// Delete removes a user from cache and bumps its version.
	Delete(ctx context.Context, id string) error
}

// RedisUserCache implements UserCache using Redis as the backing store.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// cachedUser is the cached shape of a user. The password hash stays in the database.
type cachedUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCached(u *domain.User) cachedUser {
	return cachedUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CacheKey generates a Redis key for a user ID.
func CacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

// VersionKey is the Redis key holding the invalidation counter of a user.
func VersionKey(id string) string {
	return fmt.Sprintf("user:%s:version", id)
}

// setIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[3].
// A missing counter reads as 0.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[3] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// versionTTL outlives any entry written under the version it guards.
func (c *RedisUserCache) versionTTL() time.Duration {
	return 2 * c.ttl
}

// Version returns the current invalidation counter of a user.
func (c *RedisUserCache) Version(ctx context.Context, id string) (int64, error) {
	v, err := c.client.Get(ctx, VersionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to read cache version", zap.String("user_id", id), zap.Error(err))
		return 0, err
	}
	return v, nil
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, id string) (*domain.User, error) {
	key := CacheKey(id)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Cache miss - not an error
		c.log.Debug("cache miss", zap.String("user_id", id))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("user_id", id))
	return cached.toDomain(), nil
}

// Set stores a user in Redis cache with TTL. Deleted users are never cached,
// and nothing is written once the user's version moved past version.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User, version int64) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("cannot cache nil user")
	}
	if user.IsDeleted {
		return false, fmt.Errorf("cannot cache deleted user %s", user.ID)
	}

	data, err := json.Marshal(toCached(user))
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("user_id", user.ID), zap.Error(err))
		return false, err
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{CacheKey(user.ID), VersionKey(user.ID)},
		data, c.ttl.Milliseconds(), strconv.FormatInt(version, 10),
	).Int()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID), zap.Error(err))
		return false, err
	}

	if stored == 0 {
		c.log.Debug("skipped caching stale user", zap.String("user_id", user.ID), zap.Int64("version", version))
		return false, nil
	}

	c.log.Debug("cached user", zap.String("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Delete removes a user from Redis cache and bumps its version, so a load
// that started before the call cannot put the old row back.
func (c *RedisUserCache) Delete(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, VersionKey(id))
		pipe.PExpire(ctx, VersionKey(id), c.versionTTL())
		pipe.Del(ctx, CacheKey(id))
		return nil
	})
	if err != nil {
		c.log.Error("failed to delete from cache", zap.String("user_id", id), zap.Error(err))
		return err
	}

	c.log.Debug("deleted from cache", zap.String("user_id", id))
	return nil
}
