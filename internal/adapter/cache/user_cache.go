package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "consultant-dashboard/internal/domain/user"
)

const (
	userKeyPrefix = "user:"
	listGenKey    = "users:list:gen"
	listKeyPrefix = "users:list:"
)

// UserCache defines the interface for user caching operations.
type UserCache interface {
	// Get retrieves a user with relations from cache by ID.
	// Returns nil if the user is not in cache.
	Get(ctx context.Context, id string) (*domain.WithRelations, error)

	// Set stores a user with relations in cache with the configured TTL.
	Set(ctx context.Context, user *domain.WithRelations) error

	// DeleteMultiple removes users from cache by IDs. Empty IDs are ignored.
	DeleteMultiple(ctx context.Context, ids ...string) error

	// GetList retrieves a listing snapshot. The bool reports a hit.
	GetList(ctx context.Context, name string) ([]domain.WithRelations, bool, error)

	// ListGeneration returns the current listing generation. Read it before
	// loading a snapshot and pass it to SetList.
	ListGeneration(ctx context.Context) (int64, error)

	// SetList stores a listing snapshot under gen. A snapshot stored under a
	// generation that has since been invalidated is never served.
	SetList(ctx context.Context, gen int64, name string, users []domain.WithRelations) error

	// InvalidateLists drops every listing snapshot.
	InvalidateLists(ctx context.Context) error
}

// RedisUserCache implements UserCache using Redis as the backing store.
// Listing snapshots live under a generation number; bumping it orphans the old
// snapshots, which then expire by TTL.
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

// cacheKey generates a Redis key for a user ID.
func (c *RedisUserCache) cacheKey(id string) string {
	return userKeyPrefix + id
}

func listKey(gen int64, name string) string {
	return fmt.Sprintf("%s%d:%s", listKeyPrefix, gen, name)
}

// ListGeneration reads the listing generation. A missing counter is generation 0.
func (c *RedisUserCache) ListGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, listGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, id string) (*domain.WithRelations, error) {
	key := c.cacheKey(id)

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

	var user domain.WithRelations
	if err := json.Unmarshal(data, &user); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("user_id", id))
	return &user, nil
}

// Set stores a user in Redis cache with TTL.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.WithRelations) error {
	if user == nil {
		return fmt.Errorf("cannot cache nil user")
	}

	data, err := json.Marshal(user)
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, c.cacheKey(user.ID), data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	c.log.Debug("cached user", zap.String("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return nil
}

// DeleteMultiple removes multiple users from Redis cache.
func (c *RedisUserCache) DeleteMultiple(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, c.cacheKey(id))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("failed to delete multiple from cache", zap.Int("count", len(keys)), zap.Error(err))
		return err
	}

	c.log.Debug("deleted multiple from cache", zap.Int("count", len(keys)))
	return nil
}

// GetList retrieves a listing snapshot from Redis.
func (c *RedisUserCache) GetList(ctx context.Context, name string) ([]domain.WithRelations, bool, error) {
	gen, err := c.ListGeneration(ctx)
	if err != nil {
		c.log.Error("failed to read list generation", zap.Error(err))
		return nil, false, err
	}
	key := listKey(gen, name)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("list cache miss", zap.String("list", name))
		return nil, false, nil
	}
	if err != nil {
		c.log.Error("failed to get list from cache", zap.String("list", name), zap.Error(err))
		return nil, false, err
	}

	var users []domain.WithRelations
	if err := json.Unmarshal(data, &users); err != nil {
		c.log.Error("failed to unmarshal cached list", zap.String("list", name), zap.Error(err))
		return nil, false, err
	}

	c.log.Debug("list cache hit", zap.String("list", name), zap.Int("count", len(users)))
	return users, true, nil
}

// SetList stores a listing snapshot in Redis with TTL.
func (c *RedisUserCache) SetList(ctx context.Context, gen int64, name string, users []domain.WithRelations) error {
	key := listKey(gen, name)
	data, err := json.Marshal(users)
	if err != nil {
		c.log.Error("failed to marshal list for cache", zap.String("list", name), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set list cache", zap.String("list", name), zap.Error(err))
		return err
	}

	c.log.Debug("cached list", zap.String("list", name), zap.Int64("generation", gen), zap.Int("count", len(users)))
	return nil
}

// InvalidateLists bumps the listing generation.
func (c *RedisUserCache) InvalidateLists(ctx context.Context) error {
	gen, err := c.client.Incr(ctx, listGenKey).Result()
	if err != nil {
		c.log.Error("failed to invalidate list cache", zap.Error(err))
		return err
	}

	c.log.Debug("list cache invalidated", zap.Int64("generation", gen))
	return nil
}
