package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const permissionKeyPrefix = "rbac:perms:user:"

// PermissionCache keeps each user's effective permission codes in Redis.
type PermissionCache interface {
	Get(ctx context.Context, userID uint) ([]string, bool, error)
	Set(ctx context.Context, userID uint, codes []string) error
	Invalidate(ctx context.Context, userID uint) error
	InvalidateAll(ctx context.Context) error
}

// IdempotencyStore remembers the result id of a request keyed by a client token.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisPermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPermissionCache(client *redis.Client, ttl time.Duration) *RedisPermissionCache {
	return &RedisPermissionCache{client: client, ttl: ttl}
}

func (c *RedisPermissionCache) key(userID uint) string {
	return fmt.Sprintf("%s%d", permissionKeyPrefix, userID)
}

func (c *RedisPermissionCache) Get(ctx context.Context, userID uint) ([]string, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var codes []string
	if err := json.Unmarshal([]byte(data), &codes); err != nil {
		return nil, false, err
	}
	return codes, true, nil
}

func (c *RedisPermissionCache) Set(ctx context.Context, userID uint, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), data, c.ttl).Err()
}

func (c *RedisPermissionCache) Invalidate(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

// InvalidateAll drops every cached permission set. Used when a role's
// permissions change, since any number of users may hold that role.
func (c *RedisPermissionCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, permissionKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

func NewRedisIdempotencyStore(client *redis.Client, prefix string) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, "idem:"+s.prefix+":"+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, "idem:"+s.prefix+":"+key, value, ttl).Err()
}
