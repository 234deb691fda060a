package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry stores each recipient's device tokens in a Redis set.
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry connects to Redis and fails fast if it is unreachable.
func NewRedisRegistry(addr, password string, db int) (*RedisRegistry, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisRegistry{rdb: rdb}, nil
}

func (r *RedisRegistry) Register(ctx context.Context, recipient, deviceToken string) error {
	return r.rdb.SAdd(ctx, r.key(recipient), deviceToken).Err()
}

func (r *RedisRegistry) Unregister(ctx context.Context, recipient, deviceToken string) error {
	return r.rdb.SRem(ctx, r.key(recipient), deviceToken).Err()
}

func (r *RedisRegistry) Tokens(ctx context.Context, recipient string) ([]string, error) {
	return r.rdb.SMembers(ctx, r.key(recipient)).Result()
}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}

func (r *RedisRegistry) key(recipient string) string {
	return fmt.Sprintf("apns:tokens:%s", recipient)
}
