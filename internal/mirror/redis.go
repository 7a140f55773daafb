package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlob stores the snapshot under one redis key.
type RedisBlob struct {
	rdb *redis.Client
	key string
}

// NewRedis connects to the redis server at url (redis://host:port/db) and
// stores the snapshot under namespace + ":" + Key.
func NewRedis(ctx context.Context, url, namespace string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisFromClient(rdb, namespace), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client, namespace string) *Store {
	if namespace == "" {
		namespace = "wordfeed"
	}
	return New(&RedisBlob{rdb: rdb, key: namespace + ":" + Key})
}

func (r *RedisBlob) Get(ctx context.Context) ([]byte, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	return data, err
}

func (r *RedisBlob) Put(ctx context.Context, data []byte) error {
	return r.rdb.Set(ctx, r.key, data, 0).Err()
}

func (r *RedisBlob) Close() error   { return r.rdb.Close() }
func (r *RedisBlob) String() string { return "redis:" + r.key }
