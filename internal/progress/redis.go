package progress

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores progress for hosted clients, one key namespace per client id.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(client *redis.Client, clientID string) *RedisBackend {
	return &RedisBackend{client: client, prefix: "progress:" + clientID + ":"}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return data, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, b.prefix+key, value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = b.prefix + k
	}
	return b.client.Del(ctx, full...).Err()
}
