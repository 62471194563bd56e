package topic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 5 * time.Minute
	allTopicsKey    = "topics:all"
	generationKey   = "topics:gen"
)

// setIfCurrent stores the list only when no write has bumped the generation since it was read.
const setIfCurrent = `
	if (tonumber(redis.call("get", KEYS[1])) or 0) == tonumber(ARGV[1]) then
		redis.call("set", KEYS[2], ARGV[2], "PX", ARGV[3])
		return 1
	end
	return 0
`

const bumpGeneration = `
	redis.call("del", KEYS[2])
	return redis.call("incr", KEYS[1])
`

// Cache stores the full topic list in Redis, versioned by a generation counter.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ListCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) GetAll(ctx context.Context) ([]Topic, bool, error) {
	data, err := c.client.Get(ctx, allTopicsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var topics []Topic
	if err := json.Unmarshal(data, &topics); err != nil {
		// A stale or foreign payload is treated as a miss.
		return nil, false, nil
	}
	return topics, true, nil
}

// SetAll reports false when a write invalidated the cache after gen was read.
func (c *Cache) SetAll(ctx context.Context, gen int64, topics []Topic) (bool, error) {
	data, err := json.Marshal(topics)
	if err != nil {
		return false, err
	}
	stored, err := c.client.Eval(ctx, setIfCurrent, []string{generationKey, allTopicsKey},
		gen, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Eval(ctx, bumpGeneration, []string{generationKey, allTopicsKey}).Err()
}
