package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-booking/internal/logging"
)

// RedisGenreCache keeps the genre list under a single Redis key.
type RedisGenreCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisGenreCache returns nil when rdb is nil.  A nil cache never hits.
func NewRedisGenreCache(rdb *redis.Client, key string, ttl time.Duration) *RedisGenreCache {
	if rdb == nil {
		return nil
	}
	if key == "" {
		key = "catalog:genres"
	}
	return &RedisGenreCache{rdb: rdb, key: key, ttl: ttl}
}

func (c *RedisGenreCache) Get(ctx context.Context) ([]Genre, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.FromContext(ctx).WithError(err).Warn("genre cache read failed")
		}
		return nil, false
	}
	var genres []Genre
	if err := json.Unmarshal(raw, &genres); err != nil || len(genres) == 0 {
		return nil, false
	}
	return genres, true
}

func (c *RedisGenreCache) Set(ctx context.Context, genres []Genre) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(genres)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("genre cache write failed")
	}
}
