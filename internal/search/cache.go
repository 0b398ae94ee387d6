package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"beastfood/pkg/models"
)

// Cache stores whole search results. Implementations must treat failures as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*models.SearchResult, bool)
	Set(ctx context.Context, key string, res *models.SearchResult)
}

type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: client, TTL: ttl, Prefix: "beastfood:search:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.SearchResult, bool) {
	val, err := c.Client.Get(ctx, c.Prefix+key).Result()
	if err != nil {
		return nil, false
	}
	var res models.SearchResult
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res *models.SearchResult) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.Client.Set(ctx, c.Prefix+key, b, c.TTL).Err()
}

func cacheKey(term string, f models.SearchFilters) string {
	return fmt.Sprintf("%s|%s|%d|%d|%.1f", foldTerm(term), foldTerm(f.Type), f.MinPrice, f.MaxPrice, f.MinRating)
}
