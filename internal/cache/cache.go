package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sponsored:results:"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ResultCache stores extracted products per search so repeated requests do
// not launch a browser. It is safe for concurrent use.
type ResultCache struct {
	redis RedisClient
	ttl   time.Duration
}

func New(client RedisClient, ttl time.Duration) *ResultCache {
	return &ResultCache{
		redis: client,
		ttl:   ttl,
	}
}

// Key derives the cache key from the ordered terms and the listing mode.
func Key(terms []string, includeRegular bool) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(terms, "\x00")))
	if includeRegular {
		h.Write([]byte("|regular"))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached products and whether there was a hit.
func (c *ResultCache) Get(ctx context.Context, terms []string, includeRegular bool) ([]models.Product, bool, error) {
	data, err := c.redis.Get(ctx, Key(terms, includeRegular)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	return products, true, nil
}

func (c *ResultCache) Set(ctx context.Context, terms []string, includeRegular bool, products []models.Product) error {
	if c.ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}

	if err := c.redis.Set(ctx, Key(terms, includeRegular), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}
