package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// keyProduct caches single products: product:{id}
	keyProduct = "product:%s"

	// ProductTTL bounds how stale a cached product view may be. Stock shown
	// from cache can lag the catalog by up to this window; reservations
	// always hit the database row directly.
	ProductTTL = 5 * time.Minute
)

// ErrMiss is returned when a key is absent from the cache
var ErrMiss = errors.New("cache miss")

// ProductCache is a read-through cache for catalog display reads
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache creates a product cache over the given redis client
func NewProductCache(client *redis.Client) *ProductCache {
	return &ProductCache{client: client, ttl: ProductTTL}
}

// Get fetches a cached product, reporting ErrMiss when absent
func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(keyProduct, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read product from cache: %w", err)
	}

	product := &domain.Product{}
	if err := json.Unmarshal(data, product); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}

	return product, nil
}

// Set stores a product with the cache TTL
func (c *ProductCache) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product for cache: %w", err)
	}

	if err := c.client.Set(ctx, fmt.Sprintf(keyProduct, product.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write product to cache: %w", err)
	}

	return nil
}

// Invalidate drops a product from the cache
func (c *ProductCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, fmt.Sprintf(keyProduct, id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached product: %w", err)
	}
	return nil
}
