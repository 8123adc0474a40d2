package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garasipos/garasipos/internal/catalog/packages"
	"github.com/garasipos/garasipos/internal/catalog/products"
)

// Cache is a read-through redis cache for product and package snapshots used
// during line resolution. Misses and redis failures fall through to the loader;
// writers invalidate, they never update in place.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs Cache. ttl <= 0 falls back to five minutes.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

func packageKey(id int64) string {
	return fmt.Sprintf("catalog:package:%d", id)
}

// GetProduct returns the cached product or loads and caches it.
func (c *Cache) GetProduct(ctx context.Context, id int64, load func(context.Context, int64) (products.Product, error)) (products.Product, error) {
	if c == nil || c.client == nil {
		return load(ctx, id)
	}
	if raw, err := c.client.Get(ctx, productKey(id)).Bytes(); err == nil {
		var p products.Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
	}
	p, err := load(ctx, id)
	if err != nil {
		return products.Product{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		c.client.Set(ctx, productKey(id), raw, c.ttl)
	}
	return p, nil
}

// GetPackage returns the cached package (with items) or loads and caches it.
func (c *Cache) GetPackage(ctx context.Context, id int64, load func(context.Context, int64) (packages.Package, error)) (packages.Package, error) {
	if c == nil || c.client == nil {
		return load(ctx, id)
	}
	if raw, err := c.client.Get(ctx, packageKey(id)).Bytes(); err == nil {
		var p packages.Package
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
	}
	p, err := load(ctx, id)
	if err != nil {
		return packages.Package{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		c.client.Set(ctx, packageKey(id), raw, c.ttl)
	}
	return p, nil
}

// InvalidateProduct drops the cached snapshot. Stock movements call this so
// advisory resolution checks never lag further than one miss behind.
func (c *Cache) InvalidateProduct(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, productKey(id)).Err()
}

// InvalidatePackage drops the cached snapshot.
func (c *Cache) InvalidatePackage(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, packageKey(id)).Err()
}
