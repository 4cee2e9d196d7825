package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const priceKeyPrefix = "price:"

// PriceCache is the subset of *redis.Client used by CachedCatalog.
type PriceCache interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedCatalog is a read-through price cache in front of another lookup.
// Redis failures degrade to the underlying lookup; they never fail a request.
type CachedCatalog struct {
	log   *slog.Logger
	next  CatalogLookup
	cache PriceCache
	ttl   time.Duration
}

func NewCachedCatalog(log *slog.Logger, next CatalogLookup, cache PriceCache, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		log:   log.With(slog.String("component", "storage/catalog_cache")),
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

func (c *CachedCatalog) Prices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return prices, nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = priceKeyPrefix + id
	}

	missing := productIDs
	vals, err := c.cache.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("price cache unavailable", slog.Any("error", err))
	} else {
		missing = missing[:0:0]
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, productIDs[i])
				continue
			}
			price, err := decimal.NewFromString(s)
			if err != nil {
				missing = append(missing, productIDs[i])
				continue
			}
			prices[productIDs[i]] = price
		}
	}

	if len(missing) == 0 {
		return prices, nil
	}

	fresh, err := c.next.Prices(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, price := range fresh {
		prices[id] = price
		if err := c.cache.Set(ctx, priceKeyPrefix+id, price.String(), c.ttl).Err(); err != nil {
			c.log.Warn("failed to cache price", slog.String("product_id", id), slog.Any("error", err))
		}
	}
	return prices, nil
}
