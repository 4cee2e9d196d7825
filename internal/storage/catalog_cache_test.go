package storage_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/commerce-core/internal/lib/logger"
	"github.com/linemk/commerce-core/internal/storage"
)

type fakePriceCache struct {
	values map[string]string
	down   bool
	sets   []string
}

func (f *fakePriceCache) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if f.down {
		return redis.NewSliceResult(nil, errors.New("connection refused"))
	}
	vals := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := f.values[k]; ok {
			vals[i] = v
		}
	}
	return redis.NewSliceResult(vals, nil)
}

func (f *fakePriceCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.down {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	f.values[key] = value.(string)
	f.sets = append(f.sets, key)
	return redis.NewStatusResult("OK", nil)
}

type fakeCatalog struct {
	prices map[string]decimal.Decimal
	asked  [][]string
}

func (f *fakeCatalog) Prices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	f.asked = append(f.asked, append([]string(nil), ids...))
	out := make(map[string]decimal.Decimal)
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestCachedCatalog_ReadThrough(t *testing.T) {
	cache := &fakePriceCache{values: map[string]string{"price:p1": "10"}}
	next := &fakeCatalog{prices: map[string]decimal.Decimal{
		"p1": decimal.NewFromInt(99),
		"p2": decimal.RequireFromString("2.5"),
	}}
	cc := storage.NewCachedCatalog(logger.Discard(), next, cache, time.Minute)

	prices, err := cc.Prices(context.Background(), []string{"p1", "p2", "gone"})
	require.NoError(t, err)

	// p1 comes from the cache, the rest from the database
	assert.True(t, decimal.NewFromInt(10).Equal(prices["p1"]))
	assert.True(t, decimal.RequireFromString("2.5").Equal(prices["p2"]))
	_, ok := prices["gone"]
	assert.False(t, ok)

	require.Len(t, next.asked, 1)
	asked := next.asked[0]
	sort.Strings(asked)
	assert.Equal(t, []string{"gone", "p2"}, asked)
	assert.Equal(t, []string{"price:p2"}, cache.sets)

	// second lookup of p2 is a hit
	_, err = cc.Prices(context.Background(), []string{"p2"})
	require.NoError(t, err)
	assert.Len(t, next.asked, 1)
}

func TestCachedCatalog_RedisDownFallsBack(t *testing.T) {
	cache := &fakePriceCache{values: map[string]string{}, down: true}
	next := &fakeCatalog{prices: map[string]decimal.Decimal{"p1": decimal.NewFromInt(7)}}
	cc := storage.NewCachedCatalog(logger.Discard(), next, cache, time.Minute)

	prices, err := cc.Prices(context.Background(), []string{"p1"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(prices["p1"]))
}
