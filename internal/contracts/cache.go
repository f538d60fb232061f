package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// CachedSource wraps a discount source with a Redis read-through cache so
// bulk catalog annotation does not issue one Postgres query per supplier
// per page. It implements pricing.DiscountSource.
type CachedSource struct {
	Inner interface {
		ActiveDiscounts(ctx context.Context, supplier string) (map[string]float64, error)
	}
	R   *redis.Client
	TTL time.Duration
}

func cacheKey(supplier string) string {
	return "contracts:discounts:" + strings.ToLower(strings.TrimSpace(supplier))
}

// ActiveDiscounts serves the supplier's override map from cache, falling
// back to the inner source and repopulating on miss.
func (c *CachedSource) ActiveDiscounts(ctx context.Context, supplier string) (map[string]float64, error) {
	if c.R != nil {
		data, err := c.R.Get(ctx, cacheKey(supplier)).Bytes()
		if err == nil {
			var discounts map[string]float64
			if jsonErr := json.Unmarshal(data, &discounts); jsonErr == nil {
				return discounts, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// cache unavailable; fall through to the store
			_ = err
		}
	}

	discounts, err := c.Inner.ActiveDiscounts(ctx, supplier)
	if err != nil {
		return nil, err
	}
	if c.R != nil {
		if data, err := json.Marshal(discounts); err == nil {
			ttl := c.TTL
			if ttl <= 0 {
				ttl = 5 * time.Minute
			}
			_ = c.R.Set(ctx, cacheKey(supplier), data, ttl).Err()
		}
	}
	return discounts, nil
}

// Invalidate drops the cached map for a supplier after a contract write.
func (c *CachedSource) Invalidate(ctx context.Context, supplier string) {
	if c == nil || c.R == nil {
		return
	}
	_ = c.R.Del(ctx, cacheKey(supplier)).Err()
}
