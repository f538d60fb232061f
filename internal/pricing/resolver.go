package pricing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// DiscountSource supplies active contract-override discounts for a supplier
// as a category → percentage map. Implementations are expected to hit a
// persistent store and should be wrapped in a cache by the caller.
type DiscountSource interface {
	ActiveDiscounts(ctx context.Context, supplier string) (map[string]float64, error)
}

// Resolver walks the three discount tiers: contract override, supplier
// default table, constant fallback. It never fails; a source error degrades
// to the built-in tables and is logged.
type Resolver struct {
	Source DiscountSource
	Logger zerolog.Logger
}

// Resolve returns the discount percentage for a supplier/category pair.
// The result is always in [0, 100].
func (r *Resolver) Resolve(ctx context.Context, supplier, category string) float64 {
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	if r != nil && r.Source != nil {
		overrides, err := r.Source.ActiveDiscounts(ctx, supplier)
		if err != nil {
			r.Logger.Warn().Err(err).Str("supplier", supplier).Msg("contract discount lookup failed, using defaults")
		} else if pct, ok := MatchCategory(overrides, category); ok {
			return clampPct(pct)
		}
	}

	table := SupplierDefaults(supplier)
	if pct, ok := MatchCategory(table.Discounts, category); ok {
		return clampPct(pct)
	}
	return FallbackDiscount
}
