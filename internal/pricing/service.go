package pricing

import (
	"context"
	"strings"
)

// Engine binds a discount resolver to one pricing mode. It is the sole
// pricing contract the rest of the system consumes.
type Engine struct {
	Resolver *Resolver
	Mode     Mode
	Anchors  SlidingAnchors
}

// Quote prices a single catalog row. Missing categories are derived from
// the classification code when present, otherwise default to "General".
// Invalid input degrades to the zero result; Quote never errors.
func (e *Engine) Quote(ctx context.Context, item Item) Result {
	if item.ListPrice.Sign() <= 0 {
		return ZeroResult()
	}
	category := e.categoryFor(item)
	discount := e.Resolver.Resolve(ctx, item.Supplier, category)
	return e.compute(item, discount)
}

// QuoteAll prices a batch of rows, resolving each distinct
// (supplier, category) pair once. Bulk ingestion calls this once per page
// of catalog rows instead of issuing a lookup per row.
func (e *Engine) QuoteAll(ctx context.Context, items []Item) []Result {
	results := make([]Result, len(items))
	discounts := make(map[string]float64)
	for i, item := range items {
		if item.ListPrice.Sign() <= 0 {
			results[i] = ZeroResult()
			continue
		}
		category := e.categoryFor(item)
		key := strings.ToLower(item.Supplier) + "\x00" + strings.ToLower(category)
		pct, ok := discounts[key]
		if !ok {
			pct = e.Resolver.Resolve(ctx, item.Supplier, category)
			discounts[key] = pct
		}
		results[i] = e.compute(item, pct)
	}
	return results
}

func (e *Engine) categoryFor(item Item) string {
	category := strings.TrimSpace(item.Category)
	if category == "" {
		category = CategoryFromCode(item.ClassificationCode)
	}
	if category == "" {
		category = DefaultCategory
	}
	return category
}

func (e *Engine) compute(item Item, discount float64) Result {
	if e.Mode == ModeSlidingMargin {
		anchors := e.Anchors
		if anchors == (SlidingAnchors{}) {
			anchors = DefaultSlidingAnchors()
		}
		return ComputeSlidingMargin(item.ListPrice, discount, anchors)
	}
	return Compute(item.ListPrice, discount)
}
