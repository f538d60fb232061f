// Package pricing implements the tiered category-discount pricing engine.
//
// A catalog row's list price is converted into a customer-facing selling
// price under one of two laws: a fixed 70/30 margin split, or a sliding
// margin percentage interpolated between two anchors as a function of the
// list price. Discounts resolve through three tiers: contract override,
// built-in supplier defaults, then a constant fallback.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FallbackDiscount is applied when no contract or supplier table matches.
const FallbackDiscount = 25.0

// platformShare is the fraction of the margin retained by the platform in
// fixed-split mode; the remainder is passed to the customer as a discount.
var platformShare = decimal.NewFromFloat(0.30)

// Mode selects which pricing law applies. Callers pick one mode per
// catalog/tenant; the two must never be mixed for the same row.
type Mode string

const (
	// ModeFixedSplit splits the margin 70/30 between customer and platform.
	ModeFixedSplit Mode = "fixed-split"
	// ModeSlidingMargin adds an interpolated margin on top of the purchase price.
	ModeSlidingMargin Mode = "sliding-margin"
)

// Item describes a catalog row submitted for pricing. The engine never
// mutates it.
type Item struct {
	ListPrice          decimal.Decimal
	Supplier           string
	Category           string
	ClassificationCode string
}

// Result carries every derived pricing component for a single row. The JSON
// keys are the contract consumed by the catalog/search layer and must not
// change.
type Result struct {
	ListPrice          decimal.Decimal `json:"list_price"`
	PurchasePrice      decimal.Decimal `json:"infosys_purchase_price"`
	Margin             decimal.Decimal `json:"margin"`
	PlatformKeep       decimal.Decimal `json:"platform_keep"`
	CustomerDiscount   decimal.Decimal `json:"customer_discount"`
	SellingPrice       decimal.Decimal `json:"selling_price"`
	DiscountPercentage float64         `json:"discount_percentage"`
}

// ZeroResult is returned for unpriced catalog rows (list price missing or
// non-positive). All fields are zero; this is a defined degenerate case,
// not an error.
func ZeroResult() Result {
	zero := decimal.Zero
	return Result{
		ListPrice:        zero,
		PurchasePrice:    zero,
		Margin:           zero,
		PlatformKeep:     zero,
		CustomerDiscount: zero,
		SellingPrice:     zero,
	}
}

// Compute applies the fixed 70/30 split. The discount percentage is the
// category discount negotiated with the supplier, in [0, 100]. Pure and
// safe to call concurrently across catalog rows.
func Compute(listPrice decimal.Decimal, discountPct float64) Result {
	if listPrice.Sign() <= 0 {
		return ZeroResult()
	}
	discount := clampPct(discountPct)

	rate := decimal.NewFromFloat(discount).Div(decimal.NewFromInt(100))
	purchase := listPrice.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)
	margin := listPrice.Sub(purchase)
	keep := margin.Mul(platformShare).Round(2)
	customer := margin.Sub(keep)
	selling := listPrice.Sub(customer)

	pct, _ := customer.Div(listPrice).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return Result{
		ListPrice:          listPrice.Round(2),
		PurchasePrice:      purchase,
		Margin:             margin,
		PlatformKeep:       keep,
		CustomerDiscount:   customer,
		SellingPrice:       selling,
		DiscountPercentage: pct,
	}
}

// SlidingAnchors configures the sliding-margin law. Prices at or below
// LowPrice earn HighPct margin; prices at or above HighPrice earn LowPct;
// in between the margin percentage interpolates linearly.
type SlidingAnchors struct {
	LowPrice  float64
	HighPrice float64
	HighPct   float64
	LowPct    float64
}

// DefaultSlidingAnchors reflects the business constants carried over from
// the InfoShop catalog variant.
func DefaultSlidingAnchors() SlidingAnchors {
	return SlidingAnchors{LowPrice: 100, HighPrice: 10000, HighPct: 9.2, LowPct: 5.92}
}

// MarginPct returns the interpolated margin percentage for a list price,
// clamped at both anchors.
func (a SlidingAnchors) MarginPct(listPrice float64) float64 {
	if a.HighPrice <= a.LowPrice {
		return a.HighPct
	}
	if listPrice <= a.LowPrice {
		return a.HighPct
	}
	if listPrice >= a.HighPrice {
		return a.LowPct
	}
	span := a.HighPrice - a.LowPrice
	frac := (listPrice - a.LowPrice) / span
	return a.HighPct + frac*(a.LowPct-a.HighPct)
}

// ComputeSlidingMargin applies the alternate pricing law: the sliding margin
// is added on top of the purchase price rather than split with the customer.
// SellingPrice is clamped so it never exceeds ListPrice.
func ComputeSlidingMargin(listPrice decimal.Decimal, discountPct float64, anchors SlidingAnchors) Result {
	if listPrice.Sign() <= 0 {
		return ZeroResult()
	}
	discount := clampPct(discountPct)

	rate := decimal.NewFromFloat(discount).Div(decimal.NewFromInt(100))
	purchase := listPrice.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)

	lp, _ := listPrice.Float64()
	marginPct := anchors.MarginPct(lp)
	markup := decimal.NewFromFloat(marginPct).Div(decimal.NewFromInt(100))
	selling := purchase.Mul(decimal.NewFromInt(1).Add(markup)).Round(2)
	if selling.GreaterThan(listPrice) {
		selling = listPrice.Round(2)
	}

	customer := listPrice.Sub(selling).Round(2)
	pct, _ := customer.Div(listPrice).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return Result{
		ListPrice:          listPrice.Round(2),
		PurchasePrice:      purchase,
		Margin:             listPrice.Sub(purchase),
		PlatformKeep:       selling.Sub(purchase),
		CustomerDiscount:   customer,
		SellingPrice:       selling,
		DiscountPercentage: pct,
	}
}

// ParseListPrice coerces untrusted spreadsheet-derived price input into a
// decimal. Anything non-numeric degrades to zero.
func ParseListPrice(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if trimmed == "" {
		return decimal.Zero
	}
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	d, err := decimal.NewFromString(trimmed)
	if err != nil || d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

func clampPct(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
