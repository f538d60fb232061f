// Package catalog exposes the priced catalog read surface. Rows are loaded
// from Postgres, annotated with the full pricing result, and cached in
// Redis for the listing TTL.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/omnisupply/procurement-api/internal/pricing"
)

// Item is one catalog row as stored.
type Item struct {
	ID                 uuid.UUID       `json:"id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Supplier           string          `json:"supplier"`
	Category           string          `json:"category"`
	ClassificationCode string          `json:"classification_code"`
	ListPrice          decimal.Decimal `json:"list_price"`
	UnitOfMeasure      string          `json:"unit_of_measure"`
	ManufacturerName   string          `json:"manufacturer_name"`
	ManufacturerPartID string          `json:"manufacturer_part_id"`
}

// PricedItem is a catalog row with the pricing result merged in, the shape
// the search/ingestion layer consumes.
type PricedItem struct {
	Item
	Pricing pricing.Result `json:"pricing"`
}

// ListParams filters the catalog listing.
type ListParams struct {
	Supplier string
	Category string
	Limit    int
	Offset   int
}

// ListResult carries one page of priced rows.
type ListResult struct {
	Items []PricedItem `json:"items"`
	Total int64        `json:"total"`
}

// Service loads, prices, and caches catalog rows.
type Service struct {
	Pool         *pgxpool.Pool
	Engine       *pricing.Engine
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		if s.DefaultLimit > 0 {
			return s.DefaultLimit
		}
		return 20
	}
	max := s.MaxLimit
	if max <= 0 {
		max = 100
	}
	if limit > max {
		return max
	}
	return limit
}

const itemColumns = `id, sku, name, description, supplier, category, classification_code, list_price, unit_of_measure, manufacturer_name, manufacturer_part_id`

// List returns one page of priced catalog rows, served from cache when warm.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if s == nil || s.Pool == nil || s.Engine == nil {
		return ListResult{}, errors.New("catalog: service not configured")
	}
	params.Limit = s.clampLimit(params.Limit)
	if params.Offset < 0 {
		params.Offset = 0
	}

	key := listCacheKey(params)
	var cached ListResult
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	result, err := s.load(ctx, params)
	if err != nil {
		return ListResult{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, result)
	return result, nil
}

func (s *Service) load(ctx context.Context, params ListParams) (ListResult, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if params.Supplier != "" {
		args = append(args, params.Supplier)
		where = append(where, fmt.Sprintf("lower(supplier) = lower($%d)", len(args)))
	}
	if params.Category != "" {
		args = append(args, params.Category)
		where = append(where, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM catalog_items"+clause, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf("SELECT %s FROM catalog_items%s ORDER BY sku LIMIT $%d OFFSET $%d",
		itemColumns, clause, len(args)-1, len(args))
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SKU, &it.Name, &it.Description, &it.Supplier, &it.Category,
			&it.ClassificationCode, &it.ListPrice, &it.UnitOfMeasure, &it.ManufacturerName, &it.ManufacturerPartID); err != nil {
			return ListResult{}, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}

	inputs := make([]pricing.Item, len(items))
	for i, it := range items {
		inputs[i] = pricing.Item{
			ListPrice:          it.ListPrice,
			Supplier:           it.Supplier,
			Category:           it.Category,
			ClassificationCode: it.ClassificationCode,
		}
	}
	results := s.Engine.QuoteAll(ctx, inputs)

	priced := make([]PricedItem, len(items))
	for i, it := range items {
		priced[i] = PricedItem{Item: it, Pricing: results[i]}
	}
	return ListResult{Items: priced, Total: total}, nil
}

// Suppliers returns the distinct suppliers present in the catalog, used by
// the reprice worker to warm caches supplier by supplier.
func (s *Service) Suppliers(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, "SELECT DISTINCT supplier FROM catalog_items ORDER BY supplier")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var supplier string
		if err := rows.Scan(&supplier); err != nil {
			return nil, err
		}
		out = append(out, supplier)
	}
	return out, rows.Err()
}

func listCacheKey(params ListParams) string {
	return fmt.Sprintf("catalog:list:%s:%s:%d:%d",
		strings.ToLower(params.Supplier), strings.ToLower(params.Category), params.Limit, params.Offset)
}
