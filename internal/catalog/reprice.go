package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/omnisupply/procurement-api/internal/lock"
	"github.com/omnisupply/procurement-api/internal/obs"
)

// TypeCatalogReprice is the asynq task type enqueued after any contract
// discount write so the priced listing caches for that supplier are rebuilt.
const TypeCatalogReprice = "catalog:reprice"

type repricePayload struct {
	Supplier string `json:"supplier"`
}

// NewRepriceTask builds the reprice task for a supplier. An empty supplier
// reprices the whole catalog.
func NewRepriceTask(supplier string) (*asynq.Task, error) {
	payload, err := json.Marshal(repricePayload{Supplier: supplier})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCatalogReprice, payload), nil
}

// Repricer handles catalog reprice tasks on the worker. It invalidates the
// listing cache and warms the first page per supplier under a distributed
// lock so concurrent contract writes do not duplicate work.
type Repricer struct {
	Svc     *Service
	Locker  lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (r *Repricer) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload repricePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("catalog: decode reprice payload: %w", err)
	}

	suppliers := []string{payload.Supplier}
	if payload.Supplier == "" {
		var err error
		suppliers, err = r.Svc.Suppliers(ctx)
		if err != nil {
			r.countReprice("error")
			return fmt.Errorf("catalog: list suppliers: %w", err)
		}
	}

	ttl := r.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	for _, supplier := range suppliers {
		err := r.Locker.WithLock(ctx, "lock:catalog:reprice:"+supplier, ttl, func(ctx context.Context) error {
			return r.warm(ctx, supplier)
		})
		if err != nil {
			r.countReprice("error")
			return fmt.Errorf("catalog: reprice %s: %w", supplier, err)
		}
	}
	r.countReprice("success")
	return nil
}

func (r *Repricer) warm(ctx context.Context, supplier string) error {
	if err := r.Svc.Cache.InvalidatePrefix(ctx, "catalog:list:"); err != nil {
		return err
	}
	// Reload straight from Postgres so the first buyer request after a
	// discount change hits a warm page.
	result, err := r.Svc.load(ctx, ListParams{Supplier: supplier, Limit: r.Svc.clampLimit(0)})
	if err != nil {
		return err
	}
	key := listCacheKey(ListParams{Supplier: supplier, Limit: r.Svc.clampLimit(0)})
	if err := r.Svc.Cache.SetJSON(ctx, key, result); err != nil {
		return err
	}
	r.Logger.Info().Str("supplier", supplier).Int("items", len(result.Items)).Msg("catalog repriced")
	return nil
}

func (r *Repricer) countReprice(result string) {
	if obs.CatalogRepriceTotal != nil {
		obs.CatalogRepriceTotal.WithLabelValues(result).Inc()
	}
}
