package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/omnisupply/procurement-api/internal/audit"
	"github.com/omnisupply/procurement-api/internal/catalog"
	"github.com/omnisupply/procurement-api/internal/common"
	"github.com/omnisupply/procurement-api/internal/obs"
)

// Service coordinates contract writes: persistence, cache invalidation, an
// audit trail entry, and scheduling a catalog reprice for the affected
// supplier.
type Service struct {
	Store    *Store
	Cache    *CachedSource
	Tasks    *asynq.Client
	Audit    audit.Recorder
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// ContractInput is the admin payload for creating a contract.
type ContractInput struct {
	Supplier   string  `json:"supplier" validate:"required,min=2,max=120"`
	Category   string  `json:"category" validate:"required,min=2,max=120"`
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
	Active     *bool   `json:"active"`
}

// UpdateInput is the admin payload for amending a contract.
type UpdateInput struct {
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
	Active     bool    `json:"active"`
}

// Create validates and persists a new contract override.
func (s *Service) Create(ctx context.Context, input ContractInput) (Contract, error) {
	if err := s.Validate.Struct(input); err != nil {
		return Contract{}, common.ValidationError("invalid contract payload", err.Error())
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	c, err := s.Store.Create(ctx, strings.TrimSpace(input.Supplier), strings.TrimSpace(input.Category), input.Percentage, active)
	if err != nil {
		s.countWrite("create", "error")
		if err == ErrDuplicate {
			return Contract{}, common.NewAppError("DUPLICATE", "a contract already exists for this supplier and category", 409, err)
		}
		return Contract{}, err
	}
	s.afterWrite(ctx, c.Supplier)
	s.recordAudit(ctx, "contract.create", c)
	s.countWrite("create", "success")
	return c, nil
}

// Update amends percentage and active state.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Contract, error) {
	if err := s.Validate.Struct(input); err != nil {
		return Contract{}, common.ValidationError("invalid contract payload", err.Error())
	}
	c, err := s.Store.Update(ctx, id, input.Percentage, input.Active)
	if err != nil {
		s.countWrite("update", "error")
		if err == ErrNotFound {
			return Contract{}, common.NotFoundError("contract not found", err)
		}
		return Contract{}, err
	}
	s.afterWrite(ctx, c.Supplier)
	s.recordAudit(ctx, "contract.update", c)
	s.countWrite("update", "success")
	return c, nil
}

// Delete removes a contract override.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.Store.Delete(ctx, id)
	if err != nil {
		s.countWrite("delete", "error")
		if err == ErrNotFound {
			return common.NotFoundError("contract not found", err)
		}
		return err
	}
	s.afterWrite(ctx, c.Supplier)
	s.recordAudit(ctx, "contract.delete", c)
	s.countWrite("delete", "success")
	return nil
}

// List returns contracts for the admin UI.
func (s *Service) List(ctx context.Context, supplier string, limit, offset int) ([]Contract, error) {
	return s.Store.List(ctx, strings.TrimSpace(supplier), limit, offset)
}

// afterWrite drops the cached discount map and schedules a background
// reprice so catalog rows pick up the new percentage.
func (s *Service) afterWrite(ctx context.Context, supplier string) {
	s.Cache.Invalidate(ctx, supplier)
	if s.Tasks == nil {
		return
	}
	task, err := catalog.NewRepriceTask(supplier)
	if err != nil {
		s.Logger.Error().Err(err).Str("supplier", supplier).Msg("build reprice task")
		return
	}
	if _, err := s.Tasks.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		s.Logger.Error().Err(err).Str("supplier", supplier).Msg("enqueue reprice task")
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, c Contract) {
	meta, err := json.Marshal(map[string]any{
		"supplier":   c.Supplier,
		"category":   c.Category,
		"percentage": c.Percentage,
		"active":     c.Active,
	})
	if err != nil {
		meta = json.RawMessage(fmt.Sprintf(`{"supplier":%q}`, c.Supplier))
	}
	sub, _ := common.AdminSubject(ctx)
	s.Audit.Record(ctx, sub, action, "contract_discount", c.ID.String(), meta)
}

func (s *Service) countWrite(op, result string) {
	if obs.ContractWriteTotal != nil {
		obs.ContractWriteTotal.WithLabelValues(op, result).Inc()
	}
}
