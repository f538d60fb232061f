package pricing

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/omnisupply/procurement-api/internal/common"
	"github.com/omnisupply/procurement-api/internal/obs"
)

// Handler exposes the pricing quote endpoints.
type Handler struct {
	Engine *Engine
}

// Quote handles GET /api/v1/pricing/quote. All inputs arrive as query
// parameters; malformed values degrade per the engine contract instead of
// erroring.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	q := r.URL.Query()
	item := Item{
		ListPrice:          ParseListPrice(q.Get("list_price")),
		Supplier:           strings.TrimSpace(q.Get("supplier")),
		Category:           strings.TrimSpace(q.Get("category")),
		ClassificationCode: strings.TrimSpace(q.Get("classification_code")),
	}
	result := h.Engine.Quote(r.Context(), item)
	if obs.PricingQuoteTotal != nil {
		obs.PricingQuoteTotal.WithLabelValues(string(h.Engine.Mode), "single").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

type quoteBatchRequest struct {
	Items []quoteItem `json:"items"`
}

type quoteItem struct {
	ListPrice          json.Number `json:"list_price"`
	Supplier           string      `json:"supplier"`
	Category           string      `json:"category"`
	ClassificationCode string      `json:"classification_code"`
}

// QuoteBatch handles POST /api/v1/pricing/quotes for bulk annotation during
// catalog ingestion.
func (h *Handler) QuoteBatch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req quoteBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	items := make([]Item, len(req.Items))
	for i, in := range req.Items {
		items[i] = Item{
			ListPrice:          ParseListPrice(in.ListPrice.String()),
			Supplier:           strings.TrimSpace(in.Supplier),
			Category:           strings.TrimSpace(in.Category),
			ClassificationCode: strings.TrimSpace(in.ClassificationCode),
		}
	}
	results := h.Engine.QuoteAll(r.Context(), items)
	if obs.PricingQuoteTotal != nil {
		obs.PricingQuoteTotal.WithLabelValues(string(h.Engine.Mode), "batch").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": results})
}
