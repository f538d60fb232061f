package punchout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/omnisupply/procurement-api/internal/common"
	"github.com/omnisupply/procurement-api/internal/obs"
)

// Handler exposes the PunchOut HTTP surface: the cXML setup endpoint
// consumed by the buyer's procurement system, and the JSON session/cart
// endpoints consumed by the shop frontend during the browse phase.
type Handler struct {
	Svc   *Service
	Relay *Relay
}

// Setup handles POST /punchout/setup. The body is a cXML
// PunchOutSetupRequest; the reply is always cXML except when the inbound
// document cannot be parsed at all.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "punchout service not configured", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "MALFORMED_REQUEST", "unable to read request body", nil)
		return
	}
	outcome, err := h.Svc.Setup(r.Context(), body)
	if err != nil {
		if obs.PunchoutSetupTotal != nil {
			obs.PunchoutSetupTotal.WithLabelValues("unknown", "malformed").Inc()
		}
		common.JSONError(w, http.StatusBadRequest, "MALFORMED_XML", "request is not a well-formed cXML PunchOutSetupRequest", map[string]any{"error": err.Error()})
		return
	}
	result := "unauthorized"
	if outcome.Authorized {
		result = "success"
	}
	if obs.PunchoutSetupTotal != nil {
		obs.PunchoutSetupTotal.WithLabelValues(outcome.DeploymentMode, result).Inc()
	}
	common.WriteXML(w, http.StatusOK, outcome.Document)
}

// GetSession handles GET /punchout/sessions/{token}. The shop frontend
// probes this with the sid embedded in the StartPage URL.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "punchout service not configured", nil)
		return
	}
	token := chi.URLParam(r, "token")
	sess, err := h.Svc.Lookup(r.Context(), token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"valid":           true,
			"buyer_identity":  sess.BuyerIdentity,
			"deployment_mode": sess.DeploymentMode,
			"cart_items":      sess.CartItems,
			"created_at":      sess.CreatedAt,
		},
	})
}

type cartUpdateRequest struct {
	Items []cartLine `json:"items"`
}

type cartLine struct {
	SupplierPartID       string      `json:"supplier_part_id"`
	Description          string      `json:"description"`
	Quantity             int         `json:"quantity"`
	UnitPrice            json.Number `json:"unit_price"`
	UnitOfMeasure        string      `json:"unit_of_measure"`
	ClassificationDomain string      `json:"classification_domain"`
	ClassificationCode   string      `json:"classification_code"`
	ManufacturerPartID   string      `json:"manufacturer_part_id"`
	ManufacturerName     string      `json:"manufacturer_name"`
}

// UpdateCart handles PUT /punchout/sessions/{token}/cart, replacing the
// session cart wholesale.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "punchout service not configured", nil)
		return
	}
	token := chi.URLParam(r, "token")
	var req cartUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	items := make([]LineItem, 0, len(req.Items))
	for i, line := range req.Items {
		if line.SupplierPartID == "" {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "supplier_part_id is required", map[string]any{"index": i})
			return
		}
		if line.Quantity <= 0 {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be positive", map[string]any{"index": i})
			return
		}
		price, err := decimal.NewFromString(line.UnitPrice.String())
		if err != nil || price.Sign() < 0 {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unit_price must be a non-negative number", map[string]any{"index": i})
			return
		}
		uom := line.UnitOfMeasure
		if uom == "" {
			uom = "EA"
		}
		items = append(items, LineItem{
			SupplierPartID:       line.SupplierPartID,
			Description:          line.Description,
			Quantity:             line.Quantity,
			UnitPrice:            price,
			UnitOfMeasure:        uom,
			ClassificationDomain: line.ClassificationDomain,
			ClassificationCode:   line.ClassificationCode,
			ManufacturerPartID:   line.ManufacturerPartID,
			ManufacturerName:     line.ManufacturerName,
		})
	}
	if err := h.Svc.ReplaceCart(r.Context(), token, items); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"items": len(items)}})
}

// Transfer handles POST /punchout/sessions/{token}/order: closes the
// session and returns the PunchOutOrderMessage. When relay mode is on the
// document is additionally posted to the buyer's BrowserFormPost URL.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "punchout service not configured", nil)
		return
	}
	token := chi.URLParam(r, "token")
	result, err := h.Svc.Transfer(r.Context(), token)
	if err != nil {
		if obs.PunchoutOrderTotal != nil && !errors.Is(err, ErrSessionNotFound) {
			obs.PunchoutOrderTotal.WithLabelValues("rejected").Inc()
		}
		h.writeError(w, err)
		return
	}
	if relayErr := h.Relay.Deliver(r.Context(), result.BrowserFormPostURL, result.Document); relayErr != nil {
		h.Svc.Logger.Error().Err(relayErr).Str("url", result.BrowserFormPostURL).Msg("relay order message")
	}
	common.WriteXML(w, http.StatusOK, result.Document)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "punchout session not found or already closed", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cannot transfer an empty cart", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
