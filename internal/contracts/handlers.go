package contracts

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omnisupply/procurement-api/internal/common"
)

// Handler exposes the admin contract endpoints.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/v1/admin/contracts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "contract service not configured", nil)
		return
	}
	var input ContractInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	c, err := h.Svc.Create(r.Context(), input)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// List handles GET /api/v1/admin/contracts?supplier=&page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "contract service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	rows, err := h.Svc.List(r.Context(), r.URL.Query().Get("supplier"), perPage, (page-1)*perPage)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Update handles PATCH /api/v1/admin/contracts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "contract service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid contract id", nil)
		return
	}
	var input UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	c, err := h.Svc.Update(r.Context(), id, input)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Delete handles DELETE /api/v1/admin/contracts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "contract service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid contract id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
