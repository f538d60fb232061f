package catalog

import (
	"net/http"

	"github.com/omnisupply/procurement-api/internal/common"
)

// Handler exposes the priced catalog listing.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/catalog/items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "SERVER_MISCONFIGURED", "catalog service unavailable", nil)
		return
	}

	defaultLimit := h.Svc.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	page, perPage := common.ParsePagination(r, defaultLimit)

	result, err := h.Svc.List(r.Context(), ListParams{
		Supplier: r.URL.Query().Get("supplier"),
		Category: r.URL.Query().Get("category"),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_LIST_FAILED", "could not load catalog", nil)
		return
	}

	common.JSON(w, http.StatusOK, map[string]any{
		"data": result.Items,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(result.Total),
		},
	})
}
