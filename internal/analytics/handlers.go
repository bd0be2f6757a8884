package analytics

import (
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Sales handles GET /api/v1/analytics/sales?days=N.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	days := common.AtoiDefault(r.URL.Query().Get("days"), 0)
	if days < 0 || days > 365 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "days must be between 1 and 365", nil)
		return
	}
	points, err := h.Svc.SalesDaily(r.Context(), days)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load sales", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": points})
}

// TopProducts handles GET /api/v1/analytics/top-products?days=N&limit=M.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days := common.AtoiDefault(query.Get("days"), 0)
	if days < 0 || days > 365 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "days must be between 1 and 365", nil)
		return
	}
	limit := common.AtoiDefault(query.Get("limit"), 0)
	if limit < 0 || limit > 100 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be between 1 and 100", nil)
		return
	}
	products, err := h.Svc.TopProducts(r.Context(), days, int32(limit))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load top products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}
