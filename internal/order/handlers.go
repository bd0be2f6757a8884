package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler exposes order creation and lookup endpoints.
type Handler struct {
	Q   *db.Queries
	Svc *Service
}

type createRequest struct {
	CustomerID    string         `json:"customer_id"`
	PromotionCode string         `json:"promotion_code"`
	Lines         []pricing.Line `json:"lines"`
}

// Create prices and persists a new order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.Svc.Create(r.Context(), CreateInput{
		CustomerID:    req.CustomerID,
		PromotionCode: req.PromotionCode,
		Lines:         req.Lines,
	})
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrNoLines),
			errors.Is(err, pricing.ErrInvalidLine),
			errors.Is(err, pricing.ErrInvalidPromotion):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, ErrMissingPrice):
			common.JSONError(w, http.StatusUnprocessableEntity, "MISSING_PRICE", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create order", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"id":     UUIDString(created.Order.ID),
			"status": created.Order.Status,
			"meta":   created.Result.Meta,
			"lines":  created.Result.Lines,
			"totals": created.Result.Totals,
		},
	})
}

// List returns orders newest first with pagination metadata.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	offset := int32((page - 1) * perPage)
	total, err := h.Q.CountOrders(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Q.ListOrders(r.Context(), int32(perPage), offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		response = append(response, orderSummary(ord))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one order with its priced lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	oID, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ord, err := h.Q.GetOrderByID(r.Context(), oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	lines, err := h.Q.ListOrderLines(r.Context(), ord.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order lines", nil)
		return
	}
	responseLines := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		var options any
		if len(line.Options) > 0 {
			options = json.RawMessage(line.Options)
		}
		responseLines = append(responseLines, map[string]any{
			"line_id":            line.LineID,
			"product_id":         UUIDString(line.ProductID),
			"category":           line.Category,
			"qty":                line.Qty,
			"requested_size_key": line.RequestedSizeKey,
			"effective_size_key": line.EffectiveSizeKey,
			"unit_price_before":  nullableInt8(line.UnitPriceBefore),
			"unit_price_after":   nullableInt8(line.UnitPriceAfter),
			"line_total_before":  nullableInt8(line.LineTotalBefore),
			"line_total_after":   nullableInt8(line.LineTotalAfter),
			"options":            options,
		})
	}
	detail := orderSummary(ord)
	detail["lines"] = responseLines
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

func orderSummary(ord db.Order) map[string]any {
	summary := map[string]any{
		"id":              UUIDString(ord.ID),
		"status":          ord.Status,
		"subtotal_before": ord.SubtotalBefore,
		"discount_amount": ord.DiscountAmount,
		"grand_total":     ord.GrandTotal,
		"createdAt":       ord.CreatedAt,
	}
	if ord.CustomerID.Valid {
		summary["customer_id"] = UUIDString(ord.CustomerID)
	}
	if ord.PromotionCode.Valid {
		summary["promotion_code"] = ord.PromotionCode.String
	}
	return summary
}

func nullableInt8(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// UUIDString renders a pgtype UUID as its canonical string form.
func UUIDString(value pgtype.UUID) string {
	if !value.Valid {
		return ""
	}
	return uuid.UUID(value.Bytes).String()
}

func parseUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
