package promotion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Querier is the slice of db.Queries the promotion handlers use.
type Querier interface {
	ListPromotions(ctx context.Context) ([]db.Promotion, error)
	GetPromotionByCode(ctx context.Context, code string) (db.Promotion, error)
	CreatePromotion(ctx context.Context, arg db.UpsertPromotionParams) (db.Promotion, error)
	UpdatePromotion(ctx context.Context, arg db.UpsertPromotionParams) (db.Promotion, error)
	DeletePromotion(ctx context.Context, code string) error
	ListPromotionScopes(ctx context.Context, promotionID pgtype.UUID) ([]db.PromotionScope, error)
	ReplacePromotionScopes(ctx context.Context, promotionID pgtype.UUID, scopes []db.ScopeEntry) error
}

// Handler exposes admin endpoints for promotion definitions and their
// category scopes.
type Handler struct {
	Q Querier
}

// Scope is the API shape of one category scope entry.
type Scope struct {
	Category   string `json:"category"`
	IsIncluded bool   `json:"is_included"`
}

// Promotion is the API shape of a promotion definition.
type Promotion struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Priority    int32      `json:"priority"`
	IsStackable bool       `json:"is_stackable"`
	IsActive    bool       `json:"is_active"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	PercentOff  int32      `json:"percent_off"`
	MinQty      int32      `json:"min_qty"`
	Scopes      []Scope    `json:"scopes,omitempty"`
}

type promotionRequest struct {
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Priority    int32      `json:"priority"`
	IsStackable bool       `json:"is_stackable"`
	IsActive    *bool      `json:"is_active"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	PercentOff  int32      `json:"percent_off"`
	MinQty      int32      `json:"min_qty"`
	Scopes      []Scope    `json:"scopes"`
}

// List handles GET /api/v1/promotions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Q.ListPromotions(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list promotions", nil)
		return
	}
	response := make([]Promotion, 0, len(rows))
	for _, row := range rows {
		response = append(response, toPromotion(row, nil))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}

// Get handles GET /api/v1/promotions/{code}, including the scope set.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	code := pricing.NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "promotion code is required", nil)
		return
	}
	row, err := h.Q.GetPromotionByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion", nil)
		return
	}
	scopes, err := h.Q.ListPromotionScopes(r.Context(), row.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion scopes", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toPromotion(row, scopes)})
}

// Create handles POST /api/v1/promotions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	params, scopes, err := decodePromotion(r, "")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	row, err := h.Q.CreatePromotion(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "promotion code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create promotion", nil)
		return
	}
	if err := h.Q.ReplacePromotionScopes(r.Context(), row.ID, scopes); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to store promotion scopes", nil)
		return
	}
	stored, err := h.Q.ListPromotionScopes(r.Context(), row.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion scopes", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toPromotion(row, stored)})
}

// Update handles PUT /api/v1/promotions/{code}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := pricing.NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "promotion code is required", nil)
		return
	}
	params, scopes, err := decodePromotion(r, code)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	row, err := h.Q.UpdatePromotion(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update promotion", nil)
		return
	}
	if err := h.Q.ReplacePromotionScopes(r.Context(), row.ID, scopes); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to store promotion scopes", nil)
		return
	}
	stored, err := h.Q.ListPromotionScopes(r.Context(), row.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion scopes", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toPromotion(row, stored)})
}

// Delete handles DELETE /api/v1/promotions/{code}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	code := pricing.NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "promotion code is required", nil)
		return
	}
	if err := h.Q.DeletePromotion(r.Context(), code); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete promotion", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodePromotion(r *http.Request, codeOverride string) (db.UpsertPromotionParams, []db.ScopeEntry, error) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return db.UpsertPromotionParams{}, nil, errors.New("invalid request payload")
	}
	code := codeOverride
	if code == "" {
		code = pricing.NormalizeCode(req.Code)
	}
	if code == "" {
		return db.UpsertPromotionParams{}, nil, errors.New("code is required")
	}
	promoType := db.PromoType(strings.ToUpper(strings.TrimSpace(req.Type)))
	switch promoType {
	case db.PromoTypeDiscount:
		if req.PercentOff < 0 || req.PercentOff > 100 {
			return db.UpsertPromotionParams{}, nil, errors.New("percent_off must be between 0 and 100")
		}
	case db.PromoTypeRule:
		if req.MinQty < 0 {
			return db.UpsertPromotionParams{}, nil, errors.New("min_qty must not be negative")
		}
	default:
		return db.UpsertPromotionParams{}, nil, errors.New("type must be DISCOUNT or RULE")
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return db.UpsertPromotionParams{}, nil, errors.New("end_at must not precede start_at")
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	params := db.UpsertPromotionParams{
		Code:        code,
		Type:        promoType,
		Priority:    req.Priority,
		IsStackable: req.IsStackable,
		IsActive:    isActive,
		PercentOff:  req.PercentOff,
		MinQty:      req.MinQty,
	}
	if req.StartAt != nil {
		params.StartAt = pgtype.Timestamptz{Time: *req.StartAt, Valid: true}
	}
	if req.EndAt != nil {
		params.EndAt = pgtype.Timestamptz{Time: *req.EndAt, Valid: true}
	}
	scopes := make([]db.ScopeEntry, 0, len(req.Scopes))
	seen := make(map[string]struct{}, len(req.Scopes))
	for _, s := range req.Scopes {
		category := pricing.NormalizeCategory(s.Category)
		if category == "" {
			return db.UpsertPromotionParams{}, nil, errors.New("scope category must not be empty")
		}
		if _, dup := seen[category]; dup {
			return db.UpsertPromotionParams{}, nil, errors.New("duplicate scope category: " + category)
		}
		seen[category] = struct{}{}
		scopes = append(scopes, db.ScopeEntry{Category: category, IsIncluded: s.IsIncluded})
	}
	return params, scopes, nil
}

func toPromotion(row db.Promotion, scopes []db.PromotionScope) Promotion {
	p := Promotion{
		ID:          uuidString(row.ID),
		Code:        row.Code,
		Type:        string(row.Type),
		Priority:    row.Priority,
		IsStackable: row.IsStackable,
		IsActive:    row.IsActive,
		PercentOff:  row.PercentOff,
		MinQty:      row.MinQty,
	}
	if row.StartAt.Valid {
		start := row.StartAt.Time
		p.StartAt = &start
	}
	if row.EndAt.Valid {
		end := row.EndAt.Time
		p.EndAt = &end
	}
	if len(scopes) > 0 {
		p.Scopes = make([]Scope, 0, len(scopes))
		for _, s := range scopes {
			p.Scopes = append(p.Scopes, Scope{Category: s.Category, IsIncluded: s.IsIncluded})
		}
	}
	return p
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
