package customer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/db"
)

// Querier is the slice of db.Queries the customer handlers use.
type Querier interface {
	ListCustomers(ctx context.Context) ([]db.Customer, error)
	GetCustomerByID(ctx context.Context, id pgtype.UUID) (db.Customer, error)
	CreateCustomer(ctx context.Context, arg db.UpsertCustomerParams) (db.Customer, error)
	UpdateCustomer(ctx context.Context, id pgtype.UUID, arg db.UpsertCustomerParams) (db.Customer, error)
	DeleteCustomer(ctx context.Context, id pgtype.UUID) error
}

// Handler exposes REST endpoints for managing customer records.
type Handler struct {
	Q Querier
	V *validator.Validate
}

func (h *Handler) validate() *validator.Validate {
	if h.V != nil {
		return h.V
	}
	return defaultValidate
}

var defaultValidate = validator.New()

// Customer is the API shape of a customer record.
type Customer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	ChatID    *string    `json:"chat_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type customerRequest struct {
	Name   string `json:"name" validate:"required,max=120"`
	Phone  string `json:"phone" validate:"omitempty,min=5,max=32"`
	ChatID string `json:"chat_id" validate:"omitempty,numeric"`
}

// List handles GET /api/v1/customers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Q.ListCustomers(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list customers", nil)
		return
	}
	response := make([]Customer, 0, len(rows))
	for _, row := range rows {
		response = append(response, toCustomer(row))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}

// Get handles GET /api/v1/customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
		return
	}
	row, err := h.Q.GetCustomerByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load customer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toCustomer(row)})
}

// Create handles POST /api/v1/customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	params, err := h.decodeCustomer(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	row, err := h.Q.CreateCustomer(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create customer", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toCustomer(row)})
}

// Update handles PUT /api/v1/customers/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
		return
	}
	params, err := h.decodeCustomer(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	row, err := h.Q.UpdateCustomer(r.Context(), id, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update customer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toCustomer(row)})
}

// Delete handles DELETE /api/v1/customers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
		return
	}
	if err := h.Q.DeleteCustomer(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete customer", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeCustomer(r *http.Request) (db.UpsertCustomerParams, error) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return db.UpsertCustomerParams{}, errors.New("invalid request payload")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ChatID = strings.TrimSpace(req.ChatID)
	if err := h.validate().Struct(req); err != nil {
		if req.Name == "" {
			return db.UpsertCustomerParams{}, errors.New("name is required")
		}
		return db.UpsertCustomerParams{}, errors.New("invalid customer payload")
	}
	params := db.UpsertCustomerParams{Name: req.Name}
	if req.Phone != "" {
		params.Phone = pgtype.Text{String: req.Phone, Valid: true}
	}
	if req.ChatID != "" {
		params.ChatID = pgtype.Text{String: req.ChatID, Valid: true}
	}
	return params, nil
}

func toCustomer(row db.Customer) Customer {
	c := Customer{
		ID:   uuidString(row.ID),
		Name: row.Name,
	}
	if row.Phone.Valid {
		phone := row.Phone.String
		c.Phone = &phone
	}
	if row.ChatID.Valid {
		chatID := row.ChatID.String
		c.ChatID = &chatID
	}
	if row.CreatedAt.Valid {
		created := row.CreatedAt.Time
		c.CreatedAt = &created
	}
	return c
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func parseUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
