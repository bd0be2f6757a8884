package promotion_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/promotion"
)

type stubQuerier struct {
	promos map[string]db.Promotion
	scopes map[string][]db.PromotionScope

	created        *db.UpsertPromotionParams
	replacedScopes []db.ScopeEntry
	deletedCode    string

	createErr error
}

func (s *stubQuerier) ListPromotions(context.Context) ([]db.Promotion, error) {
	out := make([]db.Promotion, 0, len(s.promos))
	for _, p := range s.promos {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubQuerier) GetPromotionByCode(_ context.Context, code string) (db.Promotion, error) {
	p, ok := s.promos[code]
	if !ok {
		return db.Promotion{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *stubQuerier) CreatePromotion(_ context.Context, arg db.UpsertPromotionParams) (db.Promotion, error) {
	if s.createErr != nil {
		return db.Promotion{}, s.createErr
	}
	s.created = &arg
	return db.Promotion{
		ID:          pgUUID(uuid.New()),
		Code:        arg.Code,
		Type:        arg.Type,
		Priority:    arg.Priority,
		IsStackable: arg.IsStackable,
		IsActive:    arg.IsActive,
		StartAt:     arg.StartAt,
		EndAt:       arg.EndAt,
		PercentOff:  arg.PercentOff,
		MinQty:      arg.MinQty,
	}, nil
}

func (s *stubQuerier) UpdatePromotion(_ context.Context, arg db.UpsertPromotionParams) (db.Promotion, error) {
	existing, ok := s.promos[arg.Code]
	if !ok {
		return db.Promotion{}, pgx.ErrNoRows
	}
	return db.Promotion{
		ID:         existing.ID,
		Code:       arg.Code,
		Type:       arg.Type,
		Priority:   arg.Priority,
		IsActive:   arg.IsActive,
		PercentOff: arg.PercentOff,
		MinQty:     arg.MinQty,
	}, nil
}

func (s *stubQuerier) DeletePromotion(_ context.Context, code string) error {
	s.deletedCode = code
	return nil
}

func (s *stubQuerier) ListPromotionScopes(_ context.Context, promotionID pgtype.UUID) ([]db.PromotionScope, error) {
	return s.scopes[uuid.UUID(promotionID.Bytes).String()], nil
}

func (s *stubQuerier) ReplacePromotionScopes(_ context.Context, _ pgtype.UUID, scopes []db.ScopeEntry) error {
	s.replacedScopes = scopes
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func newRouter(q *stubQuerier) http.Handler {
	h := &promotion.Handler{Q: q}
	r := chi.NewRouter()
	r.Get("/promotions", h.List)
	r.Post("/promotions", h.Create)
	r.Get("/promotions/{code}", h.Get)
	r.Put("/promotions/{code}", h.Update)
	r.Delete("/promotions/{code}", h.Delete)
	return r
}

func TestCreateDiscountPromotion(t *testing.T) {
	q := &stubQuerier{}
	rec := httptest.NewRecorder()
	body := `{
		"code": "summer10",
		"type": "discount",
		"percent_off": 10,
		"start_at": "2025-06-01T00:00:00Z",
		"end_at": "2025-08-31T23:59:59Z",
		"scopes": [{"category": "drinks", "is_included": true}]
	}`
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/promotions", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, q.created)
	require.Equal(t, "SUMMER10", q.created.Code)
	require.Equal(t, db.PromoTypeDiscount, q.created.Type)
	require.Equal(t, int32(10), q.created.PercentOff)
	require.True(t, q.created.IsActive)
	require.Len(t, q.replacedScopes, 1)
	require.Equal(t, "DRINKS", q.replacedScopes[0].Category)
	require.True(t, q.replacedScopes[0].IsIncluded)
}

func TestCreatePromotionValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing code", `{"type":"DISCOUNT","percent_off":10}`},
		{"unknown type", `{"code":"X","type":"BOGOF"}`},
		{"percent out of range", `{"code":"X","type":"DISCOUNT","percent_off":101}`},
		{"negative min qty", `{"code":"X","type":"RULE","min_qty":-1}`},
		{"end before start", `{"code":"X","type":"DISCOUNT","percent_off":5,"start_at":"2025-08-01T00:00:00Z","end_at":"2025-07-01T00:00:00Z"}`},
		{"empty scope category", `{"code":"X","type":"DISCOUNT","percent_off":5,"scopes":[{"category":"  "}]}`},
		{"duplicate scope", `{"code":"X","type":"DISCOUNT","percent_off":5,"scopes":[{"category":"DRINKS"},{"category":" drinks "}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &stubQuerier{}
			rec := httptest.NewRecorder()
			newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/promotions", bytes.NewBufferString(tc.body)))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Nil(t, q.created)
		})
	}
}

func TestCreatePromotionConflict(t *testing.T) {
	q := &stubQuerier{createErr: &pgconn.PgError{Code: "23505"}}
	rec := httptest.NewRecorder()
	body := `{"code":"SUMMER10","type":"DISCOUNT","percent_off":10}`
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/promotions", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetPromotionWithScopes(t *testing.T) {
	id := uuid.New()
	q := &stubQuerier{
		promos: map[string]db.Promotion{
			"SUMMER10": {ID: pgUUID(id), Code: "SUMMER10", Type: db.PromoTypeDiscount, PercentOff: 10, IsActive: true},
		},
		scopes: map[string][]db.PromotionScope{
			id.String(): {{Category: "DRINKS", IsIncluded: true}},
		},
	}
	rec := httptest.NewRecorder()
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/promotions/summer10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data promotion.Promotion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "SUMMER10", resp.Data.Code)
	require.Equal(t, "DISCOUNT", resp.Data.Type)
	require.Len(t, resp.Data.Scopes, 1)
	require.Equal(t, "DRINKS", resp.Data.Scopes[0].Category)
}

func TestGetPromotionNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubQuerier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/promotions/NOPE", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePromotionUsesPathCode(t *testing.T) {
	id := uuid.New()
	q := &stubQuerier{
		promos: map[string]db.Promotion{
			"BUY5UPSIZE": {ID: pgUUID(id), Code: "BUY5UPSIZE", Type: db.PromoTypeRule, MinQty: 5},
		},
	}
	rec := httptest.NewRecorder()
	body := `{"code":"IGNORED","type":"RULE","min_qty":6,"scopes":[{"category":"DRINKS","is_included":true}]}`
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/promotions/buy5upsize", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data promotion.Promotion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "BUY5UPSIZE", resp.Data.Code)
	require.Equal(t, int32(6), resp.Data.MinQty)
}

func TestUpdatePromotionNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"type":"DISCOUNT","percent_off":10}`
	newRouter(&stubQuerier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/promotions/NOPE", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePromotion(t *testing.T) {
	q := &stubQuerier{}
	rec := httptest.NewRecorder()
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/promotions/summer10", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "SUMMER10", q.deletedCode)
}
