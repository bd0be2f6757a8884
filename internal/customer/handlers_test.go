package customer_test

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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/db"
)

type stubQuerier struct {
	customers []db.Customer
	created   *db.UpsertCustomerParams
	updated   *db.UpsertCustomerParams
	deleted   bool
}

func (s *stubQuerier) ListCustomers(context.Context) ([]db.Customer, error) {
	return s.customers, nil
}

func (s *stubQuerier) GetCustomerByID(_ context.Context, id pgtype.UUID) (db.Customer, error) {
	for _, c := range s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return db.Customer{}, pgx.ErrNoRows
}

func (s *stubQuerier) CreateCustomer(_ context.Context, arg db.UpsertCustomerParams) (db.Customer, error) {
	s.created = &arg
	return db.Customer{ID: pgUUID(uuid.New()), Name: arg.Name, Phone: arg.Phone, ChatID: arg.ChatID}, nil
}

func (s *stubQuerier) UpdateCustomer(_ context.Context, id pgtype.UUID, arg db.UpsertCustomerParams) (db.Customer, error) {
	for _, c := range s.customers {
		if c.ID == id {
			s.updated = &arg
			return db.Customer{ID: id, Name: arg.Name, Phone: arg.Phone, ChatID: arg.ChatID}, nil
		}
	}
	return db.Customer{}, pgx.ErrNoRows
}

func (s *stubQuerier) DeleteCustomer(context.Context, pgtype.UUID) error {
	s.deleted = true
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func newRouter(q *stubQuerier) http.Handler {
	h := &customer.Handler{Q: q}
	r := chi.NewRouter()
	r.Get("/customers", h.List)
	r.Post("/customers", h.Create)
	r.Get("/customers/{id}", h.Get)
	r.Put("/customers/{id}", h.Update)
	r.Delete("/customers/{id}", h.Delete)
	return r
}

func TestCreateCustomer(t *testing.T) {
	q := &stubQuerier{}
	rec := httptest.NewRecorder()
	body := `{"name":"Budi","phone":"+628123456789","chat_id":"568219"}`
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, q.created)
	require.Equal(t, "Budi", q.created.Name)
	require.True(t, q.created.Phone.Valid)
	require.Equal(t, "568219", q.created.ChatID.String)

	var resp struct {
		Data customer.Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Budi", resp.Data.Name)
	require.NotNil(t, resp.Data.ChatID)
}

func TestCreateCustomerRequiresName(t *testing.T) {
	q := &stubQuerier{}
	rec := httptest.NewRecorder()
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", bytes.NewBufferString(`{"phone":"+62"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, q.created)
}

func TestGetCustomerNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubQuerier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCustomerInvalidID(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubQuerier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCustomer(t *testing.T) {
	id := uuid.New()
	q := &stubQuerier{customers: []db.Customer{{ID: pgUUID(id), Name: "Budi"}}}
	rec := httptest.NewRecorder()
	body := `{"name":"Budi Santoso"}`
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/customers/"+id.String(), bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, q.updated)
	require.Equal(t, "Budi Santoso", q.updated.Name)
	require.False(t, q.updated.Phone.Valid)
}

func TestListCustomersOmitsEmptyOptionalFields(t *testing.T) {
	q := &stubQuerier{customers: []db.Customer{{ID: pgUUID(uuid.New()), Name: "Sari"}}}
	rec := httptest.NewRecorder()
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"phone"`)
	require.NotContains(t, rec.Body.String(), `"chat_id"`)
}

func TestDeleteCustomer(t *testing.T) {
	q := &stubQuerier{}
	rec := httptest.NewRecorder()
	newRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/customers/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, q.deleted)
}
