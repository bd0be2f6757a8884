package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

const (
	categoriesCacheKey = "catalog:categories"
	productsCacheKey   = "catalog:products"
)

// Querier is the slice of db.Queries the catalog handlers use.
type Querier interface {
	ListCategories(ctx context.Context) ([]db.Category, error)
	CreateCategory(ctx context.Context, name string) (db.Category, error)
	UpdateCategory(ctx context.Context, id pgtype.UUID, name string) (db.Category, error)
	DeleteCategory(ctx context.Context, id pgtype.UUID) error
	ListSubcategoriesByCategory(ctx context.Context, categoryID pgtype.UUID) ([]db.Subcategory, error)
	CreateSubcategory(ctx context.Context, categoryID pgtype.UUID, name string) (db.Subcategory, error)
	UpdateSubcategory(ctx context.Context, id pgtype.UUID, name string) (db.Subcategory, error)
	DeleteSubcategory(ctx context.Context, id pgtype.UUID) error
	ListProducts(ctx context.Context) ([]db.Product, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	UpdateProduct(ctx context.Context, arg db.UpdateProductParams) (db.Product, error)
	DeleteProduct(ctx context.Context, id pgtype.UUID) error
	ListPricesByProduct(ctx context.Context, productID pgtype.UUID) ([]db.ProductPrice, error)
	UpsertProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string, price int64) (db.ProductPrice, error)
	DeleteProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string) error
}

// Handler exposes catalog management endpoints: categories, subcategories,
// products, and per-size prices.
type Handler struct {
	Q          Querier
	Cache      *Cache
	PriceCache *pricing.Cache
}

// Category is the API shape of a product category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subcategory is the API shape of a category refinement.
type Subcategory struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// Product is the API shape of a sellable menu entry.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CategoryID    string  `json:"category_id"`
	SubcategoryID *string `json:"subcategory_id,omitempty"`
	IsActive      bool    `json:"is_active"`
}

// Price is the API shape of one size variant price.
type Price struct {
	SizeKey string `json:"size_key"`
	Price   int64  `json:"price"`
}

type namePayload struct {
	Name string `json:"name"`
}

type productPayload struct {
	Name          string  `json:"name"`
	CategoryID    string  `json:"category_id"`
	SubcategoryID *string `json:"subcategory_id"`
	IsActive      *bool   `json:"is_active"`
}

type pricePayload struct {
	SizeKey string `json:"size_key"`
	Price   int64  `json:"price"`
}

// Categories lists every category, cache-aside.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	var cached []Category
	if ok, err := h.Cache.GetJSON(r.Context(), categoriesCacheKey, &cached); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": cached})
		return
	}
	rows, err := h.Q.ListCategories(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list categories", nil)
		return
	}
	response := make([]Category, 0, len(rows))
	for _, row := range rows {
		response = append(response, Category{ID: uuidString(row.ID), Name: row.Name})
	}
	_ = h.Cache.SetJSON(r.Context(), categoriesCacheKey, response)
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}

// CreateCategory inserts a category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload namePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required", nil)
		return
	}
	row, err := h.Q.CreateCategory(r.Context(), name)
	if err != nil {
		if isUniqueViolation(err) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "category already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create category", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), categoriesCacheKey)
	common.JSON(w, http.StatusCreated, map[string]any{"data": Category{ID: uuidString(row.ID), Name: row.Name}})
}

// UpdateCategory renames a category.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	var payload namePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required", nil)
		return
	}
	row, err := h.Q.UpdateCategory(r.Context(), id, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update category", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), categoriesCacheKey, productsCacheKey)
	common.JSON(w, http.StatusOK, map[string]any{"data": Category{ID: uuidString(row.ID), Name: row.Name}})
}

// DeleteCategory removes a category and cascades to its subcategories.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	if err := h.Q.DeleteCategory(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete category", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), categoriesCacheKey, productsCacheKey)
	w.WriteHeader(http.StatusNoContent)
}

// Subcategories lists refinements for one category.
func (h *Handler) Subcategories(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	rows, err := h.Q.ListSubcategoriesByCategory(r.Context(), categoryID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list subcategories", nil)
		return
	}
	response := make([]Subcategory, 0, len(rows))
	for _, row := range rows {
		response = append(response, Subcategory{
			ID:         uuidString(row.ID),
			CategoryID: uuidString(row.CategoryID),
			Name:       row.Name,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}

// CreateSubcategory inserts a refinement under a category.
func (h *Handler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	var payload namePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required", nil)
		return
	}
	row, err := h.Q.CreateSubcategory(r.Context(), categoryID, name)
	if err != nil {
		if isForeignKeyViolation(err) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create subcategory", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": Subcategory{
		ID:         uuidString(row.ID),
		CategoryID: uuidString(row.CategoryID),
		Name:       row.Name,
	}})
}

// UpdateSubcategory renames a refinement.
func (h *Handler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "subId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid subcategory id", nil)
		return
	}
	var payload namePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required", nil)
		return
	}
	row, err := h.Q.UpdateSubcategory(r.Context(), id, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "subcategory not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update subcategory", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": Subcategory{
		ID:         uuidString(row.ID),
		CategoryID: uuidString(row.CategoryID),
		Name:       row.Name,
	}})
}

// DeleteSubcategory removes a refinement.
func (h *Handler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "subId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid subcategory id", nil)
		return
	}
	if err := h.Q.DeleteSubcategory(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete subcategory", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Products lists every product, cache-aside.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	var cached []Product
	if ok, err := h.Cache.GetJSON(r.Context(), productsCacheKey, &cached); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": cached})
		return
	}
	rows, err := h.Q.ListProducts(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	response := make([]Product, 0, len(rows))
	for _, row := range rows {
		response = append(response, toProduct(row))
	}
	_ = h.Cache.SetJSON(r.Context(), productsCacheKey, response)
	common.JSON(w, http.StatusOK, map[string]any{"data": response})
}

// GetProduct returns one product with its size prices.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	row, err := h.Q.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	prices, err := h.Q.ListPricesByProduct(r.Context(), row.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load prices", nil)
		return
	}
	responsePrices := make([]Price, 0, len(prices))
	for _, p := range prices {
		responsePrices = append(responsePrices, Price{SizeKey: p.SizeKey, Price: p.Price})
	}
	product := toProduct(row)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":             product.ID,
		"name":           product.Name,
		"category_id":    product.CategoryID,
		"subcategory_id": product.SubcategoryID,
		"is_active":      product.IsActive,
		"prices":         responsePrices,
	}})
}

// CreateProduct inserts a product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	params, err := h.decodeProduct(r, pgtype.UUID{})
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	row, err := h.Q.CreateProduct(r.Context(), db.CreateProductParams{
		Name:          params.Name,
		CategoryID:    params.CategoryID,
		SubcategoryID: params.SubcategoryID,
		IsActive:      params.IsActive,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown category or subcategory", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create product", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), productsCacheKey)
	common.JSON(w, http.StatusCreated, map[string]any{"data": toProduct(row)})
}

// UpdateProduct mutates a product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	params, err := h.decodeProduct(r, id)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	row, err := h.Q.UpdateProduct(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update product", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), productsCacheKey)
	common.JSON(w, http.StatusOK, map[string]any{"data": toProduct(row)})
}

// DeleteProduct removes a product and its prices.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.Q.DeleteProduct(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete product", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), productsCacheKey)
	h.invalidatePriceCache(r, id)
	w.WriteHeader(http.StatusNoContent)
}

// UpsertPrice sets the price for one size variant of a product.
func (h *Handler) UpsertPrice(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload pricePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if !pricing.ValidSizeKey(payload.SizeKey) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown size key", nil)
		return
	}
	if payload.Price <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "price must be positive", nil)
		return
	}
	row, err := h.Q.UpsertProductPrice(r.Context(), id, payload.SizeKey, payload.Price)
	if err != nil {
		if isForeignKeyViolation(err) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to set price", nil)
		return
	}
	if h.PriceCache != nil {
		_ = h.PriceCache.Invalidate(r.Context(), pricing.PriceCacheKey(uuid.UUID(id.Bytes), payload.SizeKey))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": Price{SizeKey: row.SizeKey, Price: row.Price}})
}

// DeletePrice removes the price of one size variant.
func (h *Handler) DeletePrice(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	sizeKey := chi.URLParam(r, "sizeKey")
	if !pricing.ValidSizeKey(sizeKey) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown size key", nil)
		return
	}
	if err := h.Q.DeleteProductPrice(r.Context(), id, sizeKey); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete price", nil)
		return
	}
	if h.PriceCache != nil {
		_ = h.PriceCache.Invalidate(r.Context(), pricing.PriceCacheKey(uuid.UUID(id.Bytes), sizeKey))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeProduct(r *http.Request, id pgtype.UUID) (db.UpdateProductParams, error) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return db.UpdateProductParams{}, errors.New("invalid payload")
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return db.UpdateProductParams{}, errors.New("name is required")
	}
	categoryID, err := parseUUID(payload.CategoryID)
	if err != nil {
		return db.UpdateProductParams{}, errors.New("invalid category id")
	}
	subcategoryID := pgtype.UUID{}
	if payload.SubcategoryID != nil && strings.TrimSpace(*payload.SubcategoryID) != "" {
		subcategoryID, err = parseUUID(*payload.SubcategoryID)
		if err != nil {
			return db.UpdateProductParams{}, errors.New("invalid subcategory id")
		}
	}
	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}
	return db.UpdateProductParams{
		ID:            id,
		Name:          name,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		IsActive:      isActive,
	}, nil
}

func (h *Handler) invalidatePriceCache(r *http.Request, productID pgtype.UUID) {
	if h.PriceCache == nil {
		return
	}
	keys := make([]string, 0, 3)
	for _, size := range []string{pricing.SizeStd, pricing.SizeLa, pricing.SizePhe} {
		keys = append(keys, pricing.PriceCacheKey(uuid.UUID(productID.Bytes), size))
	}
	_ = h.PriceCache.Invalidate(r.Context(), keys...)
}

func toProduct(row db.Product) Product {
	product := Product{
		ID:         uuidString(row.ID),
		Name:       row.Name,
		CategoryID: uuidString(row.CategoryID),
		IsActive:   row.IsActive,
	}
	if row.SubcategoryID.Valid {
		s := uuidString(row.SubcategoryID)
		product.SubcategoryID = &s
	}
	return product
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func uuidString(value pgtype.UUID) string {
	if !value.Valid {
		return ""
	}
	return uuid.UUID(value.Bytes).String()
}

func parseUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
