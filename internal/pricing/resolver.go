package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CatalogQuerier captures the catalog reads required by the price resolver.
type CatalogQuerier interface {
	GetProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string) (int64, error)
	GetProductCategoryName(ctx context.Context, productID pgtype.UUID) (string, error)
}

// Resolver maps (product, size variant) pairs to the current VAT inclusive
// unit price. Lookups go through an optional cache-aside layer; the catalog
// store stays authoritative.
type Resolver struct {
	Q     CatalogQuerier
	Cache *Cache
}

type cachedPrice struct {
	Price int64 `json:"price"`
}

// Resolve returns the unit price for the exact size variant of a product.
// A product without a price for that size yields ErrPriceNotFound.
func (r *Resolver) Resolve(ctx context.Context, productID uuid.UUID, sizeKey string) (int64, error) {
	if r == nil || r.Q == nil {
		return 0, errors.New("pricing: resolver not configured")
	}
	key := PriceCacheKey(productID, sizeKey)
	if r.Cache != nil {
		var cached cachedPrice
		ok, err := r.Cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached.Price, nil
		}
	}
	price, err := r.Q.GetProductPrice(ctx, ToUUID(productID), sizeKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPriceNotFound
		}
		return 0, fmt.Errorf("get product price: %w", err)
	}
	if r.Cache != nil {
		_ = r.Cache.SetJSON(ctx, key, cachedPrice{Price: price})
	}
	return price, nil
}

// Category resolves the category name a product belongs to.
func (r *Resolver) Category(ctx context.Context, productID uuid.UUID) (string, error) {
	if r == nil || r.Q == nil {
		return "", errors.New("pricing: resolver not configured")
	}
	name, err := r.Q.GetProductCategoryName(ctx, ToUUID(productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("product %s: %w", productID, ErrPriceNotFound)
		}
		return "", fmt.Errorf("get product category: %w", err)
	}
	return name, nil
}

// PriceCacheKey is the redis key for one (product, size) price entry.
func PriceCacheKey(productID uuid.UUID, sizeKey string) string {
	return "pricing:price:" + productID.String() + ":" + sizeKey
}

// ToUUID converts a parsed uuid into its pgtype representation.
func ToUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// ParseUUID parses a string identifier into pgtype form.
func ParseUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
