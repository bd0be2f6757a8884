package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/db"
)

// PromotionQuerier captures the promotion reads required by the loader.
type PromotionQuerier interface {
	GetPromotionByCode(ctx context.Context, code string) (db.Promotion, error)
	ListPromotionScopes(ctx context.Context, promotionID pgtype.UUID) ([]db.PromotionScope, error)
}

// Scope is one (category, included) entry of a promotion's scope set.
type Scope struct {
	Category string
	Included bool
}

// Promotion is the validated, evaluation-ready view of a stored promotion.
type Promotion struct {
	Code       string
	Type       db.PromoType
	Priority   int32
	Stackable  bool
	PercentOff int32
	MinQty     int32
	Scopes     []Scope
}

// Loader fetches promotion definitions together with their scope sets.
type Loader struct {
	Q PromotionQuerier
}

// Load resolves a promotion code at the captured instant. An empty code
// yields (nil, nil): the quote proceeds unpromoted. A code that does not
// resolve to an active, in-window promotion fails with ErrInvalidPromotion.
func (l *Loader) Load(ctx context.Context, code string, now time.Time) (*Promotion, error) {
	if l == nil || l.Q == nil {
		return nil, errors.New("pricing: promotion loader not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, nil
	}
	row, err := l.Q.GetPromotionByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("promotion %q not found: %w", normalized, ErrInvalidPromotion)
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	if !row.IsActive {
		return nil, fmt.Errorf("promotion %q is inactive: %w", normalized, ErrInvalidPromotion)
	}
	if row.StartAt.Valid && now.Before(row.StartAt.Time) {
		return nil, fmt.Errorf("promotion %q not started: %w", normalized, ErrInvalidPromotion)
	}
	if row.EndAt.Valid && now.After(row.EndAt.Time) {
		return nil, fmt.Errorf("promotion %q expired: %w", normalized, ErrInvalidPromotion)
	}
	switch row.Type {
	case db.PromoTypeDiscount, db.PromoTypeRule:
	default:
		return nil, fmt.Errorf("promotion %q has unknown type %q: %w", normalized, row.Type, ErrInvalidPromotion)
	}
	scopes, err := l.Q.ListPromotionScopes(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("list promotion scopes: %w", err)
	}
	promo := &Promotion{
		Code:       row.Code,
		Type:       row.Type,
		Priority:   row.Priority,
		Stackable:  row.IsStackable,
		PercentOff: row.PercentOff,
		MinQty:     row.MinQty,
	}
	for _, s := range scopes {
		promo.Scopes = append(promo.Scopes, Scope{
			Category: NormalizeCategory(s.Category),
			Included: s.IsIncluded,
		})
	}
	return promo, nil
}
