package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getPromotionByCode = `
SELECT id, code, type, priority, is_stackable, is_active, start_at, end_at, percent_off, min_qty, created_at
FROM promotions WHERE code = upper(trim($1))
`

// GetPromotionByCode fetches a promotion by its case-normalized code.
func (q *Queries) GetPromotionByCode(ctx context.Context, code string) (Promotion, error) {
	var p Promotion
	err := q.db.QueryRow(ctx, getPromotionByCode, code).Scan(
		&p.ID, &p.Code, &p.Type, &p.Priority, &p.IsStackable, &p.IsActive,
		&p.StartAt, &p.EndAt, &p.PercentOff, &p.MinQty, &p.CreatedAt,
	)
	return p, err
}

const listPromotions = `
SELECT id, code, type, priority, is_stackable, is_active, start_at, end_at, percent_off, min_qty, created_at
FROM promotions ORDER BY priority DESC, code
`

// ListPromotions returns all promotions, highest priority first.
func (q *Queries) ListPromotions(ctx context.Context) ([]Promotion, error) {
	rows, err := q.db.Query(ctx, listPromotions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Promotion
	for rows.Next() {
		var p Promotion
		if err := rows.Scan(
			&p.ID, &p.Code, &p.Type, &p.Priority, &p.IsStackable, &p.IsActive,
			&p.StartAt, &p.EndAt, &p.PercentOff, &p.MinQty, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPromotionParams groups the promotion attributes for create/update.
type UpsertPromotionParams struct {
	Code        string
	Type        PromoType
	Priority    int32
	IsStackable bool
	IsActive    bool
	StartAt     pgtype.Timestamptz
	EndAt       pgtype.Timestamptz
	PercentOff  int32
	MinQty      int32
}

const createPromotion = `
INSERT INTO promotions (code, type, priority, is_stackable, is_active, start_at, end_at, percent_off, min_qty)
VALUES (upper(trim($1)), $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, code, type, priority, is_stackable, is_active, start_at, end_at, percent_off, min_qty, created_at
`

// CreatePromotion inserts a promotion definition.
func (q *Queries) CreatePromotion(ctx context.Context, arg UpsertPromotionParams) (Promotion, error) {
	var p Promotion
	err := q.db.QueryRow(ctx, createPromotion,
		arg.Code, arg.Type, arg.Priority, arg.IsStackable, arg.IsActive,
		arg.StartAt, arg.EndAt, arg.PercentOff, arg.MinQty,
	).Scan(
		&p.ID, &p.Code, &p.Type, &p.Priority, &p.IsStackable, &p.IsActive,
		&p.StartAt, &p.EndAt, &p.PercentOff, &p.MinQty, &p.CreatedAt,
	)
	return p, err
}

const updatePromotion = `
UPDATE promotions SET
	type = $2, priority = $3, is_stackable = $4, is_active = $5,
	start_at = $6, end_at = $7, percent_off = $8, min_qty = $9
WHERE code = upper(trim($1))
RETURNING id, code, type, priority, is_stackable, is_active, start_at, end_at, percent_off, min_qty, created_at
`

// UpdatePromotion mutates a promotion identified by code.
func (q *Queries) UpdatePromotion(ctx context.Context, arg UpsertPromotionParams) (Promotion, error) {
	var p Promotion
	err := q.db.QueryRow(ctx, updatePromotion,
		arg.Code, arg.Type, arg.Priority, arg.IsStackable, arg.IsActive,
		arg.StartAt, arg.EndAt, arg.PercentOff, arg.MinQty,
	).Scan(
		&p.ID, &p.Code, &p.Type, &p.Priority, &p.IsStackable, &p.IsActive,
		&p.StartAt, &p.EndAt, &p.PercentOff, &p.MinQty, &p.CreatedAt,
	)
	return p, err
}

const deletePromotion = `
DELETE FROM promotions WHERE code = upper(trim($1))
`

// DeletePromotion removes a promotion and, through cascade, its scopes.
func (q *Queries) DeletePromotion(ctx context.Context, code string) error {
	_, err := q.db.Exec(ctx, deletePromotion, code)
	return err
}

const listPromotionScopes = `
SELECT id, promotion_id, category, is_included, position
FROM promotion_scopes WHERE promotion_id = $1 ORDER BY position
`

// ListPromotionScopes returns the scope set of a promotion in stored order.
func (q *Queries) ListPromotionScopes(ctx context.Context, promotionID pgtype.UUID) ([]PromotionScope, error) {
	rows, err := q.db.Query(ctx, listPromotionScopes, promotionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PromotionScope
	for rows.Next() {
		var s PromotionScope
		if err := rows.Scan(&s.ID, &s.PromotionID, &s.Category, &s.IsIncluded, &s.Position); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const deletePromotionScopes = `
DELETE FROM promotion_scopes WHERE promotion_id = $1
`

const insertPromotionScope = `
INSERT INTO promotion_scopes (promotion_id, category, is_included, position)
VALUES ($1, upper(trim($2)), $3, $4)
`

// ScopeEntry is one (category, included) pair used when replacing a scope set.
type ScopeEntry struct {
	Category   string
	IsIncluded bool
}

// ReplacePromotionScopes swaps the full scope set of a promotion.
func (q *Queries) ReplacePromotionScopes(ctx context.Context, promotionID pgtype.UUID, scopes []ScopeEntry) error {
	if _, err := q.db.Exec(ctx, deletePromotionScopes, promotionID); err != nil {
		return err
	}
	for i, s := range scopes {
		if _, err := q.db.Exec(ctx, insertPromotionScope, promotionID, s.Category, s.IsIncluded, int32(i)); err != nil {
			return err
		}
	}
	return nil
}
