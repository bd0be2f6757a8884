package order

import (
	"context"
	"fmt"

	"github.com/noah-isme/backend-pos/internal/db"
)

// PgStore implements Store on the application's pgx pool.
type PgStore struct {
	Pool *db.Pool
	Q    *db.Queries
}

// CreateOrderWithLines inserts the order and all its lines in one transaction.
func (s PgStore) CreateOrderWithLines(ctx context.Context, order db.CreateOrderParams, lines []db.CreateOrderLineParams) (db.Order, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return db.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	qtx := s.Q.WithTx(tx)
	ord, err := qtx.CreateOrder(ctx, order)
	if err != nil {
		return db.Order{}, fmt.Errorf("create order: %w", err)
	}
	for _, line := range lines {
		line.OrderID = ord.ID
		if err := qtx.CreateOrderLine(ctx, line); err != nil {
			return db.Order{}, fmt.Errorf("create order line %q: %w", line.LineID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Order{}, fmt.Errorf("commit: %w", err)
	}
	return ord, nil
}

// UpdateOrderStatusIfAllowed delegates to the guarded status query.
func (s PgStore) UpdateOrderStatusIfAllowed(ctx context.Context, arg db.UpdateOrderStatusIfAllowedParams) (db.Order, error) {
	return s.Q.UpdateOrderStatusIfAllowed(ctx, arg)
}
