package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// CreateOrderParams groups the aggregate totals persisted with a new order.
type CreateOrderParams struct {
	CustomerID     pgtype.UUID
	PromotionCode  pgtype.Text
	SubtotalBefore int64
	DiscountAmount int64
	GrandTotal     int64
}

const createOrder = `
INSERT INTO orders (customer_id, status, promotion_code, subtotal_before, discount_amount, grand_total)
VALUES ($1, 'PENDING', $2, $3, $4, $5)
RETURNING id, customer_id, status, promotion_code, subtotal_before, discount_amount, grand_total, created_at, updated_at
`

// CreateOrder inserts an order in the PENDING state.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID, arg.PromotionCode, arg.SubtotalBefore, arg.DiscountAmount, arg.GrandTotal,
	).Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.PromotionCode,
		&o.SubtotalBefore, &o.DiscountAmount, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// CreateOrderLineParams groups the per line fields persisted with an order.
type CreateOrderLineParams struct {
	OrderID          pgtype.UUID
	LineID           string
	ProductID        pgtype.UUID
	Category         string
	Qty              int32
	RequestedSizeKey string
	EffectiveSizeKey string
	UnitPriceBefore  pgtype.Int8
	UnitPriceAfter   pgtype.Int8
	LineTotalBefore  pgtype.Int8
	LineTotalAfter   pgtype.Int8
	Options          []byte
}

const createOrderLine = `
INSERT INTO order_lines (
	order_id, line_id, product_id, category, qty,
	requested_size_key, effective_size_key,
	unit_price_before, unit_price_after, line_total_before, line_total_after, options
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// CreateOrderLine inserts one priced line for an order.
func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) error {
	_, err := q.db.Exec(ctx, createOrderLine,
		arg.OrderID, arg.LineID, arg.ProductID, arg.Category, arg.Qty,
		arg.RequestedSizeKey, arg.EffectiveSizeKey,
		arg.UnitPriceBefore, arg.UnitPriceAfter, arg.LineTotalBefore, arg.LineTotalAfter, arg.Options,
	)
	return err
}

const getOrderByID = `
SELECT id, customer_id, status, promotion_code, subtotal_before, discount_amount, grand_total, created_at, updated_at
FROM orders WHERE id = $1
`

// GetOrderByID fetches a single order.
func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrderByID, id).Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.PromotionCode,
		&o.SubtotalBefore, &o.DiscountAmount, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const listOrders = `
SELECT id, customer_id, status, promotion_code, subtotal_before, discount_amount, grand_total, created_at, updated_at
FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2
`

// ListOrders returns orders newest first.
func (q *Queries) ListOrders(ctx context.Context, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CustomerID, &o.Status, &o.PromotionCode,
			&o.SubtotalBefore, &o.DiscountAmount, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const listOrderLines = `
SELECT id, order_id, line_id, product_id, category, qty,
	requested_size_key, effective_size_key,
	unit_price_before, unit_price_after, line_total_before, line_total_after, options
FROM order_lines WHERE order_id = $1 ORDER BY line_id
`

// ListOrderLines returns the priced lines of an order.
func (q *Queries) ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.LineID, &l.ProductID, &l.Category, &l.Qty,
			&l.RequestedSizeKey, &l.EffectiveSizeKey,
			&l.UnitPriceBefore, &l.UnitPriceAfter, &l.LineTotalBefore, &l.LineTotalAfter, &l.Options,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
RETURNING id, customer_id, status, promotion_code, subtotal_before, discount_amount, grand_total, created_at, updated_at
`

// UpdateOrderStatus moves an order to the given state.
func (q *Queries) UpdateOrderStatus(ctx context.Context, id pgtype.UUID, status OrderStatus) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatus, id, status).Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.PromotionCode,
		&o.SubtotalBefore, &o.DiscountAmount, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const countOrders = `SELECT count(*) FROM orders`

// CountOrders returns the total number of orders.
func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrders).Scan(&n)
	return n, err
}

// UpdateOrderStatusIfAllowedParams carries a guarded status transition.
type UpdateOrderStatusIfAllowedParams struct {
	ID          pgtype.UUID
	Status      OrderStatus
	AllowedFrom []string
}

const updateOrderStatusIfAllowed = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = ANY($3::text[])
RETURNING id, customer_id, status, promotion_code, subtotal_before, discount_amount, grand_total, created_at, updated_at
`

// UpdateOrderStatusIfAllowed moves an order to the given state only when its
// current state is one of the allowed sources. pgx.ErrNoRows signals a
// transition the state machine forbids.
func (q *Queries) UpdateOrderStatusIfAllowed(ctx context.Context, arg UpdateOrderStatusIfAllowedParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatusIfAllowed, arg.ID, arg.Status, arg.AllowedFrom).Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.PromotionCode,
		&o.SubtotalBefore, &o.DiscountAmount, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const insertDomainEvent = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at
`

// InsertDomainEvent persists an emitted event.
func (q *Queries) InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (DomainEvent, error) {
	var e DomainEvent
	err := q.db.QueryRow(ctx, insertDomainEvent, topic, aggregateID, payload).
		Scan(&e.ID, &e.Topic, &e.AggregateID, &e.Payload, &e.OccurredAt)
	return e, err
}
