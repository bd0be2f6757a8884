package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// SalesDailyRow is one day of completed-order sales.
type SalesDailyRow struct {
	Day     time.Time
	Orders  int64
	Revenue int64
}

const getSalesDaily = `
SELECT date_trunc('day', created_at)::date AS day, count(*), coalesce(sum(grand_total), 0)
FROM orders
WHERE status = 'COMPLETED' AND created_at >= $1 AND created_at < $2
GROUP BY day ORDER BY day
`

// GetSalesDaily aggregates completed orders per day over [from, to).
func (q *Queries) GetSalesDaily(ctx context.Context, from, to pgtype.Timestamptz) ([]SalesDailyRow, error) {
	rows, err := q.db.Query(ctx, getSalesDaily, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesDailyRow
	for rows.Next() {
		var r SalesDailyRow
		if err := rows.Scan(&r.Day, &r.Orders, &r.Revenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopProductRow is one product ranked by quantity sold.
type TopProductRow struct {
	ProductID pgtype.UUID
	Name      string
	Qty       int64
	Revenue   int64
}

const getTopProducts = `
SELECT l.product_id, p.name, sum(l.qty), coalesce(sum(l.line_total_after), 0)
FROM order_lines l
JOIN orders o ON o.id = l.order_id
JOIN products p ON p.id = l.product_id
WHERE o.status = 'COMPLETED' AND o.created_at >= $1 AND o.created_at < $2
GROUP BY l.product_id, p.name
ORDER BY sum(l.qty) DESC
LIMIT $3
`

// GetTopProducts ranks products by quantity sold over [from, to).
func (q *Queries) GetTopProducts(ctx context.Context, from, to pgtype.Timestamptz, limit int32) ([]TopProductRow, error) {
	rows, err := q.db.Query(ctx, getTopProducts, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProductRow
	for rows.Next() {
		var r TopProductRow
		if err := rows.Scan(&r.ProductID, &r.Name, &r.Qty, &r.Revenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
