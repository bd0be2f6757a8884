package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/db"
)

// Querier defines the database access required for analytics operations.
type Querier interface {
	GetSalesDaily(ctx context.Context, from, to pgtype.Timestamptz) ([]db.SalesDailyRow, error)
	GetTopProducts(ctx context.Context, from, to pgtype.Timestamptz, limit int32) ([]db.TopProductRow, error)
}

// Service provides cached access to sales aggregates over completed orders.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultDays  int
	DefaultLimit int32
	Now          func() time.Time
}

// SalesPoint is one day of sales in API shape.
type SalesPoint struct {
	Day     string `json:"day"`
	Orders  int64  `json:"orders"`
	Revenue int64  `json:"revenue"`
}

// TopProduct is one ranked product in API shape.
type TopProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Qty       int64  `json:"qty"`
	Revenue   int64  `json:"revenue"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) days(requested int) int {
	if requested > 0 {
		return requested
	}
	if s.DefaultDays > 0 {
		return s.DefaultDays
	}
	return 7
}

// SalesDaily returns per-day order counts and revenue for the trailing window.
func (s *Service) SalesDaily(ctx context.Context, requestedDays int) ([]SalesPoint, error) {
	days := s.days(requestedDays)
	to := s.now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	from := to.AddDate(0, 0, -days)

	key := fmt.Sprintf("analytics:sales:%s:%d", from.Format("2006-01-02"), days)
	var cached []SalesPoint
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.Q.GetSalesDaily(ctx, stamp(from), stamp(to))
	if err != nil {
		return nil, fmt.Errorf("sales daily: %w", err)
	}
	points := make([]SalesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, SalesPoint{
			Day:     row.Day.Format("2006-01-02"),
			Orders:  row.Orders,
			Revenue: row.Revenue,
		})
	}
	s.setCached(ctx, key, points)
	return points, nil
}

// TopProducts ranks products by quantity sold over the trailing window.
func (s *Service) TopProducts(ctx context.Context, requestedDays int, limit int32) ([]TopProduct, error) {
	days := s.days(requestedDays)
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if limit <= 0 {
		limit = 10
	}
	to := s.now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	from := to.AddDate(0, 0, -days)

	key := fmt.Sprintf("analytics:top:%s:%d:%d", from.Format("2006-01-02"), days, limit)
	var cached []TopProduct
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.Q.GetTopProducts(ctx, stamp(from), stamp(to), limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	products := make([]TopProduct, 0, len(rows))
	for _, row := range rows {
		products = append(products, TopProduct{
			ProductID: uuidString(row.ProductID),
			Name:      row.Name,
			Qty:       row.Qty,
			Revenue:   row.Revenue,
		})
	}
	s.setCached(ctx, key, products)
	return products, nil
}

func (s *Service) getCached(ctx context.Context, key string, dst any) bool {
	if s.R == nil {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) setCached(ctx context.Context, key string, v any) {
	if s.R == nil {
		return
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if data, err := json.Marshal(v); err == nil {
		s.R.Set(ctx, key, data, ttl)
	}
}

func stamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
