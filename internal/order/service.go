package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrMissingPrice rejects order creation when a line has no catalog price.
var ErrMissingPrice = errors.New("order: line without catalog price")

// ErrUnknownStatus rejects a status outside the known enumeration.
var ErrUnknownStatus = errors.New("order: unknown status")

// Store captures the persistence operations the order service needs.
type Store interface {
	CreateOrderWithLines(ctx context.Context, order db.CreateOrderParams, lines []db.CreateOrderLineParams) (db.Order, error)
	UpdateOrderStatusIfAllowed(ctx context.Context, arg db.UpdateOrderStatusIfAllowedParams) (db.Order, error)
}

// Service persists quoted orders and drives their status lifecycle.
type Service struct {
	Store  Store
	Engine *pricing.Engine
	Bus    *events.Bus
	Log    zerolog.Logger
}

// CreateInput is the caller-supplied order payload.
type CreateInput struct {
	CustomerID    string
	PromotionCode string
	Lines         []pricing.Line
}

// Created pairs the stored order with the quote it was priced from.
type Created struct {
	Order  db.Order
	Result pricing.Result
}

// Create prices the request through the quote engine and persists the order
// with its lines in one transaction. Quoting may tolerate missing prices;
// a persisted order may not.
func (s *Service) Create(ctx context.Context, in CreateInput) (Created, error) {
	if s == nil || s.Store == nil || s.Engine == nil {
		return Created{}, errors.New("order: service not configured")
	}
	result, err := s.Engine.Quote(ctx, pricing.Request{
		PromotionCode: in.PromotionCode,
		Lines:         in.Lines,
	})
	if err != nil {
		return Created{}, err
	}
	if result.Meta.MissingPriceCount > 0 {
		return Created{}, fmt.Errorf("%d unpriced lines: %w", result.Meta.MissingPriceCount, ErrMissingPrice)
	}

	customerID := pgtype.UUID{}
	if in.CustomerID != "" {
		customerID, err = pricing.ParseUUID(in.CustomerID)
		if err != nil {
			return Created{}, fmt.Errorf("invalid customer id: %w", pricing.ErrInvalidLine)
		}
	}
	promoCode := pgtype.Text{}
	if result.Meta.PromotionCode != "" {
		promoCode = pgtype.Text{String: result.Meta.PromotionCode, Valid: true}
	}

	lines := make([]db.CreateOrderLineParams, 0, len(result.Lines))
	for _, line := range result.Lines {
		productID, err := pricing.ParseUUID(line.ProductID)
		if err != nil {
			return Created{}, fmt.Errorf("line %q: %w", line.LineID, err)
		}
		// options is a NOT NULL jsonb column; a nil slice would encode as SQL NULL.
		options := []byte("{}")
		if len(line.Options) > 0 {
			options, err = json.Marshal(line.Options)
			if err != nil {
				return Created{}, fmt.Errorf("line %q: encode options: %w", line.LineID, err)
			}
		}
		lines = append(lines, db.CreateOrderLineParams{
			LineID:           line.LineID,
			ProductID:        productID,
			Category:         line.Category,
			Qty:              int32(line.Qty),
			RequestedSizeKey: line.RequestedSizeKey,
			EffectiveSizeKey: line.EffectiveSizeKey,
			UnitPriceBefore:  toInt8(line.UnitPriceBefore),
			UnitPriceAfter:   toInt8(line.UnitPriceAfter),
			LineTotalBefore:  toInt8(line.LineTotalBefore),
			LineTotalAfter:   toInt8(line.LineTotalAfter),
			Options:          options,
		})
	}

	ord, err := s.Store.CreateOrderWithLines(ctx, db.CreateOrderParams{
		CustomerID:     customerID,
		PromotionCode:  promoCode,
		SubtotalBefore: result.Totals.SubtotalBefore,
		DiscountAmount: result.Totals.DiscountAmount,
		GrandTotal:     result.Totals.GrandTotal,
	}, lines)
	if err != nil {
		return Created{}, fmt.Errorf("persist order: %w", err)
	}

	if obs.OrderStatusTotal != nil {
		obs.OrderStatusTotal.WithLabelValues(string(db.OrderStatusPending)).Inc()
	}
	s.emit(ctx, events.TopicOrderCreated, ord)
	return Created{Order: ord, Result: result}, nil
}

// emit publishes a lifecycle event. Delivery is best effort: a failure is
// logged but never fails the request that triggered it.
func (s *Service) emit(ctx context.Context, topic string, ord db.Order) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, ord.ID, orderEventPayload(ord)); err != nil {
		s.Log.Warn().Err(err).Str("topic", topic).Msg("emit order event")
	}
}

// allowedSources returns the states a transition to target may start from.
func allowedSources(target db.OrderStatus) ([]string, error) {
	switch target {
	case db.OrderStatusConfirmed:
		return []string{string(db.OrderStatusPending)}, nil
	case db.OrderStatusCompleted:
		return []string{string(db.OrderStatusConfirmed)}, nil
	case db.OrderStatusCancelled:
		return []string{string(db.OrderStatusPending), string(db.OrderStatusConfirmed)}, nil
	default:
		return nil, fmt.Errorf("%q: %w", target, ErrUnknownStatus)
	}
}

// UpdateStatus applies a guarded state transition and emits the matching
// lifecycle event.
func (s *Service) UpdateStatus(ctx context.Context, id pgtype.UUID, target db.OrderStatus) (db.Order, error) {
	if s == nil || s.Store == nil {
		return db.Order{}, errors.New("order: service not configured")
	}
	sources, err := allowedSources(target)
	if err != nil {
		return db.Order{}, err
	}
	ord, err := s.Store.UpdateOrderStatusIfAllowed(ctx, db.UpdateOrderStatusIfAllowedParams{
		ID:          id,
		Status:      target,
		AllowedFrom: sources,
	})
	if err != nil {
		return db.Order{}, err
	}
	if obs.OrderStatusTotal != nil {
		obs.OrderStatusTotal.WithLabelValues(string(target)).Inc()
	}
	if topic := topicForStatus(target); topic != "" {
		s.emit(ctx, topic, ord)
	}
	return ord, nil
}

func topicForStatus(status db.OrderStatus) string {
	switch status {
	case db.OrderStatusConfirmed:
		return events.TopicOrderConfirmed
	case db.OrderStatusCompleted:
		return events.TopicOrderCompleted
	case db.OrderStatusCancelled:
		return events.TopicOrderCanceled
	default:
		return ""
	}
}

func orderEventPayload(ord db.Order) map[string]any {
	payload := map[string]any{
		"orderId":    UUIDString(ord.ID),
		"status":     string(ord.Status),
		"grandTotal": ord.GrandTotal,
	}
	if ord.CustomerID.Valid {
		payload["customerId"] = UUIDString(ord.CustomerID)
	}
	return payload
}

func toInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}
