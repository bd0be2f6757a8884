package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// PromoType enumerates supported promotion evaluation strategies.
type PromoType string

const (
	// PromoTypeDiscount applies a category-scoped percentage discount.
	PromoTypeDiscount PromoType = "DISCOUNT"
	// PromoTypeRule applies the quantity-gated free-upsize rule.
	PromoTypeRule PromoType = "RULE"
)

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Category is a top level product grouping.
type Category struct {
	ID        pgtype.UUID
	Name      string
	CreatedAt pgtype.Timestamptz
}

// Subcategory refines a category.
type Subcategory struct {
	ID         pgtype.UUID
	CategoryID pgtype.UUID
	Name       string
	CreatedAt  pgtype.Timestamptz
}

// Product is a sellable menu entry.
type Product struct {
	ID            pgtype.UUID
	Name          string
	CategoryID    pgtype.UUID
	SubcategoryID pgtype.UUID
	IsActive      bool
	CreatedAt     pgtype.Timestamptz
}

// ProductPrice holds the VAT inclusive unit price for one size variant.
type ProductPrice struct {
	ProductID pgtype.UUID
	SizeKey   string
	Price     int64
	UpdatedAt pgtype.Timestamptz
}

// Customer is a known POS customer with an optional chat address.
type Customer struct {
	ID        pgtype.UUID
	Name      string
	Phone     pgtype.Text
	ChatID    pgtype.Text
	CreatedAt pgtype.Timestamptz
}

// Promotion captures a promotion definition and its runtime constraints.
type Promotion struct {
	ID          pgtype.UUID
	Code        string
	Type        PromoType
	Priority    int32
	IsStackable bool
	IsActive    bool
	StartAt     pgtype.Timestamptz
	EndAt       pgtype.Timestamptz
	PercentOff  int32
	MinQty      int32
	CreatedAt   pgtype.Timestamptz
}

// PromotionScope restricts a promotion to a product category.
type PromotionScope struct {
	ID          pgtype.UUID
	PromotionID pgtype.UUID
	Category    string
	IsIncluded  bool
	Position    int32
}

// Order is a persisted, fully priced order.
type Order struct {
	ID             pgtype.UUID
	CustomerID     pgtype.UUID
	Status         OrderStatus
	PromotionCode  pgtype.Text
	SubtotalBefore int64
	DiscountAmount int64
	GrandTotal     int64
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

// OrderLine is one priced line of an order. Price fields are null when the
// catalog had no price for the requested size at quoting time.
type OrderLine struct {
	ID               pgtype.UUID
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

// DomainEvent records an emitted order lifecycle event.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
