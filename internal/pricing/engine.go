package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/db"
)

// Line is one caller-supplied order line. The line ID is a caller-assigned
// token distinguishing otherwise identical product/size combinations.
type Line struct {
	LineID    string            `json:"line_id"`
	ProductID string            `json:"product_id"`
	Qty       int               `json:"qty"`
	PriceKey  string            `json:"price_key"`
	Options   map[string]string `json:"options,omitempty"`
}

// Request is a full quote request.
type Request struct {
	PromotionCode string `json:"promotion_code"`
	Lines         []Line `json:"lines"`
}

// PricedLine is the engine output for one input line. Price fields are nil
// when the catalog had no price for the requested size (MISSING_PRICE).
type PricedLine struct {
	LineID           string            `json:"line_id"`
	ProductID        string            `json:"product_id"`
	Qty              int               `json:"qty"`
	Category         string            `json:"category"`
	RequestedSizeKey string            `json:"requested_size_key"`
	EffectiveSizeKey string            `json:"effective_size_key"`
	UnitPriceBefore  *int64            `json:"unit_price_before"`
	UnitPriceAfter   *int64            `json:"unit_price_after"`
	LineTotalBefore  *int64            `json:"line_total_before"`
	LineTotalAfter   *int64            `json:"line_total_after"`
	Discounted       bool              `json:"discounted,omitempty"`
	Upsized          bool              `json:"upsized,omitempty"`
	MissingPrice     bool              `json:"missing_price,omitempty"`
	Options          map[string]string `json:"options,omitempty"`
}

// Meta carries quote-level promotion diagnostics.
type Meta struct {
	PromotionCode     string  `json:"promotion_code,omitempty"`
	PromoType         *string `json:"promoType"`
	PercentOff        int32   `json:"percentOff"`
	DrinkQty          int     `json:"drinkQty"`
	FreeUpsizeApplies bool    `json:"freeUpsizeApplies"`
	MissingPriceCount int     `json:"missingPriceCount"`
}

// Totals aggregates the exact monetary sums of a quote.
type Totals struct {
	SubtotalBefore int64 `json:"subtotal_before"`
	DiscountAmount int64 `json:"discount_amount"`
	GrandTotal     int64 `json:"grand_total"`
}

// Result is the fully priced representation of an order.
type Result struct {
	Meta   Meta         `json:"meta"`
	Lines  []PricedLine `json:"lines"`
	Totals Totals       `json:"totals"`
}

// Engine orchestrates promotion loading, price resolution, rule dispatch,
// and aggregation. It holds no mutable state across calls; concurrent
// quotes need no coordination.
type Engine struct {
	Resolver *Resolver
	Loader   *Loader
	Now      func() time.Time
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Quote computes the priced line set and totals for the request. The result
// is a pure function of the request and the catalog/promotion store at the
// captured instant; one timestamp covers the whole call.
func (e *Engine) Quote(ctx context.Context, req Request) (Result, error) {
	if e == nil || e.Resolver == nil || e.Loader == nil {
		return Result{}, errors.New("pricing: engine not configured")
	}
	now := e.now()

	if err := validateLines(req.Lines); err != nil {
		return Result{}, err
	}

	promo, err := e.Loader.Load(ctx, req.PromotionCode, now)
	if err != nil {
		return Result{}, err
	}

	lines, missing, err := e.resolveLines(ctx, req.Lines)
	if err != nil {
		return Result{}, err
	}

	meta := Meta{MissingPriceCount: missing}
	if promo != nil {
		meta.PromotionCode = promo.Code
		promoType := string(promo.Type)
		meta.PromoType = &promoType
		switch promo.Type {
		case db.PromoTypeDiscount:
			meta.PercentOff = promo.PercentOff
			applyDiscount(lines, promo)
		case db.PromoTypeRule:
			meta.DrinkQty, meta.FreeUpsizeApplies = applyFreeUpsize(lines, promo)
		}
	}

	return Result{Meta: meta, Lines: lines, Totals: aggregate(lines)}, nil
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return ErrNoLines
	}
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.LineID == "" {
			return fmt.Errorf("line id is required: %w", ErrInvalidLine)
		}
		if _, dup := seen[l.LineID]; dup {
			return fmt.Errorf("duplicate line id %q: %w", l.LineID, ErrInvalidLine)
		}
		seen[l.LineID] = struct{}{}
		if l.Qty <= 0 {
			return fmt.Errorf("line %q: qty must be positive: %w", l.LineID, ErrInvalidLine)
		}
		if !ValidSizeKey(l.PriceKey) {
			return fmt.Errorf("line %q: unknown size key %q: %w", l.LineID, l.PriceKey, ErrInvalidLine)
		}
		if _, err := uuid.Parse(l.ProductID); err != nil {
			return fmt.Errorf("line %q: invalid product id: %w", l.LineID, ErrInvalidLine)
		}
	}
	return nil
}

// resolveLines looks up category and base price per line. A missing catalog
// price is not fatal: the line keeps nil price fields and is counted so the
// caller can decide whether to block checkout.
func (e *Engine) resolveLines(ctx context.Context, in []Line) ([]PricedLine, int, error) {
	out := make([]PricedLine, 0, len(in))
	missing := 0
	for _, l := range in {
		productID := uuid.MustParse(l.ProductID)
		line := PricedLine{
			LineID:           l.LineID,
			ProductID:        l.ProductID,
			Qty:              l.Qty,
			RequestedSizeKey: l.PriceKey,
			EffectiveSizeKey: l.PriceKey,
			Options:          l.Options,
		}
		category, err := e.Resolver.Category(ctx, productID)
		switch {
		case err == nil:
			line.Category = category
		case errors.Is(err, ErrPriceNotFound):
			// Unknown product: same contract as an unpriced size variant.
			line.MissingPrice = true
			missing++
			out = append(out, line)
			continue
		default:
			return nil, 0, fmt.Errorf("line %q: %w", l.LineID, err)
		}

		price, err := e.Resolver.Resolve(ctx, productID, l.PriceKey)
		switch {
		case err == nil:
			before := price
			after := price
			totalBefore := price * int64(l.Qty)
			totalAfter := totalBefore
			line.UnitPriceBefore = &before
			line.UnitPriceAfter = &after
			line.LineTotalBefore = &totalBefore
			line.LineTotalAfter = &totalAfter
		case errors.Is(err, ErrPriceNotFound):
			line.MissingPrice = true
			missing++
		default:
			return nil, 0, fmt.Errorf("line %q: %w", l.LineID, err)
		}
		out = append(out, line)
	}
	return out, missing, nil
}

// aggregate sums both sides of the quote. Missing-price lines contribute
// zero to both subtotals.
func aggregate(lines []PricedLine) Totals {
	var before, after int64
	for _, l := range lines {
		if l.LineTotalBefore != nil {
			before += *l.LineTotalBefore
		}
		if l.LineTotalAfter != nil {
			after += *l.LineTotalAfter
		}
	}
	return Totals{
		SubtotalBefore: before,
		DiscountAmount: before - after,
		GrandTotal:     after,
	}
}
