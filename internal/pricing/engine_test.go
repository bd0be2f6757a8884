package pricing

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/db"
)

type stubCatalog struct {
	prices     map[string]int64
	categories map[uuid.UUID]string
}

func (s *stubCatalog) GetProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string) (int64, error) {
	price, ok := s.prices[uuid.UUID(productID.Bytes).String()+":"+sizeKey]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return price, nil
}

func (s *stubCatalog) GetProductCategoryName(ctx context.Context, productID pgtype.UUID) (string, error) {
	category, ok := s.categories[uuid.UUID(productID.Bytes)]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return category, nil
}

type stubPromotions struct {
	promos map[string]db.Promotion
	scopes map[string][]db.PromotionScope
}

func (s *stubPromotions) GetPromotionByCode(ctx context.Context, code string) (db.Promotion, error) {
	promo, ok := s.promos[code]
	if !ok {
		return db.Promotion{}, pgx.ErrNoRows
	}
	return promo, nil
}

func (s *stubPromotions) ListPromotionScopes(ctx context.Context, promotionID pgtype.UUID) ([]db.PromotionScope, error) {
	return s.scopes[uuid.UUID(promotionID.Bytes).String()], nil
}

var (
	coffeeID = uuidMust("11111111-1111-1111-1111-111111111111")
	teaID    = uuidMust("22222222-2222-2222-2222-222222222222")
	cakeID   = uuidMust("33333333-3333-3333-3333-333333333333")
)

func newEngine(catalog *stubCatalog, promos *stubPromotions) *Engine {
	return &Engine{
		Resolver: &Resolver{Q: catalog},
		Loader:   &Loader{Q: promos},
		Now:      func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
	}
}

func defaultCatalog() *stubCatalog {
	return &stubCatalog{
		prices: map[string]int64{
			coffeeID.String() + ":" + SizeStd: 50_000,
			coffeeID.String() + ":" + SizeLa:  60_000,
			coffeeID.String() + ":" + SizePhe: 70_000,
			teaID.String() + ":" + SizeLa:     40_000,
			cakeID.String() + ":" + SizeStd:   35_000,
		},
		categories: map[uuid.UUID]string{
			coffeeID: "Drinks",
			teaID:    "Drinks",
			cakeID:   "Desserts",
		},
	}
}

func discountPromo(id pgtype.UUID) db.Promotion {
	return db.Promotion{
		ID:         id,
		Code:       "SUMMER10",
		Type:       db.PromoTypeDiscount,
		IsActive:   true,
		StartAt:    pgTime(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		EndAt:      pgTime(time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)),
		PercentOff: 10,
	}
}

func rulePromo(id pgtype.UUID) db.Promotion {
	return db.Promotion{
		ID:       id,
		Code:     "BUY5UPSIZE",
		Type:     db.PromoTypeRule,
		IsActive: true,
		MinQty:   5,
	}
}

func TestQuoteDiscountExample(t *testing.T) {
	promoID := uuidToPg(uuid.New())
	engine := newEngine(defaultCatalog(), &stubPromotions{
		promos: map[string]db.Promotion{"SUMMER10": discountPromo(promoID)},
		scopes: map[string][]db.PromotionScope{
			uuid.UUID(promoID.Bytes).String(): {{Category: "DRINKS", IsIncluded: true}},
		},
	})

	result, err := engine.Quote(context.Background(), Request{
		PromotionCode: "summer10",
		Lines: []Line{
			{LineID: "l1", ProductID: coffeeID.String(), Qty: 3, PriceKey: SizeStd},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := result.Lines[0]
	if *line.UnitPriceAfter != 45_000 {
		t.Fatalf("expected discounted unit 45000, got %d", *line.UnitPriceAfter)
	}
	if !line.Discounted {
		t.Fatal("expected line flagged as discounted")
	}
	if result.Totals.SubtotalBefore != 150_000 || result.Totals.GrandTotal != 135_000 || result.Totals.DiscountAmount != 15_000 {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
	if result.Meta.PromoType == nil || *result.Meta.PromoType != "DISCOUNT" || result.Meta.PercentOff != 10 {
		t.Fatalf("unexpected meta: %+v", result.Meta)
	}
}

func TestQuoteDiscountScopeExcludesCategory(t *testing.T) {
	promoID := uuidToPg(uuid.New())
	engine := newEngine(defaultCatalog(), &stubPromotions{
		promos: map[string]db.Promotion{"SUMMER10": discountPromo(promoID)},
		scopes: map[string][]db.PromotionScope{
			uuid.UUID(promoID.Bytes).String(): {{Category: "DRINKS", IsIncluded: true}},
		},
	})

	result, err := engine.Quote(context.Background(), Request{
		PromotionCode: "SUMMER10",
		Lines: []Line{
			{LineID: "drink", ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd},
			{LineID: "dessert", ProductID: cakeID.String(), Qty: 2, PriceKey: SizeStd},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dessert := result.Lines[1]
	if dessert.Discounted {
		t.Fatal("dessert line must stay outside the discount scope")
	}
	if *dessert.LineTotalAfter != 70_000 {
		t.Fatalf("expected dessert total unchanged at 70000, got %d", *dessert.LineTotalAfter)
	}
	if result.Totals.DiscountAmount != 5_000 {
		t.Fatalf("expected discount 5000 on the drink line only, got %d", result.Totals.DiscountAmount)
	}
}

func TestQuoteFreeUpsizeThresholdMet(t *testing.T) {
	promoID := uuidToPg(uuid.New())
	engine := newEngine(defaultCatalog(), &stubPromotions{
		promos: map[string]db.Promotion{"BUY5UPSIZE": rulePromo(promoID)},
	})

	result, err := engine.Quote(context.Background(), Request{
		PromotionCode: "BUY5UPSIZE",
		Lines: []Line{
			{LineID: "l1", ProductID: coffeeID.String(), Qty: 4, PriceKey: SizeLa},
			{LineID: "l2", ProductID: teaID.String(), Qty: 2, PriceKey: SizeLa},
			{LineID: "l3", ProductID: cakeID.String(), Qty: 1, PriceKey: SizeStd},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Meta.DrinkQty != 6 || !result.Meta.FreeUpsizeApplies {
		t.Fatalf("expected drinkQty 6 with rule applied, got %+v", result.Meta)
	}
	for _, id := range []int{0, 1} {
		line := result.Lines[id]
		if line.EffectiveSizeKey != SizePhe || !line.Upsized {
			t.Fatalf("line %s: expected upsize to %s, got %s", line.LineID, SizePhe, line.EffectiveSizeKey)
		}
		if *line.UnitPriceAfter != *line.UnitPriceBefore {
			t.Fatalf("line %s: upsize must keep the smaller tier price", line.LineID)
		}
	}
	if result.Lines[2].Upsized {
		t.Fatal("dessert line must not be upsized")
	}
	// Billing is unchanged: 4*60000 + 2*40000 + 35000.
	if result.Totals.GrandTotal != 355_000 || result.Totals.DiscountAmount != 0 {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
}

func TestQuoteFreeUpsizeBelowThreshold(t *testing.T) {
	promoID := uuidToPg(uuid.New())
	engine := newEngine(defaultCatalog(), &stubPromotions{
		promos: map[string]db.Promotion{"BUY5UPSIZE": rulePromo(promoID)},
	})

	result, err := engine.Quote(context.Background(), Request{
		PromotionCode: "BUY5UPSIZE",
		Lines: []Line{
			{LineID: "l1", ProductID: coffeeID.String(), Qty: 4, PriceKey: SizeLa},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Meta.DrinkQty != 4 || result.Meta.FreeUpsizeApplies {
		t.Fatalf("expected rule below threshold, got %+v", result.Meta)
	}
	if result.Lines[0].EffectiveSizeKey != SizeLa || result.Lines[0].Upsized {
		t.Fatal("line must keep its requested size below the threshold")
	}
}

func TestQuoteExpiredPromotion(t *testing.T) {
	promoID := uuidToPg(uuid.New())
	expired := discountPromo(promoID)
	expired.Code = "EXPIRED2020"
	expired.EndAt = pgTime(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))
	engine := newEngine(defaultCatalog(), &stubPromotions{
		promos: map[string]db.Promotion{"EXPIRED2020": expired},
	})

	_, err := engine.Quote(context.Background(), Request{
		PromotionCode: "EXPIRED2020",
		Lines:         []Line{{LineID: "l1", ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd}},
	})
	if !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}
}

func TestQuoteUnknownPromotion(t *testing.T) {
	engine := newEngine(defaultCatalog(), &stubPromotions{})
	_, err := engine.Quote(context.Background(), Request{
		PromotionCode: "NOPE",
		Lines:         []Line{{LineID: "l1", ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd}},
	})
	if !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}
}

func TestQuoteWithoutPromotion(t *testing.T) {
	engine := newEngine(defaultCatalog(), &stubPromotions{})
	result, err := engine.Quote(context.Background(), Request{
		Lines: []Line{{LineID: "l1", ProductID: coffeeID.String(), Qty: 2, PriceKey: SizeStd}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Meta.PromoType != nil {
		t.Fatal("expected nil promoType without a code")
	}
	if result.Totals.SubtotalBefore != result.Totals.GrandTotal {
		t.Fatal("totals must match without a promotion")
	}
}

func TestQuoteMissingPrice(t *testing.T) {
	catalog := defaultCatalog()
	engine := newEngine(catalog, &stubPromotions{})
	result, err := engine.Quote(context.Background(), Request{
		Lines: []Line{
			{LineID: "l1", ProductID: teaID.String(), Qty: 2, PriceKey: SizeStd}, // no STD price for tea
			{LineID: "l2", ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Meta.MissingPriceCount != 1 {
		t.Fatalf("expected one missing price, got %d", result.Meta.MissingPriceCount)
	}
	missing := result.Lines[0]
	if !missing.MissingPrice || missing.UnitPriceBefore != nil {
		t.Fatalf("expected missing-price line with nil prices, got %+v", missing)
	}
	if result.Totals.GrandTotal != 50_000 {
		t.Fatalf("missing-price line must contribute zero, got %d", result.Totals.GrandTotal)
	}
}

func TestQuoteUnknownProductIsMissingPrice(t *testing.T) {
	engine := newEngine(defaultCatalog(), &stubPromotions{})
	unknownID := uuid.New()
	result, err := engine.Quote(context.Background(), Request{
		Lines: []Line{
			{LineID: "l1", ProductID: unknownID.String(), Qty: 1, PriceKey: SizeStd},
			{LineID: "l2", ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd},
		},
	})
	if err != nil {
		t.Fatalf("unknown product must not fail the quote: %v", err)
	}
	if result.Meta.MissingPriceCount != 1 {
		t.Fatalf("expected one missing price, got %d", result.Meta.MissingPriceCount)
	}
	unknown := result.Lines[0]
	if !unknown.MissingPrice || unknown.UnitPriceBefore != nil || unknown.Category != "" {
		t.Fatalf("expected unresolved line with nil prices, got %+v", unknown)
	}
	if unknown.LineID != "l1" {
		t.Fatalf("line id must be preserved, got %q", unknown.LineID)
	}
	if result.Totals.GrandTotal != 50_000 {
		t.Fatalf("unknown-product line must contribute zero, got %d", result.Totals.GrandTotal)
	}
}

func TestQuoteValidation(t *testing.T) {
	engine := newEngine(defaultCatalog(), &stubPromotions{})
	cases := []struct {
		name  string
		lines []Line
		want  error
	}{
		{"empty", nil, ErrNoLines},
		{"no line id", []Line{{ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd}}, ErrInvalidLine},
		{"duplicate line id", []Line{
			{LineID: "l1", ProductID: coffeeID.String(), Qty: 1, PriceKey: SizeStd},
			{LineID: "l1", ProductID: teaID.String(), Qty: 1, PriceKey: SizeLa},
		}, ErrInvalidLine},
		{"zero qty", []Line{{LineID: "l1", ProductID: coffeeID.String(), Qty: 0, PriceKey: SizeStd}}, ErrInvalidLine},
		{"bad size", []Line{{LineID: "l1", ProductID: coffeeID.String(), Qty: 1, PriceKey: "JUMBO"}}, ErrInvalidLine},
		{"bad product id", []Line{{LineID: "l1", ProductID: "not-a-uuid", Qty: 1, PriceKey: SizeStd}}, ErrInvalidLine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Quote(context.Background(), Request{Lines: tc.lines})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestQuoteDeterministic(t *testing.T) {
	promoID := uuidToPg(uuid.New())
	engine := newEngine(defaultCatalog(), &stubPromotions{
		promos: map[string]db.Promotion{"SUMMER10": discountPromo(promoID)},
		scopes: map[string][]db.PromotionScope{
			uuid.UUID(promoID.Bytes).String(): {{Category: "DRINKS", IsIncluded: true}},
		},
	})
	req := Request{
		PromotionCode: "SUMMER10",
		Lines: []Line{
			{LineID: "l1", ProductID: coffeeID.String(), Qty: 3, PriceKey: SizeStd},
			{LineID: "l2", ProductID: cakeID.String(), Qty: 1, PriceKey: SizeStd},
		},
	}
	first, err := engine.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical requests must price identically")
	}
	if len(first.Lines) != len(req.Lines) {
		t.Fatalf("line count must be preserved, got %d", len(first.Lines))
	}
}

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgTime(value time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: value, Valid: true}
}
