package pricing

// DiscountedUnit applies a percentage reduction to a unit price, rounding
// half-up to whole currency units (the currency carries no minor
// denomination). The arithmetic runs in integer basis points so repeated
// evaluation of the same inputs is exact.
func DiscountedUnit(unitPrice int64, percentOff int32) int64 {
	if percentOff <= 0 || unitPrice <= 0 {
		return unitPrice
	}
	if percentOff >= 100 {
		return 0
	}
	keepBps := 10000 - int64(percentOff)*100
	return (unitPrice*keepBps + 5000) / 10000
}

// applyDiscount reduces each scope-eligible line's unit price by the
// promotion percentage. Rounding happens per line, never on the aggregate,
// so cross-line rounding drift stays visible. Lines outside scope and lines
// without a resolved price pass through unchanged.
func applyDiscount(lines []PricedLine, promo *Promotion) {
	for i := range lines {
		line := &lines[i]
		if line.UnitPriceBefore == nil {
			continue
		}
		if !ScopeEligible(line.Category, promo.Scopes) {
			continue
		}
		after := DiscountedUnit(*line.UnitPriceBefore, promo.PercentOff)
		line.UnitPriceAfter = &after
		total := after * int64(line.Qty)
		line.LineTotalAfter = &total
		line.Discounted = after < *line.UnitPriceBefore
	}
}
