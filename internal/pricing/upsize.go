package pricing

// DrinkCategory is the implicit target category of the free-upsize rule.
const DrinkCategory = "DRINKS"

// applyFreeUpsize evaluates the quantity-gated free-upsize rule over the
// full line set. When the aggregate drink quantity reaches the promotion's
// threshold, every line requesting the smaller upsizeable tier is relabeled
// to the larger tier while keeping the smaller tier's unit price. Only one
// threshold tier exists; exceeding it does not compound further upgrades.
// The line count and line IDs never change.
func applyFreeUpsize(lines []PricedLine, promo *Promotion) (drinkQty int, applied bool) {
	for i := range lines {
		if NormalizeCategory(lines[i].Category) == DrinkCategory {
			drinkQty += lines[i].Qty
		}
	}
	if promo.MinQty <= 0 || drinkQty < int(promo.MinQty) {
		return drinkQty, false
	}
	applied = true
	for i := range lines {
		line := &lines[i]
		if line.RequestedSizeKey != SizeLa {
			continue
		}
		if NormalizeCategory(line.Category) != DrinkCategory {
			continue
		}
		if line.UnitPriceBefore == nil {
			// no catalog price to bill the upgrade at; leave the line as is
			continue
		}
		line.EffectiveSizeKey = SizePhe
		line.Upsized = true
	}
	return drinkQty, applied
}
