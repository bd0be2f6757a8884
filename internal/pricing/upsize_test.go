package pricing

import "testing"

func drinkLine(id string, qty int, size string, price int64) PricedLine {
	total := price * int64(qty)
	return PricedLine{
		LineID:           id,
		Category:         "Drinks",
		Qty:              qty,
		RequestedSizeKey: size,
		EffectiveSizeKey: size,
		UnitPriceBefore:  &price,
		UnitPriceAfter:   &price,
		LineTotalBefore:  &total,
		LineTotalAfter:   &total,
	}
}

func TestApplyFreeUpsizeCountsAcrossLines(t *testing.T) {
	lines := []PricedLine{
		drinkLine("l1", 3, SizeLa, 60_000),
		drinkLine("l2", 2, SizeStd, 50_000),
	}
	drinkQty, applied := applyFreeUpsize(lines, &Promotion{MinQty: 5})
	if drinkQty != 5 || !applied {
		t.Fatalf("expected threshold met at qty 5, got qty=%d applied=%v", drinkQty, applied)
	}
	if lines[0].EffectiveSizeKey != SizePhe || !lines[0].Upsized {
		t.Fatal("smaller-tier line must be upsized")
	}
	if lines[1].EffectiveSizeKey != SizeStd || lines[1].Upsized {
		t.Fatal("standard-size line must be untouched")
	}
	if *lines[0].UnitPriceAfter != 60_000 {
		t.Fatal("upsized line must bill the smaller tier price")
	}
}

func TestApplyFreeUpsizeAppliesWithoutUpgradableLines(t *testing.T) {
	// The threshold is about aggregate drink quantity, not about whether any
	// line happens to request the smaller tier.
	lines := []PricedLine{drinkLine("l1", 6, SizeStd, 50_000)}
	drinkQty, applied := applyFreeUpsize(lines, &Promotion{MinQty: 5})
	if drinkQty != 6 || !applied {
		t.Fatalf("expected applied at qty 6, got qty=%d applied=%v", drinkQty, applied)
	}
	if lines[0].Upsized {
		t.Fatal("no line should be upgraded")
	}
}

func TestApplyFreeUpsizeSkipsMissingPrice(t *testing.T) {
	missing := PricedLine{
		LineID:           "l1",
		Category:         "Drinks",
		Qty:              6,
		RequestedSizeKey: SizeLa,
		EffectiveSizeKey: SizeLa,
		MissingPrice:     true,
	}
	lines := []PricedLine{missing}
	_, applied := applyFreeUpsize(lines, &Promotion{MinQty: 5})
	if !applied {
		t.Fatal("threshold is met regardless of missing prices")
	}
	if lines[0].Upsized || lines[0].EffectiveSizeKey != SizeLa {
		t.Fatal("a line without a resolved price must not be relabeled")
	}
}

func TestApplyFreeUpsizeZeroThreshold(t *testing.T) {
	lines := []PricedLine{drinkLine("l1", 10, SizeLa, 60_000)}
	_, applied := applyFreeUpsize(lines, &Promotion{MinQty: 0})
	if applied {
		t.Fatal("a promotion without a positive threshold never applies")
	}
}

func TestApplyFreeUpsizeIgnoresOtherCategories(t *testing.T) {
	dessert := drinkLine("l1", 10, SizeLa, 35_000)
	dessert.Category = "Desserts"
	lines := []PricedLine{dessert}
	drinkQty, applied := applyFreeUpsize(lines, &Promotion{MinQty: 5})
	if drinkQty != 0 || applied {
		t.Fatalf("non-drink quantities must not count, got qty=%d applied=%v", drinkQty, applied)
	}
}
