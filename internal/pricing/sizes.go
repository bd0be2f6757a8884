package pricing

import "strings"

// Size keys form a closed enumeration of the catalog's size variants.
// SizeLa is the smaller upsizeable tier, SizePhe the larger one.
const (
	SizeStd = "STD"
	SizeLa  = "SIZE_LA"
	SizePhe = "SIZE_PHE"
)

// ValidSizeKey reports whether the key names a known size variant.
func ValidSizeKey(key string) bool {
	switch key {
	case SizeStd, SizeLa, SizePhe:
		return true
	default:
		return false
	}
}

// NormalizeCategory canonicalizes a category name for matching. Both the
// scope matcher and the free-upsize rule go through this single function.
func NormalizeCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

// NormalizeCode canonicalizes a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
