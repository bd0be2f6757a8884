package pricing

// ScopeEligible decides whether a line's category falls inside a promotion's
// included-category set. An empty scope set makes every category eligible;
// a non-empty set requires an included entry for the normalized category.
func ScopeEligible(category string, scopes []Scope) bool {
	if len(scopes) == 0 {
		return true
	}
	normalized := NormalizeCategory(category)
	for _, s := range scopes {
		if s.Included && s.Category == normalized {
			return true
		}
	}
	return false
}
