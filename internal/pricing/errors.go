package pricing

import "errors"

var (
	// ErrNoLines is returned when a quote request carries no lines.
	ErrNoLines = errors.New("quote requires at least one line")
	// ErrInvalidLine indicates a line failed structural validation.
	ErrInvalidLine = errors.New("invalid quote line")
	// ErrInvalidPromotion is returned when a supplied code does not resolve
	// to an active, in-window promotion. The whole quote fails; a stale code
	// is surfaced rather than silently ignored.
	ErrInvalidPromotion = errors.New("invalid promotion code")
	// ErrPriceNotFound marks a (product, size) pair with no catalog price.
	ErrPriceNotFound = errors.New("price not found")
)
