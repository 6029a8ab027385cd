package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a positive monetary amount from user input. It accepts
// both dot (12.34) and comma (12,34) decimal separators. Zero, negative, and
// malformed values are validation errors.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Validationf("amount is empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validationf("amount %q is not a number", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, Validationf("amount must be positive")
	}
	return d, nil
}
