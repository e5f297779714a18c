package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrAmountTooLarge  = errors.New("amount exceeds the maximum")
)

// MaxAmount is the largest magnitude a numeric(14,2) column stores.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// WithinLimit reports whether the amount fits the storage columns.
func WithinLimit(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(MaxAmount)
}

// ParseAmount reads a chip or payment amount with at most two decimal places.
// The sign is preserved; rejecting negatives is the caller's business.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return decimal.Zero, ErrTooManyDecimals
	}
	if !WithinLimit(amount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return amount, nil
}

// FormatAmount renders an amount with two decimal places. This is the only
// place figures are rounded.
func FormatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}
