package handlers

import (
	"encoding/json"

	"cashgame/internal/money"

	"github.com/shopspring/decimal"
)

// parseAmount accepts a JSON number or numeric string. Sign checks are left
// to the service so negative input reports the specific validation error.
func parseAmount(raw json.Number, required bool) (decimal.Decimal, error) {
	if raw == "" {
		if required {
			return decimal.Zero, money.ErrInvalidAmount
		}
		return decimal.Zero, nil
	}
	return money.ParseAmount(raw.String())
}
