package utils

import "github.com/shopspring/decimal"

// SumRevenue soma os valores informados
func SumRevenue(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	return decimal.Sum(values[0], values[1:]...)
}
