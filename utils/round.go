package utils

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places. All amounts cross
// this boundary exactly once, right before persistence; intermediate math
// keeps full float precision.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
