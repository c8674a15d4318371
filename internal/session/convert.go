package session

import "github.com/shopspring/decimal"

// ToInt scales v into the fixed-point integer domain, truncating toward
// negative infinity: floor(v * 10^digits).
func ToInt(v decimal.Decimal, digits int32) int64 {
	return v.Shift(digits).Floor().IntPart()
}

// ToDecimal is the inverse of ToInt: v / 10^digits, exact.
func ToDecimal(v int64, digits int32) decimal.Decimal {
	return decimal.New(v, -digits)
}

func toFloat(v int64, digits int32) float64 {
	return ToDecimal(v, digits).InexactFloat64()
}
