package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount combines dinars and millimes into an exact decimal value.
func Amount(dt int64, mm int) decimal.Decimal {
	return decimal.NewFromInt(dt).Add(decimal.New(int64(mm), -3))
}

// FormatAmount renders dinars and millimes as "1500,050 DT".
func FormatAmount(dt int64, mm int) string {
	return fmt.Sprintf("%d,%03d DT", dt, mm)
}
