package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaterialCode represents a unique material identifier
type MaterialCode string

// FormulationID represents a unique formulation identifier
type FormulationID string

// Quantity represents a material quantity in the material's unit of measure
type Quantity float64

// DateLayout is the calendar date format used by inputs, outputs and reason strings
const DateLayout = "2006-01-02"

// QuantityPlaces is the number of decimal places quantities are rounded to
const QuantityPlaces = 4

// DefaultEpsilon is the tolerance used when comparing projected balances against safety stock
const DefaultEpsilon = 1e-6

// Decimal converts the quantity to a decimal value
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(q))
}

// Round rounds the quantity half away from zero to QuantityPlaces
func (q Quantity) Round() Quantity {
	f, _ := q.Decimal().Round(QuantityPlaces).Float64()
	return Quantity(f)
}

// RoundUp rounds the quantity towards positive infinity at QuantityPlaces
func (q Quantity) RoundUp() Quantity {
	f, _ := q.Decimal().RoundCeil(QuantityPlaces).Float64()
	return Quantity(f)
}

// String formats the quantity without trailing zeros, e.g. 280 or 12.5
func (q Quantity) String() string {
	return q.Decimal().Round(QuantityPlaces).String()
}

// Date truncates t to a calendar day in UTC
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays returns the date n days after t
func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}
