package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// round rounds a value to two decimal places, half away from zero.
// Used for weights and percentages returned by the API.
//
// Example:
//
//	round(123.456789)  // returns 123.46
//	round(0.005)       // returns 0.01
//	round(1.994)       // returns 1.99
func round(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// round6 rounds to six decimal places, the precision stored for prices.
func round6(value float64) float64 {
	return decimal.NewFromFloat(value).Round(6).InexactFloat64()
}

// mul multiplies without binary float drift, e.g. 90 * 100.1 = 9009.
func mul(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).InexactFloat64()
}

// deref returns *p or zero when p is nil.
func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}

// strPtr returns nil for an empty string.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// today returns the calendar date of t in UTC.
func today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
