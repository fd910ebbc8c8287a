package moex

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFaceValue is assumed when a bond's nominal cannot be determined.
const DefaultFaceValue = 1000.0

var (
	faceColumns    = []string{"FACEVALUE", "FACE", "FACEVALUEONSETTLEDATE", "LOTVALUE"}
	lastPctColumns = []string{"LAST", "LASTPRICE", "LASTTRADE", "LCUR", "LASTVALUE"}
)

// Security is the detail view of one bond on one market.
type Security struct {
	Market     string
	Securities []Row
	MarketData []Row
}

// Coupon is one entry of a bondization coupon schedule.
type Coupon struct {
	Date     time.Time
	Value    *float64
	Currency string
}

// Amortization is one principal repayment.
type Amortization struct {
	Date  time.Time
	Value *float64
}

// Bondization holds the payment schedules of a bond.
type Bondization struct {
	Coupons       []Coupon
	Amortizations []Amortization
}

// HasAmortization reports whether principal is repaid in more than one
// installment. The final redemption is always listed, so a single entry means
// a bullet bond.
func (b Bondization) HasAmortization() bool {
	return len(b.Amortizations) > 1
}

// Field returns the first non-empty value of a column, looking in the
// securities rows before the marketdata rows.
func (s Security) Field(name string) string {
	for _, rows := range [][]Row{s.Securities, s.MarketData} {
		for _, row := range rows {
			if v := row.String(name); v != "" {
				return v
			}
		}
	}
	return ""
}

// FloatField is Field for numeric columns.
func (s Security) FloatField(name string) *float64 {
	for _, rows := range [][]Row{s.Securities, s.MarketData} {
		for _, row := range rows {
			if v, ok := row.Float(name); ok {
				return &v
			}
		}
	}
	return nil
}

// DateField is Field for date columns.
func (s Security) DateField(name string) *time.Time {
	for _, row := range s.Securities {
		if d := row.Date(name); d != nil {
			return d
		}
	}
	return nil
}

// FaceValue returns the first positive nominal among the known columns of the
// securities rows, or DefaultFaceValue.
func (s Security) FaceValue() float64 {
	if v, ok := firstFloat(s.Securities, faceColumns, func(f float64) bool { return f > 0 }); ok {
		return v
	}
	return DefaultFaceValue
}

// LastPricePct returns the latest price in percent of face: the first non-zero
// last-trade column of marketdata, falling back to the previous close.
func (s Security) LastPricePct() *float64 {
	nonZero := func(f float64) bool { return f != 0 }
	if v, ok := firstFloat(s.MarketData, lastPctColumns, nonZero); ok {
		return &v
	}
	if v, ok := firstFloat(s.Securities, []string{"PREVPRICE"}, nonZero); ok {
		return &v
	}
	return nil
}

// LastPrice returns the latest price in currency units, rounded to 6 digits.
func (s Security) LastPrice() *float64 {
	pct := s.LastPricePct()
	if pct == nil {
		return nil
	}
	v := Round6(*pct * s.FaceValue() / 100)
	return &v
}

// Round6 rounds to six decimal places.
func Round6(v float64) float64 {
	return decimal.NewFromFloat(v).Round(6).InexactFloat64()
}
