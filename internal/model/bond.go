package model

import (
	"fmt"
	"strings"
	"time"
)

// Agency keys used in rating maps.
const (
	AgencyAKRA     = "akra"
	AgencyRAExpert = "raexpert"
	AgencyNKR      = "nkr"
)

// Rating is a single agency's credit rating and outlook. Either field may be nil.
type Rating struct {
	Rating   *string `json:"rating"`
	Forecast *string `json:"forecast"`
}

// Bond represents a tracked bond with its reference terms and the latest market snapshot.
// Every market field is nullable: a refresh that could not obtain a value stores nil.
type Bond struct {
	ID              string     `json:"id"`
	SecID           string     `json:"secid"`
	ISIN            *string    `json:"isin"`
	Name            *string    `json:"name"`
	Emitent         *string    `json:"emitent"`
	Market          *string    `json:"market"`
	Coupon          *float64   `json:"coupon"`
	CouponDisplay   *string    `json:"coupon_display"`
	CouponType      *string    `json:"coupon_type"`
	MaturityDate    *time.Time `json:"maturity_date"`
	OfferDate       *time.Time `json:"offer_date"`
	Amortization    *bool      `json:"amortization"`
	Currency        *string    `json:"currency"`
	CurrencySymbol  *string    `json:"currency_symbol"`
	FaceValue       *float64   `json:"face_value"`
	LastPrice       *float64   `json:"last_price"`
	LastPricePct    *float64   `json:"last_price_pct"`
	AccruedInterest *float64   `json:"accrued_interest"`
	YTM             *float64   `json:"ytm"`
	YTMDate         *time.Time `json:"ytm_date"`
	AKRA            Rating     `json:"akra"`
	RAExpert        Rating     `json:"raexpert"`
	NKR             Rating     `json:"nkr"`
	DayOpen         *float64   `json:"day_open"`
	WeekOpen        *float64   `json:"week_open"`
	MonthOpen       *float64   `json:"month_open"`
	YearOpen        *float64   `json:"year_open"`
	StaleReason     *string    `json:"stale_reason"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RatingDisplay renders all known agency ratings, one per line.
func (b Bond) RatingDisplay() string {
	parts := make([]string, 0, 3)
	for _, r := range []struct {
		label  string
		rating Rating
	}{
		{"АКРА", b.AKRA},
		{"ЭкспРА", b.RAExpert},
		{"НКР", b.NKR},
	} {
		if r.rating.Rating == nil || *r.rating.Rating == "" {
			continue
		}
		s := fmt.Sprintf("%s: %s", r.label, *r.rating.Rating)
		if r.rating.Forecast != nil && *r.rating.Forecast != "" {
			s += fmt.Sprintf(" (%s)", *r.rating.Forecast)
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "Нет рейтинга"
	}
	return strings.Join(parts, "\n")
}

// AmortizationDisplay renders the amortization flag for tables.
func (b Bond) AmortizationDisplay() string {
	if b.Amortization != nil && *b.Amortization {
		return "Есть"
	}
	return "-"
}

// BondSearchResult is a single row of a market-wide bond search.
type BondSearchResult struct {
	SecID        string     `json:"secid"`
	ISIN         string     `json:"isin"`
	Name         string     `json:"name"`
	Emitent      string     `json:"emitent"`
	Market       string     `json:"market"`
	Coupon       float64    `json:"coupon"`
	MaturityDate *time.Time `json:"maturity_date"`
	Rating       *string    `json:"rating"`
	Currency     *string    `json:"currency"`
	Amortization *bool      `json:"amortization"`
	OfferDate    *time.Time `json:"offer_date"`
}

// BondSearchFilter narrows a market-wide search. Nil bounds are open.
type BondSearchFilter struct {
	Query        string
	CouponFrom   *float64
	CouponTo     *float64
	MaturityFrom *time.Time
	MaturityTo   *time.Time
	Rating       string
}

// OpenValues holds absolute opening prices for the standard reference points.
type OpenValues struct {
	Day   *float64 `json:"day_open"`
	Week  *float64 `json:"week_open"`
	Month *float64 `json:"month_open"`
	Year  *float64 `json:"year_open"`
}

// RefreshReport summarises a multi-bond refresh.
type RefreshReport struct {
	Refreshed []string          `json:"refreshed"`
	Stale     map[string]string `json:"stale"`
	Failed    map[string]string `json:"failed"`
}
