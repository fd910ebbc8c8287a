package model

import (
	"strings"
	"time"
)

// BaseCurrency is the currency portfolio totals are reported in.
const BaseCurrency = "RUB"

// Rate sources, in resolution order.
const (
	RateSourceTrade  = "trade"
	RateSourceLive   = "live"
	RateSourceStored = "stored"
)

// FxRate is the number of base-currency units per one unit of Currency.
type FxRate struct {
	Currency  string    `json:"currency"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RateQuote is a resolved conversion rate and where it came from.
type RateQuote struct {
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeCurrency upper-cases a currency code and maps the exchange's legacy
// "SUR" code and the empty string to the base currency.
func NormalizeCurrency(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" || c == "SUR" {
		return BaseCurrency
	}
	return c
}

// IsBaseCurrency reports whether code denotes the base currency.
func IsBaseCurrency(code string) bool {
	return NormalizeCurrency(code) == BaseCurrency
}
