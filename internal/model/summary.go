package model

import "time"

// PortfolioSummary is the single-row snapshot of portfolio-wide metrics, in base currency.
type PortfolioSummary struct {
	Invested           float64            `json:"invested"`
	TradesSum          float64            `json:"trades_sum"`
	CouponProfit       float64            `json:"coupon_profit"`
	CurrentValue       float64            `json:"current_value"`
	TotalValue         float64            `json:"total_value"`
	ProfitPercent      float64            `json:"profit_percent"`
	ExcludedCurrencies []ExcludedCurrency `json:"excluded_currencies"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ExcludedCurrency is exposure left out of a base-currency total because no rate was found.
type ExcludedCurrency struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// TradeAmount is one trade's derived monetary amount and its base-currency conversion.
type TradeAmount struct {
	TradeID     string   `json:"trade_id"`
	BondID      string   `json:"bond_id"`
	SecID       string   `json:"secid"`
	Currency    string   `json:"currency"`
	Amount      float64  `json:"computed_amount"`
	Method      string   `json:"chosen_reason"`
	AmountBase  *float64 `json:"computed_amount_rub"`
	RateSource  *string  `json:"rate_source"`
	TradeFxRate *float64 `json:"fx_rate"`
}

// CurrencyBreakdown groups trade amounts by currency and converts them to base currency.
type CurrencyBreakdown struct {
	Positions  []TradeAmount      `json:"positions"`
	ByCurrency map[string]float64 `json:"by_currency"`
	SumBase    float64            `json:"sum_in_rub"`
	Excluded   []ExcludedCurrency `json:"excluded_currencies"`
}

// Position is a bond holding with its market value and share of the portfolio.
type Position struct {
	BondID    string   `json:"id"`
	SecID     string   `json:"secid"`
	Name      *string  `json:"name"`
	Currency  string   `json:"currency"`
	LastPrice float64  `json:"last_price"`
	Accrued   float64  `json:"accrued_interest"`
	TotalQty  int64    `json:"total_qty"`
	Value     float64  `json:"bond_value"`
	ValueBase *float64 `json:"bond_value_rub"`
	Weight    float64  `json:"weight"`
}

// PositionsReport lists positions with the base-currency portfolio value they were weighted by.
type PositionsReport struct {
	Positions  []Position         `json:"positions"`
	TotalValue float64            `json:"total_value"`
	Excluded   []ExcludedCurrency `json:"excluded_currencies"`
}

// CouponIncome is coupon income received to date plus the coupons still to come
// on held bonds.
type CouponIncome struct {
	ByCurrency map[string]float64 `json:"by_currency"`
	TotalBase  float64            `json:"total_rub"`
	Excluded   []ExcludedCurrency `json:"excluded_currencies"`
	Upcoming   []UpcomingCoupon   `json:"upcoming"`
}

// UpcomingCoupon is a future coupon payment scaled to the held quantity.
type UpcomingCoupon struct {
	BondID   string    `json:"bond_id"`
	SecID    string    `json:"secid"`
	Name     *string   `json:"name"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Currency string    `json:"currency"`
	Quantity int64     `json:"quantity"`
	Amount   float64   `json:"amount"`
}
