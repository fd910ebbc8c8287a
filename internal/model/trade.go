package model

import "time"

// Amount derivation methods recorded against each trade.
const (
	AmountMethodTotal        = "total_amount"
	AmountMethodBuyPrice     = "buy_price"
	AmountMethodLastPrice    = "last_price"
	AmountMethodLastPricePct = "last_price_pct"
	AmountMethodUndetermined = "undetermined"
)

// Trade is a buy, with an optional matching sell, against one bond.
type Trade struct {
	ID             string     `json:"id"`
	BondID         string     `json:"bond_id"`
	BuyDate        time.Time  `json:"buy_date"`
	BuyQty         int64      `json:"buy_qty"`
	BuyPrice       *float64   `json:"buy_price"`
	BuyAccrued     *float64   `json:"buy_accrued"`
	BuyCommission  *float64   `json:"buy_commission"`
	SellDate       *time.Time `json:"sell_date"`
	SellQty        *int64     `json:"sell_qty"`
	SellPrice      *float64   `json:"sell_price"`
	SellAccrued    *float64   `json:"sell_accrued"`
	SellCommission *float64   `json:"sell_commission"`
	Currency       *string    `json:"currency"`
	FxRate         *float64   `json:"fx_rate"`
	TotalAmount    *float64   `json:"total_amount"`
	AmountMethod   *string    `json:"amount_method"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TradeWithBond pairs a trade with its bond's market fields for aggregation.
// Bond fields are nil when the bond row is missing.
type TradeWithBond struct {
	Trade
	SecID           string
	BondName        *string
	BondCurrency    *string
	LastPrice       *float64
	LastPricePct    *float64
	FaceValue       *float64
	AccruedInterest *float64
}
