package request

// CreateTradeRequest is the body of POST /api/trade. Dates are YYYY-MM-DD.
type CreateTradeRequest struct {
	BondID         string   `json:"bond_id" validate:"required,uuid"`
	BuyDate        string   `json:"buy_date" validate:"required,datetime=2006-01-02"`
	BuyQty         int64    `json:"buy_qty" validate:"required,gt=0"`
	BuyPrice       *float64 `json:"buy_price" validate:"omitempty,gte=0"`
	BuyAccrued     *float64 `json:"buy_accrued" validate:"omitempty,gte=0"`
	BuyCommission  *float64 `json:"buy_commission" validate:"omitempty,gte=0"`
	SellDate       *string  `json:"sell_date" validate:"omitempty,datetime=2006-01-02"`
	SellQty        *int64   `json:"sell_qty" validate:"omitempty,gt=0"`
	SellPrice      *float64 `json:"sell_price" validate:"omitempty,gte=0"`
	SellAccrued    *float64 `json:"sell_accrued" validate:"omitempty,gte=0"`
	SellCommission *float64 `json:"sell_commission" validate:"omitempty,gte=0"`
	Currency       *string  `json:"currency" validate:"omitempty,currency"`
	FxRate         *float64 `json:"fx_rate" validate:"omitempty,gt=0"`
	TotalAmount    *float64 `json:"total_amount" validate:"omitempty,gte=0"`
}

// UpdateTradeRequest is the body of PUT /api/trade/{uuid}. Only the fields
// present are changed.
type UpdateTradeRequest struct {
	BuyDate        *string  `json:"buy_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BuyQty         *int64   `json:"buy_qty,omitempty" validate:"omitempty,gt=0"`
	BuyPrice       *float64 `json:"buy_price,omitempty" validate:"omitempty,gte=0"`
	BuyAccrued     *float64 `json:"buy_accrued,omitempty" validate:"omitempty,gte=0"`
	BuyCommission  *float64 `json:"buy_commission,omitempty" validate:"omitempty,gte=0"`
	SellDate       *string  `json:"sell_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SellQty        *int64   `json:"sell_qty,omitempty" validate:"omitempty,gt=0"`
	SellPrice      *float64 `json:"sell_price,omitempty" validate:"omitempty,gte=0"`
	SellAccrued    *float64 `json:"sell_accrued,omitempty" validate:"omitempty,gte=0"`
	SellCommission *float64 `json:"sell_commission,omitempty" validate:"omitempty,gte=0"`
	Currency       *string  `json:"currency,omitempty" validate:"omitempty,currency"`
	FxRate         *float64 `json:"fx_rate,omitempty" validate:"omitempty,gt=0"`
	TotalAmount    *float64 `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
}
