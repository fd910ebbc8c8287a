package validation

import (
	"time"

	"github.com/calm3366/bond-portfolio/internal/api/request"
)

// ValidateCreateTrade validates a trade creation request.
//
// Required fields:
//   - bond_id: Must be a valid UUID
//   - buy_date: Must be in YYYY-MM-DD format
//   - buy_qty: Must be positive
//
// The sell leg is optional; when present, sell_qty may not exceed buy_qty and
// sell_date may not precede buy_date.
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTrade(req request.CreateTradeRequest) error {
	if err := Struct(req); err != nil {
		return err
	}

	fields := make(map[string]string)
	checkSellLeg(fields, &req.BuyDate, &req.BuyQty, req.SellDate, req.SellQty)
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

// ValidateUpdateTrade validates a trade update request against the values it
// would be merged into. All fields are optional, but if provided, they must
// meet the same constraints as create.
func ValidateUpdateTrade(req request.UpdateTradeRequest, buyDate string, buyQty int64, sellDate *string, sellQty *int64) error {
	if err := Struct(req); err != nil {
		return err
	}

	if req.BuyDate != nil {
		buyDate = *req.BuyDate
	}
	if req.BuyQty != nil {
		buyQty = *req.BuyQty
	}
	if req.SellDate != nil {
		sellDate = req.SellDate
	}
	if req.SellQty != nil {
		sellQty = req.SellQty
	}

	fields := make(map[string]string)
	checkSellLeg(fields, &buyDate, &buyQty, sellDate, sellQty)
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

func checkSellLeg(fields map[string]string, buyDate *string, buyQty *int64, sellDate *string, sellQty *int64) {
	if sellQty != nil && *sellQty > *buyQty {
		fields["sell_qty"] = "sell_qty must not exceed buy_qty"
	}
	if sellDate == nil {
		return
	}
	buy, err1 := time.Parse("2006-01-02", *buyDate)
	sell, err2 := time.Parse("2006-01-02", *sellDate)
	if err1 == nil && err2 == nil && sell.Before(buy) {
		fields["sell_date"] = "sell_date must not be before buy_date"
	}
}
