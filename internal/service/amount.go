package service

import (
	"github.com/calm3366/bond-portfolio/internal/model"
)

// amountStrategy derives a trade's monetary amount from one set of inputs,
// reporting false when those inputs are missing.
type amountStrategy struct {
	method string
	derive func(t model.TradeWithBond) (float64, bool)
}

// amountStrategies are tried in order; the first that applies wins.
var amountStrategies = []amountStrategy{
	{
		method: model.AmountMethodTotal,
		derive: func(t model.TradeWithBond) (float64, bool) {
			if t.TotalAmount == nil {
				return 0, false
			}
			return *t.TotalAmount, true
		},
	},
	{
		method: model.AmountMethodBuyPrice,
		derive: func(t model.TradeWithBond) (float64, bool) {
			if t.BuyPrice == nil {
				return 0, false
			}
			return mul(*t.BuyPrice, float64(t.BuyQty)) + deref(t.BuyAccrued) + deref(t.BuyCommission), true
		},
	},
	{
		method: model.AmountMethodLastPrice,
		derive: func(t model.TradeWithBond) (float64, bool) {
			if t.LastPrice == nil {
				return 0, false
			}
			return mul(*t.LastPrice, float64(t.BuyQty)) + deref(t.BuyCommission), true
		},
	},
	{
		method: model.AmountMethodLastPricePct,
		derive: func(t model.TradeWithBond) (float64, bool) {
			if t.LastPricePct == nil || t.FaceValue == nil {
				return 0, false
			}
			perBond := mul(*t.LastPricePct/100, *t.FaceValue)
			return mul(perBond, float64(t.BuyQty)) + deref(t.BuyCommission), true
		},
	},
}

// DeriveAmount returns the amount invested by a trade and the method used.
// When nothing applies the amount is 0 and the method is undetermined.
func DeriveAmount(t model.TradeWithBond) (float64, string) {
	for _, s := range amountStrategies {
		if v, ok := s.derive(t); ok {
			return round6(v), s.method
		}
	}
	return 0, model.AmountMethodUndetermined
}

// tradeCurrency returns the trade's currency, else its bond's, else the base currency.
func tradeCurrency(t model.TradeWithBond) string {
	if t.Currency != nil && *t.Currency != "" {
		return model.NormalizeCurrency(*t.Currency)
	}
	if t.BondCurrency != nil && *t.BondCurrency != "" {
		return model.NormalizeCurrency(*t.BondCurrency)
	}
	return model.BaseCurrency
}
