package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

// BondBuilder provides a fluent interface for creating test bonds.
//
// Example usage:
//
//	// Simple creation with defaults (RUB, face 1000, price 100%)
//	bond := testutil.NewBond().Build(t, db)
//
//	// Customized bond
//	bond := testutil.NewBond().
//	    WithSecID("RU000A105TX2").
//	    WithCurrency("USD").
//	    WithLastPrice(950).
//	    Build(t, db)
type BondBuilder struct {
	bond model.Bond
}

// NewBond creates a BondBuilder with sensible defaults.
func NewBond() *BondBuilder {
	isin := MakeISIN("RU")
	return &BondBuilder{bond: model.Bond{
		ID:             MakeID(),
		SecID:          isin,
		ISIN:           &isin,
		Name:           ptr(MakeBondName("Test Bond")),
		Market:         ptr("bonds"),
		Coupon:         ptr(10.0),
		Currency:       ptr(model.BaseCurrency),
		CurrencySymbol: ptr("₽"),
		FaceValue:      ptr(1000.0),
		LastPricePct:   ptr(100.0),
		LastPrice:      ptr(1000.0),
		UpdatedAt:      time.Now().UTC(),
	}}
}

// WithID sets a custom ID.
func (b *BondBuilder) WithID(id string) *BondBuilder {
	b.bond.ID = id
	return b
}

// WithSecID sets the exchange code.
func (b *BondBuilder) WithSecID(secid string) *BondBuilder {
	b.bond.SecID = secid
	return b
}

// WithName sets a custom name.
func (b *BondBuilder) WithName(name string) *BondBuilder {
	b.bond.Name = &name
	return b
}

// WithCurrency sets the bond currency. An empty code clears it.
func (b *BondBuilder) WithCurrency(code string) *BondBuilder {
	if code == "" {
		b.bond.Currency = nil
		b.bond.CurrencySymbol = nil
		return b
	}
	b.bond.Currency = &code
	b.bond.CurrencySymbol = &code
	return b
}

// WithLastPrice sets the absolute last price and clears the percent price.
func (b *BondBuilder) WithLastPrice(price float64) *BondBuilder {
	b.bond.LastPrice = &price
	b.bond.LastPricePct = nil
	return b
}

// WithLastPricePct sets the percent-of-face price and clears the absolute price.
func (b *BondBuilder) WithLastPricePct(pct float64) *BondBuilder {
	b.bond.LastPricePct = &pct
	b.bond.LastPrice = nil
	return b
}

// WithoutPrice clears both price fields.
func (b *BondBuilder) WithoutPrice() *BondBuilder {
	b.bond.LastPrice = nil
	b.bond.LastPricePct = nil
	return b
}

// WithFaceValue sets the nominal.
func (b *BondBuilder) WithFaceValue(face float64) *BondBuilder {
	b.bond.FaceValue = &face
	return b
}

// WithAccrued sets the accrued coupon interest.
func (b *BondBuilder) WithAccrued(accrued float64) *BondBuilder {
	b.bond.AccruedInterest = &accrued
	return b
}

// WithMaturity sets the maturity date.
func (b *BondBuilder) WithMaturity(d time.Time) *BondBuilder {
	b.bond.MaturityDate = &d
	return b
}

// WithAKRA sets the AKRA rating.
func (b *BondBuilder) WithAKRA(rating string) *BondBuilder {
	b.bond.AKRA = model.Rating{Rating: &rating}
	return b
}

// Bond returns the configured bond without storing it.
func (b *BondBuilder) Bond() model.Bond {
	return b.bond
}

// Build creates the bond in the database and returns it.
func (b *BondBuilder) Build(t *testing.T, db *sql.DB) model.Bond {
	t.Helper()

	id, err := repository.NewBondRepository(db).UpsertBond(context.Background(), b.bond)
	if err != nil {
		t.Fatalf("Failed to create test bond: %v", err)
	}
	bond := b.bond
	bond.ID = id
	return bond
}

// TradeBuilder provides a fluent interface for creating test trades.
//
// Example usage:
//
//	trade := testutil.NewTrade(bond.ID).
//	    WithQty(10).
//	    WithTotalAmount(9850).
//	    Build(t, db)
type TradeBuilder struct {
	trade model.Trade
}

// NewTrade creates a TradeBuilder for a bond: one unit bought 30 days ago.
func NewTrade(bondID string) *TradeBuilder {
	return &TradeBuilder{trade: model.Trade{
		ID:        MakeID(),
		BondID:    bondID,
		BuyDate:   Today().AddDate(0, 0, -30),
		BuyQty:    1,
		CreatedAt: time.Now().UTC(),
	}}
}

// WithBuyDate sets the buy date.
func (b *TradeBuilder) WithBuyDate(d time.Time) *TradeBuilder {
	b.trade.BuyDate = d
	return b
}

// WithQty sets the bought quantity.
func (b *TradeBuilder) WithQty(qty int64) *TradeBuilder {
	b.trade.BuyQty = qty
	return b
}

// WithBuyPrice sets the per-unit buy price.
func (b *TradeBuilder) WithBuyPrice(price float64) *TradeBuilder {
	b.trade.BuyPrice = &price
	return b
}

// WithCommission sets the buy commission.
func (b *TradeBuilder) WithCommission(c float64) *TradeBuilder {
	b.trade.BuyCommission = &c
	return b
}

// WithTotalAmount sets an explicit total.
func (b *TradeBuilder) WithTotalAmount(amount float64) *TradeBuilder {
	b.trade.TotalAmount = &amount
	return b
}

// WithCurrency sets the trade currency.
func (b *TradeBuilder) WithCurrency(code string) *TradeBuilder {
	b.trade.Currency = &code
	return b
}

// WithFxRate sets the rate snapshot taken at trade time.
func (b *TradeBuilder) WithFxRate(rate float64) *TradeBuilder {
	b.trade.FxRate = &rate
	return b
}

// Build creates the trade in the database and returns it.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Trade {
	t.Helper()

	trade := b.trade
	if err := repository.NewTradeRepository(db).InsertTrade(context.Background(), &trade); err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}
	return trade
}

// CreateCoupons stores a coupon schedule for a bond, replacing any existing one.
//
// Example usage:
//
//	testutil.CreateCoupons(t, db, bond.ID,
//	    testutil.NewCoupon(testutil.Today().AddDate(0, 0, -10), 40),
//	    testutil.NewCoupon(testutil.Today().AddDate(0, 6, 0), 40),
//	)
func CreateCoupons(t *testing.T, db *sql.DB, bondID string, coupons ...model.Coupon) {
	t.Helper()

	if err := repository.NewCouponRepository(db).ReplaceCoupons(context.Background(), bondID, coupons); err != nil {
		t.Fatalf("Failed to create test coupons: %v", err)
	}
}

// NewCoupon returns a coupon on date paying value per unit, with no currency.
func NewCoupon(date time.Time, value float64) model.Coupon {
	return model.Coupon{Date: date, Value: &value}
}

// CreateFxRate stores a persisted exchange rate.
func CreateFxRate(t *testing.T, db *sql.DB, currency string, rate float64) model.FxRate {
	t.Helper()

	fx := model.FxRate{Currency: currency, Rate: rate, UpdatedAt: time.Now().UTC()}
	if err := repository.NewFxRateRepository(db).UpsertRate(context.Background(), fx); err != nil {
		t.Fatalf("Failed to create test fx rate: %v", err)
	}
	return fx
}

// CreateEvent stores an event log entry.
func CreateEvent(t *testing.T, db *sql.DB, level, message string, at time.Time) model.EventLog {
	t.Helper()

	e := model.EventLog{Level: level, Message: message, Timestamp: at}
	if err := repository.NewEventLogRepository(db).Insert(context.Background(), &e); err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}
	return e
}

func ptr[T any](v T) *T {
	return &v
}
