package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

// RateResolver supplies rates to base currency for a set of currency codes.
// Implemented by *FxService.
type RateResolver interface {
	ResolveRates(ctx context.Context, codes []string) (map[string]model.RateQuote, error)
}

// PortfolioService computes portfolio aggregates from stored trades, bonds and
// coupons, converted to base currency.
type PortfolioService struct {
	tradeRepo   *repository.TradeRepository
	couponRepo  *repository.CouponRepository
	summaryRepo *repository.SummaryRepository
	rates       RateResolver
	now         func() time.Time
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(
	tradeRepo *repository.TradeRepository,
	couponRepo *repository.CouponRepository,
	summaryRepo *repository.SummaryRepository,
	rates RateResolver,
	now func() time.Time,
) *PortfolioService {
	if now == nil {
		now = time.Now
	}
	return &PortfolioService{
		tradeRepo:   tradeRepo,
		couponRepo:  couponRepo,
		summaryRepo: summaryRepo,
		rates:       rates,
		now:         now,
	}
}

// Breakdown returns every trade's derived amount grouped by currency, with the
// base-currency total.
func (s *PortfolioService) Breakdown(ctx context.Context) (model.CurrencyBreakdown, error) {
	trades, err := s.tradeRepo.GetTradesWithBonds(ctx)
	if err != nil {
		return model.CurrencyBreakdown{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGetBreakdown, err)
	}
	quotes := s.resolveRates(ctx, tradeCurrencies(trades))
	return breakdown(trades, quotes), nil
}

// Positions returns holdings per bond with their value and weight.
func (s *PortfolioService) Positions(ctx context.Context) (model.PositionsReport, error) {
	trades, err := s.tradeRepo.GetTradesWithBonds(ctx)
	if err != nil {
		return model.PositionsReport{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGetPositions, err)
	}
	quotes := s.resolveRates(ctx, tradeCurrencies(trades))
	return positions(trades, quotes), nil
}

// Summary recomputes the portfolio summary and stores it.
//
// Invested is the base-converted sum of derived trade amounts. Current value
// is quantity times price plus accrued interest. Total value adds coupon
// income received to date.
func (s *PortfolioService) Summary(ctx context.Context) (model.PortfolioSummary, error) {
	var trades []model.TradeWithBond
	var tradesSum float64
	var couponProfit map[string]float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trades, err = s.tradeRepo.GetTradesWithBonds(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tradesSum, err = s.tradeRepo.SumTotalAmount(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		couponProfit, err = s.couponRepo.CouponProfit(gctx, today(s.now()))
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PortfolioSummary{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGetPortfolioSummary, err)
	}

	codes := tradeCurrencies(trades)
	for c := range couponProfit {
		codes = append(codes, c)
	}
	quotes := s.resolveRates(ctx, codes)

	bd := breakdown(trades, quotes)
	pos := positions(trades, quotes)

	conv := newConverter(quotes)
	var couponBase, current float64
	for _, c := range sortedKeys(couponProfit) {
		if v, _ := conv.convert(couponProfit[c], c, nil); v != nil {
			couponBase += *v
		}
	}
	for _, p := range pos.Positions {
		worth := mul(float64(p.TotalQty), p.LastPrice+p.Accrued)
		if v, _ := conv.convert(worth, p.Currency, nil); v != nil {
			current += *v
		}
	}

	invested := bd.SumBase
	total := current + couponBase
	var profitPct float64
	if invested != 0 {
		profitPct = round((total - invested) / invested * 100)
	}

	summary := model.PortfolioSummary{
		Invested:           round(invested),
		TradesSum:          round(tradesSum),
		CouponProfit:       round(couponBase),
		CurrentValue:       round(current),
		TotalValue:         round(total),
		ProfitPercent:      profitPct,
		ExcludedCurrencies: mergeExcluded(bd.Excluded, conv.excludedList("valuation")),
		UpdatedAt:          s.now().UTC(),
	}

	if err := s.summaryRepo.Save(ctx, summary); err != nil {
		return model.PortfolioSummary{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToGetPortfolioSummary, err)
	}
	return summary, nil
}

// CouponIncome returns coupons received to date by currency and the upcoming
// coupons of held bonds.
func (s *PortfolioService) CouponIncome(ctx context.Context) (model.CouponIncome, error) {
	day := today(s.now())

	profit, err := s.couponRepo.CouponProfit(ctx, day)
	if err != nil {
		return model.CouponIncome{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveCoupons, err)
	}
	trades, err := s.tradeRepo.GetTradesWithBonds(ctx)
	if err != nil {
		return model.CouponIncome{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveCoupons, err)
	}

	quotes := s.resolveRates(ctx, sortedKeys(profit))
	conv := newConverter(quotes)
	income := model.CouponIncome{
		ByCurrency: map[string]float64{},
		Upcoming:   []model.UpcomingCoupon{},
	}
	for _, c := range sortedKeys(profit) {
		income.ByCurrency[c] = round(profit[c])
		if v, _ := conv.convert(profit[c], c, nil); v != nil {
			income.TotalBase += *v
		}
	}
	income.TotalBase = round(income.TotalBase)
	income.Excluded = conv.excludedList("coupon income")

	for _, h := range holdings(trades) {
		coupons, err := s.couponRepo.GetCoupons(ctx, h.bondID, day)
		if err != nil {
			return model.CouponIncome{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveCoupons, err)
		}
		for _, c := range coupons {
			if c.IsPast || c.Value == nil {
				continue
			}
			currency := h.currency
			if c.Currency != nil && *c.Currency != "" {
				currency = model.NormalizeCurrency(*c.Currency)
			}
			income.Upcoming = append(income.Upcoming, model.UpcomingCoupon{
				BondID:   h.bondID,
				SecID:    h.secid,
				Name:     h.name,
				Date:     c.Date,
				Value:    *c.Value,
				Currency: currency,
				Quantity: h.qty,
				Amount:   round6(mul(*c.Value, float64(h.qty))),
			})
		}
	}
	sort.SliceStable(income.Upcoming, func(i, j int) bool {
		return income.Upcoming[i].Date.Before(income.Upcoming[j].Date)
	})

	return income, nil
}

// resolveRates never fails: without rates every foreign amount is excluded.
func (s *PortfolioService) resolveRates(ctx context.Context, codes []string) map[string]model.RateQuote {
	quotes, err := s.rates.ResolveRates(ctx, codes)
	if err != nil {
		log.Warn().Err(err).Msg("exchange rates unavailable")
	}
	if quotes == nil {
		quotes = map[string]model.RateQuote{}
	}
	return quotes
}

func breakdown(trades []model.TradeWithBond, quotes map[string]model.RateQuote) model.CurrencyBreakdown {
	conv := newConverter(quotes)
	bd := model.CurrencyBreakdown{
		Positions:  make([]model.TradeAmount, 0, len(trades)),
		ByCurrency: map[string]float64{},
	}

	for _, t := range trades {
		amount, method := DeriveAmount(t)
		currency := tradeCurrency(t)
		base, source := conv.convert(amount, currency, t.FxRate)

		bd.ByCurrency[currency] = round6(bd.ByCurrency[currency] + amount)
		if base != nil {
			bd.SumBase += *base
		}
		bd.Positions = append(bd.Positions, model.TradeAmount{
			TradeID:     t.ID,
			BondID:      t.BondID,
			SecID:       t.SecID,
			Currency:    currency,
			Amount:      amount,
			Method:      method,
			AmountBase:  base,
			RateSource:  source,
			TradeFxRate: t.FxRate,
		})
	}

	bd.SumBase = round(bd.SumBase)
	bd.Excluded = conv.excludedList("invested")
	return bd
}

type holding struct {
	bondID    string
	secid     string
	name      *string
	currency  string
	lastPrice float64
	accrued   float64
	qty       int64
}

// holdings groups trades by bond in first-trade order. Quantity is the sum of
// bought quantities.
func holdings(trades []model.TradeWithBond) []*holding {
	index := map[string]*holding{}
	var out []*holding
	for _, t := range trades {
		h, ok := index[t.BondID]
		if !ok {
			currency := model.BaseCurrency
			if t.BondCurrency != nil && *t.BondCurrency != "" {
				currency = model.NormalizeCurrency(*t.BondCurrency)
			} else if t.Currency != nil && *t.Currency != "" {
				currency = model.NormalizeCurrency(*t.Currency)
			}
			h = &holding{
				bondID:    t.BondID,
				secid:     t.SecID,
				name:      t.BondName,
				currency:  currency,
				lastPrice: deref(t.LastPrice),
				accrued:   deref(t.AccruedInterest),
			}
			index[t.BondID] = h
			out = append(out, h)
		}
		h.qty += t.BuyQty
	}
	return out
}

func positions(trades []model.TradeWithBond, quotes map[string]model.RateQuote) model.PositionsReport {
	conv := newConverter(quotes)
	report := model.PositionsReport{Positions: []model.Position{}}

	for _, h := range holdings(trades) {
		value := mul(float64(h.qty), h.lastPrice)
		base, _ := conv.convert(value, h.currency, nil)
		if base != nil {
			report.TotalValue += *base
		}
		report.Positions = append(report.Positions, model.Position{
			BondID:    h.bondID,
			SecID:     h.secid,
			Name:      h.name,
			Currency:  h.currency,
			LastPrice: h.lastPrice,
			Accrued:   h.accrued,
			TotalQty:  h.qty,
			Value:     round6(value),
			ValueBase: base,
		})
	}

	for i := range report.Positions {
		p := &report.Positions[i]
		if p.ValueBase != nil && report.TotalValue != 0 {
			p.Weight = round(*p.ValueBase / report.TotalValue * 100)
		}
	}

	report.TotalValue = round(report.TotalValue)
	report.Excluded = conv.excludedList("positions")
	return report
}

// converter turns amounts into base currency and remembers what it could not convert.
type converter struct {
	quotes   map[string]model.RateQuote
	excluded map[string]float64
}

func newConverter(quotes map[string]model.RateQuote) *converter {
	return &converter{quotes: quotes, excluded: map[string]float64{}}
}

// convert uses the trade's own rate when given, then the resolved quote. It
// returns nil when currency has no rate; the amount is then recorded as excluded.
func (c *converter) convert(amount float64, currency string, snapshot *float64) (*float64, *string) {
	if currency == model.BaseCurrency {
		return &amount, nil
	}
	if snapshot != nil && *snapshot > 0 {
		return ptr(mul(amount, *snapshot)), ptr(model.RateSourceTrade)
	}
	if q, ok := c.quotes[currency]; ok {
		return ptr(mul(amount, q.Rate)), ptr(q.Source)
	}
	c.excluded[currency] += amount
	return nil, nil
}

// excludedList returns the excluded amounts sorted by currency, logging a warning for each.
func (c *converter) excludedList(scope string) []model.ExcludedCurrency {
	out := []model.ExcludedCurrency{}
	for _, code := range sortedKeys(c.excluded) {
		amount := round6(c.excluded[code])
		log.Warn().Str("currency", code).Float64("amount", amount).Str("scope", scope).
			Msg("no exchange rate, amount excluded from base total")
		out = append(out, model.ExcludedCurrency{Currency: code, Amount: amount})
	}
	return out
}

// mergeExcluded keeps the invested-side amount of every currency and adds
// currencies only missing elsewhere.
func mergeExcluded(primary, other []model.ExcludedCurrency) []model.ExcludedCurrency {
	seen := map[string]bool{}
	out := append([]model.ExcludedCurrency{}, primary...)
	for _, e := range primary {
		seen[e.Currency] = true
	}
	for _, e := range other {
		if !seen[e.Currency] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// tradeCurrencies returns every currency trades and their bonds are quoted in.
func tradeCurrencies(trades []model.TradeWithBond) []string {
	codes := make([]string, 0, len(trades))
	for _, t := range trades {
		codes = append(codes, tradeCurrency(t))
		if t.BondCurrency != nil && *t.BondCurrency != "" {
			codes = append(codes, model.NormalizeCurrency(*t.BondCurrency))
		}
	}
	return codes
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
