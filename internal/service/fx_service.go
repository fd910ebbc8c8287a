package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/calm3366/bond-portfolio/internal/cbr"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

const dailyRatesKey = "cbr:daily"

// FxService provides exchange rates to base currency: live from the central
// bank, with the persisted table as the fallback.
type FxService struct {
	provider cbr.Provider
	fxRepo   *repository.FxRateRepository
	bondRepo *repository.BondRepository
	memo     *gocache.Cache
	now      func() time.Time
}

// NewFxService creates a new FxService. The daily document is memoised for
// ttl; ttl <= 0 fetches it on every call.
func NewFxService(
	provider cbr.Provider,
	fxRepo *repository.FxRateRepository,
	bondRepo *repository.BondRepository,
	ttl time.Duration,
	now func() time.Time,
) *FxService {
	if now == nil {
		now = time.Now
	}
	s := &FxService{
		provider: provider,
		fxRepo:   fxRepo,
		bondRepo: bondRepo,
		now:      now,
	}
	if ttl > 0 {
		s.memo = gocache.New(ttl, 2*ttl)
	}
	return s
}

func (s *FxService) daily(ctx context.Context) (map[string]float64, error) {
	if s.memo != nil {
		if v, ok := s.memo.Get(dailyRatesKey); ok {
			return v.(map[string]float64), nil
		}
	}

	rates, err := s.provider.Daily(ctx)
	if err != nil {
		return nil, err
	}
	if s.memo != nil {
		s.memo.Set(dailyRatesKey, rates, gocache.DefaultExpiration)
	}
	return rates, nil
}

// FetchRates returns live rates for the given codes. The base currency and
// codes the central bank does not quote are absent from the result.
func (s *FxService) FetchRates(ctx context.Context, codes []string) (map[string]float64, error) {
	table, err := s.daily(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live rates: %w", err)
	}

	rates := make(map[string]float64, len(codes))
	for _, code := range codes {
		code = model.NormalizeCurrency(code)
		if code == model.BaseCurrency {
			continue
		}
		if rate, ok := table[code]; ok {
			rates[code] = rate
		}
	}
	return rates, nil
}

// UpdateRates fetches and persists live rates. With no codes given, every
// non-base currency used by bonds or trades is updated. Returns the saved rows.
func (s *FxService) UpdateRates(ctx context.Context, codes []string) ([]model.FxRate, error) {
	if len(codes) == 0 {
		used, err := s.bondRepo.GetCurrencies(ctx)
		if err != nil {
			return nil, err
		}
		codes = used
	}
	codes = foreignCurrencies(codes)
	if len(codes) == 0 {
		return []model.FxRate{}, nil
	}

	live, err := s.FetchRates(ctx, codes)
	if err != nil {
		return nil, err
	}

	saved := make([]model.FxRate, 0, len(live))
	now := s.now().UTC()
	for _, code := range codes {
		rate, ok := live[code]
		if !ok {
			log.Warn().Str("currency", code).Msg("no central bank rate for currency")
			continue
		}
		row := model.FxRate{Currency: code, Rate: rate, UpdatedAt: now}
		if err := s.fxRepo.UpsertRate(ctx, row); err != nil {
			return nil, err
		}
		saved = append(saved, row)
	}
	return saved, nil
}

// ResolveRates returns a quote for every code it can: live first, persisting
// what it fetched, then the stored table. Codes with no quote are absent.
func (s *FxService) ResolveRates(ctx context.Context, codes []string) (map[string]model.RateQuote, error) {
	codes = foreignCurrencies(codes)
	quotes := make(map[string]model.RateQuote, len(codes))
	if len(codes) == 0 {
		return quotes, nil
	}

	live, err := s.FetchRates(ctx, codes)
	if err != nil {
		log.Warn().Err(err).Msg("live exchange rates unavailable, using stored rates")
	}
	now := s.now().UTC()
	for code, rate := range live {
		quotes[code] = model.RateQuote{Rate: rate, Source: model.RateSourceLive, UpdatedAt: now}
		if err := s.fxRepo.UpsertRate(ctx, model.FxRate{Currency: code, Rate: rate, UpdatedAt: now}); err != nil {
			log.Warn().Err(err).Str("currency", code).Msg("failed to persist live rate")
		}
	}

	if len(quotes) == len(codes) {
		return quotes, nil
	}

	stored, err := s.fxRepo.GetRates(ctx)
	if err != nil {
		return quotes, fmt.Errorf("failed to load stored rates: %w", err)
	}
	for _, code := range codes {
		if _, ok := quotes[code]; ok {
			continue
		}
		if r, ok := stored[code]; ok {
			quotes[code] = model.RateQuote{Rate: r.Rate, Source: model.RateSourceStored, UpdatedAt: r.UpdatedAt}
		}
	}
	return quotes, nil
}

// GetRates returns the stored rates ordered by currency.
func (s *FxService) GetRates(ctx context.Context) ([]model.FxRate, error) {
	stored, err := s.fxRepo.GetRates(ctx)
	if err != nil {
		return nil, err
	}
	rates := make([]model.FxRate, 0, len(stored))
	for _, r := range stored {
		rates = append(rates, r)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Currency < rates[j].Currency })
	return rates, nil
}

// foreignCurrencies normalises codes and drops the base currency and duplicates.
func foreignCurrencies(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = model.NormalizeCurrency(c)
		if c == model.BaseCurrency || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
