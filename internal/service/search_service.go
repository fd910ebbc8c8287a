package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/cache"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

// SearchService searches bonds across every exchange bond market.
type SearchService struct {
	iss      moex.Provider
	bondRepo *repository.BondRepository
	cache    *cache.Cache[[]model.BondSearchResult]
}

// NewSearchService creates a new SearchService. Results are memoised in c.
func NewSearchService(iss moex.Provider, bondRepo *repository.BondRepository, c *cache.Cache[[]model.BondSearchResult]) *SearchService {
	return &SearchService{
		iss:      iss,
		bondRepo: bondRepo,
		cache:    c,
	}
}

// Search returns the listed bonds whose issuer, names, ISIN or SECID contain
// the query, narrowed by the filter bounds. A market that cannot be listed is
// skipped; the search fails only when no market could be listed.
func (s *SearchService) Search(ctx context.Context, f model.BondSearchFilter) ([]model.BondSearchResult, error) {
	key := cache.Key(strings.ToLower(strings.TrimSpace(f.Query)), filterParams(f))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	ratings := s.trackedRatings(ctx)
	query := strings.ToLower(strings.TrimSpace(f.Query))
	seen := map[string]bool{}
	results := []model.BondSearchResult{}
	listed := 0

	for _, market := range moex.Markets {
		ok := true
		for start := 0; ; start += moex.ListingPageSize {
			rows, err := s.iss.ListMarket(ctx, market, start, moex.ListingPageSize)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.Warn().Err(err).Str("market", market).Msg("market listing failed")
				ok = start > 0
				break
			}
			for _, row := range rows {
				r, match := searchResult(row, market, query)
				if !match || seen[r.SecID] {
					continue
				}
				seen[r.SecID] = true
				if r.Rating == nil {
					if rating, ok := ratings[r.SecID]; ok {
						r.Rating = &rating
					}
				}
				if matchesFilter(r, f) {
					results = append(results, r)
				}
			}
			if len(rows) < moex.ListingPageSize {
				break
			}
		}
		if ok {
			listed++
		}
	}

	if listed == 0 {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToSearchBonds, apperrors.ErrProviderUnavailable)
	}

	// A partial listing is served but not cached.
	if listed == len(moex.Markets) {
		s.cache.Set(key, results)
	}
	return results, nil
}

// trackedRatings maps SECIDs of tracked bonds to their rating display, since
// market listings carry no ratings.
func (s *SearchService) trackedRatings(ctx context.Context) map[string]string {
	ratings := map[string]string{}
	bonds, err := s.bondRepo.GetBonds(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load tracked bonds for search ratings")
		return ratings
	}
	for _, b := range bonds {
		if b.AKRA.Rating != nil || b.RAExpert.Rating != nil || b.NKR.Rating != nil {
			ratings[b.SecID] = b.RatingDisplay()
		}
	}
	return ratings
}

func searchResult(row moex.Row, market, query string) (model.BondSearchResult, bool) {
	secid := row.String("SECID")
	if secid == "" {
		return model.BondSearchResult{}, false
	}
	isin := row.String("ISIN")
	shortName := row.String("SHORTNAME")
	secName := row.String("SECNAME")
	emitent := row.String("emitent_title")

	blob := strings.ToLower(strings.Join([]string{emitent, shortName, secName, isin, secid}, " "))
	if query != "" && !strings.Contains(blob, query) {
		return model.BondSearchResult{}, false
	}

	name := shortName
	if name == "" {
		name = secName
	}
	coupon, _ := row.Float("COUPONPERCENT")

	r := model.BondSearchResult{
		SecID:        secid,
		ISIN:         isin,
		Name:         name,
		Emitent:      emitent,
		Market:       market,
		Coupon:       coupon,
		MaturityDate: row.Date("MATDATE"),
		Rating:       strPtr(row.String("RATING")),
		Currency:     strPtr(normalizedOrEmpty(row.String("FACEUNIT"))),
		OfferDate:    row.Date("OFFERDATE"),
	}
	if r.MaturityDate == nil {
		r.MaturityDate = row.Date("MATURITYDATE")
	}
	if v, ok := row.Float("AMORTIZATION"); ok {
		r.Amortization = ptr(v != 0)
	}
	return r, true
}

// matchesFilter applies the filter bounds. A bond without a maturity date or
// rating fails any bound on that field.
func matchesFilter(r model.BondSearchResult, f model.BondSearchFilter) bool {
	if f.CouponFrom != nil && r.Coupon < *f.CouponFrom {
		return false
	}
	if f.CouponTo != nil && r.Coupon > *f.CouponTo {
		return false
	}
	if f.MaturityFrom != nil && (r.MaturityDate == nil || r.MaturityDate.Before(*f.MaturityFrom)) {
		return false
	}
	if f.MaturityTo != nil && (r.MaturityDate == nil || r.MaturityDate.After(*f.MaturityTo)) {
		return false
	}
	if f.Rating != "" {
		if r.Rating == nil || !strings.Contains(strings.ToLower(*r.Rating), strings.ToLower(f.Rating)) {
			return false
		}
	}
	return true
}

func filterParams(f model.BondSearchFilter) map[string]string {
	params := map[string]string{"rating": strings.ToLower(f.Rating)}
	if f.CouponFrom != nil {
		params["coupon_from"] = strconv.FormatFloat(*f.CouponFrom, 'f', -1, 64)
	}
	if f.CouponTo != nil {
		params["coupon_to"] = strconv.FormatFloat(*f.CouponTo, 'f', -1, 64)
	}
	if f.MaturityFrom != nil {
		params["maturity_from"] = f.MaturityFrom.Format("2006-01-02")
	}
	if f.MaturityTo != nil {
		params["maturity_to"] = f.MaturityTo.Format("2006-01-02")
	}
	return params
}
