package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	money "github.com/Rhymond/go-money"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/corpbonds"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

// Source labels recorded in a bond's stale reason.
const (
	sourceISS         = "moex"
	sourceBondization = "moex bondization"
	sourceCorpbonds   = "corpbonds"
)

// BondService handles bond tracking: adding, refreshing from the data
// providers, and reading bonds with their coupon schedules.
type BondService struct {
	db          *sql.DB
	bondRepo    *repository.BondRepository
	couponRepo  *repository.CouponRepository
	eventRepo   *repository.EventLogRepository
	iss         moex.Provider
	pages       corpbonds.Fetcher
	openValues  *OpenValueService
	concurrency int
	now         func() time.Time
}

// NewBondService creates a new BondService. concurrency bounds parallel
// refreshes in RefreshAll; values below 1 mean one at a time.
func NewBondService(
	db *sql.DB,
	bondRepo *repository.BondRepository,
	couponRepo *repository.CouponRepository,
	eventRepo *repository.EventLogRepository,
	iss moex.Provider,
	pages corpbonds.Fetcher,
	openValues *OpenValueService,
	concurrency int,
	now func() time.Time,
) *BondService {
	if concurrency < 1 {
		concurrency = 1
	}
	if now == nil {
		now = time.Now
	}
	return &BondService{
		db:          db,
		bondRepo:    bondRepo,
		couponRepo:  couponRepo,
		eventRepo:   eventRepo,
		iss:         iss,
		pages:       pages,
		openValues:  openValues,
		concurrency: concurrency,
		now:         now,
	}
}

// GetBonds returns every tracked bond.
func (s *BondService) GetBonds(ctx context.Context) ([]model.Bond, error) {
	return s.bondRepo.GetBonds(ctx)
}

// GetBond returns a tracked bond by ID.
func (s *BondService) GetBond(ctx context.Context, id string) (model.Bond, error) {
	return s.bondRepo.GetBond(ctx, id)
}

// GetCoupons returns the coupon schedule of a tracked bond.
func (s *BondService) GetCoupons(ctx context.Context, id string) ([]model.Coupon, error) {
	if _, err := s.bondRepo.GetBond(ctx, id); err != nil {
		return nil, err
	}
	return s.couponRepo.GetCoupons(ctx, id, today(s.now()))
}

// GetOpenValues resolves the current opening prices of a tracked bond without storing them.
func (s *BondService) GetOpenValues(ctx context.Context, id string) (model.OpenValues, error) {
	b, err := s.bondRepo.GetBond(ctx, id)
	if err != nil {
		return model.OpenValues{}, err
	}
	return s.openValues.Resolve(ctx, b.SecID, nil), nil
}

// AddBond starts tracking a bond given its SECID or ISIN and loads its data.
// Adding a bond that is already tracked refreshes it.
func (s *BondService) AddBond(ctx context.Context, identifier string) (model.Bond, error) {
	ident := strings.ToUpper(strings.TrimSpace(identifier))
	if ident == "" {
		return model.Bond{}, fmt.Errorf("%w: empty identifier", apperrors.ErrInvalidIdentifier)
	}

	// OFZ SECIDs are ISIN-shaped, so the SECID lookup always goes first.
	secid := ident
	sec, err := s.iss.FindSecurity(ctx, ident)
	if err != nil && moex.IsISIN(ident) {
		resolved, rerr := s.iss.ResolveISIN(ctx, ident)
		if rerr == nil {
			secid = resolved
			sec, err = s.iss.FindSecurity(ctx, secid)
		} else {
			log.Debug().Err(rerr).Str("isin", ident).Msg("ISIN not resolved on exchange")
		}
	}

	var secPtr *moex.Security
	if err == nil {
		secPtr = &sec
	}
	b, err := s.refresh(ctx, secid, secPtr, err)
	if err != nil {
		return model.Bond{}, err
	}

	s.logEvent(ctx, model.EventLevelInfo, fmt.Sprintf("bond %s added", b.SecID))
	return b, nil
}

// RefreshBond reloads a bond from every provider and stores the result.
func (s *BondService) RefreshBond(ctx context.Context, secid string) (model.Bond, error) {
	return s.refresh(ctx, strings.ToUpper(strings.TrimSpace(secid)), nil, nil)
}

// RefreshByID refreshes a tracked bond by ID.
func (s *BondService) RefreshByID(ctx context.Context, id string) (model.Bond, error) {
	b, err := s.bondRepo.GetBond(ctx, id)
	if err != nil {
		return model.Bond{}, err
	}
	return s.RefreshBond(ctx, b.SecID)
}

// RefreshAll refreshes every tracked bond, a bounded number at a time. One
// bond failing never stops the others; the report says what happened to each.
func (s *BondService) RefreshAll(ctx context.Context) (model.RefreshReport, error) {
	report := model.RefreshReport{
		Refreshed: []string{},
		Stale:     map[string]string{},
		Failed:    map[string]string{},
	}

	bonds, err := s.bondRepo.GetBonds(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", apperrors.ErrFailedToRefreshBonds, err)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, bond := range bonds {
		secid := bond.SecID
		g.Go(func() error {
			b, err := s.RefreshBond(ctx, secid)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed[secid] = err.Error()
			case b.StaleReason != nil:
				report.Stale[secid] = *b.StaleReason
			default:
				report.Refreshed = append(report.Refreshed, secid)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("refreshed", len(report.Refreshed)).
		Int("stale", len(report.Stale)).
		Int("failed", len(report.Failed)).
		Msg("bond refresh finished")
	s.logEvent(ctx, model.EventLevelInfo, fmt.Sprintf("refresh: %d refreshed, %d stale, %d failed",
		len(report.Refreshed), len(report.Stale), len(report.Failed)))

	return report, nil
}

// DeleteBond stops tracking a bond. Its trades and coupons go with it.
func (s *BondService) DeleteBond(ctx context.Context, id string) error {
	b, err := s.bondRepo.GetBond(ctx, id)
	if err != nil {
		return err
	}
	if err := s.bondRepo.DeleteBond(ctx, id); err != nil {
		return err
	}
	s.logEvent(ctx, model.EventLevelInfo, fmt.Sprintf("bond %s deleted", b.SecID))
	return nil
}

// refresh loads a bond from the exchange and the bond page, merges the result
// into the stored row and saves it with its coupon schedule. sec and secErr
// carry an exchange lookup the caller already made.
//
// Fields owned by a source that failed keep their stored values. Fields owned
// by a source that answered are replaced, with nil where it had no value.
func (s *BondService) refresh(ctx context.Context, secid string, sec *moex.Security, secErr error) (model.Bond, error) {
	if secid == "" {
		return model.Bond{}, fmt.Errorf("%w: empty SECID", apperrors.ErrInvalidIdentifier)
	}

	existing, err := s.bondRepo.GetBondBySecID(ctx, secid)
	exists := err == nil
	if err != nil && !errors.Is(err, apperrors.ErrBondNotFound) {
		return model.Bond{}, err
	}

	var failed []string
	fail := func(source string, err error) {
		log.Warn().Err(err).Str("secid", secid).Str("source", source).Msg("bond source failed")
		failed = append(failed, fmt.Sprintf("%s: %v", source, err))
	}

	if sec == nil && secErr == nil {
		found, err := s.iss.FindSecurity(ctx, secid)
		if err != nil {
			secErr = err
		} else {
			sec = &found
		}
	}
	if sec == nil {
		fail(sourceISS, secErr)
	}

	var bz *moex.Bondization
	if sec != nil {
		got, err := s.iss.Bondization(ctx, secid)
		if err != nil {
			fail(sourceBondization, err)
		} else {
			bz = &got
		}
	}

	isOFZ := strings.HasPrefix(secid, "SU") || (sec != nil && sec.Market == "ofz")
	code := secid
	if !isOFZ {
		if sec != nil && sec.Field("ISIN") != "" {
			code = strings.ToUpper(sec.Field("ISIN"))
		} else if exists && existing.ISIN != nil {
			code = *existing.ISIN
		}
	}

	var page *corpbonds.Record
	rec, err := s.pages.Fetch(ctx, code, isOFZ)
	switch {
	case err != nil:
		fail(sourceCorpbonds, err)
	case rec.Empty():
		fail(sourceCorpbonds, errors.New("page has no bond data"))
	default:
		page = &rec
	}

	now := s.now().UTC()
	reason := strings.Join(failed, "; ")

	if sec == nil && page == nil {
		if !exists {
			return model.Bond{}, fmt.Errorf("%w: %s", apperrors.ErrBondNotFoundAtSource, secid)
		}
		if err := s.bondRepo.MarkStale(ctx, secid, reason, now); err != nil {
			return model.Bond{}, err
		}
		existing.StaleReason = &reason
		existing.UpdatedAt = now
		s.logEvent(ctx, model.EventLevelWarning, fmt.Sprintf("bond %s is stale: %s", secid, reason))
		return existing, nil
	}

	b := existing
	if !exists {
		b = model.Bond{SecID: secid}
	}
	var ov *model.OpenValues
	if sec != nil {
		v := s.openValues.Resolve(ctx, secid, sec)
		ov = &v
	}
	mergeBond(&b, sec, bz, page, ov, today(now))

	b.StaleReason = nil
	if reason != "" {
		b.StaleReason = &reason
	}
	b.UpdatedAt = now

	id, err := s.save(ctx, b, bz)
	if err != nil {
		return model.Bond{}, err
	}
	b.ID = id

	if reason != "" {
		s.logEvent(ctx, model.EventLevelWarning, fmt.Sprintf("bond %s refreshed with missing sources: %s", secid, reason))
	}
	return b, nil
}

// save upserts the bond and, when a schedule was loaded, replaces its coupons
// in the same transaction.
func (s *BondService) save(ctx context.Context, b model.Bond, bz *moex.Bondization) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.bondRepo.WithTx(tx).UpsertBond(ctx, b)
	if err != nil {
		return "", err
	}

	if bz != nil {
		coupons := make([]model.Coupon, 0, len(bz.Coupons))
		for _, c := range bz.Coupons {
			coupons = append(coupons, model.Coupon{
				BondID:   id,
				Date:     c.Date,
				Value:    c.Value,
				Currency: strPtr(normalizedOrEmpty(c.Currency)),
			})
		}
		if err := s.couponRepo.WithTx(tx).ReplaceCoupons(ctx, id, coupons); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// mergeBond writes freshly fetched values into b. A nil source is one that
// failed; the fields only it provides are left alone.
func mergeBond(b *model.Bond, sec *moex.Security, bz *moex.Bondization, page *corpbonds.Record, ov *model.OpenValues, day time.Time) {
	var issYTM, couponPct *float64
	var issCurrencyCode *string
	if sec != nil {
		b.ISIN = strPtr(strings.ToUpper(sec.Field("ISIN")))
		b.Name = strPtr(sec.Field("SHORTNAME"))
		b.Emitent = strPtr(sec.Field("SECNAME"))
		b.Market = strPtr(sec.Market)
		b.Coupon = sec.FloatField("COUPONPERCENT")
		b.MaturityDate = sec.DateField("MATDATE")
		b.OfferDate = sec.DateField("OFFERDATE")
		face := sec.FaceValue()
		b.FaceValue = &face
		b.LastPricePct = sec.LastPricePct()
		b.AccruedInterest = sec.FloatField("ACCRUEDINT")
		issYTM = sec.FloatField("YIELD")
		couponPct = b.Coupon
		issCurrencyCode = strPtr(normalizedOrEmpty(sec.Field("FACEUNIT")))
	}

	var pageYTM, pagePrice *float64
	var pageCurrency, pageCouponRate *string
	var pageAmort *bool
	if page != nil {
		b.AKRA = page.AKRA
		b.RAExpert = page.RAExpert
		b.NKR = page.NKR
		b.CouponType = page.CouponType
		pageYTM = page.YTM
		pagePrice = page.LastPrice
		pageCurrency = page.Currency
		pageCouponRate = page.CouponRate
		pageAmort = page.Amortization
	}

	var bzAmort *bool
	if bz != nil {
		bzAmort = ptr(bz.HasAmortization())
	}

	bothOK := sec != nil && page != nil

	if b.LastPricePct == nil && pagePrice != nil {
		b.LastPricePct = pagePrice
	}
	b.LastPrice = AbsolutePrice(b.LastPricePct, deref(b.FaceValue))

	if ytm := pick(nil, true, issYTM, pageYTM); ytm != nil {
		b.YTM = ytm
		b.YTMDate = &day
	} else if bothOK {
		b.YTM = nil
		b.YTMDate = nil
	}

	var couponText *string
	if couponPct != nil {
		couponText = ptr(decimal.NewFromFloat(*couponPct).String() + "%")
	}
	b.CouponDisplay = pick(b.CouponDisplay, bothOK, pageCouponRate, couponText)

	b.Currency = pick(b.Currency, bothOK, issCurrencyCode, pageCurrency)
	b.CurrencySymbol = currencySymbol(b.Currency)

	b.Amortization = pick(b.Amortization, page != nil && bz != nil, pageAmort, bzAmort)

	if ov != nil {
		b.DayOpen = ov.Day
		b.WeekOpen = ov.Week
		b.MonthOpen = ov.Month
		b.YearOpen = ov.Year
	}
}

// pick returns the first non-nil fresh value. When none is set, the result is
// nil if every contributing source answered and prev otherwise.
func pick[T any](prev *T, allAnswered bool, fresh ...*T) *T {
	for _, v := range fresh {
		if v != nil {
			return v
		}
	}
	if allAnswered {
		return nil
	}
	return prev
}

// currencySymbol returns the display symbol for a currency code, or the code
// itself for currencies without a symbol.
func currencySymbol(code *string) *string {
	if code == nil {
		return nil
	}
	c := money.GetCurrency(*code)
	if c == nil || c.Grapheme == "" {
		return code
	}
	return &c.Grapheme
}

// normalizedOrEmpty normalises a non-empty currency code and keeps "" as "".
func normalizedOrEmpty(code string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}
	return model.NormalizeCurrency(code)
}

func (s *BondService) logEvent(ctx context.Context, level, message string) {
	if err := s.eventRepo.Insert(ctx, &model.EventLog{Level: level, Message: message, Timestamp: s.now().UTC()}); err != nil {
		log.Warn().Err(err).Msg("failed to write event log")
	}
}
