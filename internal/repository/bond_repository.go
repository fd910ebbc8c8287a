package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
)

const bondColumns = `
	id, secid, isin, name, emitent, market, coupon, coupon_display, coupon_type,
	maturity_date, offer_date, amortization, currency, currency_symbol, face_value,
	last_price, last_price_pct, accrued_interest, ytm, ytm_date,
	akra_rating, akra_forecast, raexpert_rating, raexpert_forecast, nkr_rating, nkr_forecast,
	day_open, week_open, month_open, year_open, stale_reason, updated_at`

// BondRepository provides data access methods for the bond table.
type BondRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewBondRepository creates a new BondRepository with the provided database connection.
func NewBondRepository(db *sql.DB) *BondRepository {
	return &BondRepository{db: db}
}

// WithTx returns a new BondRepository scoped to the provided transaction.
func (r *BondRepository) WithTx(tx *sql.Tx) *BondRepository {
	return &BondRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *BondRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetBonds retrieves all tracked bonds ordered by name then SECID.
// Returns an empty slice if no bonds are tracked.
func (r *BondRepository) GetBonds(ctx context.Context) ([]model.Bond, error) {
	query := `SELECT ` + bondColumns + ` FROM bond ORDER BY COALESCE(name, secid), secid`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bond table: %w", err)
	}
	defer rows.Close()

	bonds := []model.Bond{}
	for rows.Next() {
		b, err := scanBond(rows)
		if err != nil {
			return nil, err
		}
		bonds = append(bonds, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bond table: %w", err)
	}

	return bonds, nil
}

// GetBond retrieves a bond by its ID.
// Returns apperrors.ErrBondNotFound if no such bond exists.
func (r *BondRepository) GetBond(ctx context.Context, id string) (model.Bond, error) {
	query := `SELECT ` + bondColumns + ` FROM bond WHERE id = ?`
	b, err := scanBond(r.getQuerier().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bond{}, apperrors.ErrBondNotFound
	}
	return b, err
}

// GetBondBySecID retrieves a bond by its exchange code (case-insensitive).
// Returns apperrors.ErrBondNotFound if no such bond exists.
func (r *BondRepository) GetBondBySecID(ctx context.Context, secid string) (model.Bond, error) {
	query := `SELECT ` + bondColumns + ` FROM bond WHERE secid = ?`
	b, err := scanBond(r.getQuerier().QueryRowContext(ctx, query, strings.ToUpper(secid)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bond{}, apperrors.ErrBondNotFound
	}
	return b, err
}

// UpsertBond inserts a bond or, when the SECID already exists, replaces every
// mutable column with the new values. The stored ID is kept on update and returned.
func (r *BondRepository) UpsertBond(ctx context.Context, b model.Bond) (string, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO bond (` + bondColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(secid) DO UPDATE SET
			isin = excluded.isin,
			name = excluded.name,
			emitent = excluded.emitent,
			market = excluded.market,
			coupon = excluded.coupon,
			coupon_display = excluded.coupon_display,
			coupon_type = excluded.coupon_type,
			maturity_date = excluded.maturity_date,
			offer_date = excluded.offer_date,
			amortization = excluded.amortization,
			currency = excluded.currency,
			currency_symbol = excluded.currency_symbol,
			face_value = excluded.face_value,
			last_price = excluded.last_price,
			last_price_pct = excluded.last_price_pct,
			accrued_interest = excluded.accrued_interest,
			ytm = excluded.ytm,
			ytm_date = excluded.ytm_date,
			akra_rating = excluded.akra_rating,
			akra_forecast = excluded.akra_forecast,
			raexpert_rating = excluded.raexpert_rating,
			raexpert_forecast = excluded.raexpert_forecast,
			nkr_rating = excluded.nkr_rating,
			nkr_forecast = excluded.nkr_forecast,
			day_open = excluded.day_open,
			week_open = excluded.week_open,
			month_open = excluded.month_open,
			year_open = excluded.year_open,
			stale_reason = excluded.stale_reason,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id string
	err := r.getQuerier().QueryRowContext(ctx, query,
		b.ID,
		strings.ToUpper(b.SecID),
		ptrArg(b.ISIN),
		ptrArg(b.Name),
		ptrArg(b.Emitent),
		ptrArg(b.Market),
		ptrArg(b.Coupon),
		ptrArg(b.CouponDisplay),
		ptrArg(b.CouponType),
		dateArg(b.MaturityDate),
		dateArg(b.OfferDate),
		ptrArg(b.Amortization),
		ptrArg(b.Currency),
		ptrArg(b.CurrencySymbol),
		ptrArg(b.FaceValue),
		ptrArg(b.LastPrice),
		ptrArg(b.LastPricePct),
		ptrArg(b.AccruedInterest),
		ptrArg(b.YTM),
		dateArg(b.YTMDate),
		ptrArg(b.AKRA.Rating),
		ptrArg(b.AKRA.Forecast),
		ptrArg(b.RAExpert.Rating),
		ptrArg(b.RAExpert.Forecast),
		ptrArg(b.NKR.Rating),
		ptrArg(b.NKR.Forecast),
		ptrArg(b.DayOpen),
		ptrArg(b.WeekOpen),
		ptrArg(b.MonthOpen),
		ptrArg(b.YearOpen),
		ptrArg(b.StaleReason),
		timestampArg(b.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert bond %s: %w", b.SecID, err)
	}

	return id, nil
}

// MarkStale records why a bond could not be refreshed without touching its market data.
func (r *BondRepository) MarkStale(ctx context.Context, secid, reason string, at time.Time) error {
	query := `UPDATE bond SET stale_reason = ?, updated_at = ? WHERE secid = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, reason, timestampArg(at), strings.ToUpper(secid))
	if err != nil {
		return fmt.Errorf("failed to mark bond stale: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrBondNotFound
	}
	return nil
}

// DeleteBond removes a bond; its trades and coupons are removed by cascade.
func (r *BondRepository) DeleteBond(ctx context.Context, id string) error {
	result, err := r.getQuerier().ExecContext(ctx, `DELETE FROM bond WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bond: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrBondNotFound
	}
	return nil
}

// GetCurrencies returns the distinct non-empty currency codes used by bonds and trades.
func (r *BondRepository) GetCurrencies(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT UPPER(currency) FROM bond WHERE currency IS NOT NULL AND currency <> ''
		UNION
		SELECT DISTINCT UPPER(currency) FROM trade WHERE currency IS NOT NULL AND currency <> ''
	`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	currencies := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currencies: %w", err)
	}
	return currencies, nil
}

func scanBond(s scanner) (model.Bond, error) {
	var b model.Bond
	var isin, name, emitent, market, couponDisplay, couponType, currency, currencySymbol sql.NullString
	var maturity, offer, ytmDate sql.NullString
	var akraR, akraF, raR, raF, nkrR, nkrF, stale sql.NullString
	var coupon, face, last, lastPct, accrued, ytm, dayOpen, weekOpen, monthOpen, yearOpen sql.NullFloat64
	var amortization sql.NullBool
	var updatedAt string

	err := s.Scan(
		&b.ID, &b.SecID, &isin, &name, &emitent, &market, &coupon, &couponDisplay, &couponType,
		&maturity, &offer, &amortization, &currency, &currencySymbol, &face,
		&last, &lastPct, &accrued, &ytm, &ytmDate,
		&akraR, &akraF, &raR, &raF, &nkrR, &nkrF,
		&dayOpen, &weekOpen, &monthOpen, &yearOpen, &stale, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bond{}, err
		}
		return model.Bond{}, fmt.Errorf("failed to scan bond table results: %w", err)
	}

	b.ISIN = nullString(isin)
	b.Name = nullString(name)
	b.Emitent = nullString(emitent)
	b.Market = nullString(market)
	b.Coupon = nullFloat(coupon)
	b.CouponDisplay = nullString(couponDisplay)
	b.CouponType = nullString(couponType)
	b.Amortization = nullBool(amortization)
	b.Currency = nullString(currency)
	b.CurrencySymbol = nullString(currencySymbol)
	b.FaceValue = nullFloat(face)
	b.LastPrice = nullFloat(last)
	b.LastPricePct = nullFloat(lastPct)
	b.AccruedInterest = nullFloat(accrued)
	b.YTM = nullFloat(ytm)
	b.AKRA = model.Rating{Rating: nullString(akraR), Forecast: nullString(akraF)}
	b.RAExpert = model.Rating{Rating: nullString(raR), Forecast: nullString(raF)}
	b.NKR = model.Rating{Rating: nullString(nkrR), Forecast: nullString(nkrF)}
	b.DayOpen = nullFloat(dayOpen)
	b.WeekOpen = nullFloat(weekOpen)
	b.MonthOpen = nullFloat(monthOpen)
	b.YearOpen = nullFloat(yearOpen)
	b.StaleReason = nullString(stale)

	if b.MaturityDate, err = parseNullTime(maturity); err != nil {
		return model.Bond{}, err
	}
	if b.OfferDate, err = parseNullTime(offer); err != nil {
		return model.Bond{}, err
	}
	if b.YTMDate, err = parseNullTime(ytmDate); err != nil {
		return model.Bond{}, err
	}
	if b.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return model.Bond{}, err
	}

	return b, nil
}
