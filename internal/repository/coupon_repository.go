package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calm3366/bond-portfolio/internal/model"
)

// CouponRepository provides data access methods for the coupon table.
type CouponRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewCouponRepository creates a new CouponRepository with the provided database connection.
func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// WithTx returns a new CouponRepository scoped to the provided transaction.
func (r *CouponRepository) WithTx(tx *sql.Tx) *CouponRepository {
	return &CouponRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *CouponRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetCoupons returns a bond's coupon schedule ordered by date. IsPast is set
// relative to today.
func (r *CouponRepository) GetCoupons(ctx context.Context, bondID string, today time.Time) ([]model.Coupon, error) {
	query := `
		SELECT id, bond_id, date, value, currency
		FROM coupon
		WHERE bond_id = ?
		ORDER BY date ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, bondID)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupon table: %w", err)
	}
	defer rows.Close()

	cutoff := today.UTC().Format("2006-01-02")
	coupons := []model.Coupon{}
	for rows.Next() {
		var c model.Coupon
		var date string
		var value sql.NullFloat64
		var currency sql.NullString

		if err := rows.Scan(&c.ID, &c.BondID, &date, &value, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan coupon table results: %w", err)
		}
		if c.Date, err = ParseTime(date); err != nil {
			return nil, err
		}
		c.Value = nullFloat(value)
		c.Currency = nullString(currency)
		c.IsPast = c.Date.Format("2006-01-02") <= cutoff
		coupons = append(coupons, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupon table: %w", err)
	}
	return coupons, nil
}

// ReplaceCoupons swaps a bond's whole coupon schedule. It must run inside a
// transaction (see WithTx) for the swap to be atomic.
func (r *CouponRepository) ReplaceCoupons(ctx context.Context, bondID string, coupons []model.Coupon) error {
	q := r.getQuerier()

	if _, err := q.ExecContext(ctx, `DELETE FROM coupon WHERE bond_id = ?`, bondID); err != nil {
		return fmt.Errorf("failed to clear coupons: %w", err)
	}

	query := `
		INSERT INTO coupon (bond_id, date, value, currency)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bond_id, date) DO UPDATE SET value = excluded.value, currency = excluded.currency
	`
	for _, c := range coupons {
		_, err := q.ExecContext(ctx, query,
			bondID,
			c.Date.UTC().Format("2006-01-02"),
			ptrArg(c.Value),
			ptrArg(c.Currency),
		)
		if err != nil {
			return fmt.Errorf("failed to insert coupon: %w", err)
		}
	}
	return nil
}

// CouponProfit sums coupon value times bought quantity over every trade and
// coupon of the same bond whose date falls between the buy date and today,
// inclusive. The result is keyed by coupon currency, falling back to the
// trade and then the bond currency.
func (r *CouponRepository) CouponProfit(ctx context.Context, today time.Time) (map[string]float64, error) {
	query := `
		SELECT COALESCE(c.currency, t.currency, b.currency, ''), c.value * t.buy_qty
		FROM coupon c
		JOIN trade t ON t.bond_id = c.bond_id
		JOIN bond b ON b.id = c.bond_id
		WHERE c.value IS NOT NULL AND c.date >= t.buy_date AND c.date <= ?
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, today.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query coupon profit: %w", err)
	}
	defer rows.Close()

	profit := map[string]float64{}
	for rows.Next() {
		var currency string
		var amount sql.NullFloat64
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan coupon profit: %w", err)
		}
		if amount.Valid && amount.Float64 != 0 {
			profit[model.NormalizeCurrency(currency)] += amount.Float64
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupon profit: %w", err)
	}
	return profit, nil
}
