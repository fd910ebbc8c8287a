package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
)

// SummaryRepository persists the single portfolio summary row.
type SummaryRepository struct {
	db *sql.DB
}

// NewSummaryRepository creates a new SummaryRepository with the provided database connection.
func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Save replaces the stored summary.
func (r *SummaryRepository) Save(ctx context.Context, s model.PortfolioSummary) error {
	excluded, err := json.Marshal(s.ExcludedCurrencies)
	if err != nil {
		return fmt.Errorf("failed to encode excluded currencies: %w", err)
	}

	query := `
		INSERT INTO portfolio_summary (
			id, invested, trades_sum, coupon_profit, current_value, total_value,
			profit_percent, excluded_currencies, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			invested = excluded.invested,
			trades_sum = excluded.trades_sum,
			coupon_profit = excluded.coupon_profit,
			current_value = excluded.current_value,
			total_value = excluded.total_value,
			profit_percent = excluded.profit_percent,
			excluded_currencies = excluded.excluded_currencies,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		s.Invested, s.TradesSum, s.CouponProfit, s.CurrentValue, s.TotalValue,
		s.ProfitPercent, string(excluded), timestampArg(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio summary: %w", err)
	}
	return nil
}

// Get returns the stored summary.
// Returns apperrors.ErrSummaryNotFound if it has never been computed.
func (r *SummaryRepository) Get(ctx context.Context) (model.PortfolioSummary, error) {
	query := `
		SELECT invested, trades_sum, coupon_profit, current_value, total_value,
			profit_percent, excluded_currencies, updated_at
		FROM portfolio_summary WHERE id = 1
	`

	var s model.PortfolioSummary
	var excluded sql.NullString
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.Invested, &s.TradesSum, &s.CouponProfit, &s.CurrentValue, &s.TotalValue,
		&s.ProfitPercent, &excluded, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PortfolioSummary{}, apperrors.ErrSummaryNotFound
	}
	if err != nil {
		return model.PortfolioSummary{}, fmt.Errorf("failed to query portfolio summary: %w", err)
	}

	s.ExcludedCurrencies = []model.ExcludedCurrency{}
	if excluded.Valid && excluded.String != "" && excluded.String != "null" {
		if err := json.Unmarshal([]byte(excluded.String), &s.ExcludedCurrencies); err != nil {
			return model.PortfolioSummary{}, fmt.Errorf("failed to decode excluded currencies: %w", err)
		}
	}
	if s.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return model.PortfolioSummary{}, err
	}
	return s, nil
}
