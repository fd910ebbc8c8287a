package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
)

// FxRateRepository stores the last known exchange rate per currency.
type FxRateRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewFxRateRepository creates a new FxRateRepository with the provided database connection.
func NewFxRateRepository(db *sql.DB) *FxRateRepository {
	return &FxRateRepository{db: db}
}

// WithTx returns a new FxRateRepository scoped to the provided transaction.
func (r *FxRateRepository) WithTx(tx *sql.Tx) *FxRateRepository {
	return &FxRateRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *FxRateRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetRates returns all stored rates keyed by currency code.
func (r *FxRateRepository) GetRates(ctx context.Context) (map[string]model.FxRate, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT currency, rate, updated_at FROM fx_rate ORDER BY currency`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fx_rate table: %w", err)
	}
	defer rows.Close()

	rates := map[string]model.FxRate{}
	for rows.Next() {
		rate, err := scanFxRate(rows)
		if err != nil {
			return nil, err
		}
		rates[rate.Currency] = rate
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fx_rate table: %w", err)
	}
	return rates, nil
}

// GetRate returns the stored rate for one currency.
// Returns apperrors.ErrExchangeRateNotFound when none is stored.
func (r *FxRateRepository) GetRate(ctx context.Context, currency string) (model.FxRate, error) {
	row := r.getQuerier().QueryRowContext(ctx,
		`SELECT currency, rate, updated_at FROM fx_rate WHERE currency = ?`,
		model.NormalizeCurrency(currency),
	)
	rate, err := scanFxRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FxRate{}, apperrors.ErrExchangeRateNotFound
	}
	return rate, err
}

// UpsertRate stores or replaces the rate for a currency.
func (r *FxRateRepository) UpsertRate(ctx context.Context, rate model.FxRate) error {
	query := `
		INSERT INTO fx_rate (currency, rate, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at
	`
	_, err := r.getQuerier().ExecContext(ctx, query,
		model.NormalizeCurrency(rate.Currency),
		rate.Rate,
		timestampArg(rate.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate %s: %w", rate.Currency, err)
	}
	return nil
}

func scanFxRate(s scanner) (model.FxRate, error) {
	var rate model.FxRate
	var updatedAt string
	if err := s.Scan(&rate.Currency, &rate.Rate, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FxRate{}, err
		}
		return model.FxRate{}, fmt.Errorf("failed to scan fx_rate results: %w", err)
	}
	t, err := ParseTime(updatedAt)
	if err != nil {
		return model.FxRate{}, err
	}
	rate.UpdatedAt = t
	return rate, nil
}
