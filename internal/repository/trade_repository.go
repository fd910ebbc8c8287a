package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
)

const tradeColumns = `
	t.id, t.bond_id, t.buy_date, t.buy_qty, t.buy_price, t.buy_accrued, t.buy_commission,
	t.sell_date, t.sell_qty, t.sell_price, t.sell_accrued, t.sell_commission,
	t.currency, t.fx_rate, t.total_amount, t.amount_method, t.created_at`

// TradeRepository provides data access methods for the trade table.
type TradeRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithTx returns a new TradeRepository scoped to the provided transaction.
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TradeRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetTrades retrieves all trades, optionally restricted to one bond, ordered by buy date.
func (r *TradeRepository) GetTrades(ctx context.Context, bondID string) ([]model.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade t`
	var args []any
	if bondID != "" {
		query += ` WHERE t.bond_id = ?`
		args = append(args, bondID)
	}
	query += ` ORDER BY t.buy_date ASC, t.created_at ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade table: %w", err)
	}
	return trades, nil
}

// GetTrade retrieves a trade by ID.
// Returns apperrors.ErrTradeNotFound if no such trade exists.
func (r *TradeRepository) GetTrade(ctx context.Context, id string) (model.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade t WHERE t.id = ?`
	t, err := scanTrade(r.getQuerier().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trade{}, apperrors.ErrTradeNotFound
	}
	return t, err
}

// GetTradesWithBonds returns every trade joined with its bond's market fields.
// A trade whose bond row is missing keeps nil bond fields.
func (r *TradeRepository) GetTradesWithBonds(ctx context.Context) ([]model.TradeWithBond, error) {
	query := `
		SELECT ` + tradeColumns + `,
			COALESCE(b.secid, ''), b.name, b.currency, b.last_price, b.last_price_pct, b.face_value, b.accrued_interest
		FROM trade t
		LEFT JOIN bond b ON b.id = t.bond_id
		ORDER BY t.buy_date ASC, t.created_at ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades with bonds: %w", err)
	}
	defer rows.Close()

	result := []model.TradeWithBond{}
	for rows.Next() {
		var tb model.TradeWithBond
		var name, currency sql.NullString
		var last, lastPct, face, accrued sql.NullFloat64

		t, err := scanTrade(rows, &tb.SecID, &name, &currency, &last, &lastPct, &face, &accrued)
		if err != nil {
			return nil, err
		}
		tb.Trade = t
		tb.BondName = nullString(name)
		tb.BondCurrency = nullString(currency)
		tb.LastPrice = nullFloat(last)
		tb.LastPricePct = nullFloat(lastPct)
		tb.FaceValue = nullFloat(face)
		tb.AccruedInterest = nullFloat(accrued)
		result = append(result, tb)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades with bonds: %w", err)
	}
	return result, nil
}

// SumTotalAmount returns the sum of stored total_amount over all trades; null amounts count as zero.
func (r *TradeRepository) SumTotalAmount(ctx context.Context) (float64, error) {
	var sum float64
	err := r.getQuerier().QueryRowContext(ctx, `SELECT COALESCE(SUM(total_amount), 0.0) FROM trade`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum trade amounts: %w", err)
	}
	return sum, nil
}

// InsertTrade stores a new trade. An empty ID is replaced by a fresh UUID.
func (r *TradeRepository) InsertTrade(ctx context.Context, t *model.Trade) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trade (
			id, bond_id, buy_date, buy_qty, buy_price, buy_accrued, buy_commission,
			sell_date, sell_qty, sell_price, sell_accrued, sell_commission,
			currency, fx_rate, total_amount, amount_method, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query, r.args(t, true)...)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// UpdateTrade replaces all mutable fields of an existing trade.
func (r *TradeRepository) UpdateTrade(ctx context.Context, t *model.Trade) error {
	query := `
		UPDATE trade SET
			bond_id = ?, buy_date = ?, buy_qty = ?, buy_price = ?, buy_accrued = ?, buy_commission = ?,
			sell_date = ?, sell_qty = ?, sell_price = ?, sell_accrued = ?, sell_commission = ?,
			currency = ?, fx_rate = ?, total_amount = ?, amount_method = ?
		WHERE id = ?
	`

	args := append(r.args(t, false), t.ID)
	result, err := r.getQuerier().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// DeleteTrade removes a trade by ID.
func (r *TradeRepository) DeleteTrade(ctx context.Context, id string) error {
	result, err := r.getQuerier().ExecContext(ctx, `DELETE FROM trade WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

func (r *TradeRepository) args(t *model.Trade, insert bool) []any {
	args := []any{}
	if insert {
		args = append(args, t.ID)
	}
	args = append(args,
		t.BondID,
		t.BuyDate.UTC().Format("2006-01-02"),
		t.BuyQty,
		ptrArg(t.BuyPrice),
		ptrArg(t.BuyAccrued),
		ptrArg(t.BuyCommission),
		dateArg(t.SellDate),
		ptrArg(t.SellQty),
		ptrArg(t.SellPrice),
		ptrArg(t.SellAccrued),
		ptrArg(t.SellCommission),
		ptrArg(t.Currency),
		ptrArg(t.FxRate),
		ptrArg(t.TotalAmount),
		ptrArg(t.AmountMethod),
	)
	if insert {
		args = append(args, timestampArg(t.CreatedAt))
	}
	return args
}

// scanTrade scans the trade columns followed by any extra destinations.
func scanTrade(s scanner, extra ...any) (model.Trade, error) {
	var t model.Trade
	var buyDate, createdAt string
	var sellDate, currency, method sql.NullString
	var sellQty sql.NullInt64
	var buyPrice, buyAccrued, buyComm, sellPrice, sellAccrued, sellComm, fx, total sql.NullFloat64

	dest := []any{
		&t.ID, &t.BondID, &buyDate, &t.BuyQty, &buyPrice, &buyAccrued, &buyComm,
		&sellDate, &sellQty, &sellPrice, &sellAccrued, &sellComm,
		&currency, &fx, &total, &method, &createdAt,
	}
	dest = append(dest, extra...)

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Trade{}, err
		}
		return model.Trade{}, fmt.Errorf("failed to scan trade table results: %w", err)
	}

	var err error
	if t.BuyDate, err = ParseTime(buyDate); err != nil {
		return model.Trade{}, err
	}
	if t.SellDate, err = parseNullTime(sellDate); err != nil {
		return model.Trade{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.Trade{}, err
	}
	t.BuyPrice = nullFloat(buyPrice)
	t.BuyAccrued = nullFloat(buyAccrued)
	t.BuyCommission = nullFloat(buyComm)
	t.SellQty = nullInt(sellQty)
	t.SellPrice = nullFloat(sellPrice)
	t.SellAccrued = nullFloat(sellAccrued)
	t.SellCommission = nullFloat(sellComm)
	t.Currency = nullString(currency)
	t.FxRate = nullFloat(fx)
	t.TotalAmount = nullFloat(total)
	t.AmountMethod = nullString(method)

	return t, nil
}
