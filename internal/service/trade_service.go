package service

import (
	"context"
	"fmt"
	"time"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/repository"
)

// TradeService handles trade-related business logic operations.
type TradeService struct {
	tradeRepo *repository.TradeRepository
	bondRepo  *repository.BondRepository
}

// NewTradeService creates a new TradeService with the provided repository dependencies.
func NewTradeService(
	tradeRepo *repository.TradeRepository,
	bondRepo *repository.BondRepository,
) *TradeService {
	return &TradeService{
		tradeRepo: tradeRepo,
		bondRepo:  bondRepo,
	}
}

// GetTrades returns all trades, or those of one bond when bondID is set.
func (s *TradeService) GetTrades(ctx context.Context, bondID string) ([]model.Trade, error) {
	return s.tradeRepo.GetTrades(ctx, bondID)
}

// GetTrade retrieves a single trade by its ID.
func (s *TradeService) GetTrade(ctx context.Context, id string) (model.Trade, error) {
	return s.tradeRepo.GetTrade(ctx, id)
}

// CreateTrade records a trade against a tracked bond. The request must
// already be validated.
func (s *TradeService) CreateTrade(ctx context.Context, req request.CreateTradeRequest) (*model.Trade, error) {
	bond, err := s.bondRepo.GetBond(ctx, req.BondID)
	if err != nil {
		return nil, err
	}

	buyDate, err := time.Parse("2006-01-02", req.BuyDate)
	if err != nil {
		return nil, err
	}
	sellDate, err := parseOptionalDate(req.SellDate)
	if err != nil {
		return nil, err
	}

	trade := &model.Trade{
		BondID:         req.BondID,
		BuyDate:        buyDate,
		BuyQty:         req.BuyQty,
		BuyPrice:       req.BuyPrice,
		BuyAccrued:     req.BuyAccrued,
		BuyCommission:  req.BuyCommission,
		SellDate:       sellDate,
		SellQty:        req.SellQty,
		SellPrice:      req.SellPrice,
		SellAccrued:    req.SellAccrued,
		SellCommission: req.SellCommission,
		Currency:       normalizeCurrencyPtr(req.Currency),
		FxRate:         req.FxRate,
		TotalAmount:    req.TotalAmount,
	}
	setAmountMethod(trade, bond)

	if err := s.tradeRepo.InsertTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	return trade, nil
}

// UpdateTrade applies the fields present in req to an existing trade.
func (s *TradeService) UpdateTrade(ctx context.Context, id string, req request.UpdateTradeRequest) (*model.Trade, error) {
	trade, err := s.tradeRepo.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BuyDate != nil {
		d, err := time.Parse("2006-01-02", *req.BuyDate)
		if err != nil {
			return nil, err
		}
		trade.BuyDate = d
	}
	if req.SellDate != nil {
		d, err := parseOptionalDate(req.SellDate)
		if err != nil {
			return nil, err
		}
		trade.SellDate = d
	}
	if req.BuyQty != nil {
		trade.BuyQty = *req.BuyQty
	}
	if req.BuyPrice != nil {
		trade.BuyPrice = req.BuyPrice
	}
	if req.BuyAccrued != nil {
		trade.BuyAccrued = req.BuyAccrued
	}
	if req.BuyCommission != nil {
		trade.BuyCommission = req.BuyCommission
	}
	if req.SellQty != nil {
		trade.SellQty = req.SellQty
	}
	if req.SellPrice != nil {
		trade.SellPrice = req.SellPrice
	}
	if req.SellAccrued != nil {
		trade.SellAccrued = req.SellAccrued
	}
	if req.SellCommission != nil {
		trade.SellCommission = req.SellCommission
	}
	if req.Currency != nil {
		trade.Currency = normalizeCurrencyPtr(req.Currency)
	}
	if req.FxRate != nil {
		trade.FxRate = req.FxRate
	}
	if req.TotalAmount != nil {
		trade.TotalAmount = req.TotalAmount
	}

	bond, err := s.bondRepo.GetBond(ctx, trade.BondID)
	if err != nil {
		return nil, err
	}
	setAmountMethod(&trade, bond)

	if err := s.tradeRepo.UpdateTrade(ctx, &trade); err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}
	return &trade, nil
}

// DeleteTrade removes a trade.
func (s *TradeService) DeleteTrade(ctx context.Context, id string) error {
	return s.tradeRepo.DeleteTrade(ctx, id)
}

// setAmountMethod records which derivation applies to the trade with the
// bond's current market data.
func setAmountMethod(t *model.Trade, b model.Bond) {
	_, method := DeriveAmount(model.TradeWithBond{
		Trade:        *t,
		SecID:        b.SecID,
		BondCurrency: b.Currency,
		LastPrice:    b.LastPrice,
		LastPricePct: b.LastPricePct,
		FaceValue:    b.FaceValue,
	})
	t.AmountMethod = &method
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func normalizeCurrencyPtr(code *string) *string {
	if code == nil || *code == "" {
		return nil
	}
	c := model.NormalizeCurrency(*code)
	return &c
}
