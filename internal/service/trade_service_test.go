package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

func i64(v int64) *int64 { return &v }

// TestTradeService_CreateTrade tests the CreateTrade method.
//
// WHY: A trade must reference a tracked bond, and the amount derivation method
// is recorded at entry so it can be shown later without recomputation.
func TestTradeService_CreateTrade(t *testing.T) {
	t.Run("creates trade with derivation method", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTradeService(t, db)
		bond := testutil.NewBond().Build(t, db)

		trade, err := svc.CreateTrade(context.Background(), request.CreateTradeRequest{
			BondID:   bond.ID,
			BuyDate:  "2024-03-01",
			BuyQty:   10,
			BuyPrice: f64(985.5),
			Currency: strp("sur"),
		})
		if err != nil {
			t.Fatalf("CreateTrade() returned unexpected error: %v", err)
		}

		if trade.ID == "" {
			t.Error("Expected generated ID")
		}
		if trade.AmountMethod == nil || *trade.AmountMethod != model.AmountMethodBuyPrice {
			t.Errorf("Expected method %q, got %v", model.AmountMethodBuyPrice, trade.AmountMethod)
		}
		if trade.Currency == nil || *trade.Currency != model.BaseCurrency {
			t.Errorf("Expected currency normalised to RUB, got %v", trade.Currency)
		}

		stored, err := svc.GetTrade(context.Background(), trade.ID)
		if err != nil {
			t.Fatalf("GetTrade() returned unexpected error: %v", err)
		}
		if stored.BuyDate.Format("2006-01-02") != "2024-03-01" || stored.BuyQty != 10 {
			t.Errorf("Stored trade mismatch: %+v", stored)
		}
	})

	t.Run("falls back to bond price for method", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTradeService(t, db)
		bond := testutil.NewBond().WithLastPricePct(99).Build(t, db)

		trade, err := svc.CreateTrade(context.Background(), request.CreateTradeRequest{
			BondID:  bond.ID,
			BuyDate: "2024-03-01",
			BuyQty:  1,
		})
		if err != nil {
			t.Fatalf("CreateTrade() returned unexpected error: %v", err)
		}
		if *trade.AmountMethod != model.AmountMethodLastPricePct {
			t.Errorf("Expected method %q, got %q", model.AmountMethodLastPricePct, *trade.AmountMethod)
		}
	})

	t.Run("returns not found for unknown bond", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTradeService(t, db)

		_, err := svc.CreateTrade(context.Background(), request.CreateTradeRequest{
			BondID:  testutil.MakeID(),
			BuyDate: "2024-03-01",
			BuyQty:  1,
		})
		if !errors.Is(err, apperrors.ErrBondNotFound) {
			t.Errorf("Expected ErrBondNotFound, got %v", err)
		}
	})
}

// TestTradeService_UpdateTrade tests the UpdateTrade method.
//
// WHY: Partial updates must leave absent fields untouched and re-derive the
// method from the resulting trade.
func TestTradeService_UpdateTrade(t *testing.T) {
	t.Run("updates only given fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTradeService(t, db)
		bond := testutil.NewBond().Build(t, db)
		existing := testutil.NewTrade(bond.ID).WithQty(5).WithBuyPrice(990).Build(t, db)

		updated, err := svc.UpdateTrade(context.Background(), existing.ID, request.UpdateTradeRequest{
			TotalAmount: f64(4900),
			SellDate:    strp("2024-09-01"),
			SellQty:     i64(5),
		})
		if err != nil {
			t.Fatalf("UpdateTrade() returned unexpected error: %v", err)
		}

		if updated.BuyQty != 5 || updated.BuyPrice == nil || *updated.BuyPrice != 990 {
			t.Errorf("Expected buy leg unchanged, got %+v", updated)
		}
		if updated.SellDate == nil || updated.SellDate.Format("2006-01-02") != "2024-09-01" {
			t.Errorf("Expected sell date set, got %v", updated.SellDate)
		}
		if *updated.AmountMethod != model.AmountMethodTotal {
			t.Errorf("Expected method %q, got %q", model.AmountMethodTotal, *updated.AmountMethod)
		}

		stored, _ := svc.GetTrade(context.Background(), existing.ID)
		if stored.TotalAmount == nil || *stored.TotalAmount != 4900 {
			t.Errorf("Expected stored total 4900, got %v", stored.TotalAmount)
		}
	})

	t.Run("returns not found for unknown trade", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTradeService(t, db)

		_, err := svc.UpdateTrade(context.Background(), testutil.MakeID(), request.UpdateTradeRequest{BuyQty: i64(1)})
		if !errors.Is(err, apperrors.ErrTradeNotFound) {
			t.Errorf("Expected ErrTradeNotFound, got %v", err)
		}
	})
}

func TestTradeService_DeleteTrade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTradeService(t, db)
	bond := testutil.NewBond().Build(t, db)
	trade := testutil.NewTrade(bond.ID).Build(t, db)

	if err := svc.DeleteTrade(context.Background(), trade.ID); err != nil {
		t.Fatalf("DeleteTrade() returned unexpected error: %v", err)
	}
	if err := svc.DeleteTrade(context.Background(), trade.ID); !errors.Is(err, apperrors.ErrTradeNotFound) {
		t.Errorf("Expected ErrTradeNotFound on second delete, got %v", err)
	}
}
