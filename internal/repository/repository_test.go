package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/repository"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

// TestBondRepository_UpsertBond tests insert-or-replace keyed by SECID.
//
// WHY: Refreshes upsert fresh market data for a bond that trades already
// reference. The stored ID must survive so those references stay valid.
func TestBondRepository_UpsertBond(t *testing.T) {
	t.Run("keeps stored id on conflict", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewBondRepository(db)
		ctx := context.Background()

		first := testutil.NewBond().WithSecID("RU000A105TX2").Build(t, db)

		again := testutil.NewBond().WithSecID("ru000a105tx2").WithName("Renamed").WithLastPrice(987.5).Bond()
		id, err := repo.UpsertBond(ctx, again)
		if err != nil {
			t.Fatalf("UpsertBond() returned unexpected error: %v", err)
		}
		if id != first.ID {
			t.Errorf("Expected id %s to be kept, got %s", first.ID, id)
		}

		got, err := repo.GetBondBySecID(ctx, "RU000A105TX2")
		if err != nil {
			t.Fatalf("GetBondBySecID() returned unexpected error: %v", err)
		}
		if got.Name == nil || *got.Name != "Renamed" {
			t.Errorf("Expected name replaced, got %v", got.Name)
		}
		if got.LastPrice == nil || *got.LastPrice != 987.5 {
			t.Errorf("Expected last price 987.5, got %v", got.LastPrice)
		}
		if got.LastPricePct != nil {
			t.Errorf("Expected cleared pct price, got %v", *got.LastPricePct)
		}
	})

	t.Run("round trips dates and ratings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewBondRepository(db)
		maturity := time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)

		b := testutil.NewBond().WithMaturity(maturity).WithAKRA("AA(RU)").Build(t, db)

		got, err := repo.GetBond(context.Background(), b.ID)
		if err != nil {
			t.Fatalf("GetBond() returned unexpected error: %v", err)
		}
		if got.MaturityDate == nil || !got.MaturityDate.Equal(maturity) {
			t.Errorf("Expected maturity %v, got %v", maturity, got.MaturityDate)
		}
		if got.AKRA.Rating == nil || *got.AKRA.Rating != "AA(RU)" {
			t.Errorf("Expected AKRA rating, got %v", got.AKRA.Rating)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)

		_, err := repository.NewBondRepository(db).GetBond(context.Background(), testutil.MakeID())
		if !errors.Is(err, apperrors.ErrBondNotFound) {
			t.Errorf("Expected ErrBondNotFound, got %v", err)
		}
	})
}

func TestBondRepository_MarkStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewBondRepository(db)
	ctx := context.Background()
	b := testutil.NewBond().WithLastPrice(1010).Build(t, db)

	if err := repo.MarkStale(ctx, b.SecID, "moex: timeout", time.Now()); err != nil {
		t.Fatalf("MarkStale() returned unexpected error: %v", err)
	}
	got, _ := repo.GetBond(ctx, b.ID)
	if got.StaleReason == nil || *got.StaleReason != "moex: timeout" {
		t.Errorf("Expected stale reason, got %v", got.StaleReason)
	}
	if got.LastPrice == nil || *got.LastPrice != 1010 {
		t.Errorf("Expected market data untouched, got %v", got.LastPrice)
	}

	if err := repo.MarkStale(ctx, "RU000A0ZZZZ1", "x", time.Now()); !errors.Is(err, apperrors.ErrBondNotFound) {
		t.Errorf("Expected ErrBondNotFound for unknown secid, got %v", err)
	}
}

func TestBondRepository_GetCurrencies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	b := testutil.NewBond().WithCurrency("usd").Build(t, db)
	testutil.NewBond().Build(t, db)
	testutil.NewTrade(b.ID).WithCurrency("CNY").Build(t, db)

	got, err := repository.NewBondRepository(db).GetCurrencies(context.Background())
	if err != nil {
		t.Fatalf("GetCurrencies() returned unexpected error: %v", err)
	}
	want := map[string]bool{"USD": true, "RUB": true, "CNY": true}
	if len(got) != len(want) {
		t.Fatalf("Expected %d currencies, got %v", len(want), got)
	}
	for _, c := range got {
		if !want[c] {
			t.Errorf("Unexpected currency %s", c)
		}
	}
}

// TestCouponRepository_CouponProfit tests received coupon income.
//
// WHY: Only coupons paid while the position was held count as income.
// Coupons before the buy date or still in the future must be ignored.
func TestCouponRepository_CouponProfit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	today := testutil.Today()
	b := testutil.NewBond().Build(t, db)
	testutil.NewTrade(b.ID).WithBuyDate(today.AddDate(0, 0, -100)).WithQty(3).Build(t, db)
	testutil.CreateCoupons(t, db, b.ID,
		testutil.NewCoupon(today.AddDate(0, 0, -200), 40),
		testutil.NewCoupon(today.AddDate(0, 0, -50), 40),
		testutil.NewCoupon(today, 40),
		testutil.NewCoupon(today.AddDate(0, 0, 30), 40),
	)

	profit, err := repository.NewCouponRepository(db).CouponProfit(context.Background(), today)
	if err != nil {
		t.Fatalf("CouponProfit() returned unexpected error: %v", err)
	}
	if profit["RUB"] != 240 {
		t.Errorf("Expected 2 coupons x 3 units x 40 = 240, got %v", profit)
	}
}

func TestCouponRepository_GetCoupons(t *testing.T) {
	db := testutil.SetupTestDB(t)
	today := testutil.Today()
	b := testutil.NewBond().Build(t, db)
	testutil.CreateCoupons(t, db, b.ID,
		testutil.NewCoupon(today.AddDate(0, 0, 10), 25),
		testutil.NewCoupon(today.AddDate(0, 0, -10), 25),
	)

	coupons, err := repository.NewCouponRepository(db).GetCoupons(context.Background(), b.ID, today)
	if err != nil {
		t.Fatalf("GetCoupons() returned unexpected error: %v", err)
	}
	if len(coupons) != 2 {
		t.Fatalf("Expected 2 coupons, got %d", len(coupons))
	}
	if !coupons[0].IsPast || coupons[1].IsPast {
		t.Errorf("Expected past then upcoming, got %+v", coupons)
	}

	testutil.CreateCoupons(t, db, b.ID)
	coupons, _ = repository.NewCouponRepository(db).GetCoupons(context.Background(), b.ID, today)
	if len(coupons) != 0 {
		t.Errorf("Expected schedule replaced with nothing, got %d", len(coupons))
	}
}

func TestTradeRepository_DeleteCascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	b := testutil.NewBond().Build(t, db)
	trade := testutil.NewTrade(b.ID).WithTotalAmount(990).Build(t, db)

	trades := repository.NewTradeRepository(db)
	sum, err := trades.SumTotalAmount(ctx)
	if err != nil {
		t.Fatalf("SumTotalAmount() returned unexpected error: %v", err)
	}
	if sum != 990 {
		t.Errorf("Expected 990, got %v", sum)
	}

	if err := repository.NewBondRepository(db).DeleteBond(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBond() returned unexpected error: %v", err)
	}
	if _, err := trades.GetTrade(ctx, trade.ID); !errors.Is(err, apperrors.ErrTradeNotFound) {
		t.Errorf("Expected trade removed with its bond, got %v", err)
	}
}

func TestFxRateRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewFxRateRepository(db)
	ctx := context.Background()

	testutil.CreateFxRate(t, db, "usd", 90)
	testutil.CreateFxRate(t, db, "USD", 91.5)

	got, err := repo.GetRate(ctx, "Usd")
	if err != nil {
		t.Fatalf("GetRate() returned unexpected error: %v", err)
	}
	if got.Rate != 91.5 {
		t.Errorf("Expected replaced rate 91.5, got %v", got.Rate)
	}

	if _, err := repo.GetRate(ctx, "EUR"); !errors.Is(err, apperrors.ErrExchangeRateNotFound) {
		t.Errorf("Expected ErrExchangeRateNotFound, got %v", err)
	}

	all, _ := repo.GetRates(ctx)
	if len(all) != 1 {
		t.Errorf("Expected one stored rate, got %v", all)
	}
}

func TestSummaryRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewSummaryRepository(db)
	ctx := context.Background()

	if _, err := repo.Get(ctx); !errors.Is(err, apperrors.ErrSummaryNotFound) {
		t.Errorf("Expected ErrSummaryNotFound before first save, got %v", err)
	}

	in := model.PortfolioSummary{
		Invested:           1900,
		CurrentValue:       2020,
		ExcludedCurrencies: []model.ExcludedCurrency{{Currency: "CNY", Amount: 95}},
		UpdatedAt:          time.Now().UTC(),
	}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("Save() returned unexpected error: %v", err)
	}
	in.Invested = 2000
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("Save() returned unexpected error: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() returned unexpected error: %v", err)
	}
	if got.Invested != 2000 || got.CurrentValue != 2020 {
		t.Errorf("Unexpected summary %+v", got)
	}
	if len(got.ExcludedCurrencies) != 1 || got.ExcludedCurrencies[0].Currency != "CNY" {
		t.Errorf("Expected CNY exclusion, got %+v", got.ExcludedCurrencies)
	}
}
