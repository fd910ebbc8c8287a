package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

func listingRow(secid, name string, coupon float64, maturity string) moex.Row {
	return moex.Row{
		"SECID":         secid,
		"ISIN":          secid,
		"SHORTNAME":     name,
		"SECNAME":       name + " БО",
		"COUPONPERCENT": coupon,
		"MATDATE":       maturity,
		"FACEUNIT":      "SUR",
	}
}

// TestSearchService_Search tests the Search method.
//
// WHY: Search scans every bond market page by page, which is slow. Results must
// be deduplicated across markets, filtered as requested and memoised so the
// same query does not hit the exchange again.
func TestSearchService_Search(t *testing.T) {
	t.Run("matches query across markets without duplicates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		iss := testutil.NewMockISS().
			WithListing("bonds", listingRow("RU000A1SBER1", "Сбер 1P", 10, "2026-01-01")).
			WithListing("corporate_bonds",
				listingRow("RU000A1SBER1", "Сбер 1P", 10, "2026-01-01"),
				listingRow("RU000A1GAZP2", "Газпром 2P", 11, "2027-01-01"),
			)
		svc := testutil.NewTestSearchService(t, db, iss)

		results, err := svc.Search(context.Background(), model.BondSearchFilter{Query: "СБЕР"})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}

		if len(results) != 1 {
			t.Fatalf("Expected 1 result, got %d", len(results))
		}
		r := results[0]
		if r.SecID != "RU000A1SBER1" || r.Market != "bonds" {
			t.Errorf("Expected first listing to win, got %+v", r)
		}
		if r.Currency == nil || *r.Currency != model.BaseCurrency {
			t.Errorf("Expected RUB currency, got %v", r.Currency)
		}
	})

	t.Run("applies coupon and maturity bounds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		iss := testutil.NewMockISS().WithListing("bonds",
			listingRow("RU000A1LOW01", "Low", 8, "2026-01-01"),
			listingRow("RU000A1MID02", "Mid", 12, "2026-06-01"),
			listingRow("RU000A1LATE3", "Late", 12, "2031-01-01"),
			moex.Row{"SECID": "RU000A1NOMAT", "SHORTNAME": "NoMat", "COUPONPERCENT": 12.0},
		)
		svc := testutil.NewTestSearchService(t, db, iss)

		maturityTo := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		results, err := svc.Search(context.Background(), model.BondSearchFilter{
			CouponFrom: f64(9),
			MaturityTo: &maturityTo,
		})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}

		if len(results) != 1 || results[0].SecID != "RU000A1MID02" {
			t.Errorf("Expected only RU000A1MID02, got %+v", results)
		}
	})

	t.Run("filters by rating of tracked bonds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewBond().WithSecID("RU000A1RATED").WithAKRA("AA(RU)").Build(t, db)
		iss := testutil.NewMockISS().WithListing("bonds",
			listingRow("RU000A1RATED", "Rated", 10, "2026-01-01"),
			listingRow("RU000A1NORAT", "Unrated", 10, "2026-01-01"),
		)
		svc := testutil.NewTestSearchService(t, db, iss)

		results, err := svc.Search(context.Background(), model.BondSearchFilter{Rating: "aa"})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}

		if len(results) != 1 || results[0].SecID != "RU000A1RATED" {
			t.Fatalf("Expected only the rated bond, got %+v", results)
		}
		if results[0].Rating == nil {
			t.Error("Expected rating on result")
		}
	})

	t.Run("serves repeated query from cache", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		iss := testutil.NewMockISS().WithListing("bonds", listingRow("RU000A1SBER1", "Сбер 1P", 10, "2026-01-01"))
		svc := testutil.NewTestSearchService(t, db, iss)

		if _, err := svc.Search(context.Background(), model.BondSearchFilter{Query: "сбер"}); err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}
		calls := iss.CallCount("ListMarket")

		results, err := svc.Search(context.Background(), model.BondSearchFilter{Query: " Сбер "})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}
		if iss.CallCount("ListMarket") != calls {
			t.Errorf("Expected cached result, got %d more listing calls", iss.CallCount("ListMarket")-calls)
		}
		if len(results) != 1 {
			t.Errorf("Expected 1 cached result, got %d", len(results))
		}
	})

	t.Run("skips a market that fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		iss := testutil.NewMockISS().WithListing("bonds", listingRow("RU000A1SBER1", "Сбер 1P", 10, "2026-01-01"))
		iss.ListErrs["ofz"] = apperrors.ErrProviderStatus
		svc := testutil.NewTestSearchService(t, db, iss)

		results, err := svc.Search(context.Background(), model.BondSearchFilter{})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("Expected 1 result, got %d", len(results))
		}
	})

	t.Run("does not cache a partial result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		iss := testutil.NewMockISS().
			WithListing("bonds", listingRow("RU000A1SBER1", "Сбер 1P", 10, "2026-01-01")).
			WithListing("ofz", listingRow("SU26238RMFS4", "ОФЗ 26238", 7.1, "2041-05-15"))
		iss.ListErrs["ofz"] = apperrors.ErrProviderStatus
		svc := testutil.NewTestSearchService(t, db, iss)

		first, err := svc.Search(context.Background(), model.BondSearchFilter{})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}
		if len(first) != 1 {
			t.Fatalf("Expected 1 result while ofz fails, got %d", len(first))
		}
		calls := iss.CallCount("ListMarket")

		delete(iss.ListErrs, "ofz")
		second, err := svc.Search(context.Background(), model.BondSearchFilter{})
		if err != nil {
			t.Fatalf("Search() returned unexpected error: %v", err)
		}
		if iss.CallCount("ListMarket") == calls {
			t.Error("Expected markets to be listed again after a partial result")
		}
		if len(second) != 2 {
			t.Errorf("Expected 2 results once ofz recovers, got %d", len(second))
		}
	})

, func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		iss := testutil.NewMockISS().WithError(apperrors.ErrProviderUnavailable)
		svc := testutil.NewTestSearchService(t, db, iss)

		_, err := svc.Search(context.Background(), model.BondSearchFilter{Query: "x"})
		if !errors.Is(err, apperrors.ErrFailedToSearchBonds) {
			t.Errorf("Expected ErrFailedToSearchBonds, got %v", err)
		}
	})
}
