package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

func setupTradeHandler(t *testing.T) (*TradeHandler, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewTradeHandler(testutil.NewTestTradeService(t, db)), db
}

func TestTradeHandler_Trades(t *testing.T) {
	t.Run("filters by bond", func(t *testing.T) {
		handler, db := setupTradeHandler(t)
		a := testutil.NewBond().Build(t, db)
		b := testutil.NewBond().Build(t, db)
		testutil.NewTrade(a.ID).Build(t, db)
		testutil.NewTrade(a.ID).Build(t, db)
		testutil.NewTrade(b.ID).Build(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/trade", map[string]string{"bond_id": a.ID})
		w := httptest.NewRecorder()

		handler.Trades(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response []model.Trade
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if len(response) != 2 {
			t.Errorf("Expected 2 trades, got %d", len(response))
		}
	})

	t.Run("returns 400 for invalid bond_id", func(t *testing.T) {
		handler, _ := setupTradeHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/trade", map[string]string{"bond_id": "SU26238RMFS4"})
		w := httptest.NewRecorder()

		handler.Trades(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

// TestTradeHandler_CreateTrade tests the CreateTrade endpoint.
//
// WHY: A trade must reference a tracked bond and a consistent sell leg.
// Each failure has its own status so clients can tell them apart.
func TestTradeHandler_CreateTrade(t *testing.T) {
	t.Run("creates trade", func(t *testing.T) {
		handler, db := setupTradeHandler(t)
		bond := testutil.NewBond().Build(t, db)

		body := `{"bond_id":"` + bond.ID + `","buy_date":"2024-03-01","buy_qty":10,"buy_price":985.5,"currency":"rub"}`
		req := testutil.NewJSONRequest(http.MethodPost, "/api/trade", body, nil)
		w := httptest.NewRecorder()

		handler.CreateTrade(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var response model.Trade
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.ID == "" || response.BuyQty != 10 {
			t.Errorf("Unexpected trade %+v", response)
		}
		if response.Currency == nil || *response.Currency != "RUB" {
			t.Errorf("Expected currency RUB, got %v", response.Currency)
		}
	})

	t.Run("returns 404 for untracked bond", func(t *testing.T) {
		handler, _ := setupTradeHandler(t)

		body := `{"bond_id":"` + testutil.MakeID() + `","buy_date":"2024-03-01","buy_qty":1}`
		req := testutil.NewJSONRequest(http.MethodPost, "/api/trade", body, nil)
		w := httptest.NewRecorder()

		handler.CreateTrade(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 400 for invalid trade", func(t *testing.T) {
		handler, db := setupTradeHandler(t)
		bond := testutil.NewBond().Build(t, db)

		for name, body := range map[string]string{
			"zero qty":            `{"bond_id":"` + bond.ID + `","buy_date":"2024-03-01","buy_qty":0}`,
			"bad date":            `{"bond_id":"` + bond.ID + `","buy_date":"01.03.2024","buy_qty":1}`,
			"sell more than held": `{"bond_id":"` + bond.ID + `","buy_date":"2024-03-01","buy_qty":1,"sell_date":"2024-04-01","sell_qty":2}`,
			"unknown currency":    `{"bond_id":"` + bond.ID + `","buy_date":"2024-03-01","buy_qty":1,"currency":"ABC"}`,
		} {
			req := testutil.NewJSONRequest(http.MethodPost, "/api/trade", body, nil)
			w := httptest.NewRecorder()

			handler.CreateTrade(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", name, w.Code)
			}
		}
	})
}

func TestTradeHandler_UpdateTrade(t *testing.T) {
	t.Run("updates given fields", func(t *testing.T) {
		handler, db := setupTradeHandler(t)
		bond := testutil.NewBond().Build(t, db)
		trade := testutil.NewTrade(bond.ID).WithQty(4).Build(t, db)

		req := testutil.NewJSONRequest(http.MethodPut, "/api/trade/"+trade.ID, `{"total_amount":4012.5}`, map[string]string{"uuid": trade.ID})
		w := httptest.NewRecorder()

		handler.UpdateTrade(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response model.Trade
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.BuyQty != 4 {
			t.Errorf("Expected qty kept at 4, got %d", response.BuyQty)
		}
		if response.TotalAmount == nil || *response.TotalAmount != 4012.5 {
			t.Errorf("Expected total 4012.5, got %v", response.TotalAmount)
		}
	})

	t.Run("rejects sell leg exceeding stored quantity", func(t *testing.T) {
		handler, db := setupTradeHandler(t)
		bond := testutil.NewBond().Build(t, db)
		trade := testutil.NewTrade(bond.ID).WithQty(2).Build(t, db)

		body := `{"sell_date":"` + testutil.Today().Format("2006-01-02") + `","sell_qty":3}`
		req := testutil.NewJSONRequest(http.MethodPut, "/api/trade/"+trade.ID, body, map[string]string{"uuid": trade.ID})
		w := httptest.NewRecorder()

		handler.UpdateTrade(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for unknown trade", func(t *testing.T) {
		handler, _ := setupTradeHandler(t)
		id := testutil.MakeID()

		req := testutil.NewJSONRequest(http.MethodPut, "/api/trade/"+id, `{"buy_qty":1}`, map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.UpdateTrade(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestTradeHandler_DeleteTrade(t *testing.T) {
	handler, db := setupTradeHandler(t)
	bond := testutil.NewBond().Build(t, db)
	trade := testutil.NewTrade(bond.ID).Build(t, db)
	params := map[string]string{"uuid": trade.ID}

	w := httptest.NewRecorder()
	handler.DeleteTrade(w, testutil.NewRequestWithURLParams(http.MethodDelete, "/api/trade/"+trade.ID, params))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.GetTrade(w, testutil.NewRequestWithURLParams(http.MethodGet, "/api/trade/"+trade.ID, params))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}
