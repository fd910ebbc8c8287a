package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

func TestFxHandler_Rates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewFxHandler(testutil.NewTestFxService(t, db, testutil.NewMockCBR(nil)))
	testutil.CreateFxRate(t, db, "USD", 91.2)
	testutil.CreateFxRate(t, db, "CNY", 12.6)

	req := httptest.NewRequest(http.MethodGet, "/api/fx", nil)
	w := httptest.NewRecorder()

	handler.Rates(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rates []model.FxRate
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&rates)

	if len(rates) != 2 || rates[0].Currency != "CNY" || rates[1].Currency != "USD" {
		t.Errorf("Expected CNY then USD, got %+v", rates)
	}
}

// TestFxHandler_RefreshRates tests the rate refresh endpoint.
//
// WHY: The body is optional. Without it every currency in use is refreshed,
// and an unreachable central bank is reported as an upstream failure.
func TestFxHandler_RefreshRates(t *testing.T) {
	t.Run("refreshes currencies in use without body", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		cbr := testutil.NewMockCBR(map[string]float64{"USD": 92.1, "EUR": 99.4})
		handler := NewFxHandler(testutil.NewTestFxService(t, db, cbr))
		testutil.NewBond().WithCurrency("USD").Build(t, db)

		req := httptest.NewRequest(http.MethodPost, "/api/fx/refresh", nil)
		w := httptest.NewRecorder()

		handler.RefreshRates(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var rates []model.FxRate
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&rates)

		if len(rates) != 1 || rates[0].Currency != "USD" || rates[0].Rate != 92.1 {
			t.Errorf("Expected USD 92.1 only, got %+v", rates)
		}
	})

	t.Run("refreshes requested currencies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		cbr := testutil.NewMockCBR(map[string]float64{"USD": 92.1, "EUR": 99.4})
		handler := NewFxHandler(testutil.NewTestFxService(t, db, cbr))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/fx/refresh", `{"currencies":["eur"]}`, nil)
		w := httptest.NewRecorder()

		handler.RefreshRates(w, req)

		var rates []model.FxRate
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&rates)

		if len(rates) != 1 || rates[0].Currency != "EUR" {
			t.Errorf("Expected EUR only, got %+v", rates)
		}
	})

	t.Run("returns 400 for unknown currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := NewFxHandler(testutil.NewTestFxService(t, db, testutil.NewMockCBR(nil)))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/fx/refresh", `{"currencies":["XYZ1"]}`, nil)
		w := httptest.NewRecorder()

		handler.RefreshRates(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("returns 502 when central bank is unreachable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		cbr := testutil.NewMockCBR(nil).WithError(errors.New("dial tcp: i/o timeout"))
		handler := NewFxHandler(testutil.NewTestFxService(t, db, cbr))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/fx/refresh", `{"currencies":["USD"]}`, nil)
		w := httptest.NewRecorder()

		handler.RefreshRates(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Expected 502, got %d", w.Code)
		}
	})
}
