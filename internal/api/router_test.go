package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/config"
	"github.com/calm3366/bond-portfolio/internal/testutil"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	iss := testutil.NewMockISS()
	cbr := testutil.NewMockCBR(nil)

	svc := Services{
		System:    testutil.NewTestSystemService(t, db),
		Bond:      testutil.NewTestBondService(t, db, iss, testutil.NewMockPages(), nil),
		Search:    testutil.NewTestSearchService(t, db, iss),
		Trade:     testutil.NewTestTradeService(t, db),
		Portfolio: testutil.NewTestPortfolioService(t, db, cbr),
		Fx:        testutil.NewTestFxService(t, db, cbr),
		EventLog:  testutil.NewTestEventLogService(t, db),
	}
	cfg := &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}}
	return NewRouter(svc, cfg)
}

// TestNewRouter tests route registration and shared middleware.
//
// WHY: Every {uuid} route relies on the router-level validation middleware.
// A malformed ID must be rejected before any handler runs.
func TestNewRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health", http.MethodGet, "/api/system/health", http.StatusOK},
		{"bond list", http.MethodGet, "/api/bond", http.StatusOK},
		{"trade list", http.MethodGet, "/api/trade", http.StatusOK},
		{"fx list", http.MethodGet, "/api/fx", http.StatusOK},
		{"events", http.MethodGet, "/api/events", http.StatusOK},
		{"portfolio summary", http.MethodGet, "/api/portfolio/summary", http.StatusOK},
		{"malformed bond id", http.MethodGet, "/api/bond/SU26238RMFS4", http.StatusBadRequest},
		{"malformed trade id", http.MethodDelete, "/api/trade/42", http.StatusBadRequest},
		{"unknown bond", http.MethodGet, "/api/bond/" + testutil.MakeID(), http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/funds", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/bond", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.want, w.Code, w.Body.String())
			}
		})
	}

	t.Run("answers CORS preflight for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/bond", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Expected allowed origin header, got %q", got)
		}
	})
}
