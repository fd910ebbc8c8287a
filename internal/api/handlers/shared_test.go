package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/validation"
)

// TestParseJSON tests the parseJSON helper function.
// This is an internal test (package handlers, not handlers_test) because
// parseJSON is unexported.
func TestParseJSON(t *testing.T) {
	t.Run("decodes valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/bond", strings.NewReader(`{"identifier":"SU26238RMFS4"}`))

		got, err := parseJSON[request.AddBondRequest](req)
		if err != nil {
			t.Fatalf("parseJSON() returned unexpected error: %v", err)
		}
		if got.Identifier != "SU26238RMFS4" {
			t.Errorf("Expected identifier SU26238RMFS4, got %q", got.Identifier)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/bond", strings.NewReader(`{"secid":"SU26238RMFS4"}`))

		if _, err := parseJSON[request.AddBondRequest](req); err == nil {
			t.Error("Expected error for unknown field")
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/bond", strings.NewReader(""))

		_, err := parseJSON[request.AddBondRequest](req)
		if err == nil || !strings.Contains(err.Error(), "empty") {
			t.Errorf("Expected empty body error, got %v", err)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/bond", strings.NewReader(`{"identifier":`))

		if _, err := parseJSON[request.AddBondRequest](req); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestValidationDetails(t *testing.T) {
	fields := validationDetails(&validation.Error{Fields: map[string]string{"buy_qty": "buy_qty is required"}})
	if m, ok := fields.(map[string]string); !ok || m["buy_qty"] == "" {
		t.Errorf("Expected field map, got %#v", fields)
	}

	if got := validationDetails(errors.New("boom")); got != "boom" {
		t.Errorf("Expected plain message, got %#v", got)
	}
}
