package repository

import (
	"database/sql"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	t.Run("parses plain date", func(t *testing.T) {
		got, err := ParseTime("2024-03-15")
		if err != nil {
			t.Fatalf("ParseTime() returned unexpected error: %v", err)
		}
		if !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Unexpected time: %v", got)
		}
	})

	t.Run("parses RFC3339 and converts to UTC", func(t *testing.T) {
		got, err := ParseTime("2024-03-15T12:00:00+03:00")
		if err != nil {
			t.Fatalf("ParseTime() returned unexpected error: %v", err)
		}
		if got.Hour() != 9 || got.Location() != time.UTC {
			t.Errorf("Expected 09:00 UTC, got %v", got)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, err := ParseTime("15.03.2024"); err == nil {
			t.Error("Expected error for unsupported layout")
		}
	})
}

func TestNullHelpers(t *testing.T) {
	if nullFloat(sql.NullFloat64{}) != nil {
		t.Error("Expected nil for invalid NullFloat64")
	}
	if v := nullFloat(sql.NullFloat64{Float64: 1.5, Valid: true}); v == nil || *v != 1.5 {
		t.Errorf("Expected 1.5, got %v", v)
	}
	if v, _ := parseNullTime(sql.NullString{}); v != nil {
		t.Errorf("Expected nil time, got %v", v)
	}
	if ptrArg[float64](nil) != nil {
		t.Error("Expected untyped nil for nil pointer")
	}
	if dateArg(nil) != nil {
		t.Error("Expected nil date arg")
	}
}
