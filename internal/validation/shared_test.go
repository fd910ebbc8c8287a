package validation

import (
	"errors"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
)

func TestError_Error(t *testing.T) {
	err := &Error{Fields: map[string]string{
		"sell_qty": "must not exceed buy_qty",
		"buy_date": "is required",
	}}

	want := "buy_date: is required; sell_qty: must not exceed buy_qty"
	if got := err.Error(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("550e8400-e29b-41d4-a716-446655440000"); err != nil {
		t.Errorf("Expected valid UUID, got %v", err)
	}
	if err := ValidateUUID("not-a-uuid"); !errors.Is(err, apperrors.ErrInvalidUUID) {
		t.Errorf("Expected ErrInvalidUUID, got %v", err)
	}
}
