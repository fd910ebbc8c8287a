package validation

import (
	"github.com/calm3366/bond-portfolio/internal/api/request"
)

// ValidateAddBond validates a bond add request.
func ValidateAddBond(req request.AddBondRequest) error {
	return Struct(req)
}

// ValidateRefreshRates validates the optional currency list of a rate refresh.
func ValidateRefreshRates(req request.RefreshRatesRequest) error {
	return Struct(req)
}

// ValidateCreateEvent validates an event log entry.
func ValidateCreateEvent(req request.CreateEventRequest) error {
	return Struct(req)
}
