package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calm3366/bond-portfolio/internal/cache"
	"github.com/calm3366/bond-portfolio/internal/cbr"
	"github.com/calm3366/bond-portfolio/internal/corpbonds"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
	"github.com/calm3366/bond-portfolio/internal/repository"
	"github.com/calm3366/bond-portfolio/internal/service"
)

// FixedClock returns a clock that always reads t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Today returns the current UTC date at midnight.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func NewTestOpenValueService(t *testing.T, iss moex.Provider, now func() time.Time) *service.OpenValueService {
	t.Helper()

	return service.NewOpenValueService(iss, now)
}

func NewTestBondService(t *testing.T, db *sql.DB, iss moex.Provider, pages corpbonds.Fetcher, now func() time.Time) *service.BondService {
	t.Helper()

	return service.NewBondService(
		db,
		repository.NewBondRepository(db),
		repository.NewCouponRepository(db),
		repository.NewEventLogRepository(db),
		iss,
		pages,
		service.NewOpenValueService(iss, now),
		2,
		now,
	)
}

func NewTestTradeService(t *testing.T, db *sql.DB) *service.TradeService {
	t.Helper()

	return service.NewTradeService(
		repository.NewTradeRepository(db),
		repository.NewBondRepository(db),
	)
}

// NewTestFxService creates an FxService over provider with the memo disabled.
func NewTestFxService(t *testing.T, db *sql.DB, provider cbr.Provider) *service.FxService {
	t.Helper()

	return service.NewFxService(
		provider,
		repository.NewFxRateRepository(db),
		repository.NewBondRepository(db),
		0,
		nil,
	)
}

func NewTestPortfolioService(t *testing.T, db *sql.DB, provider cbr.Provider) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewTradeRepository(db),
		repository.NewCouponRepository(db),
		repository.NewSummaryRepository(db),
		NewTestFxService(t, db, provider),
		nil,
	)
}

func NewTestSearchService(t *testing.T, db *sql.DB, iss moex.Provider) *service.SearchService {
	t.Helper()

	return service.NewSearchService(
		iss,
		repository.NewBondRepository(db),
		cache.New[[]model.BondSearchResult](cache.DefaultTTL, cache.DefaultCapacity, nil),
	)
}

func NewTestEventLogService(t *testing.T, db *sql.DB) *service.EventLogService {
	t.Helper()

	return service.NewEventLogService(repository.NewEventLogRepository(db))
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db, map[string]bool{"scheduler": false})
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeISIN generates an ISIN-shaped code for testing: two letters, nine
// alphanumerics and a digit.
//
// Example usage:
//
//	isin := testutil.MakeISIN("RU")
//	// Returns: "RU0A1B2C3D45"
func MakeISIN(prefix string) string {
	if prefix == "" {
		prefix = "RU"
	}
	return prefix + randomAlphanumeric(9) + randomDigits(1)
}

// MakeSecID generates an OFZ-style exchange code for testing.
//
// Example usage:
//
//	secid := testutil.MakeSecID()
//	// Returns: "SU26238RMFS4"
func MakeSecID() string {
	return "SU" + randomDigits(5) + "RMFS" + randomDigits(1)
}

// MakeBondName generates a unique bond name for testing.
func MakeBondName(base string) string {
	if base == "" {
		base = "Bond"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	return randomFrom(charset, length)
}

func randomDigits(length int) string {
	return randomFrom("0123456789", length)
}

func randomFrom(charset string, length int) string {
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
