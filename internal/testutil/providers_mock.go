package testutil

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/corpbonds"
	"github.com/calm3366/bond-portfolio/internal/moex"
)

// MockISS is an in-memory moex.Provider. It is safe for concurrent use.
//
// Example usage:
//
//	iss := testutil.NewMockISS().
//	    WithSecurity(testutil.ISSSecurity("bonds", moex.Row{"SECID": "RU000A1", "FACEVALUE": 1000.0}, nil)).
//	    WithHistory("RU000A1", testutil.HistoryRow(day, 98.5))
type MockISS struct {
	mu sync.Mutex

	// Securities holds the detail view per SECID; Market selects where it is listed.
	Securities map[string]moex.Security
	// ISINs maps ISIN to SECID for ResolveISIN.
	ISINs map[string]string
	// Listings holds each market's listing rows.
	Listings map[string][]moex.Row
	// HistoryRows holds history rows per SECID, filtered by TRADEDATE on read.
	HistoryRows map[string][]moex.Row
	// Bondizations holds payment schedules per SECID. A missing entry yields an empty schedule.
	Bondizations map[string]moex.Bondization

	// Err is returned by every method when set.
	Err error
	// BondizationErr is returned by Bondization when set.
	BondizationErr error
	// ListErrs fails ListMarket for the given markets.
	ListErrs map[string]error

	// Calls counts invocations per method name.
	Calls map[string]int
}

// NewMockISS creates an empty mock exchange.
func NewMockISS() *MockISS {
	return &MockISS{
		Securities:   map[string]moex.Security{},
		ISINs:        map[string]string{},
		Listings:     map[string][]moex.Row{},
		HistoryRows:  map[string][]moex.Row{},
		Bondizations: map[string]moex.Bondization{},
		ListErrs:     map[string]error{},
		Calls:        map[string]int{},
	}
}

// WithSecurity registers a security under the SECID of its first securities row.
func (m *MockISS) WithSecurity(sec moex.Security) *MockISS {
	m.mu.Lock()
	defer m.mu.Unlock()
	secid := ""
	if len(sec.Securities) > 0 {
		secid = sec.Securities[0].String("SECID")
	}
	m.Securities[secid] = sec
	return m
}

// WithISIN registers an ISIN to SECID mapping.
func (m *MockISS) WithISIN(isin, secid string) *MockISS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ISINs[isin] = secid
	return m
}

// WithListing appends rows to a market listing.
func (m *MockISS) WithListing(market string, rows ...moex.Row) *MockISS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Listings[market] = append(m.Listings[market], rows...)
	return m
}

// WithHistory appends history rows for a SECID.
func (m *MockISS) WithHistory(secid string, rows ...moex.Row) *MockISS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryRows[secid] = append(m.HistoryRows[secid], rows...)
	return m
}

// WithBondization sets the payment schedule of a SECID.
func (m *MockISS) WithBondization(secid string, bz moex.Bondization) *MockISS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bondizations[secid] = bz
	return m
}

// WithError configures every method to fail with err.
func (m *MockISS) WithError(err error) *MockISS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
	return m
}

// CallCount returns how many times a method was invoked.
func (m *MockISS) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockISS) enter(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
	return m.Err
}

// Security returns the registered security if it is listed on market.
func (m *MockISS) Security(_ context.Context, market, secid string) (moex.Security, error) {
	if err := m.enter("Security"); err != nil {
		return moex.Security{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sec, ok := m.Securities[secid]
	if !ok || sec.Market != market {
		return moex.Security{}, fmt.Errorf("%w: %s on %s", apperrors.ErrBondNotFoundAtSource, secid, market)
	}
	return sec, nil
}

// FindSecurity returns the registered security on whatever market it is listed.
func (m *MockISS) FindSecurity(_ context.Context, secid string) (moex.Security, error) {
	if err := m.enter("FindSecurity"); err != nil {
		return moex.Security{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sec, ok := m.Securities[secid]
	if !ok {
		return moex.Security{}, fmt.Errorf("%w: %s", apperrors.ErrBondNotFoundAtSource, secid)
	}
	return sec, nil
}

// ResolveISIN returns the registered SECID for isin.
func (m *MockISS) ResolveISIN(_ context.Context, isin string) (string, error) {
	if err := m.enter("ResolveISIN"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	secid, ok := m.ISINs[isin]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrBondNotFoundAtSource, isin)
	}
	return secid, nil
}

// ListMarket returns one page of a market listing.
func (m *MockISS) ListMarket(_ context.Context, market string, start, limit int) ([]moex.Row, error) {
	if err := m.enter("ListMarket"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ListErrs[market]; err != nil {
		return nil, err
	}
	rows := m.Listings[market]
	if start >= len(rows) {
		return nil, nil
	}
	end := min(start+limit, len(rows))
	return rows[start:end], nil
}

// History returns the rows of secid whose TRADEDATE lies within [from, till].
func (m *MockISS) History(_ context.Context, secid string, from, till time.Time) ([]moex.Row, error) {
	if err := m.enter("History"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []moex.Row
	for _, row := range m.HistoryRows[secid] {
		d := row.Date("TRADEDATE")
		if d == nil || d.Before(from) || d.After(till) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Bondization returns the registered schedule, or an empty one.
func (m *MockISS) Bondization(_ context.Context, secid string) (moex.Bondization, error) {
	if err := m.enter("Bondization"); err != nil {
		return moex.Bondization{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BondizationErr != nil {
		return moex.Bondization{}, m.BondizationErr
	}
	return m.Bondizations[secid], nil
}

// ISSSecurity builds a detail view from one securities row and an optional marketdata row.
func ISSSecurity(market string, securities, marketdata moex.Row) moex.Security {
	sec := moex.Security{Market: market, Securities: []moex.Row{securities}}
	if marketdata != nil {
		sec.MarketData = []moex.Row{marketdata}
	}
	return sec
}

// HistoryRow builds a history row with an open price in percent of face.
func HistoryRow(day time.Time, open float64) moex.Row {
	return moex.Row{"TRADEDATE": day.Format("2006-01-02"), "OPEN": open}
}

// MockPages is an in-memory corpbonds.Fetcher keyed by page code.
type MockPages struct {
	mu      sync.Mutex
	Records map[string]corpbonds.Record
	Err     error
	Codes   []string
}

// NewMockPages creates a bond page source with no pages.
func NewMockPages() *MockPages {
	return &MockPages{Records: map[string]corpbonds.Record{}}
}

// WithRecord registers the parsed page of a code.
func (m *MockPages) WithRecord(code string, rec corpbonds.Record) *MockPages {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[code] = rec
	return m
}

// WithError configures every fetch to fail with err.
func (m *MockPages) WithError(err error) *MockPages {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
	return m
}

// Fetch returns the registered record; unknown codes answer like a missing page.
func (m *MockPages) Fetch(_ context.Context, code string, _ bool) (corpbonds.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Codes = append(m.Codes, code)
	if m.Err != nil {
		return corpbonds.Record{}, m.Err
	}
	rec, ok := m.Records[code]
	if !ok {
		return corpbonds.Record{}, fmt.Errorf("%w: HTTP 404", apperrors.ErrProviderStatus)
	}
	return rec, nil
}

// MockCBR is an in-memory cbr.Provider.
type MockCBR struct {
	mu    sync.Mutex
	Rates map[string]float64
	Err   error
	Calls int
}

// NewMockCBR creates a rate source quoting the given rates.
func NewMockCBR(rates map[string]float64) *MockCBR {
	return &MockCBR{Rates: rates}
}

// WithError configures Daily to fail with err.
func (m *MockCBR) WithError(err error) *MockCBR {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
	return m
}

// CallCount returns how many times Daily was invoked.
func (m *MockCBR) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// Daily returns a copy of the configured rates.
func (m *MockCBR) Daily(_ context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return maps.Clone(m.Rates), nil
}
