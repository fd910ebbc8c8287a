// Package cbr reads the Central Bank of Russia daily exchange rates.
package cbr

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
)

// Provider defines the interface for fetching daily rates.
// This interface enables dependency injection and testing with mock implementations.
type Provider interface {
	Daily(ctx context.Context) (map[string]float64, error)
}

// ValCurs is the root element of XML_daily.asp.
type ValCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valute  []Valute `xml:"Valute"`
}

// Valute is one currency entry. Nominal and Value use a decimal comma.
type Valute struct {
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// Client fetches the daily rates document.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a CBR client for the given XML_daily.asp URL.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Daily returns RUB per one unit of each listed currency, keyed by upper-case code.
// Entries with an unreadable value or nominal are skipped.
func (c *Client) Daily(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build CBR request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: CBR: %v", apperrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: CBR: HTTP %d", apperrors.ErrProviderStatus, resp.StatusCode)
	}

	var doc ValCurs
	dec := xml.NewDecoder(resp.Body)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: CBR: %v", apperrors.ErrProviderPayload, err)
	}

	return doc.Rates(), nil
}

// Rates converts the document into a rate table.
func (v ValCurs) Rates() map[string]float64 {
	rates := make(map[string]float64, len(v.Valute))
	for _, val := range v.Valute {
		code := strings.ToUpper(strings.TrimSpace(val.CharCode))
		rate, err := val.Rate()
		if code == "" || err != nil {
			log.Debug().Err(err).Str("code", code).Msg("skipping CBR entry")
			continue
		}
		rates[code] = rate
	}
	return rates
}

// Rate returns Value divided by Nominal.
func (v Valute) Rate() (float64, error) {
	value, err := parseDecimal(v.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", v.Value, err)
	}
	nominal := decimal.NewFromInt(1)
	if strings.TrimSpace(v.Nominal) != "" {
		nominal, err = parseDecimal(v.Nominal)
		if err != nil {
			return 0, fmt.Errorf("invalid nominal %q: %w", v.Nominal, err)
		}
	}
	if nominal.IsZero() {
		return 0, fmt.Errorf("zero nominal")
	}
	return value.Div(nominal).InexactFloat64(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	return decimal.NewFromString(s)
}
