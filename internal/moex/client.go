// Package moex is an adapter for the Moscow Exchange ISS JSON API.
//
// Every ISS endpoint answers with named columnar blocks. Rows are always read
// by column name through Table.Rows, never by position, because column order
// differs between endpoints and changes over time.
package moex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
)

// Markets lists the bond market segments in the order they are tried.
var Markets = []string{
	"bonds",
	"corporate_bonds",
	"municipal_bonds",
	"subfederal_bonds",
	"ofz",
}

// ListingPageSize is the page size used for market listings.
const ListingPageSize = 5000

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IsISIN reports whether s is shaped like an ISIN.
func IsISIN(s string) bool {
	return isinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// Provider is the subset of ISS the services depend on. Implemented by *Client.
type Provider interface {
	Security(ctx context.Context, market, secid string) (Security, error)
	FindSecurity(ctx context.Context, secid string) (Security, error)
	ResolveISIN(ctx context.Context, isin string) (string, error)
	ListMarket(ctx context.Context, market string, start, limit int) ([]Row, error)
	History(ctx context.Context, secid string, from, till time.Time) ([]Row, error)
	Bondization(ctx context.Context, secid string) (Bondization, error)
}

// Client talks to ISS. Detail requests use the short timeout; market listings
// use the long one and are rate limited.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	listingClient *http.Client
	limiter       *rate.Limiter
}

// NewClient creates an ISS client. listingRPS <= 0 disables listing rate limiting.
func NewClient(baseURL string, timeout, listingTimeout time.Duration, listingRPS float64) *Client {
	limit := rate.Inf
	if listingRPS > 0 {
		limit = rate.Limit(listingRPS)
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		listingClient: &http.Client{Timeout: listingTimeout},
		limiter:       rate.NewLimiter(limit, 1),
	}
}

// query executes a GET against an ISS path and decodes the requested blocks.
func (c *Client) query(ctx context.Context, hc *http.Client, path string, params url.Values, blocks ...string) (map[string]Table, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("iss.meta", "off")
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ISS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ISS %s: %v", apperrors.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: ISS %s: HTTP %d", apperrors.ErrProviderStatus, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: ISS %s: %v", apperrors.ErrProviderUnavailable, path, err)
	}

	return decodeTables(body, blocks...)
}

// Security fetches the securities and marketdata blocks of one bond on one market.
// Returns apperrors.ErrBondNotFoundAtSource when the market does not list it.
func (c *Client) Security(ctx context.Context, market, secid string) (Security, error) {
	path := fmt.Sprintf("/engines/stock/markets/%s/securities/%s.json", url.PathEscape(market), url.PathEscape(secid))
	tables, err := c.query(ctx, c.httpClient, path, nil, "securities", "marketdata")
	if err != nil {
		return Security{}, err
	}

	sec := Security{
		Market:     market,
		Securities: tables["securities"].Rows(),
		MarketData: tables["marketdata"].Rows(),
	}
	if len(sec.Securities) == 0 {
		return Security{}, fmt.Errorf("%w: %s on %s", apperrors.ErrBondNotFoundAtSource, secid, market)
	}
	return sec, nil
}

// FindSecurity tries each market in Markets order; the first market with a
// securities row wins.
func (c *Client) FindSecurity(ctx context.Context, secid string) (Security, error) {
	secid = strings.ToUpper(strings.TrimSpace(secid))
	var lastErr error
	for _, market := range Markets {
		sec, err := c.Security(ctx, market, secid)
		if err == nil {
			return sec, nil
		}
		if ctx.Err() != nil {
			return Security{}, ctx.Err()
		}
		lastErr = err
		log.Debug().Err(err).Str("secid", secid).Str("market", market).Msg("security not found on market")
	}
	return Security{}, fmt.Errorf("%w: %s: %v", apperrors.ErrBondNotFoundAtSource, secid, lastErr)
}

// SearchISIN runs the exchange-wide securities search and keeps only rows whose
// ISIN matches exactly.
func (c *Client) SearchISIN(ctx context.Context, isin string) ([]Row, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	params := url.Values{}
	params.Set("q", isin)
	params.Set("iss.only", "securities")

	tables, err := c.query(ctx, c.httpClient, "/securities.json", params, "securities")
	if err != nil {
		return nil, err
	}

	var matches []Row
	for _, row := range tables["securities"].Rows() {
		if strings.EqualFold(row.String("isin"), isin) {
			matches = append(matches, row)
		}
	}
	return matches, nil
}

// ListMarket returns one page of a market's securities listing.
func (c *Client) ListMarket(ctx context.Context, market string, start, limit int) ([]Row, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("start", strconv.Itoa(start))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("iss.only", "securities")

	path := fmt.Sprintf("/engines/stock/markets/%s/securities.json", url.PathEscape(market))
	tables, err := c.query(ctx, c.listingClient, path, params, "securities")
	if err != nil {
		return nil, err
	}
	return tables["securities"].Rows(), nil
}

// ResolveISIN maps an ISIN to the exchange SECID: the exchange-wide search
// first, then a scan of every market listing in Markets order.
func (c *Client) ResolveISIN(ctx context.Context, isin string) (string, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	if !isinPattern.MatchString(isin) {
		return "", fmt.Errorf("%w: %q is not an ISIN", apperrors.ErrInvalidIdentifier, isin)
	}

	rows, err := c.SearchISIN(ctx, isin)
	if err != nil {
		log.Warn().Err(err).Str("isin", isin).Msg("ISS search failed, scanning markets")
	}
	for _, row := range rows {
		if secid := row.String("secid"); secid != "" {
			return secid, nil
		}
	}

	for _, market := range Markets {
		for start := 0; ; start += ListingPageSize {
			page, err := c.ListMarket(ctx, market, start, ListingPageSize)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				log.Warn().Err(err).Str("market", market).Msg("ISS market listing failed")
				break
			}
			for _, row := range page {
				if strings.EqualFold(row.String("ISIN"), isin) {
					return row.String("SECID"), nil
				}
			}
			if len(page) < ListingPageSize {
				break
			}
		}
	}

	return "", fmt.Errorf("%w: %s", apperrors.ErrBondNotFoundAtSource, isin)
}

// History returns the daily history rows of a bond between from and till, inclusive.
func (c *Client) History(ctx context.Context, secid string, from, till time.Time) ([]Row, error) {
	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("till", till.Format("2006-01-02"))
	params.Set("iss.only", "history")

	path := fmt.Sprintf("/history/engines/stock/markets/bonds/securities/%s.json", url.PathEscape(secid))
	tables, err := c.query(ctx, c.httpClient, path, params, "history")
	if err != nil {
		return nil, err
	}
	return tables["history"].Rows(), nil
}

// Bondization returns the coupon and amortization schedules of a bond.
func (c *Client) Bondization(ctx context.Context, secid string) (Bondization, error) {
	path := fmt.Sprintf("/securities/%s/bondization.json", url.PathEscape(secid))
	tables, err := c.query(ctx, c.httpClient, path, nil, "coupons", "amortizations")
	if err != nil {
		return Bondization{}, err
	}

	var b Bondization
	for _, row := range tables["coupons"].Rows() {
		date := row.Date("coupondate")
		if date == nil {
			continue
		}
		b.Coupons = append(b.Coupons, Coupon{
			Date:     *date,
			Value:    row.FloatPtr("value"),
			Currency: row.String("faceunit"),
		})
	}
	for _, row := range tables["amortizations"].Rows() {
		date := row.Date("amortdate")
		if date == nil {
			continue
		}
		b.Amortizations = append(b.Amortizations, Amortization{
			Date:  *date,
			Value: row.FloatPtr("value"),
		})
	}
	return b, nil
}
