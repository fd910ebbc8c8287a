package corpbonds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
)

// Fetcher retrieves and parses one bond page. Implemented by *Client and by test fakes.
type Fetcher interface {
	Fetch(ctx context.Context, code string, isOFZ bool) (Record, error)
}

// Client fetches bond pages over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the site rooted at baseURL. The client keeps
// cookies between requests the way a browser session would.
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		log.Warn().Err(err).Msg("failed to create cookie jar for corpbonds client")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}
}

// Fetch downloads the page for code and parses it. code is the ISIN, or the
// SECID for OFZ bonds.
func (c *Client) Fetch(ctx context.Context, code string, isOFZ bool) (Record, error) {
	pageURL := c.baseURL + "/bond/" + url.PathEscape(code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to build corpbonds request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("%w: corpbonds %s: %v", apperrors.ErrProviderUnavailable, code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Record{}, fmt.Errorf("%w: corpbonds %s: HTTP %d", apperrors.ErrProviderStatus, code, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Record{}, fmt.Errorf("%w: corpbonds %s: %v", apperrors.ErrProviderPayload, code, err)
	}

	rec := Parse(doc, isOFZ)
	log.Debug().Str("code", code).Bool("ofz", isOFZ).Interface("record", rec).Msg("corpbonds page parsed")
	return rec, nil
}
