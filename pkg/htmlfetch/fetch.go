// Package htmlfetch retrieves a URL's markup and parses it into a
// queryable goquery document for the retailer extractors.
package htmlfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (compatible; GroceryScraper/1.0)"

// FetchError reports a failed page retrieval. StatusCode is zero for
// transport-level failures (DNS, timeout, connection reset).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("htmlfetch: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("htmlfetch: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be parsed into a
// document tree.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("htmlfetch: parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Fetcher issues GET requests with a fixed user-agent and parses
// responses into goquery documents. A shared limiter keeps request
// rates polite across all retailer extractors using the same Fetcher.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.client = hc }
}

// WithRateLimit bounds outgoing requests to r per second with the
// given burst. Zero r disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(f *Fetcher) {
		if r > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// New creates a Fetcher with a 10 second timeout.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs targetURL and parses the body. A non-2xx status or a
// transport failure returns a *FetchError; a body that cannot be
// parsed returns a *ParseError. There are no retries: the caller
// treats a failed fetch as "this source produced nothing".
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*goquery.Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "htmlfetch: rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "htmlfetch: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &ParseError{URL: targetURL, Err: err}
	}
	return doc, nil
}
