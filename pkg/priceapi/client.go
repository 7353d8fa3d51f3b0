// Package priceapi provides a client for the third-party structured
// grocery pricing API.
package priceapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.grocerypricing.io"

// Record is one raw price observation as returned by the API. The
// upstream schema is loose, so fields beyond the ones we read are
// preserved in Extra.
type Record struct {
	StoreID     string          `json:"store_id"`
	ProductName string          `json:"product_name"`
	Price       string          `json:"price"`
	Currency    string          `json:"currency"`
	ObservedAt  string          `json:"observed_at"`
	Extra       json.RawMessage `json:"-"`
}

// LookupRequest describes one price lookup.
type LookupRequest struct {
	Stores      []string
	ProductName string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD
	Currency    string
}

// Client defines the pricing API operations used by the aggregator.
type Client interface {
	Lookup(ctx context.Context, req LookupRequest) ([]Record, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a pricing API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Lookup issues one authenticated GET for the request's store set and
// date window. The response is a JSON array of records.
func (c *httpClient) Lookup(ctx context.Context, req LookupRequest) ([]Record, error) {
	params := url.Values{}
	params.Set("stores", strings.Join(req.Stores, ","))
	params.Set("productname", req.ProductName)
	params.Set("start_date", req.StartDate)
	params.Set("end_date", req.EndDate)
	params.Set("currency", req.Currency)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/prices?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "priceapi: create request")
	}
	httpReq.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "priceapi: send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "priceapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("priceapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, eris.Wrap(err, "priceapi: decode response")
	}
	return records, nil
}
