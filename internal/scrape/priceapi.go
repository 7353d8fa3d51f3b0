package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/pkg/priceapi"
)

// maxStoreRecords caps how many raw API records one store id
// contributes to an aggregation.
const maxStoreRecords = 3

// DefaultCurrency is sent when the caller does not pick one; the API
// resolves it to each store's local currency.
const DefaultCurrency = "Default"

// StoreSource queries the structured pricing API for one store id.
// Each configured store is its own Source, so a store's failure is
// isolated by the aggregator exactly like a failed storefront scrape.
type StoreSource struct {
	storeID  string
	currency string
	window   time.Duration
	client   priceapi.Client
	now      func() time.Time
}

// NewStoreSource creates a Source backed by the pricing API for one
// store id. The lookup window covers the trailing seven days.
func NewStoreSource(client priceapi.Client, storeID, currency string) *StoreSource {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &StoreSource{
		storeID:  storeID,
		currency: currency,
		window:   7 * 24 * time.Hour,
		client:   client,
		now:      time.Now,
	}
}

// WithNow fixes the clock for testing.
func (s *StoreSource) WithNow(now func() time.Time) *StoreSource {
	s.now = now
	return s
}

func (s *StoreSource) Name() string { return s.storeID }

// Extract looks up recent prices for the query at this store and
// keeps at most the first three records with a usable name and price.
func (s *StoreSource) Extract(ctx context.Context, query string) ([]model.ProductResult, error) {
	end := s.now()
	start := end.Add(-s.window)

	records, err := s.client.Lookup(ctx, priceapi.LookupRequest{
		Stores:      []string{s.storeID},
		ProductName: query,
		StartDate:   start.Format("2006-01-02"),
		EndDate:     end.Format("2006-01-02"),
		Currency:    s.currency,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: store %s", s.storeID)
	}

	var results []model.ProductResult
	for _, rec := range records {
		name := strings.TrimSpace(rec.ProductName)
		price := strings.TrimSpace(rec.Price)
		if name == "" || price == "" {
			continue
		}
		results = append(results, model.ProductResult{Name: name, Price: price})
		if len(results) >= maxStoreRecords {
			break
		}
	}
	return results, nil
}
