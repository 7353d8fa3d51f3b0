// Package scrape turns a grocery query into bounded per-source price
// lists, one Source per retailer storefront or pricing API.
package scrape

import (
	"context"

	"github.com/food-for-zot/grocer/internal/model"
)

// Source is one external price-providing origin.
type Source interface {
	// Name is the key this source's results appear under in a
	// SourceResultSet.
	Name() string
	// Extract returns at most this source's cap of product results
	// for the query. A selector that matches nothing is not an
	// error; only a failed fetch or parse is.
	Extract(ctx context.Context, query string) ([]model.ProductResult, error)
}
