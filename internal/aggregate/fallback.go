package aggregate

import (
	"context"

	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/internal/store"
)

// Fallback decides what a failed source's key holds in the response.
// Substituting keeps every configured source's key populated so
// callers can rely on response shape; it is intentional degraded-mode
// behavior, not silent data loss.
type Fallback interface {
	// Substitute returns replacement records for a failed source.
	// ok false omits the source's key entirely.
	Substitute(ctx context.Context, source, query string) (records []model.ProductResult, ok bool)
	// Observe is called with every successful extraction, letting
	// stateful strategies refresh what they would substitute.
	Observe(ctx context.Context, source, query string, results []model.ProductResult)
}

// PlaceholderFallback substitutes one canned record per failed
// source. This matches the historically observed behavior.
type PlaceholderFallback struct{}

func (PlaceholderFallback) Substitute(_ context.Context, source, query string) ([]model.ProductResult, bool) {
	return []model.ProductResult{{
		Name:  query + " (unavailable from " + source + ")",
		Price: "$0.00",
	}}, true
}

func (PlaceholderFallback) Observe(context.Context, string, string, []model.ProductResult) {}

// OmitFallback drops a failed source's key from the response.
type OmitFallback struct{}

func (OmitFallback) Substitute(context.Context, string, string) ([]model.ProductResult, bool) {
	return nil, false
}

func (OmitFallback) Observe(context.Context, string, string, []model.ProductResult) {}

// lastKnownGoodCollection is the document-store collection holding
// the most recent successful extraction per (source, query).
const lastKnownGoodCollection = "source_cache"

type cachedExtraction struct {
	Source  string                `json:"source"`
	Query   string                `json:"query"`
	Results []model.ProductResult `json:"results"`
}

// LastKnownGoodFallback substitutes the most recent successful result
// for the same source and query, persisted in the document store. A
// source that has never succeeded for the query gets its key omitted.
type LastKnownGoodFallback struct {
	docs store.DocStore
}

// NewLastKnownGoodFallback creates a fallback backed by the document
// store.
func NewLastKnownGoodFallback(docs store.DocStore) *LastKnownGoodFallback {
	return &LastKnownGoodFallback{docs: docs}
}

func cacheKey(source, query string) string {
	return source + ":" + query
}

func (f *LastKnownGoodFallback) Substitute(ctx context.Context, source, query string) ([]model.ProductResult, bool) {
	doc, err := f.docs.Get(ctx, lastKnownGoodCollection, cacheKey(source, query))
	if err != nil {
		return nil, false
	}
	var cached cachedExtraction
	if err := doc.Decode(&cached); err != nil {
		zap.L().Warn("aggregate: corrupt last-known-good entry",
			zap.String("source", source),
			zap.String("query", query),
			zap.Error(err),
		)
		return nil, false
	}
	return cached.Results, true
}

func (f *LastKnownGoodFallback) Observe(ctx context.Context, source, query string, results []model.ProductResult) {
	if len(results) == 0 {
		return
	}
	err := f.docs.Set(ctx, lastKnownGoodCollection, cacheKey(source, query), cachedExtraction{
		Source:  source,
		Query:   query,
		Results: results,
	})
	if err != nil {
		zap.L().Warn("aggregate: persist last-known-good failed",
			zap.String("source", source),
			zap.Error(err),
		)
	}
}
