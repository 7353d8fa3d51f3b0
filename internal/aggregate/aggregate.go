// Package aggregate fans one grocery query out to every configured
// price source and merges the results with per-source failure
// isolation.
package aggregate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/internal/scrape"
)

// ErrInvalidQuery is returned for an empty query string. It is the
// only error an aggregation call can surface; individual source
// failures never propagate past this layer.
var ErrInvalidQuery = errors.New("aggregate: grocery query is required")

const (
	defaultPerSourceTimeout = 15 * time.Second
	defaultMaxConcurrent    = 4
)

// Aggregator runs every configured source for one query.
type Aggregator struct {
	sources          []scrape.Source
	fallback         Fallback
	perSourceTimeout time.Duration
	maxConcurrent    int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPerSourceTimeout bounds each source's extraction.
func WithPerSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.perSourceTimeout = d
		}
	}
}

// WithMaxConcurrent bounds how many sources run at once.
func WithMaxConcurrent(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxConcurrent = n
		}
	}
}

// WithFallback sets the degraded-mode strategy for failed sources.
func WithFallback(f Fallback) Option {
	return func(a *Aggregator) {
		if f != nil {
			a.fallback = f
		}
	}
}

// New creates an Aggregator over the given sources. The default
// fallback substitutes a canned placeholder record per failed source.
func New(sources []scrape.Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:          sources,
		fallback:         PlaceholderFallback{},
		perSourceTimeout: defaultPerSourceTimeout,
		maxConcurrent:    defaultMaxConcurrent,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate runs all sources concurrently and collects each source's
// results under its name. Sources share nothing; each key of the
// result map is written exactly once. A failed source gets its
// fallback substitution instead of aborting the others.
func (a *Aggregator) Aggregate(ctx context.Context, query string) (*model.AggregateResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	var (
		mu      sync.Mutex
		results = make(model.SourceResultSet, len(a.sources))
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)

	for _, src := range a.sources {
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(gCtx, a.perSourceTimeout)
			defer cancel()

			extracted, err := src.Extract(srcCtx, query)
			if err != nil {
				zap.L().Warn("aggregate: source failed, substituting fallback",
					zap.String("source", src.Name()),
					zap.String("query", query),
					zap.Error(err),
				)
				substitute, ok := a.fallback.Substitute(ctx, src.Name(), query)
				if ok {
					mu.Lock()
					results[src.Name()] = substitute
					mu.Unlock()
				}
				return nil
			}

			a.fallback.Observe(ctx, src.Name(), query, extracted)

			if extracted == nil {
				extracted = []model.ProductResult{}
			}
			mu.Lock()
			results[src.Name()] = extracted
			mu.Unlock()
			return nil
		})
	}

	// Source errors are absorbed above; Wait cannot fail.
	_ = g.Wait()

	return &model.AggregateResponse{
		Grocery: query,
		Results: results,
	}, nil
}
