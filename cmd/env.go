package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/aggregate"
	"github.com/food-for-zot/grocer/internal/config"
	"github.com/food-for-zot/grocer/internal/rank"
	"github.com/food-for-zot/grocer/internal/recipe"
	"github.com/food-for-zot/grocer/internal/scrape"
	"github.com/food-for-zot/grocer/internal/store"
	"github.com/food-for-zot/grocer/pkg/htmlfetch"
	"github.com/food-for-zot/grocer/pkg/llm"
	"github.com/food-for-zot/grocer/pkg/priceapi"
)

// env holds the wired components shared by the commands. Every
// client and store is constructed here and passed down explicitly;
// nothing reaches into hidden globals.
type env struct {
	Docs       store.DocStore
	Aggregator *aggregate.Aggregator
	Ranker     *rank.Ranker
	Recipes    *recipe.Generator
}

func (e *env) Close() {
	if e.Docs != nil {
		if err := e.Docs.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initEnv builds the component graph from config.
func initEnv(ctx context.Context) (*env, error) {
	docs, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	completer := llm.NewAnthropic(cfg.Anthropic.Key,
		llm.WithModel(cfg.Anthropic.Model),
		llm.WithMaxTokens(cfg.Anthropic.MaxTokens),
	)

	e := &env{
		Docs:       docs,
		Aggregator: buildAggregator(docs),
		Ranker:     rank.New(completer),
		Recipes:    recipe.New(completer),
	}
	return e, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.DocStore, error) {
	switch sc.Driver {
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(sc.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", sc.Driver)
	}
}

func buildAggregator(docs store.DocStore) *aggregate.Aggregator {
	fetcher := htmlfetch.New(
		htmlfetch.WithRateLimit(cfg.Scrape.RequestsPerSec, cfg.Scrape.Burst),
	)

	retailers := cfg.Scrape.Retailers
	if len(retailers) == 0 {
		retailers = scrape.DefaultRetailers()
	}

	var sources []scrape.Source
	for _, r := range retailers {
		sources = append(sources, scrape.NewRetailerSource(r, fetcher))
	}

	if cfg.PriceAPI.Key != "" {
		client := priceapi.NewClient(cfg.PriceAPI.Key,
			priceapi.WithBaseURL(cfg.PriceAPI.BaseURL),
		)
		for _, storeID := range cfg.PriceAPI.Stores {
			sources = append(sources, scrape.NewStoreSource(client, storeID, cfg.PriceAPI.Currency))
		}
	}

	return aggregate.New(sources,
		aggregate.WithPerSourceTimeout(time.Duration(cfg.Aggregate.PerSourceTimeoutSecs)*time.Second),
		aggregate.WithMaxConcurrent(cfg.Aggregate.MaxConcurrent),
		aggregate.WithFallback(buildFallback(docs)),
	)
}

func buildFallback(docs store.DocStore) aggregate.Fallback {
	switch cfg.Aggregate.Fallback {
	case "omit":
		return aggregate.OmitFallback{}
	case "last_known_good":
		return aggregate.NewLastKnownGoodFallback(docs)
	default:
		return aggregate.PlaceholderFallback{}
	}
}
