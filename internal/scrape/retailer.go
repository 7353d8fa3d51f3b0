package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/pkg/htmlfetch"
)

// maxRetailerResults caps how many product cards one storefront
// contributes to an aggregation.
const maxRetailerResults = 5

// PriceScope controls where a card's price element is looked up.
type PriceScope string

const (
	// PriceScopeCard resolves the price selector relative to the
	// current product card.
	PriceScopeCard PriceScope = "card"
	// PriceScopeDocument resolves the price selector against the
	// whole page, so every card reports the first price on the
	// page. Some storefront markups only expose a usable price
	// that way; it is selectable per retailer rather than fixed.
	PriceScopeDocument PriceScope = "document"
)

// Retailer configures one storefront extractor. A single shared
// algorithm interprets the table; retailers differ only in data.
type Retailer struct {
	Name          string     `yaml:"name" mapstructure:"name"`
	URLTemplate   string     `yaml:"url_template" mapstructure:"url_template"`
	Separator     string     `yaml:"separator" mapstructure:"separator"`
	CardSelector  string     `yaml:"card_selector" mapstructure:"card_selector"`
	TitleSelector string     `yaml:"title_selector" mapstructure:"title_selector"`
	PriceSelector string     `yaml:"price_selector" mapstructure:"price_selector"`
	PriceScope    PriceScope `yaml:"price_scope" mapstructure:"price_scope"`
}

// SearchURL builds the retailer's search URL for a query, joining
// query words with the retailer's separator.
func (r Retailer) SearchURL(query string) string {
	joined := strings.Join(strings.Fields(query), r.Separator)
	return fmt.Sprintf(r.URLTemplate, joined)
}

// RetailerSource extracts product results from one storefront's
// search page using the retailer's structural selectors.
type RetailerSource struct {
	retailer Retailer
	fetcher  *htmlfetch.Fetcher
}

// NewRetailerSource creates a Source for one retailer table entry.
func NewRetailerSource(r Retailer, fetcher *htmlfetch.Fetcher) *RetailerSource {
	if r.PriceScope == "" {
		r.PriceScope = PriceScopeCard
	}
	return &RetailerSource{retailer: r, fetcher: fetcher}
}

func (s *RetailerSource) Name() string { return s.retailer.Name }

// Extract fetches the retailer's search page and walks product cards
// in document order. Cards missing a title or price after trimming
// are dropped rather than reported.
func (s *RetailerSource) Extract(ctx context.Context, query string) ([]model.ProductResult, error) {
	searchURL := s.retailer.SearchURL(query)

	doc, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: %s", s.retailer.Name)
	}

	var results []model.ProductResult
	doc.Find(s.retailer.CardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := strings.TrimSpace(s.title(card))
		price := strings.TrimSpace(s.price(doc, card))
		if title == "" || price == "" {
			return true
		}
		results = append(results, model.ProductResult{Name: title, Price: price})
		return len(results) < maxRetailerResults
	})

	zap.L().Debug("scrape: retailer extract complete",
		zap.String("source", s.retailer.Name),
		zap.String("query", query),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// title resolves the card's title text. An empty TitleSelector means
// the card element itself carries the title text (Target's markup,
// where the card selector already targets the title node).
func (s *RetailerSource) title(card *goquery.Selection) string {
	if s.retailer.TitleSelector == "" {
		return card.Text()
	}
	return card.Find(s.retailer.TitleSelector).First().Text()
}

func (s *RetailerSource) price(doc *goquery.Document, card *goquery.Selection) string {
	if s.retailer.PriceScope == PriceScopeDocument {
		return doc.Find(s.retailer.PriceSelector).First().Text()
	}
	return card.Find(s.retailer.PriceSelector).First().Text()
}
