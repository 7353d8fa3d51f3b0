package scrape

// DefaultRetailers is the builtin storefront table. Selectors track
// each retailer's current search-page markup and are overridable in
// config when a storefront ships a redesign.
//
// Target's card selector resolves to the title node itself, which
// never contains a price element, so that one entry reads the price
// document-wide: every Target card reports the first price on the
// page. Retailers whose cards wrap both title and price stay scoped
// to the card.
func DefaultRetailers() []Retailer {
	return []Retailer{
		{
			Name:          "walmart",
			URLTemplate:   "https://www.walmart.com/search?q=%s",
			Separator:     "+",
			CardSelector:  "div.mb1",
			TitleSelector: "a.w_iUH7",
			PriceSelector: "span.price-group",
			PriceScope:    PriceScopeCard,
		},
		{
			Name:          "target",
			URLTemplate:   "https://www.target.com/s?searchTerm=%s",
			Separator:     "+",
			CardSelector:  "div[data-test='product-title']",
			TitleSelector: "", // card element is the title node
			PriceSelector: "span[data-test='current-price']",
			PriceScope:    PriceScopeDocument,
		},
		{
			Name:          "kroger",
			URLTemplate:   "https://www.kroger.com/search?query=%s",
			Separator:     "-",
			CardSelector:  "div.ProductCard",
			TitleSelector: "span.kds-Text--m",
			PriceSelector: "data.kds-Price",
			PriceScope:    PriceScopeCard,
		},
	}
}
