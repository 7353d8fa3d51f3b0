package model

// ProductResult is a single scraped product match. Price stays a
// retailer-formatted string (currency symbol included); no numeric
// type is derived from it.
type ProductResult struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// SourceResultSet maps a source identifier ("walmart", "target", a
// price-API store id) to that source's matches in discovery order.
// Keys are independent of each other; order across keys carries no
// meaning.
type SourceResultSet map[string][]ProductResult

// AggregateResponse is the externally visible artifact of one
// aggregation call.
type AggregateResponse struct {
	Grocery string          `json:"grocery"`
	Results SourceResultSet `json:"results"`
}
