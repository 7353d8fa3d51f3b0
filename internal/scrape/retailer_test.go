package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/food-for-zot/grocer/pkg/htmlfetch"
)

func testRetailer(baseURL string) Retailer {
	return Retailer{
		Name:          "testmart",
		URLTemplate:   baseURL + "/search?q=%s",
		Separator:     "+",
		CardSelector:  "div.card",
		TitleSelector: "a.title",
		PriceSelector: "span.price",
		PriceScope:    PriceScopeCard,
	}
}

func productCard(name, price string) string {
	return fmt.Sprintf(`<div class="card"><a class="title">%s</a><span class="price">%s</span></div>`, name, price)
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>" + html + "</body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRetailer_SearchURL(t *testing.T) {
	t.Parallel()
	r := Retailer{URLTemplate: "https://shop.example/s?q=%s", Separator: "-"}
	assert.Equal(t, "https://shop.example/s?q=whole-milk", r.SearchURL("whole milk"))
	assert.Equal(t, "https://shop.example/s?q=eggs", r.SearchURL("  eggs "))
}

func TestRetailerSource_Extract(t *testing.T) {
	srv := serveHTML(t, productCard("2% Milk", "$2.99")+productCard("Whole Milk", "$3.49"))

	src := NewRetailerSource(testRetailer(srv.URL), htmlfetch.New())
	results, err := src.Extract(context.Background(), "milk")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2% Milk", results[0].Name)
	assert.Equal(t, "$2.99", results[0].Price)
	assert.Equal(t, "Whole Milk", results[1].Name)
}

func TestRetailerSource_CapsAtFive(t *testing.T) {
	var cards strings.Builder
	for i := 0; i < 9; i++ {
		cards.WriteString(productCard(fmt.Sprintf("Milk %d", i), "$1.00"))
	}
	srv := serveHTML(t, cards.String())

	src := NewRetailerSource(testRetailer(srv.URL), htmlfetch.New())
	results, err := src.Extract(context.Background(), "milk")
	require.NoError(t, err)
	assert.Len(t, results, maxRetailerResults)
	assert.Equal(t, "Milk 0", results[0].Name)
	assert.Equal(t, "Milk 4", results[4].Name)
}

func TestRetailerSource_DropsIncompleteCards(t *testing.T) {
	srv := serveHTML(t,
		productCard("No Price", "")+
			productCard("", "$9.99")+
			`<div class="card"><a class="title">  </a><span class="price">$1.00</span></div>`+
			productCard("Kept", "$2.50"),
	)

	src := NewRetailerSource(testRetailer(srv.URL), htmlfetch.New())
	results, err := src.Extract(context.Background(), "milk")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Kept", results[0].Name)
}

func TestRetailerSource_SelectorMismatchIsEmptyNotError(t *testing.T) {
	srv := serveHTML(t, `<div class="unrelated">nothing here</div>`)

	src := NewRetailerSource(testRetailer(srv.URL), htmlfetch.New())
	results, err := src.Extract(context.Background(), "milk")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetailerSource_DocumentScopedPrice(t *testing.T) {
	// One shared price node outside the cards; every card reports it.
	srv := serveHTML(t,
		`<span class="price">$4.20</span>`+
			`<div class="card"><a class="title">First</a></div>`+
			`<div class="card"><a class="title">Second</a></div>`,
	)

	retailer := testRetailer(srv.URL)
	retailer.PriceScope = PriceScopeDocument
	src := NewRetailerSource(retailer, htmlfetch.New())

	results, err := src.Extract(context.Background(), "milk")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "$4.20", results[0].Price)
	assert.Equal(t, "$4.20", results[1].Price)
}

func TestRetailerSource_EmptyTitleSelectorUsesCard(t *testing.T) {
	srv := serveHTML(t,
		`<span class="price">$4.20</span><div class="card">Card Is Title</div>`,
	)

	retailer := testRetailer(srv.URL)
	retailer.TitleSelector = ""
	retailer.PriceScope = PriceScopeDocument
	src := NewRetailerSource(retailer, htmlfetch.New())

	results, err := src.Extract(context.Background(), "milk")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Card Is Title", results[0].Name)
}

func TestRetailerSource_FetchFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewRetailerSource(testRetailer(srv.URL), htmlfetch.New())
	_, err := src.Extract(context.Background(), "milk")
	require.Error(t, err)

	var fetchErr *htmlfetch.FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestDefaultRetailers(t *testing.T) {
	t.Parallel()
	retailers := DefaultRetailers()
	require.Len(t, retailers, 3)

	names := make(map[string]Retailer, len(retailers))
	for _, r := range retailers {
		names[r.Name] = r
	}
	assert.Contains(t, names, "walmart")
	assert.Contains(t, names, "target")
	assert.Contains(t, names, "kroger")
	assert.Equal(t, PriceScopeDocument, names["target"].PriceScope)
	assert.Equal(t, "-", names["kroger"].Separator)
}
