package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/food-for-zot/grocer/internal/aggregate"
	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/internal/rank"
	"github.com/food-for-zot/grocer/internal/recipe"
	"github.com/food-for-zot/grocer/internal/scrape"
	"github.com/food-for-zot/grocer/internal/store"
)

type fakeSource struct {
	name    string
	results []model.ProductResult
	err     error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Extract(context.Context, string) ([]model.ProductResult, error) {
	return f.results, f.err
}

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(context.Context, string) (string, error) {
	return f.response, f.err
}

func newTestServer(t *testing.T, completer *fakeCompleter, sources ...scrape.Source) http.Handler {
	t.Helper()

	docs, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, docs.Migrate(context.Background()))
	t.Cleanup(func() { _ = docs.Close() })

	if completer == nil {
		completer = &fakeCompleter{response: "[]"}
	}
	if len(sources) == 0 {
		sources = []scrape.Source{&fakeSource{
			name:    "walmart",
			results: []model.ProductResult{{Name: "2% Milk", Price: "$2.99"}},
		}}
	}

	srv := New(
		aggregate.New(sources),
		rank.New(completer),
		recipe.New(completer),
		docs,
	)
	return srv.Router([]string{"*"})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrices(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/prices?grocery=milk", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "milk", resp.Grocery)
	require.Contains(t, resp.Results, "walmart")
	assert.Equal(t, "2% Milk", resp.Results["walmart"][0].Name)
}

func TestPrices_MissingParam(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/prices", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestPrices_FailingSourceStillResponds(t *testing.T) {
	h := newTestServer(t, nil,
		&fakeSource{name: "walmart", err: errors.New("blocked")},
		&fakeSource{name: "target", results: []model.ProductResult{{Name: "Milk", Price: "$3.00"}}},
	)
	rec := doJSON(t, h, http.MethodGet, "/api/prices?grocery=milk", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Results, "walmart")
	assert.Contains(t, resp.Results, "target")
}

func TestRankEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeCompleter{response: `["Organic Whole Milk", "2% Milk"]`})
	body := `{"query":"milk","results":[{"name":"2% Milk","price":"$2.99"},{"name":"Milk Chocolate","price":"$4.50"},{"name":"Organic Whole Milk","price":"$5.99"}]}`

	rec := doJSON(t, h, http.MethodPost, "/api/prices/rank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var ranked []model.ProductResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, "Organic Whole Milk", ranked[0].Name)
}

func TestRankEndpoint_InvalidInput(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/prices/rank", `{"query":"","results":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/prices/rank", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankEndpoint_ModelUnavailable(t *testing.T) {
	h := newTestServer(t, &fakeCompleter{err: errors.New("quota exceeded")})
	body := `{"query":"milk","results":[{"name":"2% Milk","price":"$2.99"}]}`

	rec := doJSON(t, h, http.MethodPost, "/api/prices/rank", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGenerateRecipe(t *testing.T) {
	h := newTestServer(t, &fakeCompleter{response: `{"title":"Omelette","ingredients":["2 eggs"],"instructions":["Beat.","Fry."]}`})

	rec := doJSON(t, h, http.MethodPost, "/api/recipes/generate", `{"ingredients":["eggs"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Omelette", got.Title)
}

func TestGenerateRecipe_NoIngredients(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodPost, "/api/recipes/generate", `{"ingredients":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentCRUD(t *testing.T) {
	h := newTestServer(t, nil)

	// Create
	rec := doJSON(t, h, http.MethodPost, "/api/users", `{"name":"Peter","email":"peter@uci.edu"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotEmpty(t, id)

	// Read
	rec = doJSON(t, h, http.MethodGet, "/api/users/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Peter", doc["name"])
	assert.Equal(t, id, doc["id"])

	// Update
	rec = doJSON(t, h, http.MethodPatch, "/api/users/"+id, `{"email":"anteater@uci.edu"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/users/"+id, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "anteater@uci.edu", doc["email"])
	assert.Equal(t, "Peter", doc["name"])

	// List
	rec = doJSON(t, h, http.MethodGet, "/api/users/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Delete
	rec = doJSON(t, h, http.MethodDelete, "/api/users/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/users/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentNotFound(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/recipes/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/lists/missing", `{"x":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/users/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListItemsMutations(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/lists", `{"title":"Weekly","items":["milk"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]

	// Union
	rec = doJSON(t, h, http.MethodPost, "/api/lists/"+id+"/items", `{"items":["eggs","milk"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/lists/"+id, "")
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, []any{"milk", "eggs"}, doc["items"])

	// Remove
	rec = doJSON(t, h, http.MethodDelete, "/api/lists/"+id+"/items", `{"items":["milk"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/lists/"+id, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, []any{"eggs"}, doc["items"])

	// Missing items
	rec = doJSON(t, h, http.MethodPost, "/api/lists/"+id+"/items", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
