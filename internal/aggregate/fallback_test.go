package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/food-for-zot/grocer/internal/scrape"
	"github.com/food-for-zot/grocer/internal/store"
)

func newMemoryStore(t *testing.T) store.DocStore {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPlaceholderFallback(t *testing.T) {
	t.Parallel()
	records, ok := PlaceholderFallback{}.Substitute(context.Background(), "walmart", "milk")
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].Name)
	assert.NotEmpty(t, records[0].Price)
}

func TestOmitFallback(t *testing.T) {
	t.Parallel()
	_, ok := OmitFallback{}.Substitute(context.Background(), "walmart", "milk")
	assert.False(t, ok)
}

func TestLastKnownGoodFallback_NoHistory(t *testing.T) {
	f := NewLastKnownGoodFallback(newMemoryStore(t))
	_, ok := f.Substitute(context.Background(), "walmart", "milk")
	assert.False(t, ok)
}

func TestLastKnownGoodFallback_RoundTrip(t *testing.T) {
	f := NewLastKnownGoodFallback(newMemoryStore(t))
	ctx := context.Background()

	results := milkResults("WM")
	f.Observe(ctx, "walmart", "milk", results)

	got, ok := f.Substitute(ctx, "walmart", "milk")
	require.True(t, ok)
	assert.Equal(t, results, got)

	// A different query has no history.
	_, ok = f.Substitute(ctx, "walmart", "eggs")
	assert.False(t, ok)
}

func TestLastKnownGoodFallback_IgnoresEmptyObservations(t *testing.T) {
	f := NewLastKnownGoodFallback(newMemoryStore(t))
	ctx := context.Background()

	f.Observe(ctx, "walmart", "milk", milkResults("WM"))
	f.Observe(ctx, "walmart", "milk", nil)

	got, ok := f.Substitute(ctx, "walmart", "milk")
	require.True(t, ok)
	assert.Equal(t, milkResults("WM"), got)
}

func TestAggregate_LastKnownGoodSubstitution(t *testing.T) {
	docs := newMemoryStore(t)
	fallback := NewLastKnownGoodFallback(docs)
	ctx := context.Background()

	healthy := &fakeSource{name: "walmart", results: milkResults("WM")}
	a := New([]scrape.Source{healthy}, WithFallback(fallback))

	// First aggregation succeeds and is remembered.
	first, err := a.Aggregate(ctx, "milk")
	require.NoError(t, err)
	require.Equal(t, milkResults("WM"), first.Results["walmart"])

	// Source starts failing; the remembered results are substituted.
	healthy.err = errors.New("blocked")
	healthy.results = nil

	second, err := a.Aggregate(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, milkResults("WM"), second.Results["walmart"])

	// A query with no history gets its key omitted.
	third, err := a.Aggregate(ctx, "eggs")
	require.NoError(t, err)
	assert.NotContains(t, third.Results, "walmart")
}
