// Package rank prunes and orders scraped product results by semantic
// closeness to the original query, using a generative model.
package rank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/pkg/llm"
)

// ErrInvalidInput is returned when the query or result list is empty.
var ErrInvalidInput = errors.New("rank: query and results are required")

// ErrModelUnavailable is returned when the model call itself fails.
// Unlike an unparseable response there is no fallback ranking to
// substitute, so this surfaces to the HTTP boundary as a 500.
var ErrModelUnavailable = errors.New("rank: model unavailable")

// unrankedSentinel sorts names the model did not mention after every
// ranked name. The membership filter drops them before output, so the
// sentinel only matters if filtering is ever relaxed.
const unrankedSentinel = 1 << 30

// Ranker filters and reorders product results by relevance.
type Ranker struct {
	completer llm.Completer
}

// New creates a Ranker on top of a completer.
func New(completer llm.Completer) *Ranker {
	return &Ranker{completer: completer}
}

// Rank asks the model to filter the result names down to direct
// matches or close substitutes for the query and order them
// most-to-least relevant, then reorders the input accordingly.
// Results whose name the model omitted are dropped. If the model's
// response cannot be parsed into a list, the original input is
// returned untouched: a ranking failure must never hide raw results.
func (r *Ranker) Rank(ctx context.Context, query string, results []model.ProductResult) ([]model.ProductResult, error) {
	if strings.TrimSpace(query) == "" || len(results) == 0 {
		return nil, ErrInvalidInput
	}

	names := make([]string, 0, len(results))
	for _, res := range results {
		if res.Name != "" {
			names = append(names, res.Name)
		}
	}
	if len(names) == 0 {
		return results, nil
	}

	response, err := r.completer.Complete(ctx, buildPrompt(query, names))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	ranked, ok := parseRankedList(response)
	if !ok {
		zap.L().Warn("rank: unparseable model response, returning unranked results",
			zap.String("query", query),
			zap.Int("results", len(results)),
		)
		return results, nil
	}

	index := make(map[string]int, len(ranked))
	for i, name := range ranked {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var kept []model.ProductResult
	for _, res := range results {
		if _, relevant := index[res.Name]; relevant {
			kept = append(kept, res)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return rankOf(index, kept[i].Name) < rankOf(index, kept[j].Name)
	})

	return kept, nil
}

func rankOf(index map[string]int, name string) int {
	if pos, ok := index[name]; ok {
		return pos
	}
	return unrankedSentinel
}

func buildPrompt(query string, names []string) string {
	encoded, _ := json.Marshal(names)
	return fmt.Sprintf(`A shopper searched for %q. Here are the product names that came back: %s

Remove every product that is not a direct match or a close substitute for the search. Exclude superficial keyword overlaps: for a "milk" search, "milk chocolate" must be excluded while "2%% milk" is kept. Sort the remaining names from most to least relevant.

Respond with only a JSON array of the kept names, nothing else.`, query, encoded)
}

// parseRankedList recovers an ordered name list from free-form model
// output. It tolerates prose preambles, trailing commentary, and
// markdown code fences by decoding the first bracket-delimited span.
func parseRankedList(response string) ([]string, bool) {
	cleaned := stripCodeFences(response)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var names []string
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &names); err != nil {
		return nil, false
	}
	return names, true
}

func stripCodeFences(s string) string {
	var sb strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
