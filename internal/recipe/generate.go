// Package recipe generates recipes from a pantry's worth of
// ingredients via the generative-model collaborator.
package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/pkg/llm"
)

// ErrInvalidRequest is returned when no ingredients were supplied.
var ErrInvalidRequest = errors.New("recipe: at least one ingredient is required")

// ErrUnparseableResponse is returned when the model's output holds no
// decodable recipe. Unlike ranking there is no raw list to fall back
// to, so this surfaces to the caller.
var ErrUnparseableResponse = errors.New("recipe: model response is not a recipe")

// Generator builds recipes with the model.
type Generator struct {
	completer llm.Completer
}

// New creates a Generator on top of a completer.
func New(completer llm.Completer) *Generator {
	return &Generator{completer: completer}
}

// Generate asks the model for one recipe and decodes the response.
func (g *Generator) Generate(ctx context.Context, req model.RecipeRequest) (*model.Recipe, error) {
	if len(req.Ingredients) == 0 {
		return nil, ErrInvalidRequest
	}

	response, err := g.completer.Complete(ctx, buildPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("recipe: generate: %w", err)
	}

	parsed, ok := parseRecipe(response)
	if !ok {
		return nil, ErrUnparseableResponse
	}
	return parsed, nil
}

func buildPrompt(req model.RecipeRequest) string {
	var sb strings.Builder
	sb.WriteString("Write one recipe using these ingredients: ")
	sb.WriteString(strings.Join(req.Ingredients, ", "))
	sb.WriteString(".")
	if len(req.Dietary) > 0 {
		sb.WriteString(" Dietary constraints: ")
		sb.WriteString(strings.Join(req.Dietary, ", "))
		sb.WriteString(".")
	}
	if req.Cuisine != "" {
		sb.WriteString(" Cuisine: ")
		sb.WriteString(req.Cuisine)
		sb.WriteString(".")
	}
	if req.Servings > 0 {
		fmt.Fprintf(&sb, " Servings: %d.", req.Servings)
	}
	sb.WriteString(`

Respond with only a JSON object with keys "title", "ingredients" (array of strings with quantities), "instructions" (array of steps), "prep_minutes", "cook_minutes" and "servings". No other text.`)
	return sb.String()
}

// parseRecipe decodes the first object-delimited span of the model's
// output, tolerating prose and markdown fences around it.
func parseRecipe(response string) (*model.Recipe, bool) {
	var cleaned strings.Builder
	for _, line := range strings.Split(response, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteString("\n")
	}

	text := cleaned.String()
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var rec model.Recipe
	if err := json.Unmarshal([]byte(text[start:end+1]), &rec); err != nil {
		return nil, false
	}
	if rec.Title == "" || len(rec.Ingredients) == 0 || len(rec.Instructions) == 0 {
		return nil, false
	}
	return &rec, true
}
