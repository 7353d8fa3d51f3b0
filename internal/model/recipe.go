package model

// RecipeRequest describes what the caller wants generated.
type RecipeRequest struct {
	Ingredients []string `json:"ingredients"`
	Dietary     []string `json:"dietary,omitempty"`
	Servings    int      `json:"servings,omitempty"`
	Cuisine     string   `json:"cuisine,omitempty"`
}

// Recipe is a generated recipe as returned by the model and parsed
// into structure.
type Recipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepMinutes  int      `json:"prep_minutes,omitempty"`
	CookMinutes  int      `json:"cook_minutes,omitempty"`
	Servings     int      `json:"servings,omitempty"`
}

// RankRequest is the body of POST /api/prices/rank.
type RankRequest struct {
	Query   string          `json:"query"`
	Results []ProductResult `json:"results"`
}
