package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/food-for-zot/grocer/internal/model"
)

var (
	recipeDietary  []string
	recipeCuisine  string
	recipeServings int
)

var recipeCmd = &cobra.Command{
	Use:   "recipe <ingredient> [ingredient...]",
	Short: "Generate a recipe from a list of ingredients",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Recipes.Generate(cmd.Context(), model.RecipeRequest{
			Ingredients: args,
			Dietary:     recipeDietary,
			Cuisine:     recipeCuisine,
			Servings:    recipeServings,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	recipeCmd.Flags().StringSliceVar(&recipeDietary, "dietary", nil, "dietary constraints (e.g. vegan, gluten-free)")
	recipeCmd.Flags().StringVar(&recipeCuisine, "cuisine", "", "preferred cuisine")
	recipeCmd.Flags().IntVar(&recipeServings, "servings", 0, "number of servings")
	rootCmd.AddCommand(recipeCmd)
}
