package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/food-for-zot/grocer/internal/model"
)

var rankCmd = &cobra.Command{
	Use:   "rank <query>",
	Short: "Filter and order product results by relevance to a query",
	Long:  "Reads a JSON array of {name, price} records from stdin and prints the model-ranked subset.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var results []model.ProductResult
		if err := json.NewDecoder(os.Stdin).Decode(&results); err != nil {
			return eris.Wrap(err, "decode results from stdin")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ranked, err := env.Ranker.Rank(cmd.Context(), args[0], results)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
}
