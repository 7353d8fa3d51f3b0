package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grocerd",
	Short: "Grocery price aggregation and recipe backend",
	Long:  "Scrapes retailer storefronts and the pricing API for grocery prices, ranks results by relevance with a generative model, and serves the document CRUD API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
