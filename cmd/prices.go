package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var pricesCmd = &cobra.Command{
	Use:   "prices <grocery item>",
	Short: "Aggregate prices for one item across all configured sources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Aggregator.Aggregate(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	rootCmd.AddCommand(pricesCmd)
}
