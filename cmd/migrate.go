package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the document-store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = docs.Close() }()

		if err := docs.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("migration complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
