// Package cmd implements the CLI commands for the catalog-sync service.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "catalog-sync",
	Short: "Sync catalog data from the external provider",
	Long:  "A service that pulls products, categories and trademarks from the external point-of-sale catalog provider and reconciles them into PostgreSQL, on a schedule or on demand.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
