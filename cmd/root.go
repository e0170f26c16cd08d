package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "triarb",
	Short: "Triangular-arbitrage DEX-aggregator trading engine",
	Long: `A search loop that rotates a single anchor asset through a ring
of intermediates, probes round-trip swap quotes at several sizes
against a DEX aggregator, and submits the best eligible round trip
under MEV protection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine in production, where real env vars are
		// already set; only report genuine parse errors.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
}
