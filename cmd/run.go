package cmd

import (
	"fmt"

	"github.com/solward/triarb/internal/app"
	"github.com/solward/triarb/pkg/config"
	"github.com/solward/triarb/pkg/logctx"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the search loop",
	Long: `Starts the trading engine, which will:
1. Clamp configured trade sizes to the on-chain anchor balance
2. Maintain a fresh anchor USD price from redundant oracle sources
3. Rotate through the configured intermediate ring, probing round-trip
   swap quotes at several sizes each iteration
4. Submit the best eligible round trip under MEV protection, when
   trading is enabled`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logctx.New()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
