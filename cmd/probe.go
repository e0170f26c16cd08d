package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/solward/triarb/internal/app"
	"github.com/solward/triarb/internal/oracle"
	"github.com/solward/triarb/internal/quote"
	"github.com/solward/triarb/internal/sizer"
	"github.com/solward/triarb/internal/triarb"
	"github.com/solward/triarb/pkg/config"
	"github.com/solward/triarb/pkg/logctx"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var probeCmd = &cobra.Command{
	Use:   "probe <intermediate-symbol> <size>",
	Short: "Run a single one-shot two-leg probe and print the result",
	Long: `Quotes one round trip (anchor -> intermediate -> anchor) at the
given size against the configured aggregator, without touching the
search loop or submitting anything. Useful for sanity-checking
aggregator connectivity and profit-floor configuration.`,
	Args: cobra.ExactArgs(2),
	RunE: runProbe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	symbol := args[0]
	size, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parse size: %w", err)
	}

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

	intermediate, ok := app.FindIntermediate(symbol)
	if !ok {
		return fmt.Errorf("unknown intermediate symbol %q", symbol)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	priceOracle := oracle.New(oracle.Config{
		Sources: []oracle.Source{
			oracle.NewHTTPSource("coingecko", "https://api.coingecko.com/api/v3/simple/price?ids=usd-coin&vs_currencies=usd", "", false, oracle.ParseJSONField("price")),
		},
		RefreshInterval: cfg.PriceRefreshInterval,
		PriceBandMin:    cfg.PriceBandMin,
		PriceBandMax:    cfg.PriceBandMax,
		Logger:          logger,
	})
	if err := priceOracle.ForceRefresh(ctx); err != nil {
		return fmt.Errorf("fetch anchor price: %w", err)
	}
	anchorUSD, _ := priceOracle.Current()

	quoteClient := quote.New(quote.Config{
		BaseURL:          cfg.QuoteBaseURL,
		MinInterval:      cfg.QuoteMinInterval,
		MaxPerMinute:     cfg.QuoteMaxPerMinute,
		CircuitThreshold: cfg.QuoteCircuitThresh,
		CircuitTimeout:   cfg.QuoteCircuitTimeout,
		Logger:           logger,
	})

	probeSizer := sizer.New(sizer.Config{
		MinProfitPct:      cfg.MinProfitPct,
		MinProfitUSD:      cfg.MinProfitUSD,
		MaxPriceImpactPct: cfg.MaxPriceImpactPct,
		MaxSlippageBps:    cfg.MaxSlippageBps,
		Logger:            logger,
	}, quoteClient, nil, triarb.SystemClock{})

	result := probeSizer.ProbeOne(ctx, app.AnchorAsset, intermediate, size, anchorUSD)

	fmt.Printf("route:         %s -> %s\n", app.AnchorAsset.Symbol, intermediate.Symbol)
	fmt.Printf("size:          %.4f %s\n", size, app.AnchorAsset.Symbol)
	fmt.Printf("anchor usd:    %.4f\n", anchorUSD)
	if result.FailureReason != "" {
		fmt.Printf("failure:       %s\n", result.FailureReason)
		return nil
	}
	fmt.Printf("profit pct:    %.4f%%\n", result.ProfitPct)
	fmt.Printf("profit usd:    $%.4f\n", result.ProfitUSD)
	fmt.Printf("price impact:  %.4f%%\n", result.TotalImpact)
	fmt.Printf("eligible:      %v\n", result.Success)

	return nil
}
