package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/solward/triarb/internal/loop"
	"github.com/solward/triarb/internal/oracle"
	"github.com/solward/triarb/internal/quote"
	"github.com/solward/triarb/internal/ring"
	"github.com/solward/triarb/internal/signer"
	"github.com/solward/triarb/internal/sizer"
	"github.com/solward/triarb/internal/storage"
	"github.com/solward/triarb/internal/transport"
	"github.com/solward/triarb/internal/triarb"
	"github.com/solward/triarb/pkg/cache"
	"github.com/solward/triarb/pkg/config"
	"github.com/solward/triarb/pkg/healthprobe"
	"github.com/solward/triarb/pkg/httpserver"
	"github.com/solward/triarb/pkg/logctx"
	"go.uber.org/zap"
)

// AnchorAsset and IntermediateAssets are the fixed ring membership for
// this deployment. spec §4.1 leaves asset selection to an operator-
// supplied list; a real deployment would source this from an env var
// or a small config file alongside Config. Hardcoded here the way the
// teacher hardcodes its own exchange-specific constants
// (pkg/wallet/client.go's polygonUSDC/polygonCTFExchange).
var (
	AnchorAsset = triarb.Asset{Symbol: "USDC", Decimals: 6, Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"}
	IntermediateAssets = []triarb.Asset{
		{Symbol: "WETH", Decimals: 18, Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"},
		{Symbol: "WMATIC", Decimals: 18, Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"},
		{Symbol: "WBTC", Decimals: 8, Address: "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"},
	}
)

// FindIntermediate looks up a configured intermediate asset by symbol,
// used by the CLI's one-shot probe command to resolve a user-supplied
// symbol to its address/decimals.
func FindIntermediate(symbol string) (triarb.Asset, bool) {
	for _, a := range IntermediateAssets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return triarb.Asset{}, false
}

// New assembles every core component and the ambient HTTP/health/
// storage surface into an App, ready for Run.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	balanceClient, err := ring.NewClient(cfg.StandardRPCURL, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup balance client: %w", err)
	}

	tokenRing, err := ring.New(AnchorAsset, IntermediateAssets, cfg.WalletAddress, balanceClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup token directory: %w", err)
	}

	if err := cfg.ClampToBalance(ctx, tokenRing, AnchorAsset); err != nil {
		logctx.Balance(logger).Warn("balance-clamp-failed", zap.Error(err))
	}

	priceOracle := setupOracle(cfg, logger)

	quoteClient := quote.New(quote.Config{
		BaseURL:          cfg.QuoteBaseURL,
		MinInterval:      cfg.QuoteMinInterval,
		MaxPerMinute:     cfg.QuoteMaxPerMinute,
		CircuitThreshold: cfg.QuoteCircuitThresh,
		CircuitTimeout:   cfg.QuoteCircuitTimeout,
		Logger:           logger,
	})

	sizerCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup sizer cache: %w", err)
	}

	dynamicSizer := sizer.New(sizer.Config{
		SizeStrategy:         sizer.SizeStrategy(cfg.SizeStrategy),
		SizeTests:            cfg.SizeTests,
		PreferredPercentages: cfg.PreferredPercentages,
		MinSize:              cfg.MinTradeSize,
		MaxSize:              cfg.MaxTradeSize,
		MinProfitPct:         cfg.MinProfitPct,
		MinProfitUSD:         cfg.MinProfitUSD,
		MaxPriceImpactPct:    cfg.MaxPriceImpactPct,
		MaxSlippageBps:       cfg.MaxSlippageBps,
		ProbeDelay:           cfg.ProbeDelay,
		Logger:               logger,
	}, quoteClient, sizerCache, triarb.SystemClock{})

	mevTransport := transport.New(transport.Config{
		Enabled:            cfg.MEVEnabled,
		BasePriority:       cfg.MEVBasePriority,
		MinPriorityFloor:   cfg.MEVMinPriorityFloor,
		RandomizeGas:       cfg.MEVRandomizeGas,
		MaxSubmitJitter:    cfg.MEVMaxSubmitJitter,
		UseBundles:         cfg.MEVUseBundles,
		BundleEndpoints:    cfg.MEVBundleEndpoints,
		BundleTimeout:      cfg.MEVBundleTimeout,
		PrivatePoolEnabled: cfg.MEVPrivatePool,
		StandardRPCURL:     cfg.StandardRPCURL,
		SettleDelay:        5 * time.Second,
		Logger:             logger,
	}, transport.NewHTTPBundleSubmitter(), transport.NewStandardRPCSubmitter())

	txSigner, err := setupSigner(opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup signer: %w", err)
	}

	appStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	searchLoop := loop.New(loop.Config{
		IterationInterval: cfg.IterationInterval,
		RotationInterval:  cfg.RotationInterval,
		MinProfitUSD:      cfg.MinProfitUSD,
		MaxSize:            cfg.MaxTradeSize,
		TradingEnabled:    cfg.TradingEnabled,
		Logger:            logger,
	}, tokenRing, priceOracle, dynamicSizer, mevTransport, txSigner, appStorage, triarb.SystemClock{})

	events := httpserver.NewEventBroadcaster(logger)
	searchLoop.SetEvents(events)

	healthChecker.SetReadinessProbe(func() (bool, string) {
		if _, fresh := priceOracle.Current(); !fresh {
			return false, "anchor price stale"
		}
		if searchLoop.State() == loop.StateCancelled {
			return false, "search loop cancelled"
		}
		return true, ""
	})

	app := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		events:        events,
		ring:          tokenRing,
		oracle:        priceOracle,
		sizer:         dynamicSizer,
		transport:     mevTransport,
		loop:          searchLoop,
		storage:       appStorage,
		ctx:           ctx,
		cancel:        cancel,
	}

	app.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Status:        app,
		Control:       app,
		Events:        app.events,
	})

	return app, nil
}

func setupOracle(cfg *config.Config, logger *zap.Logger) *oracle.Oracle {
	sources := []oracle.Source{
		oracle.NewHTTPSource("coingecko", "https://api.coingecko.com/api/v3/simple/price?ids=usd-coin&vs_currencies=usd", "", false, oracle.ParseJSONField("price")),
		oracle.NewHTTPSource("coinmarketcap", os.Getenv("TRIARB_CMC_URL"), os.Getenv("TRIARB_CMC_API_KEY"), true, oracle.ParseJSONField("price")),
	}

	return oracle.New(oracle.Config{
		Sources:         sources,
		RefreshInterval: cfg.PriceRefreshInterval,
		PriceBandMin:    cfg.PriceBandMin,
		PriceBandMax:    cfg.PriceBandMax,
		Clock:           triarb.SystemClock{},
		Logger:          logger,
	})
}

func setupSigner(opts *Options) (triarb.Signer, error) {
	keyHex := opts.PrivateKeyHex
	if keyHex == "" {
		keyHex = os.Getenv("TRIARB_PRIVATE_KEY")
	}
	chainID := opts.ChainID
	if chainID == 0 {
		chainID = 137
	}
	if keyHex == "" {
		return nil, fmt.Errorf("no private key configured (set TRIARB_PRIVATE_KEY)")
	}
	return signer.New(keyHex, chainID)
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
