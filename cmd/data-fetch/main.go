package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stockstream/internal/config"
	"stockstream/internal/fetch"
	"stockstream/internal/store"
	"stockstream/internal/universe"
	"stockstream/internal/util"
)

func main() {
	cfgPath := "config/stockstream.yaml"
	if p := os.Getenv("STOCKSTREAM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	// Symbols come from the universe directory; the configured CSV is the
	// fallback before the first universe update has run.
	mgr := universe.NewManager(filepath.Join(cfg.Storage.DataDir, "universe"), logger)
	symbols, err := mgr.Current()
	if err != nil {
		log.Fatalf("loading universe: %v", err)
	}
	if len(symbols) == 0 && cfg.Fetch.SymbolsCSV != "" {
		symbols, err = universe.LoadCSV(cfg.Fetch.SymbolsCSV)
		if err != nil {
			log.Fatalf("loading symbols CSV %s: %v", cfg.Fetch.SymbolsCSV, err)
		}
	}
	if len(symbols) == 0 {
		log.Fatal("no symbols to fetch: empty universe and no symbols_csv configured")
	}

	barStore := store.NewParquetStore(cfg.Storage.DataDir)
	fetcher := fetch.NewDailyBarFetcher(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		barStore,
		cfg.Fetch.BatchSize,
		cfg.Fetch.MaxWorkers,
		cfg.Fetch.RateLimitPerMin,
		cfg.Fetch.StartDate,
		logger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting data-fetch", "symbols", len(symbols))
	if err := fetcher.Run(ctx, symbols); err != nil {
		log.Fatalf("fetch error: %v", err)
	}
}
