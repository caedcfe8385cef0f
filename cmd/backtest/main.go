package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockstream/internal/backtest"
	"stockstream/internal/config"
	"stockstream/internal/domain"
	"stockstream/internal/portfolio"
	"stockstream/internal/report"
	"stockstream/internal/store"
	"stockstream/internal/strategy"
	"stockstream/internal/strategy/builtins"
	"stockstream/internal/util"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols to backtest (default: all stored symbols)")
	startFlag := flag.String("start", "", "start date YYYY-MM-DD")
	endFlag := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	strategyFlag := flag.String("strategy", "", "strategy name (overrides config)")
	saveFlag := flag.Bool("save", false, "persist the run to the SQLite run store")
	flag.Parse()

	cfgPath := "config/stockstream.yaml"
	if p := os.Getenv("STOCKSTREAM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Backtest.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	start, end, err := parseRange(*startFlag, *endFlag)
	if err != nil {
		log.Fatalf("invalid date range: %v", err)
	}

	bars, symbols, err := loadBars(cfg.Storage.DataDir, *symbolsFlag, start, end)
	if err != nil {
		log.Fatalf("loading bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars found for %v in %s..%s",
			symbols, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	ds, err := backtest.NewDataset(bars)
	if err != nil {
		log.Fatalf("building dataset: %v", err)
	}

	stratName := cfg.Strategy.Name
	if *strategyFlag != "" {
		stratName = *strategyFlag
	}
	strat, err := builtins.FromConfig(stratName, cfg.Strategy.Params)
	if err != nil {
		registry := strategy.NewRegistry()
		builtins.RegisterAll(registry)
		log.Fatalf("building strategy: %v (available: %s)", err, strings.Join(registry.List(), ", "))
	}

	engine := backtest.NewEngine(portfolio.Config{
		InitialCash:    cfg.Backtest.InitialCash,
		CommissionRate: cfg.Backtest.CommissionRate,
		SlippageRate:   cfg.Backtest.SlippageRate,
		Basis:          portfolio.CommissionBasis(cfg.Backtest.CommissionBasis),
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := engine.Run(ctx, strat, ds)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	fmt.Print(report.Render(result))

	if *saveFlag {
		runStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening run store: %v", err)
		}
		defer runStore.Close()

		runID, err := runStore.SaveRun(ctx, result)
		if err != nil {
			log.Fatalf("saving run: %v", err)
		}
		fmt.Printf("\nsaved as run %d\n", runID)
	}
}

// parseRange resolves the start/end flags. Start defaults to 30 years back
// so "everything stored" is the effective default; end defaults to today.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := util.TruncateToDate(time.Now().UTC())
	if endStr != "" {
		var err error
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing end %q: %w", endStr, err)
		}
	}

	start := end.AddDate(-30, 0, 0)
	if startStr != "" {
		var err error
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing start %q: %w", startStr, err)
		}
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s after end %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}

// loadBars reads bars for the requested symbols (or all stored symbols)
// from the Parquet store.
func loadBars(dataDir, symbolsFlag string, start, end time.Time) ([]domain.Bar, []string, error) {
	ctx := context.Background()
	barStore := store.NewParquetStore(dataDir)

	var symbols []string
	if symbolsFlag != "" {
		for _, s := range strings.Split(symbolsFlag, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	} else {
		var err error
		symbols, err = barStore.ListSymbols(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	var bars []domain.Bar
	for _, sym := range symbols {
		symBars, err := barStore.ReadBars(ctx, sym, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", sym, err)
		}
		bars = append(bars, symBars...)
	}
	return bars, symbols, nil
}
