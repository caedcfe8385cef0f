package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stockstream/internal/config"
	"stockstream/internal/universe"
	"stockstream/internal/util"
)

func main() {
	csvFlag := flag.String("csv", "", "path to the new symbol list CSV (header row, symbol column first)")
	flag.Parse()

	if *csvFlag == "" {
		log.Fatal("usage: symbols-update -csv <symbols.csv>")
	}

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

	symbols, err := universe.LoadCSV(*csvFlag)
	if err != nil {
		log.Fatalf("loading %s: %v", *csvFlag, err)
	}
	if len(symbols) == 0 {
		log.Fatalf("no symbols found in %s", *csvFlag)
	}

	mgr := universe.NewManager(filepath.Join(cfg.Storage.DataDir, "universe"), logger)
	added, removed, err := mgr.Update(symbols, time.Now().UTC())
	if err != nil {
		log.Fatalf("updating universe: %v", err)
	}

	if len(added) == 0 && len(removed) == 0 {
		fmt.Println("universe unchanged")
		return
	}
	for _, s := range added {
		fmt.Printf("+ %s\n", s)
	}
	for _, s := range removed {
		fmt.Printf("- %s\n", s)
	}
	fmt.Printf("%d added, %d removed, %d total\n", len(added), len(removed), len(symbols))
}
