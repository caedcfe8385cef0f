package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stockstream/internal/domain"
	"stockstream/internal/store"
	"stockstream/internal/util"
)

// defaultRateLimitPerMin paces requests when the config leaves the limit
// unset. Matches the Alpaca basic-plan request budget.
const defaultRateLimitPerMin = 200

// DailyBarFetcher pulls daily OHLCV bars for a symbol universe via the
// Alpaca market-data API and writes them to the bar store. Batches fan out
// over a bounded worker pool; all workers share one rate limiter.
type DailyBarFetcher struct {
	client     *marketdata.Client
	store      store.BarStore
	batchSize  int
	maxWorkers int
	limiter    *util.RateLimiter
	startDate  string
	log        *slog.Logger
}

// NewDailyBarFetcher creates a DailyBarFetcher configured with the given
// Alpaca credentials, target store, and batch parameters.
func NewDailyBarFetcher(apiKey, apiSecret, dataURL string, s store.BarStore, batchSize, maxWorkers, rateLimitPerMin int, startDate string, log *slog.Logger) *DailyBarFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if log == nil {
		log = slog.Default()
	}
	// A zero rate would hand out one seeded token and then block every
	// worker forever.
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = defaultRateLimitPerMin
	}

	return &DailyBarFetcher{
		client:     marketdata.NewClient(opts),
		store:      s,
		batchSize:  max(batchSize, 1),
		maxWorkers: max(maxWorkers, 1),
		limiter:    util.NewRateLimiter(rateLimitPerMin),
		startDate:  startDate,
		log:        log.With("fetcher", "alpaca-daily"),
	}
}

// Run fetches daily bars for every symbol from startDate through the most
// recent finished trading day and writes them to the store. Bars that fail
// validation are dropped and logged; a batch that fails after retries is
// skipped so the rest of the universe still completes.
func (f *DailyBarFetcher) Run(ctx context.Context, symbols []string) error {
	start, err := time.Parse("2006-01-02", f.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", f.startDate, err)
	}
	end := lastFinishedTradingDay(time.Now().UTC())

	batches := splitBatches(symbols, f.batchSize)
	f.log.Info("fetch started",
		"symbols", len(symbols),
		"batches", len(batches),
		"start", f.startDate,
		"end", end.Format("2006-01-02"))

	batchCh := make(chan []string, len(batches))
	for _, b := range batches {
		batchCh <- b
	}
	close(batchCh)

	var (
		wg         sync.WaitGroup
		totalBars  atomic.Int64
		failedOnce atomic.Bool
		runStart   = time.Now()
	)

	workers := min(f.maxWorkers, len(batches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchCh {
				if ctx.Err() != nil {
					return
				}

				bars, err := f.fetchBatch(ctx, batch, start, end)
				if err != nil {
					failedOnce.Store(true)
					f.log.Error("batch fetch failed", "symbols", len(batch), "err", err)
					continue
				}

				valid, rejects := CleanBars(bars)
				for _, rerr := range rejects {
					f.log.Warn("bar rejected", "err", rerr.Error())
				}

				if len(valid) == 0 {
					continue
				}
				if err := f.store.WriteBars(ctx, valid); err != nil {
					failedOnce.Store(true)
					f.log.Error("writing bars failed", "err", err)
					continue
				}
				totalBars.Add(int64(len(valid)))
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	f.log.Info("fetch complete",
		"bars", totalBars.Load(),
		"elapsed", time.Since(runStart).Round(time.Second))

	if failedOnce.Load() {
		return fmt.Errorf("fetch finished with failed batches")
	}
	return nil
}

// fetchBatch requests daily bars for one batch of symbols, pacing on the
// shared rate limiter and retrying transient API failures.
func (f *DailyBarFetcher) fetchBatch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, 2*time.Second, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		multiBars, err = f.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Start:      start,
			End:        end,
			Adjustment: marketdata.Split,
			Feed:       "sip",
		})
		if err != nil {
			return fmt.Errorf("GetMultiBars: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			date := util.TruncateToDate(ab.Timestamp.UTC())
			bars = append(bars, domain.Bar{
				Symbol:   strings.ToUpper(symbol),
				Date:     date,
				Open:     ab.Open,
				High:     ab.High,
				Low:      ab.Low,
				Close:    ab.Close,
				AdjClose: ab.Close,
				Volume:   int64(ab.Volume),
			})
		}
	}
	return bars, nil
}

// splitBatches partitions symbols into slices of at most size.
func splitBatches(symbols []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		out = append(out, symbols[i:min(i+size, len(symbols))])
	}
	return out
}

// lastFinishedTradingDay walks backwards from now to the most recent
// weekday whose session has certainly closed.
func lastFinishedTradingDay(now time.Time) time.Time {
	d := util.TruncateToDate(now)
	// Today's session may still be open.
	d = d.AddDate(0, 0, -1)
	for !util.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
