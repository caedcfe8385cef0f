// Package store persists and retrieves bar data and completed backtest
// runs. Bars live in Parquet files on disk; run results and their trade
// logs live in SQLite.
package store

import (
	"context"
	"time"

	"stockstream/internal/backtest"
	"stockstream/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with any already stored.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// sorted by date ascending.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bar data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunRecord is a stored summary of one completed backtest run.
type RunRecord struct {
	ID          int64
	Strategy    string
	Start       time.Time
	End         time.Time
	InitialCash float64
	FinalEquity float64
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	TotalTrades int
	CreatedAt   time.Time
}

// RunStore persists completed backtest runs and their closed trades.
type RunStore interface {
	// SaveRun inserts a completed run with its trade log and returns the
	// assigned run ID.
	SaveRun(ctx context.Context, res *backtest.Result) (int64, error)

	// GetRun retrieves a single run summary by ID.
	GetRun(ctx context.Context, id int64) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// ListRunTrades returns the closed trades recorded for a run, in the
	// order they closed.
	ListRunTrades(ctx context.Context, runID int64) ([]domain.Trade, error)
}
