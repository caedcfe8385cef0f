// Package backtest replays historical daily bars through a strategy against
// a simulated portfolio and computes performance statistics for the run.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"stockstream/internal/domain"
)

// Dataset is the fully materialized historical input for one backtest run:
// every bar for every symbol, indexed by symbol and by date. All inputs are
// in memory before the run starts; the engine performs no I/O.
type Dataset struct {
	symbols  []string                 // sorted
	dates    []time.Time              // sorted distinct dates across all symbols
	bySymbol map[string][]domain.Bar  // per-symbol bars in ascending date order
	index    map[string]map[int64]int // symbol -> unix date -> index into bySymbol
}

// NewDataset validates and indexes a bar slice. Bars for one symbol must
// arrive in ascending date order with no duplicate dates; prices must be
// positive and finite and volume non-negative. Date gaps within a symbol are
// allowed. Validation failures name the offending symbol and date.
func NewDataset(bars []domain.Bar) (*Dataset, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("dataset: no bars")
	}

	ds := &Dataset{
		bySymbol: make(map[string][]domain.Bar),
		index:    make(map[string]map[int64]int),
	}

	dateSet := make(map[int64]time.Time)
	for _, b := range bars {
		if err := checkBar(b); err != nil {
			return nil, err
		}
		seq := ds.bySymbol[b.Symbol]
		if len(seq) > 0 {
			last := seq[len(seq)-1].Date
			if !b.Date.After(last) {
				if b.Date.Equal(last) {
					return nil, fmt.Errorf("dataset: duplicate date %s for %s",
						b.Date.Format("2006-01-02"), b.Symbol)
				}
				return nil, fmt.Errorf("dataset: bars for %s not sorted at %s",
					b.Symbol, b.Date.Format("2006-01-02"))
			}
		}
		ds.bySymbol[b.Symbol] = append(seq, b)
		dateSet[b.Date.Unix()] = b.Date
	}

	for sym, seq := range ds.bySymbol {
		ds.symbols = append(ds.symbols, sym)
		idx := make(map[int64]int, len(seq))
		for i, b := range seq {
			idx[b.Date.Unix()] = i
		}
		ds.index[sym] = idx
	}
	sort.Strings(ds.symbols)

	for _, d := range dateSet {
		ds.dates = append(ds.dates, d)
	}
	sort.Slice(ds.dates, func(i, j int) bool { return ds.dates[i].Before(ds.dates[j]) })

	return ds, nil
}

// checkBar rejects non-finite or non-positive prices and negative volume
// before they can silently corrupt a run.
func checkBar(b domain.Bar) error {
	for _, px := range []float64{b.Open, b.High, b.Low, b.Close} {
		if px <= 0 || math.IsNaN(px) || math.IsInf(px, 0) {
			return fmt.Errorf("dataset: bad price for %s on %s",
				b.Symbol, b.Date.Format("2006-01-02"))
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("dataset: negative volume for %s on %s",
			b.Symbol, b.Date.Format("2006-01-02"))
	}
	return nil
}

// Symbols returns all symbols in the dataset, sorted.
func (ds *Dataset) Symbols() []string { return ds.symbols }

// Dates returns all distinct dates in ascending order.
func (ds *Dataset) Dates() []time.Time { return ds.dates }

// Bars returns the full bar sequence for one symbol in ascending date order.
func (ds *Dataset) Bars(symbol string) []domain.Bar { return ds.bySymbol[symbol] }

// Bar returns the bar for (symbol, date) and whether one exists.
func (ds *Dataset) Bar(symbol string, date time.Time) (domain.Bar, bool) {
	i, ok := ds.index[symbol][date.Unix()]
	if !ok {
		return domain.Bar{}, false
	}
	return ds.bySymbol[symbol][i], true
}

// BarIndex returns the position of (symbol, date) within the symbol's bar
// sequence, for aligning indicator series. The second return value is false
// when the symbol has no bar on that date.
func (ds *Dataset) BarIndex(symbol string, date time.Time) (int, bool) {
	i, ok := ds.index[symbol][date.Unix()]
	return i, ok
}

// SymbolsOn returns the symbols with a bar on date, sorted lexicographically
// so replay order is reproducible.
func (ds *Dataset) SymbolsOn(date time.Time) []string {
	var out []string
	for _, sym := range ds.symbols {
		if _, ok := ds.index[sym][date.Unix()]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// ClosePrices returns the close price of every symbol trading on date, for
// mark-to-market valuation.
func (ds *Dataset) ClosePrices(date time.Time) map[string]float64 {
	out := make(map[string]float64)
	for _, sym := range ds.symbols {
		if i, ok := ds.index[sym][date.Unix()]; ok {
			out[sym] = ds.bySymbol[sym][i].Close
		}
	}
	return out
}
