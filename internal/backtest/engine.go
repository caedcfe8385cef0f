package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stockstream/internal/domain"
	"stockstream/internal/indicator"
	"stockstream/internal/portfolio"
	"stockstream/internal/strategy"
)

// State tracks the engine lifecycle. Completed and Failed are terminal.
type State int

// Engine states.
const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EquityPoint is one (date, total portfolio value) sample of the equity
// curve, covering cash plus the mark-to-market value of open positions.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}

// Result is the immutable output of a completed run. It echoes the cost
// model it was produced under so a persisted run is self-describing.
type Result struct {
	Strategy       string
	Start          time.Time
	End            time.Time
	InitialCash    float64
	CommissionRate float64
	SlippageRate   float64
	FinalCash      float64
	FinalEquity    float64
	Trades         []domain.Trade
	Transactions   []domain.Transaction
	EquityCurve    []EquityPoint
	Metrics        Metrics
}

// Engine drives a single-threaded, strictly sequential replay of historical
// bars through a strategy. Re-running with the same inputs produces
// bit-identical results; the only concurrency is the per-symbol indicator
// precompute pass, which has no dependency on portfolio state.
type Engine struct {
	cfg   portfolio.Config
	log   *slog.Logger
	state State
}

// NewEngine creates an Engine with the given portfolio configuration.
func NewEngine(cfg portfolio.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State { return e.state }

// Run executes one backtest: indicator precompute, the sequential replay
// loop, and metrics calculation. A rejected order is a normal simulation
// outcome (logged, run continues); only structural problems fail the run.
// The context is checked between per-date iterations only.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, ds *Dataset) (*Result, error) {
	if e.state != StateNotStarted {
		return nil, fmt.Errorf("backtest: engine already ran (state %s)", e.state)
	}
	e.state = StateRunning

	port, err := portfolio.New(e.cfg)
	if err != nil {
		e.state = StateFailed
		return nil, err
	}

	if err := strat.OnStart(); err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("backtest: strategy %s failed to start: %w", strat.Name(), err)
	}

	series := e.precompute(strat.Indicators(), ds)

	dates := ds.Dates()
	e.log.Info("backtest started",
		"strategy", strat.Name(),
		"symbols", len(ds.Symbols()),
		"dates", len(dates),
		"initial_cash", e.cfg.InitialCash)

	curve := make([]EquityPoint, 0, len(dates))
	// Last known close per symbol, carried forward so positions keep a
	// valuation across date gaps.
	lastCloses := make(map[string]float64, len(ds.Symbols()))
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			e.state = StateFailed
			return nil, fmt.Errorf("backtest: cancelled on %s: %w", date.Format("2006-01-02"), err)
		}

		for _, sym := range ds.SymbolsOn(date) {
			bar, _ := ds.Bar(sym, date)
			idx, _ := ds.BarIndex(sym, date)

			bc := &strategy.BarContext{
				Date:       date,
				Bar:        bar,
				Indicators: indicatorValues(series[sym], idx),
				Portfolio:  port,
			}

			order, err := strat.OnData(bc)
			if err != nil {
				e.state = StateFailed
				return nil, fmt.Errorf("backtest: strategy %s failed on %s %s: %w",
					strat.Name(), sym, date.Format("2006-01-02"), err)
			}
			if order == nil {
				continue
			}

			if _, err := port.ExecuteOrder(*order); err != nil {
				// Normal simulation outcome: drop the order and continue.
				e.log.Info("order rejected",
					"symbol", order.Symbol,
					"date", date.Format("2006-01-02"),
					"side", string(order.Side),
					"qty", order.Qty,
					"reason", err.Error())
				continue
			}
			strat.OnOrderFilled(*order, port)
		}

		for sym, px := range ds.ClosePrices(date) {
			lastCloses[sym] = px
		}
		curve = append(curve, EquityPoint{
			Date:   date,
			Equity: port.MarkToMarket(lastCloses),
		})
	}

	strat.OnEnd(port)

	result := &Result{
		Strategy:       strat.Name(),
		Start:          dates[0],
		End:            dates[len(dates)-1],
		InitialCash:    e.cfg.InitialCash,
		CommissionRate: e.cfg.CommissionRate,
		SlippageRate:   e.cfg.SlippageRate,
		FinalCash:      port.Cash(),
		FinalEquity:    curve[len(curve)-1].Equity,
		Trades:         port.Trades(),
		Transactions:   port.Transactions(),
		EquityCurve:    curve,
		Metrics:        CalculateMetrics(curve, port.Trades(), e.cfg.InitialCash),
	}
	e.state = StateCompleted

	e.log.Info("backtest completed",
		"strategy", strat.Name(),
		"trades", len(result.Trades),
		"final_equity", result.FinalEquity)

	return result, nil
}

// precompute evaluates every declared indicator for every symbol. Symbols
// are independent, so the work fans out over goroutines and joins before the
// sequential replay begins.
func (e *Engine) precompute(specs []indicator.Spec, ds *Dataset) map[string]map[string]indicator.Series {
	out := make(map[string]map[string]indicator.Series, len(ds.Symbols()))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sym := range ds.Symbols() {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			bars := ds.Bars(sym)
			computed := make(map[string]indicator.Series, len(specs))
			for _, spec := range specs {
				computed[spec.Name] = indicator.Compute(spec, bars)
			}
			mu.Lock()
			out[sym] = computed
			mu.Unlock()
		}(sym)
	}
	wg.Wait()

	return out
}

// indicatorValues extracts each precomputed series value at one bar index.
func indicatorValues(series map[string]indicator.Series, idx int) map[string]float64 {
	out := make(map[string]float64, len(series))
	for name, s := range series {
		out[name] = s.At(idx)
	}
	return out
}
