// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"
	"time"

	"stockstream/internal/domain"
	"stockstream/internal/indicator"
)

// PortfolioView is the read-only window onto simulation state that a
// strategy receives. Strategies never get write access to the portfolio;
// orders are the only channel of influence.
type PortfolioView interface {
	// Cash returns the current cash balance.
	Cash() float64

	// Position returns the open position for symbol, or false when flat.
	Position(symbol string) (domain.Position, bool)
}

// BarContext is everything a strategy sees for one (date, symbol) pair: the
// bar itself, the precomputed indicator values declared by the strategy
// (keyed by spec name, NaN inside warmup windows), and the portfolio view.
type BarContext struct {
	Date       time.Time
	Bar        domain.Bar
	Indicators map[string]float64
	Portfolio  PortfolioView
}

// Strategy is the interface that all trading strategies must implement. The
// backtest engine drives the lifecycle: OnStart once, OnData per (date,
// symbol) pair in chronological then lexicographic-symbol order,
// OnOrderFilled after each successful execution, OnEnd once after the last
// bar.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Indicators declares the indicator series the engine must precompute
	// for every symbol before the run starts.
	Indicators() []indicator.Spec

	// OnStart performs one-time setup before the first bar. No portfolio
	// side effects are permitted.
	OnStart() error

	// OnData inspects one bar plus its indicator values and may return at
	// most one order for this symbol this bar, or nil for no action. It may
	// mutate only the strategy's own internal state.
	OnData(bc *BarContext) (*domain.Order, error)

	// OnOrderFilled is called immediately after an order returned by this
	// strategy executes successfully. Never called for rejected orders.
	OnOrderFilled(order domain.Order, pv PortfolioView)

	// OnEnd is called once after the last bar, for cleanup and logging only.
	OnEnd(pv PortfolioView)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
