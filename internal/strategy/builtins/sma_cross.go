// Package builtins provides built-in strategy implementations that ship with
// the stockstream platform.
package builtins

import (
	"math"

	"stockstream/internal/domain"
	"stockstream/internal/indicator"
	"stockstream/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a dual moving average crossover strategy. It buys when
// the fast SMA crosses above the slow SMA and sells the whole position when
// it crosses back below. The first bar where both averages are defined
// counts as a crossing when the fast average is already on top, so a trend
// that began inside the warmup window is still entered.
type SMACross struct {
	fastPeriod int
	slowPeriod int
	allocation float64 // fraction of cash committed per entry

	// prior fast/slow values per symbol, for cross detection
	prevFast map[string]float64
	prevSlow map[string]float64
}

// NewSMACross creates a new SMACross strategy with the specified fast and
// slow moving average periods. allocation is the fraction of available cash
// committed on entry (1.0 = all-in).
func NewSMACross(fast, slow int, allocation float64) *SMACross {
	if allocation <= 0 || allocation > 1 {
		allocation = 1.0
	}
	return &SMACross{
		fastPeriod: fast,
		slowPeriod: slow,
		allocation: allocation,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Indicators declares the fast and slow simple moving averages.
func (s *SMACross) Indicators() []indicator.Spec {
	return []indicator.Spec{
		{Name: "sma_fast", Kind: indicator.SMA, Period: s.fastPeriod},
		{Name: "sma_slow", Kind: indicator.SMA, Period: s.slowPeriod},
	}
}

// OnStart resets the per-symbol crossover state.
func (s *SMACross) OnStart() error {
	s.prevFast = make(map[string]float64)
	s.prevSlow = make(map[string]float64)
	return nil
}

// OnData detects crossovers and emits a buy on a cross above or a
// full-position sell on a cross below.
func (s *SMACross) OnData(bc *strategy.BarContext) (*domain.Order, error) {
	fast := bc.Indicators["sma_fast"]
	slow := bc.Indicators["sma_slow"]
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return nil, nil
	}

	sym := bc.Bar.Symbol
	prevFast, seen := s.prevFast[sym]
	prevSlow := s.prevSlow[sym]
	s.prevFast[sym] = fast
	s.prevSlow[sym] = slow

	crossedUp := fast > slow && (!seen || prevFast <= prevSlow)
	crossedDown := fast < slow && seen && prevFast >= prevSlow

	pos, long := bc.Portfolio.Position(sym)

	if crossedUp && !long {
		qty := entryQty(bc.Portfolio.Cash(), s.allocation, bc.Bar.Close)
		if qty <= 0 {
			return nil, nil
		}
		return marketOrder(bc, domain.SideBuy, qty), nil
	}

	if crossedDown && long {
		return marketOrder(bc, domain.SideSell, pos.Qty), nil
	}

	return nil, nil
}

// OnOrderFilled is a no-op; position state is read from the portfolio view.
func (s *SMACross) OnOrderFilled(_ domain.Order, _ strategy.PortfolioView) {}

// OnEnd is a no-op.
func (s *SMACross) OnEnd(_ strategy.PortfolioView) {}

// entryQty sizes an entry as the given fraction of cash at the reference
// price, rounded down to whole shares.
func entryQty(cash, allocation, price float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(math.Floor(cash * allocation / price))
}

// marketOrder builds a market order at the bar's close.
func marketOrder(bc *strategy.BarContext, side domain.Side, qty int64) *domain.Order {
	return &domain.Order{
		Symbol: bc.Bar.Symbol,
		Side:   side,
		Kind:   domain.OrderMarket,
		Qty:    qty,
		Price:  bc.Bar.Close,
		Date:   bc.Date,
	}
}
