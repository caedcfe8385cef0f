package builtins

import (
	"math"

	"stockstream/internal/domain"
	"stockstream/internal/indicator"
	"stockstream/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIReversion)(nil)

// RSIReversion implements a mean-reversion strategy on the RSI oscillator:
// buy when the RSI drops below the oversold threshold, sell the whole
// position when it rises above the overbought threshold.
type RSIReversion struct {
	period     int
	oversold   float64
	overbought float64
	allocation float64
}

// NewRSIReversion creates an RSIReversion strategy. Typical parameters are
// period 14 with thresholds 30/70.
func NewRSIReversion(period int, oversold, overbought, allocation float64) *RSIReversion {
	if allocation <= 0 || allocation > 1 {
		allocation = 1.0
	}
	return &RSIReversion{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		allocation: allocation,
	}
}

// Name returns "rsi-reversion".
func (s *RSIReversion) Name() string {
	return "rsi-reversion"
}

// Indicators declares the RSI series.
func (s *RSIReversion) Indicators() []indicator.Spec {
	return []indicator.Spec{
		{Name: "rsi", Kind: indicator.RSI, Period: s.period},
	}
}

// OnStart is a no-op; the strategy carries no state across runs.
func (s *RSIReversion) OnStart() error {
	return nil
}

// OnData emits a buy below the oversold threshold and a full-position sell
// above the overbought threshold.
func (s *RSIReversion) OnData(bc *strategy.BarContext) (*domain.Order, error) {
	rsi := bc.Indicators["rsi"]
	if math.IsNaN(rsi) {
		return nil, nil
	}

	pos, long := bc.Portfolio.Position(bc.Bar.Symbol)

	if rsi < s.oversold && !long {
		qty := entryQty(bc.Portfolio.Cash(), s.allocation, bc.Bar.Close)
		if qty <= 0 {
			return nil, nil
		}
		return marketOrder(bc, domain.SideBuy, qty), nil
	}

	if rsi > s.overbought && long {
		return marketOrder(bc, domain.SideSell, pos.Qty), nil
	}

	return nil, nil
}

// OnOrderFilled is a no-op.
func (s *RSIReversion) OnOrderFilled(_ domain.Order, _ strategy.PortfolioView) {}

// OnEnd is a no-op.
func (s *RSIReversion) OnEnd(_ strategy.PortfolioView) {}
