package builtins

import (
	"math"

	"stockstream/internal/domain"
	"stockstream/internal/indicator"
	"stockstream/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BollingerReversion)(nil)

// BollingerReversion implements a band mean-reversion strategy: buy when the
// close drops below the lower Bollinger band, sell the whole position when
// the close recovers above the middle band.
type BollingerReversion struct {
	period     int
	width      float64 // band width in standard deviations
	allocation float64
}

// NewBollingerReversion creates a BollingerReversion strategy. Typical
// parameters are period 20 with width 2.
func NewBollingerReversion(period int, width, allocation float64) *BollingerReversion {
	if width <= 0 {
		width = 2
	}
	if allocation <= 0 || allocation > 1 {
		allocation = 1.0
	}
	return &BollingerReversion{
		period:     period,
		width:      width,
		allocation: allocation,
	}
}

// Name returns "bollinger-reversion".
func (s *BollingerReversion) Name() string {
	return "bollinger-reversion"
}

// Indicators declares the lower and middle Bollinger bands.
func (s *BollingerReversion) Indicators() []indicator.Spec {
	return []indicator.Spec{
		{Name: "boll_lower", Kind: indicator.BollLower, Period: s.period, Param: s.width},
		{Name: "boll_middle", Kind: indicator.BollMiddle, Period: s.period, Param: s.width},
	}
}

// OnStart is a no-op.
func (s *BollingerReversion) OnStart() error {
	return nil
}

// OnData emits a buy below the lower band and a full-position sell above the
// middle band.
func (s *BollingerReversion) OnData(bc *strategy.BarContext) (*domain.Order, error) {
	lower := bc.Indicators["boll_lower"]
	middle := bc.Indicators["boll_middle"]
	if math.IsNaN(lower) || math.IsNaN(middle) {
		return nil, nil
	}

	pos, long := bc.Portfolio.Position(bc.Bar.Symbol)

	if bc.Bar.Close < lower && !long {
		qty := entryQty(bc.Portfolio.Cash(), s.allocation, bc.Bar.Close)
		if qty <= 0 {
			return nil, nil
		}
		return marketOrder(bc, domain.SideBuy, qty), nil
	}

	if bc.Bar.Close > middle && long {
		return marketOrder(bc, domain.SideSell, pos.Qty), nil
	}

	return nil, nil
}

// OnOrderFilled is a no-op.
func (s *BollingerReversion) OnOrderFilled(_ domain.Order, _ strategy.PortfolioView) {}

// OnEnd is a no-op.
func (s *BollingerReversion) OnEnd(_ strategy.PortfolioView) {}
