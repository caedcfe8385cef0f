package backtest

import (
	"math"
	"testing"
	"time"

	"stockstream/internal/domain"
)

func curveOf(values ...float64) []EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]EquityPoint, len(values))
	for i, v := range values {
		out[i] = EquityPoint{Date: start.AddDate(0, 0, i), Equity: v}
	}
	return out
}

func TestMetricsNeverTrades(t *testing.T) {
	// A strategy that never trades on flat equity: every statistic is a
	// defined zero, never NaN.
	m := CalculateMetrics(curveOf(1000, 1000, 1000), nil, 1000)

	if m.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", m.TotalReturn)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", m.MaxDrawdown)
	}
	if m.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", m.WinRate)
	}
	if m.ProfitFactor != 0 {
		t.Errorf("ProfitFactor = %v, want 0", m.ProfitFactor)
	}
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 for zero-stdev returns", m.SharpeRatio)
	}
	if m.SortinoRatio != 0 {
		t.Errorf("SortinoRatio = %v, want 0 with no negative returns", m.SortinoRatio)
	}
	if math.IsNaN(m.AnnualizedReturn) {
		t.Error("AnnualizedReturn is NaN")
	}
}

func TestMetricsTotalReturn(t *testing.T) {
	m := CalculateMetrics(curveOf(1000, 1100, 1200), nil, 1000)
	if math.Abs(m.TotalReturn-0.2) > 1e-12 {
		t.Errorf("TotalReturn = %v, want 0.2", m.TotalReturn)
	}
}

func TestMetricsMaxDrawdown(t *testing.T) {
	// Peak 1200, trough 900: drawdown = 300/1200 = 0.25.
	m := CalculateMetrics(curveOf(1000, 1200, 900, 1100), nil, 1000)
	if math.Abs(m.MaxDrawdown-0.25) > 1e-12 {
		t.Errorf("MaxDrawdown = %v, want 0.25", m.MaxDrawdown)
	}
}

func TestMetricsTradeStats(t *testing.T) {
	trades := []domain.Trade{
		{PnL: 100},
		{PnL: 50},
		{PnL: -30},
	}
	m := CalculateMetrics(curveOf(1000, 1120), trades, 1000)

	if m.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", m.TotalTrades)
	}
	if math.Abs(m.WinRate-2.0/3.0) > 1e-12 {
		t.Errorf("WinRate = %v, want 2/3", m.WinRate)
	}
	if math.Abs(m.ProfitFactor-5) > 1e-12 {
		t.Errorf("ProfitFactor = %v, want 150/30 = 5", m.ProfitFactor)
	}
	if m.AvgWin != 75 {
		t.Errorf("AvgWin = %v, want 75", m.AvgWin)
	}
	if m.AvgLoss != -30 {
		t.Errorf("AvgLoss = %v, want -30", m.AvgLoss)
	}
	if m.LargestWin != 100 || m.LargestLoss != -30 {
		t.Errorf("LargestWin/LargestLoss = %v/%v, want 100/-30", m.LargestWin, m.LargestLoss)
	}
}

func TestMetricsProfitFactorSentinel(t *testing.T) {
	// All-winning trades: gross loss is exactly 0, profit factor is +Inf.
	trades := []domain.Trade{{PnL: 10}, {PnL: 20}}
	m := CalculateMetrics(curveOf(1000, 1030), trades, 1000)
	if !math.IsInf(m.ProfitFactor, 1) {
		t.Errorf("ProfitFactor = %v, want +Inf", m.ProfitFactor)
	}
}

func TestMetricsSharpeSign(t *testing.T) {
	// Steadily rising equity: positive Sharpe, zero Sortino (no downside).
	m := CalculateMetrics(curveOf(1000, 1010, 1020, 1030), nil, 1000)
	if m.SharpeRatio <= 0 {
		t.Errorf("SharpeRatio = %v, want > 0 for a rising curve", m.SharpeRatio)
	}
	if m.SortinoRatio != 0 {
		t.Errorf("SortinoRatio = %v, want 0 with no negative returns", m.SortinoRatio)
	}
}
