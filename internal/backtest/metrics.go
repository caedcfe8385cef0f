package backtest

import (
	"math"

	"stockstream/internal/domain"
)

// tradingDaysPerYear is the conventional annualization factor for daily
// equity samples.
const tradingDaysPerYear = 252

// Metrics holds the performance statistics derived from a completed equity
// curve and trade log. Returns, drawdown, and win rate are fractions (0.10 =
// 10%); ProfitFactor is +Inf when there are profits and exactly zero losses,
// and 0 when there are no trades at all.
type Metrics struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	SortinoRatio     float64
	MaxDrawdown      float64
	TotalTrades      int
	WinRate          float64
	ProfitFactor     float64
	AvgWin           float64
	AvgLoss          float64
	LargestWin       float64
	LargestLoss      float64
}

// CalculateMetrics is a pure function over the completed equity curve, the
// closed-trade log, and the starting capital. Every edge case (no trades,
// flat curve, zero deviation) yields a defined zero value, never NaN or a
// panic.
func CalculateMetrics(curve []EquityPoint, trades []domain.Trade, initialCash float64) Metrics {
	m := Metrics{TotalTrades: len(trades)}
	if len(curve) == 0 || initialCash <= 0 {
		return m
	}

	final := curve[len(curve)-1].Equity
	m.TotalReturn = final/initialCash - 1

	returns := dailyReturns(curve)
	if len(returns) > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, tradingDaysPerYear/float64(len(returns))) - 1

		mean := meanOf(returns)
		std := stdOf(returns, mean)
		m.Volatility = std * math.Sqrt(tradingDaysPerYear)
		if std > 0 {
			m.SharpeRatio = mean / std * math.Sqrt(tradingDaysPerYear)
		}

		downside := downsideDeviation(returns)
		if downside > 0 {
			m.SortinoRatio = mean / downside * math.Sqrt(tradingDaysPerYear)
		}
	}

	m.MaxDrawdown = maxDrawdown(curve)

	if len(trades) == 0 {
		return m
	}

	var wins, losses int
	var grossProfit, grossLoss float64
	for _, tr := range trades {
		switch {
		case tr.PnL > 0:
			wins++
			grossProfit += tr.PnL
			m.LargestWin = math.Max(m.LargestWin, tr.PnL)
		case tr.PnL < 0:
			losses++
			grossLoss += -tr.PnL
			m.LargestLoss = math.Min(m.LargestLoss, tr.PnL)
		}
	}

	m.WinRate = float64(wins) / float64(len(trades))
	if grossLoss == 0 {
		if grossProfit > 0 {
			m.ProfitFactor = math.Inf(1)
		}
	} else {
		m.ProfitFactor = grossProfit / grossLoss
	}
	if wins > 0 {
		m.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = -grossLoss / float64(losses)
	}

	return m
}

// dailyReturns converts the equity curve into simple day-over-day returns.
func dailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

// maxDrawdown returns the largest peak-to-trough decline as a positive
// fraction of the peak.
func maxDrawdown(curve []EquityPoint) float64 {
	var maxDD float64
	peak := curve[0].Equity
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			dd := (peak - pt.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdOf(values []float64, mean float64) float64 {
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// downsideDeviation is the standard deviation computed over negative returns
// only, measured against zero.
func downsideDeviation(returns []float64) float64 {
	var sum float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sum += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
