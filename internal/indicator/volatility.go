package indicator

import (
	"math"

	"stockstream/internal/domain"
)

// RollingStdDev computes the population standard deviation of values over
// the trailing period.
func RollingStdDev(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		mean := sum / float64(period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period))
	}
	return out
}

// Bollinger computes the upper, middle, and lower Bollinger bands: a simple
// moving average plus/minus k rolling standard deviations.
func Bollinger(values []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SimpleMA(values, period)
	std := RollingStdDev(values, period)

	upper = undefined(len(values))
	lower = undefined(len(values))
	for i := range values {
		if math.IsNaN(middle[i]) {
			continue
		}
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}
	return upper, middle, lower
}

// AverageTrueRange computes the ATR using Wilder's smoothing of the true
// range max(high-low, |high-prevClose|, |low-prevClose|). The series is
// seeded at index period-1 with the arithmetic mean of the first period true
// ranges.
func AverageTrueRange(bars []domain.Bar, period int) []float64 {
	out := undefined(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr[i] = math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
	}

	var seed float64
	for _, v := range tr[:period] {
		seed += v
	}
	atr := seed / float64(period)
	out[period-1] = atr

	for i := period; i < len(bars); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}
