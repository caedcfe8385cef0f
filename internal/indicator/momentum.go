package indicator

import (
	"math"

	"stockstream/internal/domain"
)

// RelativeStrength computes the RSI of values using Wilder's smoothing. The
// first defined entry is at index period; values are bounded to [0,100] by
// construction, with a zero average loss mapping to RSI = 100.
func RelativeStrength(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Stochastic computes the %K line of the stochastic oscillator: the position
// of the close within the trailing period's high-low range, scaled to
// [0,100]. A flat range maps to the neutral value 50.
func Stochastic(bars []domain.Bar, period int) []float64 {
	out := undefined(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	for i := period - 1; i < len(bars); i++ {
		hh := math.Inf(-1)
		ll := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			hh = math.Max(hh, bars[j].High)
			ll = math.Min(ll, bars[j].Low)
		}
		if hh == ll {
			out[i] = 50
			continue
		}
		out[i] = (bars[i].Close - ll) / (hh - ll) * 100
	}
	return out
}

// CommodityChannel computes the CCI: the deviation of the typical price from
// its moving average, scaled by mean absolute deviation. A zero deviation
// window maps to 0.
func CommodityChannel(bars []domain.Bar, period int) []float64 {
	out := undefined(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	tp := make([]float64, len(bars))
	for i, b := range bars {
		tp[i] = typicalPrice(b)
	}

	for i := period - 1; i < len(bars); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tp[j]
		}
		mean := sum / float64(period)

		var dev float64
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - mean)
		}
		dev /= float64(period)

		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - mean) / (0.015 * dev)
	}
	return out
}

// WilliamsPercentR computes Williams %R over the trailing period, in the
// range [-100, 0]. A flat range maps to 0.
func WilliamsPercentR(bars []domain.Bar, period int) []float64 {
	out := undefined(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	for i := period - 1; i < len(bars); i++ {
		hh := math.Inf(-1)
		ll := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			hh = math.Max(hh, bars[j].High)
			ll = math.Min(ll, bars[j].Low)
		}
		if hh == ll {
			out[i] = 0
			continue
		}
		out[i] = (hh - bars[i].Close) / (hh - ll) * -100
	}
	return out
}

// RateOfChange computes the percentage change of values over the trailing
// period. The first defined entry is at index period.
func RateOfChange(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	for i := period; i < len(values); i++ {
		prev := values[i-period]
		if prev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (values[i] - prev) / prev * 100
	}
	return out
}
