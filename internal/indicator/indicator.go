// Package indicator computes technical indicator series from ordered daily
// bar sequences. Each function maps a single symbol's bar history to a
// derived series of equal length; entries inside an indicator's warmup window
// are NaN ("not yet computable") and callers must check Defined before
// acting on a value.
package indicator

import (
	"math"

	"stockstream/internal/domain"
)

// Kind identifies an indicator computation.
type Kind string

// Supported indicator kinds.
const (
	SMA        Kind = "sma"
	EMA        Kind = "ema"
	WMA        Kind = "wma"
	RSI        Kind = "rsi"
	StochK     Kind = "stoch_k"
	CCI        Kind = "cci"
	WilliamsR  Kind = "williams_r"
	ROC        Kind = "roc"
	BollUpper  Kind = "boll_upper"
	BollMiddle Kind = "boll_middle"
	BollLower  Kind = "boll_lower"
	ATR        Kind = "atr"
	StdDev     Kind = "stddev"
	OBV        Kind = "obv"
	VWAP       Kind = "vwap"
	MFI        Kind = "mfi"
	AccumDist  Kind = "accum_dist"
)

// Spec names one indicator computation a strategy requires. Name is the key
// the strategy uses to look the value up in its per-bar context; Param is a
// kind-specific extra (the band width multiplier for Bollinger kinds,
// ignored elsewhere).
type Spec struct {
	Name   string
	Kind   Kind
	Period int
	Param  float64
}

// Series is a named derived series aligned 1:1 with the bar sequence it was
// computed from. NaN entries mark the warmup window.
type Series struct {
	Name   string
	Values []float64
}

// Len returns the number of entries in the series.
func (s Series) Len() int { return len(s.Values) }

// At returns the value at index i, which may be NaN inside the warmup window.
func (s Series) At(i int) float64 { return s.Values[i] }

// Defined reports whether the value at index i is computable (not NaN).
func (s Series) Defined(i int) bool { return !math.IsNaN(s.Values[i]) }

// Compute evaluates the indicator described by spec over bars. A request on
// fewer bars than the indicator's minimum period yields a series that is
// undefined everywhere, never an error.
func Compute(spec Spec, bars []domain.Bar) Series {
	var values []float64
	switch spec.Kind {
	case SMA:
		values = SimpleMA(Closes(bars), spec.Period)
	case EMA:
		values = ExponentialMA(Closes(bars), spec.Period)
	case WMA:
		values = WeightedMA(Closes(bars), spec.Period)
	case RSI:
		values = RelativeStrength(Closes(bars), spec.Period)
	case StochK:
		values = Stochastic(bars, spec.Period)
	case CCI:
		values = CommodityChannel(bars, spec.Period)
	case WilliamsR:
		values = WilliamsPercentR(bars, spec.Period)
	case ROC:
		values = RateOfChange(Closes(bars), spec.Period)
	case BollUpper, BollMiddle, BollLower:
		k := spec.Param
		if k == 0 {
			k = 2
		}
		upper, middle, lower := Bollinger(Closes(bars), spec.Period, k)
		switch spec.Kind {
		case BollUpper:
			values = upper
		case BollMiddle:
			values = middle
		default:
			values = lower
		}
	case ATR:
		values = AverageTrueRange(bars, spec.Period)
	case StdDev:
		values = RollingStdDev(Closes(bars), spec.Period)
	case OBV:
		values = OnBalanceVolume(bars)
	case VWAP:
		values = VolumeWeightedAvg(bars)
	case MFI:
		values = MoneyFlowIndex(bars, spec.Period)
	case AccumDist:
		values = AccumulationDistribution(bars)
	default:
		values = undefined(len(bars))
	}
	return Series{Name: spec.Name, Values: values}
}

// Closes extracts the close prices from a bar sequence.
func Closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// undefined returns a series of n NaNs.
func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// typicalPrice is (high + low + close) / 3 for one bar.
func typicalPrice(b domain.Bar) float64 {
	return (b.High + b.Low + b.Close) / 3
}
