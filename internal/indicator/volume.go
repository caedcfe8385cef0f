package indicator

import "stockstream/internal/domain"

// OnBalanceVolume computes OBV: a running signed cumulative volume sum that
// adds volume when the close rises, subtracts it when the close falls, and
// is unchanged on a flat close. Defined from bar 0; this is the one
// indicator that accumulates over the whole series rather than a fixed
// lookback.
func OnBalanceVolume(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	if len(bars) == 0 {
		return out
	}

	obv := 0.0
	out[0] = obv
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			obv += float64(bars[i].Volume)
		case bars[i].Close < bars[i-1].Close:
			obv -= float64(bars[i].Volume)
		}
		out[i] = obv
	}
	return out
}

// VolumeWeightedAvg computes the cumulative volume-weighted average of the
// typical price. When no volume has traded yet the close is used as the
// value.
func VolumeWeightedAvg(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))

	var cumPV, cumVol float64
	for i, b := range bars {
		cumPV += typicalPrice(b) * float64(b.Volume)
		cumVol += float64(b.Volume)
		if cumVol == 0 {
			out[i] = b.Close
			continue
		}
		out[i] = cumPV / cumVol
	}
	return out
}

// MoneyFlowIndex computes the MFI over the trailing period: a volume-
// weighted RSI analogue on the typical price, bounded to [0,100] with a
// zero negative flow mapping to 100.
func MoneyFlowIndex(bars []domain.Bar, period int) []float64 {
	out := undefined(len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}

	posFlow := make([]float64, len(bars))
	negFlow := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		tp := typicalPrice(bars[i])
		prevTP := typicalPrice(bars[i-1])
		raw := tp * float64(bars[i].Volume)
		switch {
		case tp > prevTP:
			posFlow[i] = raw
		case tp < prevTP:
			negFlow[i] = raw
		}
	}

	for i := period; i < len(bars); i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			pos += posFlow[j]
			neg += negFlow[j]
		}
		if neg == 0 {
			out[i] = 100
			continue
		}
		ratio := pos / neg
		out[i] = 100 - 100/(1+ratio)
	}
	return out
}

// AccumulationDistribution computes the A/D line: the cumulative sum of the
// close-location value scaled by volume. A bar with high == low contributes
// nothing.
func AccumulationDistribution(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))

	var ad float64
	for i, b := range bars {
		if b.High != b.Low {
			clv := ((b.Close - b.Low) - (b.High - b.Close)) / (b.High - b.Low)
			ad += clv * float64(b.Volume)
		}
		out[i] = ad
	}
	return out
}
