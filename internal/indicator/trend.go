package indicator

// SimpleMA computes the simple moving average of values over the trailing
// period. Entries before index period-1 are NaN.
func SimpleMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ExponentialMA computes the exponential moving average of values. The
// series is seeded at index period-1 with the simple moving average of the
// first period values, then follows the recurrence
// ema[i] = v[i]*k + ema[i-1]*(1-k) with k = 2/(period+1).
func ExponentialMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)
	out[period-1] = seed

	k := 2.0 / float64(period+1)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// WeightedMA computes the linearly weighted moving average, where the most
// recent value in the window carries weight period and the oldest weight 1.
func WeightedMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(values); i++ {
		var weighted float64
		for j := 0; j < period; j++ {
			weighted += values[i-j] * float64(period-j)
		}
		out[i] = weighted / denom
	}
	return out
}
