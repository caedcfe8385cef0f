package builtins

import (
	"fmt"

	"stockstream/internal/strategy"
)

// FromConfig constructs a builtin strategy by name with the given numeric
// parameters. Missing parameters fall back to conventional defaults.
func FromConfig(name string, params map[string]float64) (strategy.Strategy, error) {
	get := func(key string, def float64) float64 {
		if v, ok := params[key]; ok {
			return v
		}
		return def
	}

	switch name {
	case "sma-cross":
		return NewSMACross(
			int(get("fast", 5)),
			int(get("slow", 20)),
			get("allocation", 1.0),
		), nil
	case "rsi-reversion":
		return NewRSIReversion(
			int(get("period", 14)),
			get("oversold", 30),
			get("overbought", 70),
			get("allocation", 1.0),
		), nil
	case "bollinger-reversion":
		return NewBollingerReversion(
			int(get("period", 20)),
			get("width", 2),
			get("allocation", 1.0),
		), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// RegisterAll registers every builtin strategy with default parameters in
// the given registry.
func RegisterAll(r *strategy.Registry) {
	r.Register(NewSMACross(5, 20, 1.0))
	r.Register(NewRSIReversion(14, 30, 70, 1.0))
	r.Register(NewBollingerReversion(20, 2, 1.0))
}
