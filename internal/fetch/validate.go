// Package fetch pulls daily OHLCV bars from the Alpaca market-data API,
// validates them, and writes them to the bar store.
package fetch

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"stockstream/internal/domain"
)

// symbolPattern matches the ticker formats accepted for storage: one to
// five uppercase letters or digits.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

// earliestBarDate is the floor for plausible bar dates. Anything earlier is
// treated as a feed artifact.
var earliestBarDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// ValidateSymbol reports whether symbol is an acceptable ticker.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol %q", symbol)
	}
	return nil
}

// ValidateDate rejects bar dates in the future or implausibly far in the
// past.
func ValidateDate(d time.Time) error {
	if d.Before(earliestBarDate) {
		return fmt.Errorf("date %s predates %s", d.Format("2006-01-02"), earliestBarDate.Format("2006-01-02"))
	}
	if d.After(time.Now().UTC()) {
		return fmt.Errorf("date %s is in the future", d.Format("2006-01-02"))
	}
	return nil
}

// ValidateBar checks one bar for internal consistency: symbol and date
// plausibility, finite positive prices, low at or below the body, high at
// or above it, and non-negative volume.
func ValidateBar(b domain.Bar) error {
	if err := ValidateSymbol(b.Symbol); err != nil {
		return err
	}
	if err := ValidateDate(b.Date); err != nil {
		return fmt.Errorf("%s: %w", b.Symbol, err)
	}

	for _, p := range []struct {
		name  string
		value float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close},
	} {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return fmt.Errorf("%s %s: %s price %v is not a positive finite number",
				b.Symbol, b.Date.Format("2006-01-02"), p.name, p.value)
		}
	}

	if b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("%s %s: low %v above min(open, close)",
			b.Symbol, b.Date.Format("2006-01-02"), b.Low)
	}
	if b.High < math.Max(b.Open, b.Close) {
		return fmt.Errorf("%s %s: high %v below max(open, close)",
			b.Symbol, b.Date.Format("2006-01-02"), b.High)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%s %s: negative volume %d",
			b.Symbol, b.Date.Format("2006-01-02"), b.Volume)
	}
	return nil
}

// CleanBars splits bars into valid ones and the errors for those rejected.
func CleanBars(bars []domain.Bar) ([]domain.Bar, []error) {
	valid := make([]domain.Bar, 0, len(bars))
	var errs []error
	for _, b := range bars {
		if err := ValidateBar(b); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, b)
	}
	return valid, errs
}
