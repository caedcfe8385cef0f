package util

import "time"

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modelled; the fetch job simply gets an empty response on those days.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// NextTradingDay returns the first weekday strictly after t.
func NextTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TruncateToDate drops the time component of t, returning midnight UTC of
// the same calendar date. Bars are keyed by date only.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
