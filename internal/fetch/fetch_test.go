package fetch

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"stockstream/internal/domain"
)

func validBar() domain.Bar {
	return domain.Bar{
		Symbol: "BHP",
		Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:   45.0, High: 46.0, Low: 44.5, Close: 45.5,
		AdjClose: 45.5, Volume: 8000000,
	}
}

func TestValidateSymbol(t *testing.T) {
	cases := []struct {
		symbol string
		ok     bool
	}{
		{"BHP", true},
		{"CBA", true},
		{"A2M", true},
		{"ABCDE", true},
		{"ABCDEF", false},
		{"", false},
		{"bhp", false},
		{"BHP.AX", false},
	}
	for _, c := range cases {
		err := ValidateSymbol(c.symbol)
		if c.ok && err != nil {
			t.Errorf("ValidateSymbol(%q) = %v, want nil", c.symbol, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateSymbol(%q) accepted an invalid symbol", c.symbol)
		}
	}
}

func TestValidateDate(t *testing.T) {
	if err := ValidateDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("ValidateDate rejected a plausible date: %v", err)
	}
	if err := ValidateDate(time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Error("ValidateDate accepted a pre-1990 date")
	}
	if err := ValidateDate(time.Now().UTC().AddDate(0, 0, 7)); err == nil {
		t.Error("ValidateDate accepted a future date")
	}
}

func TestValidateBar(t *testing.T) {
	if err := ValidateBar(validBar()); err != nil {
		t.Fatalf("ValidateBar rejected a valid bar: %v", err)
	}

	lowAbove := validBar()
	lowAbove.Low = 45.2 // above open 45.0
	if err := ValidateBar(lowAbove); err == nil {
		t.Error("ValidateBar accepted low above min(open, close)")
	}

	highBelow := validBar()
	highBelow.High = 45.2 // below close 45.5
	if err := ValidateBar(highBelow); err == nil {
		t.Error("ValidateBar accepted high below max(open, close)")
	}

	zeroPrice := validBar()
	zeroPrice.Open = 0
	if err := ValidateBar(zeroPrice); err == nil {
		t.Error("ValidateBar accepted a zero price")
	}

	negVolume := validBar()
	negVolume.Volume = -1
	if err := ValidateBar(negVolume); err == nil {
		t.Error("ValidateBar accepted negative volume")
	}
}

func TestCleanBars(t *testing.T) {
	bad := validBar()
	bad.Low = 99 // impossible

	valid, errs := CleanBars([]domain.Bar{validBar(), bad, validBar()})
	if len(valid) != 2 {
		t.Errorf("CleanBars kept %d bars, want 2", len(valid))
	}
	if len(errs) != 1 {
		t.Errorf("CleanBars reported %d errors, want 1", len(errs))
	}
}

func TestSplitBatches(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E"}
	batches := splitBatches(symbols, 2)
	if len(batches) != 3 {
		t.Fatalf("splitBatches produced %d batches, want 3", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[2]) != 1 {
		t.Errorf("batch sizes = %d,%d,%d, want 2,2,1",
			len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestFetcherRateLimitUnsetDoesNotStall(t *testing.T) {
	// A config that omits rate_limit_per_min must fall back to the default
	// budget, not a zero-replenishment limiter that blocks after the first
	// request.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := NewDailyBarFetcher("key", "secret", "", nil, 10, 2, 0, "2024-01-01", log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		t.Fatalf("second Wait blocked with an unset rate limit: %v", err)
	}
}

func TestLastFinishedTradingDay(t *testing.T) {
	// Monday morning: the last finished session is the previous Friday.
	monday := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	got := lastFinishedTradingDay(monday)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("lastFinishedTradingDay(Monday) = %v, want Friday %v", got, want)
	}

	// Wednesday: the last finished session is Tuesday.
	wednesday := time.Date(2024, 3, 6, 9, 30, 0, 0, time.UTC)
	got = lastFinishedTradingDay(wednesday)
	want = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("lastFinishedTradingDay(Wednesday) = %v, want Tuesday %v", got, want)
	}
}
