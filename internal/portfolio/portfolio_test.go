package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"stockstream/internal/domain"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func newTestPortfolio(t *testing.T, cash float64) *Portfolio {
	t.Helper()
	p, err := New(Config{InitialCash: cash})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return p
}

func buy(symbol string, qty int64, price float64) domain.Order {
	return domain.Order{Symbol: symbol, Side: domain.SideBuy, Kind: domain.OrderMarket,
		Qty: qty, Price: price, Date: testDate}
}

func sell(symbol string, qty int64, price float64) domain.Order {
	return domain.Order{Symbol: symbol, Side: domain.SideSell, Kind: domain.OrderMarket,
		Qty: qty, Price: price, Date: testDate.AddDate(0, 0, 5)}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero cash", Config{InitialCash: 0}},
		{"negative cash", Config{InitialCash: -100}},
		{"commission out of range", Config{InitialCash: 1000, CommissionRate: 1}},
		{"negative slippage", Config{InitialCash: 1000, SlippageRate: -0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() accepted invalid config")
			}
		})
	}
}

func TestRoundTripAccounting(t *testing.T) {
	// Buy 100 @ 10.00, sell 100 @ 12.00 with zero commission and slippage:
	// exactly one Trade with PnL 200 and a net cash change of +200.
	p := newTestPortfolio(t, 10000)

	if _, err := p.ExecuteOrder(buy("BHP", 100, 10)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if p.Cash() != 9000 {
		t.Errorf("cash after buy = %v, want 9000", p.Cash())
	}

	if _, err := p.ExecuteOrder(sell("BHP", 100, 12)); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if p.Cash() != 10200 {
		t.Errorf("cash after sell = %v, want 10200", p.Cash())
	}

	trades := p.Trades()
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if tr.PnL != 200 {
		t.Errorf("trade PnL = %v, want 200", tr.PnL)
	}
	if tr.Qty != 100 || tr.EntryPx != 10 || tr.ExitPx != 12 {
		t.Errorf("trade = %+v, want qty=100 entry=10 exit=12", tr)
	}
	if _, open := p.Position("BHP"); open {
		t.Error("position still open after full sell")
	}
}

func TestInsufficientFundsRejection(t *testing.T) {
	// cash=500, buy 100 @ 10.00 costs 1000: rejected with no state change.
	p := newTestPortfolio(t, 500)

	_, err := p.ExecuteOrder(buy("BHP", 100, 10))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if p.Cash() != 500 {
		t.Errorf("cash after rejection = %v, want 500 unchanged", p.Cash())
	}
	if _, open := p.Position("BHP"); open {
		t.Error("rejected buy created a position")
	}
	if len(p.Transactions()) != 0 {
		t.Error("rejected buy appended to the ledger")
	}
}

func TestSellWithoutPosition(t *testing.T) {
	p := newTestPortfolio(t, 1000)
	_, err := p.ExecuteOrder(sell("BHP", 10, 10))
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("err = %v, want ErrNoPosition", err)
	}
}

func TestOversellRejected(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	if _, err := p.ExecuteOrder(buy("BHP", 50, 10)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	_, err := p.ExecuteOrder(sell("BHP", 100, 10))
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("err = %v, want ErrInsufficientQuantity", err)
	}
	pos, _ := p.Position("BHP")
	if pos.Qty != 50 {
		t.Errorf("position qty after rejected oversell = %d, want 50", pos.Qty)
	}
	if pos.Qty < 0 {
		t.Error("position quantity went negative")
	}
}

func TestWeightedAverageEntry(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	p.ExecuteOrder(buy("BHP", 100, 10))
	p.ExecuteOrder(buy("BHP", 50, 13))

	pos, ok := p.Position("BHP")
	if !ok {
		t.Fatal("position missing after two buys")
	}
	// (100*10 + 50*13) / 150 = 11.
	if math.Abs(pos.AvgEntry-11) > 1e-12 {
		t.Errorf("AvgEntry = %v, want 11", pos.AvgEntry)
	}
	if pos.Qty != 150 {
		t.Errorf("Qty = %d, want 150", pos.Qty)
	}
}

func TestPartialSellsSingleTrade(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	p.ExecuteOrder(buy("BHP", 100, 10))
	p.ExecuteOrder(sell("BHP", 40, 12))

	if len(p.Trades()) != 0 {
		t.Fatal("trade emitted before position fully closed")
	}
	pos, _ := p.Position("BHP")
	if pos.Qty != 60 {
		t.Errorf("qty after partial sell = %d, want 60", pos.Qty)
	}

	p.ExecuteOrder(sell("BHP", 60, 14))
	trades := p.Trades()
	if len(trades) != 1 {
		t.Fatalf("got %d trades after close, want 1", len(trades))
	}
	tr := trades[0]
	if tr.Qty != 100 {
		t.Errorf("trade qty = %d, want 100 (full round trip)", tr.Qty)
	}
	// Exit VWAP: (40*12 + 60*14)/100 = 13.2; PnL = (13.2-10)*100 = 320.
	if math.Abs(tr.ExitPx-13.2) > 1e-9 {
		t.Errorf("exit price = %v, want 13.2", tr.ExitPx)
	}
	if math.Abs(tr.PnL-320) > 1e-9 {
		t.Errorf("PnL = %v, want 320", tr.PnL)
	}
}

func TestCommissionAndSlippage(t *testing.T) {
	p, err := New(Config{
		InitialCash:    10000,
		CommissionRate: 0.001,
		SlippageRate:   0.01,
		Basis:          BasisAdjusted,
	})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	tx, err := p.ExecuteOrder(buy("BHP", 100, 10))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	// Buys pay more: fill = 10 * 1.01 = 10.10.
	if math.Abs(tx.FillPrice-10.10) > 1e-9 {
		t.Errorf("buy fill = %v, want 10.10", tx.FillPrice)
	}
	wantCommission := 0.001 * 100 * 10.10
	if math.Abs(tx.Commission-wantCommission) > 1e-9 {
		t.Errorf("commission = %v, want %v", tx.Commission, wantCommission)
	}

	tx, err = p.ExecuteOrder(sell("BHP", 100, 10))
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	// Sells receive less: fill = 10 * 0.99 = 9.90.
	if math.Abs(tx.FillPrice-9.90) > 1e-9 {
		t.Errorf("sell fill = %v, want 9.90", tx.FillPrice)
	}
}

func TestCashConservation(t *testing.T) {
	// At every step: cash + position cost basis + realized PnL of closed
	// trades + commissions paid reconciles to initial cash... with realized
	// PnL counted as money the market added/removed.
	p, err := New(Config{InitialCash: 100000, CommissionRate: 0.002, SlippageRate: 0.001})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	orders := []domain.Order{
		buy("BHP", 100, 50),
		buy("CBA", 30, 110),
		sell("BHP", 60, 55),
		buy("BHP", 20, 52),
		sell("BHP", 60, 58),
		sell("CBA", 30, 105),
	}
	for _, o := range orders {
		if _, err := p.ExecuteOrder(o); err != nil {
			t.Fatalf("order %+v failed: %v", o, err)
		}
		reconcile(t, p, 100000)
	}
}

// reconcile checks that no money is created or destroyed: initial cash plus
// every ledger cash delta equals the current balance, and open-position cost
// basis matches what left cash net of realized gains and commissions.
func reconcile(t *testing.T, p *Portfolio, initial float64) {
	t.Helper()

	var deltas float64
	for _, tx := range p.Transactions() {
		deltas += tx.CashDelta
	}
	if math.Abs(initial+deltas-p.Cash()) > 1e-6 {
		t.Errorf("ledger does not reconcile: initial %v + deltas %v != cash %v",
			initial, deltas, p.Cash())
	}
	if p.Cash() < 0 {
		t.Errorf("cash went negative: %v", p.Cash())
	}
}

func TestInvalidOrders(t *testing.T) {
	p := newTestPortfolio(t, 1000)

	tests := []struct {
		name  string
		order domain.Order
	}{
		{"zero qty", domain.Order{Symbol: "BHP", Side: domain.SideBuy, Qty: 0, Price: 10}},
		{"negative qty", domain.Order{Symbol: "BHP", Side: domain.SideBuy, Qty: -5, Price: 10}},
		{"zero price", domain.Order{Symbol: "BHP", Side: domain.SideBuy, Qty: 10, Price: 0}},
		{"nan price", domain.Order{Symbol: "BHP", Side: domain.SideBuy, Qty: 10, Price: math.NaN()}},
		{"unknown side", domain.Order{Symbol: "BHP", Side: "hold", Qty: 10, Price: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ExecuteOrder(tt.order)
			if !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("err = %v, want ErrInvalidOrder", err)
			}
		})
	}
	if len(p.Transactions()) != 0 {
		t.Error("invalid orders reached the ledger")
	}
}

func TestMarkToMarket(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	p.ExecuteOrder(buy("BHP", 100, 10))

	total := p.MarkToMarket(map[string]float64{"BHP": 11})
	// 9000 cash + 100*11.
	if total != 10100 {
		t.Errorf("MarkToMarket = %v, want 10100", total)
	}

	// Valuation is stateless: a missing price falls back to the fill price,
	// not to any previously supplied mark.
	total = p.MarkToMarket(map[string]float64{})
	if total != 10000 {
		t.Errorf("MarkToMarket with missing price = %v, want 10000 (fill price)", total)
	}
	total = p.MarkToMarket(map[string]float64{"BHP": 11})
	if total != 10100 {
		t.Errorf("MarkToMarket after fallback = %v, want 10100", total)
	}
}
