// Package portfolio implements the cash, position, and ledger state machine
// for one backtest run. All mutation flows through ExecuteOrder; rejected
// orders leave the portfolio untouched.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"stockstream/internal/domain"
)

// Simulation-level rejections. These are expected outcomes of a strategy
// interacting with constrained capital, not fatal errors.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrNoPosition           = errors.New("no open position")
	ErrInsufficientQuantity = errors.New("sell quantity exceeds position")
	ErrInvalidOrder         = errors.New("invalid order")
)

// CommissionBasis selects the notional the commission rate applies to.
type CommissionBasis string

// Commission bases.
const (
	BasisAdjusted  CommissionBasis = "adjusted"  // slippage-adjusted fill price
	BasisRequested CommissionBasis = "requested" // order's reference price
)

// Config holds the execution cost model and starting capital for a run.
type Config struct {
	InitialCash    float64
	CommissionRate float64
	SlippageRate   float64
	Basis          CommissionBasis
}

// position carries round-trip bookkeeping on top of the public Position
// fields so a single Trade can be emitted when the holding closes.
type position struct {
	domain.Position
	boughtQty    int64
	soldQty      int64
	soldNotional float64 // Σ fill*qty over sells, for the exit VWAP
	realized     float64 // Σ (fill - avgEntry)*qty over sells
	commissions  float64 // all commissions paid this round trip
	lastFill     float64 // most recent execution price, valuation fallback
}

// Portfolio owns the authoritative simulation state: cash balance, open
// positions, closed trades, and the transaction ledger.
type Portfolio struct {
	cfg       Config
	cash      float64
	positions map[string]*position
	trades    []domain.Trade
	ledger    []domain.Transaction
}

// New creates a Portfolio with the configured cash endowment. It fails fast
// on a non-positive endowment or malformed rates so state is never partially
// initialized.
func New(cfg Config) (*Portfolio, error) {
	if cfg.InitialCash <= 0 || math.IsNaN(cfg.InitialCash) || math.IsInf(cfg.InitialCash, 0) {
		return nil, fmt.Errorf("portfolio: initial cash must be positive and finite, got %v", cfg.InitialCash)
	}
	if cfg.CommissionRate < 0 || cfg.CommissionRate >= 1 {
		return nil, fmt.Errorf("portfolio: commission rate must be in [0,1), got %v", cfg.CommissionRate)
	}
	if cfg.SlippageRate < 0 || cfg.SlippageRate >= 1 {
		return nil, fmt.Errorf("portfolio: slippage rate must be in [0,1), got %v", cfg.SlippageRate)
	}
	if cfg.Basis == "" {
		cfg.Basis = BasisAdjusted
	}
	return &Portfolio{
		cfg:       cfg,
		cash:      cfg.InitialCash,
		positions: make(map[string]*position),
	}, nil
}

// ExecuteOrder fills a market order at the order's reference price adjusted
// for slippage in the adverse direction, applies commission, and mutates
// cash, positions, and the ledger atomically. On rejection the portfolio
// state is unchanged and a sentinel error identifies the reason.
func (p *Portfolio) ExecuteOrder(order domain.Order) (domain.Transaction, error) {
	if order.Qty <= 0 || order.Price <= 0 || math.IsNaN(order.Price) || math.IsInf(order.Price, 0) {
		return domain.Transaction{}, fmt.Errorf("%w: qty=%d price=%v", ErrInvalidOrder, order.Qty, order.Price)
	}

	switch order.Side {
	case domain.SideBuy:
		return p.executeBuy(order)
	case domain.SideSell:
		return p.executeSell(order)
	default:
		return domain.Transaction{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, order.Side)
	}
}

func (p *Portfolio) executeBuy(order domain.Order) (domain.Transaction, error) {
	fill := order.Price * (1 + p.cfg.SlippageRate)
	commission := p.commission(order, fill)
	cost := float64(order.Qty)*fill + commission

	if p.cash < cost {
		return domain.Transaction{}, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, p.cash)
	}

	p.cash -= cost

	pos, ok := p.positions[order.Symbol]
	if !ok {
		pos = &position{Position: domain.Position{
			Symbol:    order.Symbol,
			EntryDate: order.Date,
		}}
		p.positions[order.Symbol] = pos
	}
	// Weighted-average entry price across all buys in the round trip.
	oldQty := float64(pos.Qty)
	newQty := float64(order.Qty)
	pos.AvgEntry = (oldQty*pos.AvgEntry + newQty*fill) / (oldQty + newQty)
	pos.Qty += order.Qty
	pos.boughtQty += order.Qty
	pos.commissions += commission
	pos.lastFill = fill

	tx := domain.Transaction{
		Date:       order.Date,
		Symbol:     order.Symbol,
		Side:       domain.SideBuy,
		Qty:        order.Qty,
		FillPrice:  fill,
		Commission: commission,
		CashDelta:  -cost,
	}
	p.ledger = append(p.ledger, tx)
	return tx, nil
}

func (p *Portfolio) executeSell(order domain.Order) (domain.Transaction, error) {
	pos, ok := p.positions[order.Symbol]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: %s", ErrNoPosition, order.Symbol)
	}
	if pos.Qty < order.Qty {
		return domain.Transaction{}, fmt.Errorf("%w: %s holds %d, sell wants %d",
			ErrInsufficientQuantity, order.Symbol, pos.Qty, order.Qty)
	}

	fill := order.Price * (1 - p.cfg.SlippageRate)
	commission := p.commission(order, fill)
	proceeds := float64(order.Qty)*fill - commission

	p.cash += proceeds

	pos.Qty -= order.Qty
	pos.soldQty += order.Qty
	pos.soldNotional += fill * float64(order.Qty)
	pos.realized += (fill - pos.AvgEntry) * float64(order.Qty)
	pos.commissions += commission
	pos.lastFill = fill

	if pos.Qty == 0 {
		p.closeRoundTrip(pos, order.Date)
		delete(p.positions, order.Symbol)
	}

	tx := domain.Transaction{
		Date:       order.Date,
		Symbol:     order.Symbol,
		Side:       domain.SideSell,
		Qty:        order.Qty,
		FillPrice:  fill,
		Commission: commission,
		CashDelta:  proceeds,
	}
	p.ledger = append(p.ledger, tx)
	return tx, nil
}

// closeRoundTrip emits the single immutable Trade covering the whole
// open-to-close cycle of a position.
func (p *Portfolio) closeRoundTrip(pos *position, exitDate time.Time) {
	exitPx := pos.soldNotional / float64(pos.soldQty)
	pnl := pos.realized - pos.commissions

	costBasis := pos.AvgEntry * float64(pos.boughtQty)
	returnPct := 0.0
	if costBasis != 0 {
		returnPct = pnl / costBasis * 100
	}

	p.trades = append(p.trades, domain.Trade{
		Symbol:    pos.Symbol,
		EntryDate: pos.EntryDate,
		ExitDate:  exitDate,
		EntryPx:   pos.AvgEntry,
		ExitPx:    exitPx,
		Qty:       pos.boughtQty,
		PnL:       pnl,
		ReturnPct: returnPct,
	})
}

// commission computes the commission for an order given its slippage-
// adjusted fill price, honoring the configured basis.
func (p *Portfolio) commission(order domain.Order, fill float64) float64 {
	notional := float64(order.Qty) * fill
	if p.cfg.Basis == BasisRequested {
		notional = float64(order.Qty) * order.Price
	}
	return p.cfg.CommissionRate * notional
}

// MarkToMarket values the portfolio at the given close prices: cash plus the
// market value of every open position. Read-only: callers own carrying last
// known closes across date gaps; a position whose symbol is missing from
// prices is valued at its most recent fill price.
func (p *Portfolio) MarkToMarket(prices map[string]float64) float64 {
	total := p.cash
	for sym, pos := range p.positions {
		px, ok := prices[sym]
		if !ok {
			px = pos.lastFill
		}
		total += float64(pos.Qty) * px
	}
	return total
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// Position returns the open position for symbol. The second return value is
// false when no position is open.
func (p *Portfolio) Position(symbol string) (domain.Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return pos.Position, true
}

// Positions returns all open positions sorted by symbol.
func (p *Portfolio) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos.Position)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns the closed-trade history in emission order.
func (p *Portfolio) Trades() []domain.Trade { return p.trades }

// Transactions returns the append-only execution ledger.
func (p *Portfolio) Transactions() []domain.Transaction { return p.ledger }

// TotalCommissions sums commissions across the whole ledger.
func (p *Portfolio) TotalCommissions() float64 {
	var sum float64
	for _, tx := range p.ledger {
		sum += tx.Commission
	}
	return sum
}
