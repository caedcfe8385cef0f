// Package domain defines the core value types shared across the stockstream
// platform: bars, orders, positions, trades, and ledger transactions.
package domain

import "time"

// Side is the direction of an order.
type Side string

// Order sides.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderKind is the execution kind of an order. Limit and stop orders are
// accepted as declared kinds, but the simulation core only fills market
// orders at the reference price adjusted by slippage.
type OrderKind string

// Order kinds.
const (
	OrderMarket OrderKind = "market"
	OrderLimit  OrderKind = "limit"
	OrderStop   OrderKind = "stop"
)

// Bar is one symbol's OHLCV observation for one trading date. Dates carry no
// time component; bars are normalized to midnight UTC.
type Bar struct {
	Symbol   string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// Order is a strategy's intent to trade one symbol on one date. Price is the
// reference price (typically the bar's close); the portfolio adjusts it for
// slippage at fill time. An Order is consumed exactly once by the portfolio
// and not retained beyond the resulting Transaction.
type Order struct {
	Symbol string
	Side   Side
	Kind   OrderKind
	Qty    int64
	Price  float64
	Date   time.Time
}

// Position is an open long holding. AvgEntry is the weighted-average entry
// price across all buys that built the position.
type Position struct {
	Symbol    string
	Qty       int64
	AvgEntry  float64
	EntryDate time.Time
}

// Trade is a closed round trip: a position fully opened and later fully
// closed. Immutable once emitted. PnL is realized profit net of all
// commissions paid across the round trip.
type Trade struct {
	Symbol    string
	EntryDate time.Time
	ExitDate  time.Time
	EntryPx   float64
	ExitPx    float64
	Qty       int64
	PnL       float64
	ReturnPct float64
}

// Transaction is an immutable ledger entry recorded for every executed
// order. CashDelta is the signed change to the cash balance (negative for
// buys, positive for sells), net of commission.
type Transaction struct {
	Date       time.Time
	Symbol     string
	Side       Side
	Qty        int64
	FillPrice  float64
	Commission float64
	CashDelta  float64
}
