package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records why a trade was closed.
type ExitReason string

const (
	ExitReasonStop       ExitReason = "stop"
	ExitReasonTarget     ExitReason = "target"
	ExitReasonFlatSignal ExitReason = "flat_signal"
	ExitReasonReversal   ExitReason = "reversal"
	ExitReasonSessionEnd ExitReason = "session_end"
	ExitReasonEndOfData  ExitReason = "end_of_data"
)

// Trade is one round trip produced by the execution simulator. It is
// immutable once closed.
type Trade struct {
	ID         string     `csv:"id"`
	Strategy   string     `csv:"strategy"`
	Direction  Direction  `csv:"direction"`
	EntryIndex int        `csv:"entry_index"`
	EntryTime  time.Time  `csv:"entry_time"`
	EntryPrice float64    `csv:"entry_price"`
	ExitIndex  int        `csv:"exit_index"`
	ExitTime   time.Time  `csv:"exit_time"`
	ExitPrice  float64    `csv:"exit_price"`
	Quantity   float64    `csv:"quantity"`
	// Costs is total commission and slippage across entry and exit.
	Costs      float64    `csv:"costs"`
	ExitReason ExitReason `csv:"exit_reason"`
	// SignalIndex is the bar index of the originating signal, kept for
	// causality audits (fill index must be strictly greater).
	SignalIndex int `csv:"signal_index"`
}

// GrossPnL is the price move times quantity, before costs.
func (t Trade) GrossPnL() float64 {
	entry := decimal.NewFromFloat(t.EntryPrice)
	exit := decimal.NewFromFloat(t.ExitPrice)
	qty := decimal.NewFromFloat(t.Quantity)

	move := exit.Sub(entry)
	if t.Direction == DirectionShort {
		move = entry.Sub(exit)
	}

	result, _ := move.Mul(qty).Float64()

	return result
}

// NetPnL is gross PnL minus total costs.
func (t Trade) NetPnL() float64 {
	gross := decimal.NewFromFloat(t.GrossPnL())
	costs := decimal.NewFromFloat(t.Costs)

	result, _ := gross.Sub(costs).Float64()

	return result
}

// TradeLog is an append-only ordered sequence of closed trades for one
// backtest run.
type TradeLog struct {
	trades []Trade
}

// NewTradeLog returns an empty trade log.
func NewTradeLog() *TradeLog {
	return &TradeLog{trades: nil}
}

// Append records a closed trade.
func (l *TradeLog) Append(t Trade) {
	l.trades = append(l.trades, t)
}

// Trades returns the closed trades in order. Read-only to callers.
func (l *TradeLog) Trades() []Trade {
	return l.trades
}

// Len returns the number of closed trades.
func (l *TradeLog) Len() int {
	return len(l.trades)
}

// NetPnL sums net PnL across all trades.
func (l *TradeLog) NetPnL() float64 {
	sum := decimal.Zero
	for _, t := range l.trades {
		sum = sum.Add(decimal.NewFromFloat(t.NetPnL()))
	}

	result, _ := sum.Float64()

	return result
}

// EquityPoint is one observation of cumulative equity.
type EquityPoint struct {
	BarIndex int       `csv:"bar_index"`
	Time     time.Time `csv:"time"`
	Equity   float64   `csv:"equity"`
}

// EquityCurve is the per-bar cumulative equity of a run.
type EquityCurve struct {
	Points []EquityPoint
}

// Append adds an equity observation.
func (c *EquityCurve) Append(p EquityPoint) {
	c.Points = append(c.Points, p)
}

// Final returns the last equity value, or the starting equity if empty.
func (c *EquityCurve) Final(starting float64) float64 {
	if len(c.Points) == 0 {
		return starting
	}

	return c.Points[len(c.Points)-1].Equity
}
