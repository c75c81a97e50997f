// Package metrics reduces a trade log and equity curve into aggregate
// performance statistics. The reduction is a pure function of its inputs;
// undefined ratios come back as NaN, never as errors.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/edgelab-quant/priceaction/internal/types"
)

// Resampling selects the return stream the Sharpe ratio is computed over.
type Resampling string

const (
	// ResamplePerTrade uses one return per closed trade.
	ResamplePerTrade Resampling = "per_trade"
	// ResampleDaily buckets equity by calendar day and uses day-over-day
	// returns.
	ResampleDaily Resampling = "daily"
)

// Config tunes the reduction.
type Config struct {
	// StartingEquity anchors return computation.
	StartingEquity float64 `yaml:"starting_equity" json:"starting_equity" validate:"gt=0"`
	// Resampling picks the Sharpe return stream.
	Resampling Resampling `yaml:"resampling" json:"resampling" validate:"oneof=per_trade daily"`
}

// DefaultConfig computes per-trade Sharpe from 100k starting equity.
func DefaultConfig() Config {
	return Config{StartingEquity: 100_000, Resampling: ResamplePerTrade}
}

// Compute reduces one run into its performance metrics.
func Compute(trades *types.TradeLog, curve *types.EquityCurve, config Config) types.PerformanceMetrics {
	m := types.PerformanceMetrics{
		TradeCount:   trades.Len(),
		WinRate:      math.NaN(),
		LossRate:     math.NaN(),
		AvgWin:       math.NaN(),
		AvgLoss:      math.NaN(),
		WinLossRatio: math.NaN(),
		SharpeRatio:  math.NaN(),
	}

	gross := decimal.Zero
	net := decimal.Zero
	winSum, lossSum := decimal.Zero, decimal.Zero
	wins, losses := 0, 0

	for _, trade := range trades.Trades() {
		gross = gross.Add(decimal.NewFromFloat(trade.GrossPnL()))

		pnl := trade.NetPnL()
		net = net.Add(decimal.NewFromFloat(pnl))

		switch {
		case pnl > 0:
			wins++
			winSum = winSum.Add(decimal.NewFromFloat(pnl))
		case pnl < 0:
			losses++
			lossSum = lossSum.Add(decimal.NewFromFloat(pnl))
		}
	}

	m.GrossPnL, _ = gross.Float64()
	m.NetPnL, _ = net.Float64()
	m.MaxDrawdown = maxDrawdown(curve)

	if trades.Len() == 0 {
		return m
	}

	m.WinRate = float64(wins) / float64(trades.Len())
	m.LossRate = float64(losses) / float64(trades.Len())

	if wins > 0 {
		avg, _ := winSum.Div(decimal.NewFromInt(int64(wins))).Float64()
		m.AvgWin = avg
	}

	if losses > 0 {
		avg, _ := lossSum.Div(decimal.NewFromInt(int64(losses))).Float64()
		m.AvgLoss = avg
	}

	if wins > 0 && losses > 0 && m.AvgLoss != 0 {
		m.WinLossRatio = m.AvgWin / math.Abs(m.AvgLoss)
	}

	m.SharpeRatio = sharpe(returns(trades, curve, config))

	return m
}

// returns builds the return stream for the Sharpe ratio.
func returns(trades *types.TradeLog, curve *types.EquityCurve, config Config) []float64 {
	if config.Resampling == ResampleDaily {
		return dailyReturns(curve)
	}

	stream := make([]float64, 0, trades.Len())
	for _, trade := range trades.Trades() {
		stream = append(stream, trade.NetPnL()/config.StartingEquity)
	}

	return stream
}

// dailyReturns takes the last equity observation of each calendar day and
// computes day-over-day relative changes.
func dailyReturns(curve *types.EquityCurve) []float64 {
	var closes []float64

	var day string

	for _, point := range curve.Points {
		d := point.Time.Format("2006-01-02")
		if d != day {
			closes = append(closes, point.Equity)
			day = d
		} else {
			closes[len(closes)-1] = point.Equity
		}
	}

	stream := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			stream = append(stream, closes[i]/closes[i-1]-1)
		}
	}

	return stream
}

// sharpe is mean over standard deviation of the return stream, with no
// annualization. Fewer than two observations or zero variance is NaN.
func sharpe(stream []float64) float64 {
	if len(stream) < 2 {
		return math.NaN()
	}

	mean := 0.0
	for _, r := range stream {
		mean += r
	}

	mean /= float64(len(stream))

	variance := 0.0
	for _, r := range stream {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(stream) - 1)
	if variance == 0 {
		return math.NaN()
	}

	return mean / math.Sqrt(variance)
}

// maxDrawdown is the worst peak-to-trough decline of the equity curve,
// expressed as a non-positive absolute amount.
func maxDrawdown(curve *types.EquityCurve) float64 {
	if len(curve.Points) == 0 {
		return 0
	}

	peak := curve.Points[0].Equity
	worst := 0.0

	for _, point := range curve.Points {
		if point.Equity > peak {
			peak = point.Equity
		}

		if dd := point.Equity - peak; dd < worst {
			worst = dd
		}
	}

	return worst
}
