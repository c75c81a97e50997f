// Package validation stress-tests a backtest: chronological out-of-sample
// splits, walk-forward folds, and Monte Carlo permutation tests. Each
// sub-run re-executes the full pipeline over its own data slice; sub-runs
// share nothing and may execute concurrently.
package validation

import (
	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/sim"
	"github.com/edgelab-quant/priceaction/internal/types"
)

// RunResult is the outcome of one full pipeline execution over a series
// slice.
type RunResult struct {
	Metrics types.PerformanceMetrics
	Trades  *types.TradeLog
	Equity  *types.EquityCurve
	Signals []types.Signal
}

// RunFunc executes detection, strategies, simulation, and metrics over one
// series. Implementations must be safe to call concurrently: every call
// builds its own detector, strategies, and simulator.
type RunFunc func(series *types.Series) (RunResult, error)

// MetricFunc reduces one series to a single comparison metric.
type MetricFunc func(series *types.Series) (float64, error)

// SignalReplay builds a MetricFunc that replays a fixed signal sequence
// through a fresh simulator and reports net PnL. Sessions are positional,
// so they remain valid for surrogate series with identical timestamps.
func SignalReplay(signals []types.Signal, sessions []market.Session, config sim.Config) MetricFunc {
	return func(series *types.Series) (float64, error) {
		simulator, err := sim.NewSimulator(config, nil)
		if err != nil {
			return 0, err
		}

		result, err := simulator.Run(series, sessions, signals)
		if err != nil {
			return 0, err
		}

		return result.Trades.NetPnL(), nil
	}
}
