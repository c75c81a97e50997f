package validation

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edgelab-quant/priceaction/internal/logger"
	"github.com/edgelab-quant/priceaction/internal/metrics"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// WalkForwardConfig shapes the sliding train/test window sweep. The window
// steps forward by the test length, so consecutive test segments tile the
// data without overlap.
type WalkForwardConfig struct {
	TrainBars int `yaml:"train_bars" json:"train_bars" validate:"min=1"`
	TestBars  int `yaml:"test_bars" json:"test_bars" validate:"min=1"`
	// StartingEquity anchors the concatenated out-of-sample curve.
	StartingEquity float64 `yaml:"starting_equity" json:"starting_equity" validate:"gt=0"`
}

// DefaultWalkForwardConfig uses a 60/20 bar window.
func DefaultWalkForwardConfig() WalkForwardConfig {
	return WalkForwardConfig{TrainBars: 60, TestBars: 20, StartingEquity: 100_000}
}

// Validate checks the struct tags.
func (c *WalkForwardConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid walk-forward config", err)
	}

	return nil
}

// Fold is one train/test window. All ranges are half-open bar indices
// into the full series.
type Fold struct {
	Index      int
	TrainStart int
	TrainEnd   int
	TestStart  int
	TestEnd    int
	Train      RunResult
	Test       RunResult
}

// FoldFailure records a fold excluded from aggregation.
type FoldFailure struct {
	Index int
	Err   error
}

// WalkForwardResult aggregates the test windows into one continuous
// out-of-sample record. Failed folds are reported, never aggregated.
type WalkForwardResult struct {
	Folds  []Fold
	Failed []FoldFailure
	// CombinedTrades and CombinedEquity concatenate the test windows in
	// chronological order; trade indices stay window-local.
	CombinedTrades *types.TradeLog
	CombinedEquity *types.EquityCurve
	Combined       types.PerformanceMetrics
}

// WalkForward slides the window over the series and runs every fold's
// train and test segments. Folds are independent and execute concurrently.
func WalkForward(series *types.Series, config WalkForwardConfig, run RunFunc, log *logger.Logger) (*WalkForwardResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	window := config.TrainBars + config.TestBars
	if series.Len() < window {
		return nil, errors.Newf(errors.ErrCodeWindowTooShort,
			"%d bars cannot fit a %d bar train/test window", series.Len(), window)
	}

	var starts []int
	for start := 0; start+window <= series.Len(); start += config.TestBars {
		starts = append(starts, start)
	}

	folds := make([]Fold, len(starts))
	failures := make([]error, len(starts))

	var wg sync.WaitGroup

	for i, start := range starts {
		fold := Fold{
			Index:      i,
			TrainStart: start,
			TrainEnd:   start + config.TrainBars,
			TestStart:  start + config.TrainBars,
			TestEnd:    start + window,
		}

		wg.Add(1)

		go func(slot int, fold Fold) {
			defer wg.Done()

			train, err := run(series.Slice(fold.TrainStart, fold.TrainEnd))
			if err != nil {
				failures[slot] = err

				return
			}

			test, err := run(series.Slice(fold.TestStart, fold.TestEnd))
			if err != nil {
				failures[slot] = err

				return
			}

			fold.Train = train
			fold.Test = test
			folds[slot] = fold
		}(i, fold)
	}

	wg.Wait()

	result := &WalkForwardResult{
		CombinedTrades: types.NewTradeLog(),
		CombinedEquity: &types.EquityCurve{},
	}

	offset := 0.0

	for i := range folds {
		if failures[i] != nil {
			log.Warn("walk-forward fold excluded",
				zap.Int("fold", i),
				zap.Error(failures[i]),
			)

			result.Failed = append(result.Failed, FoldFailure{Index: i, Err: failures[i]})

			continue
		}

		fold := folds[i]
		result.Folds = append(result.Folds, fold)

		for _, trade := range fold.Test.Trades.Trades() {
			result.CombinedTrades.Append(trade)
		}

		for _, point := range fold.Test.Equity.Points {
			point.Equity += offset
			result.CombinedEquity.Append(point)
		}

		offset += fold.Test.Equity.Final(config.StartingEquity) - config.StartingEquity
	}

	result.Combined = metrics.Compute(result.CombinedTrades, result.CombinedEquity, metrics.Config{
		StartingEquity: config.StartingEquity,
		Resampling:     metrics.ResamplePerTrade,
	})

	return result, nil
}
