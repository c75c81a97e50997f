package validation

import (
	"math"
	"math/rand"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/edgelab-quant/priceaction/internal/logger"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// PermutationConfig shapes the Monte Carlo permutation test.
type PermutationConfig struct {
	// N is the number of surrogate series.
	N int `yaml:"n" json:"n" validate:"min=1"`
	// Seed makes the sweep reproducible; replica i derives its own
	// generator from Seed+i.
	Seed int64 `yaml:"seed" json:"seed"`
	// Alpha is the significance level.
	Alpha float64 `yaml:"alpha" json:"alpha" validate:"gt=0,lt=1"`
	// Workers caps concurrent replicas; zero means one per replica batch
	// of eight.
	Workers int `yaml:"workers" json:"workers" validate:"min=0"`
	// Progress renders a progress bar on stderr during the sweep.
	Progress bool `yaml:"progress" json:"progress"`
}

// DefaultPermutationConfig runs 1000 replicas at the 5% level.
func DefaultPermutationConfig() PermutationConfig {
	return PermutationConfig{N: 1000, Seed: 42, Alpha: 0.05, Workers: 8}
}

// Validate checks the struct tags.
func (c *PermutationConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid permutation config", err)
	}

	return nil
}

// PermutationResult is the outcome of one sweep.
type PermutationResult struct {
	// RealMetric is the metric of the unshuffled series.
	RealMetric float64
	// Surrogates holds the metric of every successful replica.
	Surrogates []float64
	// PValue is the fraction of surrogate metrics at or above the real
	// one. Bounded in [0, 1].
	PValue float64
	// Significant reports PValue < Alpha.
	Significant bool
	// Failed counts replicas excluded from the distribution.
	Failed int
}

// Permutation destroys the pairing between the rule's signals and the bar
// sequence: each replica shuffles the series' close-to-close log returns,
// rebuilds the bars, and re-measures the metric. Replicas run on a worker
// pool with deterministic per-replica generators.
func Permutation(series *types.Series, config PermutationConfig, measure MetricFunc, log *logger.Logger) (*PermutationResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	observed, err := measure(series)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePermutationFailed, "real run failed", err)
	}

	workers := config.Workers
	if workers == 0 {
		workers = 8
	}

	var bar *progressbar.ProgressBar
	if config.Progress {
		bar = progressbar.Default(int64(config.N))
	}

	surrogates := make([]float64, config.N)
	failures := make([]error, config.N)
	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				rng := rand.New(rand.NewSource(config.Seed + int64(i)))

				metric, err := measure(shuffledSeries(series, rng))
				if err != nil {
					failures[i] = err
				} else {
					surrogates[i] = metric
				}

				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

	for i := 0; i < config.N; i++ {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	result := &PermutationResult{RealMetric: observed}

	atLeast := 0

	for i := 0; i < config.N; i++ {
		if failures[i] != nil {
			log.Warn("permutation replica excluded",
				zap.Int("replica", i),
				zap.Error(failures[i]),
			)

			result.Failed++

			continue
		}

		result.Surrogates = append(result.Surrogates, surrogates[i])

		if surrogates[i] >= observed {
			atLeast++
		}
	}

	if len(result.Surrogates) == 0 {
		return nil, errors.New(errors.ErrCodePermutationFailed, "every replica failed")
	}

	result.PValue = float64(atLeast) / float64(len(result.Surrogates))
	result.Significant = result.PValue < config.Alpha

	return result, nil
}

// shuffledSeries rebuilds the series on a shuffled log-return path. Each
// bar keeps its timestamp, volume, and intrabar shape, rescaled onto the
// new close; marginal return statistics survive, temporal ordering does
// not.
func shuffledSeries(series *types.Series, rng *rand.Rand) *types.Series {
	n := series.Len()
	if n < 3 {
		return series
	}

	bars := make([]types.Bar, n)
	bars[0] = series.At(0)

	returns := make([]float64, n-1)
	for i := 1; i < n; i++ {
		returns[i-1] = math.Log(series.At(i).Close / series.At(i-1).Close)
	}

	rng.Shuffle(len(returns), func(i, j int) {
		returns[i], returns[j] = returns[j], returns[i]
	})

	last := bars[0].Close

	for i := 1; i < n; i++ {
		last *= math.Exp(returns[i-1])

		src := series.At(i)
		scale := last / src.Close

		bars[i] = types.Bar{
			Time:   src.Time,
			Open:   src.Open * scale,
			High:   src.High * scale,
			Low:    src.Low * scale,
			Close:  last,
			Volume: src.Volume,
		}
	}

	return &types.Series{Symbol: series.Symbol, Bars: bars}
}
