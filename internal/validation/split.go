package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// SplitConfig shapes the chronological out-of-sample split.
type SplitConfig struct {
	// TrainFraction is the share of bars assigned to the train segment.
	TrainFraction float64 `yaml:"train_fraction" json:"train_fraction" validate:"gt=0,lt=1"`
}

// DefaultSplitConfig is the conventional 70/30 split.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TrainFraction: 0.7}
}

// Validate checks the struct tags.
func (c *SplitConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid split config", err)
	}

	return nil
}

// SplitResult carries per-segment outcomes. Only the test segment counts
// for reporting; the train segment exists for parameter tuning.
type SplitResult struct {
	SplitIndex int
	Train      RunResult
	Test       RunResult
}

// OutOfSample splits the series at the train fraction and runs the
// pipeline on each half-open segment independently.
func OutOfSample(series *types.Series, config SplitConfig, run RunFunc) (*SplitResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	split := int(float64(series.Len()) * config.TrainFraction)
	if split < 1 || split >= series.Len() {
		return nil, errors.Newf(errors.ErrCodeSplitOutOfRange,
			"fraction %.2f over %d bars leaves an empty segment", config.TrainFraction, series.Len())
	}

	train, err := run(series.Slice(0, split))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidationRunFailed, "train segment failed", err)
	}

	test, err := run(series.Slice(split, series.Len()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidationRunFailed, "test segment failed", err)
	}

	return &SplitResult{SplitIndex: split, Train: train, Test: test}, nil
}
