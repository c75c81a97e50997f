package structure

import (
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// Config parameterizes the structure detector.
type Config struct {
	// IBBars is the number of bars in the initial balance window
	// (default one hour of minute bars). Sessions with fewer bars never
	// emit an IB.
	IBBars int `yaml:"ib_bars"`
	// SwingConfirmBars is how many bars on each side a local extremum
	// needs before it is a confirmed swing point.
	SwingConfirmBars int `yaml:"swing_confirm_bars"`
	// VoidATRMultiple is the gap width, as a multiple of the rolling
	// average true range, beyond which a gap is tagged a liquidity void.
	VoidATRMultiple float64 `yaml:"void_atr_multiple"`
	// ATRLookback is the rolling true-range window used for the void
	// cutoff.
	ATRLookback int `yaml:"atr_lookback"`
}

// DefaultConfig returns the detector defaults: 60-bar IB, 2-bar swing
// confirmation, 3x ATR void cutoff over a 14-bar lookback.
func DefaultConfig() Config {
	return Config{
		IBBars:           60,
		SwingConfirmBars: 2,
		VoidATRMultiple:  3.0,
		ATRLookback:      14,
	}
}

// Validate rejects malformed detector parameters at construction.
func (c Config) Validate() error {
	if c.IBBars <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "ib_bars must be positive, got %d", c.IBBars)
	}

	if c.SwingConfirmBars <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "swing_confirm_bars must be positive, got %d", c.SwingConfirmBars)
	}

	if c.VoidATRMultiple <= 0 {
		return errors.Newf(errors.ErrCodeInvalidThreshold, "void_atr_multiple must be positive, got %f", c.VoidATRMultiple)
	}

	if c.ATRLookback <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "atr_lookback must be positive, got %d", c.ATRLookback)
	}

	return nil
}
