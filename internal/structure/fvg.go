package structure

import (
	"github.com/edgelab-quant/priceaction/internal/types"
)

// gapState tracks one open fair value gap through its CE respect test and
// possible inversion. The emitted events stay immutable; all mutable
// bookkeeping lives here.
type gapState struct {
	id       types.EventID
	dir      types.GapDirection
	top      float64
	bottom   float64
	ce       float64
	void     bool
	violated bool
	inverted bool
}

// detectFVG checks the consecutive triple ending at index i of bars for a
// fair value gap. A bullish gap exists when low[i] > high[i-2], a bearish
// gap when high[i] < low[i-2]. The returned payload carries the gap bounds
// and CE midpoint; ok is false when no gap exists.
func detectFVG(first, third types.Bar) (types.FairValueGap, bool) {
	if third.Low > first.High {
		return types.FairValueGap{
			Direction: types.GapBISI,
			Top:       third.Low,
			Bottom:    first.High,
			CE:        (third.Low + first.High) / 2,
		}, true
	}

	if third.High < first.Low {
		return types.FairValueGap{
			Direction: types.GapSIBI,
			Top:       first.Low,
			Bottom:    third.High,
			CE:        (first.Low + third.High) / 2,
		}, true
	}

	return types.FairValueGap{}, false
}

// ceViolated reports whether the bar's body closes beyond the CE against
// the gap's expected direction. Wicks through the CE do not count.
func (g *gapState) ceViolated(bar types.Bar) bool {
	switch g.dir {
	case types.GapBISI:
		// A bullish gap is support; a body close below CE violates it.
		return bar.Close < g.ce
	case types.GapSIBI:
		return bar.Close > g.ce
	default:
		return false
	}
}

// invertedBy reports whether, after a CE violation, the bar closes through
// the opposite boundary of the gap, flipping its polarity.
func (g *gapState) invertedBy(bar types.Bar) bool {
	if !g.violated || g.inverted {
		return false
	}

	switch g.dir {
	case types.GapBISI:
		return bar.Close < g.bottom
	case types.GapSIBI:
		return bar.Close > g.top
	default:
		return false
	}
}

// flippedDirection returns the polarity after inversion: a broken bullish
// gap acts as resistance, a broken bearish gap as support.
func (g *gapState) flippedDirection() types.GapDirection {
	if g.dir == types.GapBISI {
		return types.GapSIBI
	}

	return types.GapBISI
}
