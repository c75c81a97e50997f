package structure

import (
	"github.com/edgelab-quant/priceaction/internal/types"
)

type swingRef struct {
	id    types.EventID
	price float64
	bar   int
}

// swingTracker maintains the sequence of confirmed swing highs and lows
// and detects structure shifts against the most recent extremes. A local
// extremum counts as a swing only after confirm bars on both sides.
type swingTracker struct {
	confirm int
	highs   []swingRef
	lows    []swingRef

	// Levels already broken by a shift; a level is never re-broken.
	brokenHigh types.EventID
	brokenLow  types.EventID
}

func newSwingTracker(confirmBars int) *swingTracker {
	return &swingTracker{
		confirm:    confirmBars,
		brokenHigh: types.NoEvent,
		brokenLow:  types.NoEvent,
	}
}

// confirmAt checks whether the candidate bar confirm bars behind index i
// is a swing point, now that its right side is complete. At most one high
// and one low can confirm per bar.
func (t *swingTracker) confirmAt(bars []types.Bar, i int) []types.SwingPoint {
	j := i - t.confirm
	if j-t.confirm < 0 {
		return nil
	}

	var confirmed []types.SwingPoint

	isHigh := true
	isLow := true

	for k := j - t.confirm; k <= j+t.confirm; k++ {
		if k == j {
			continue
		}

		if bars[k].High >= bars[j].High {
			isHigh = false
		}

		if bars[k].Low <= bars[j].Low {
			isLow = false
		}
	}

	if isHigh {
		confirmed = append(confirmed, types.SwingPoint{
			Direction: types.DirectionLong,
			Price:     bars[j].High,
			BarIndex:  j,
		})
	}

	if isLow {
		confirmed = append(confirmed, types.SwingPoint{
			Direction: types.DirectionShort,
			Price:     bars[j].Low,
			BarIndex:  j,
		})
	}

	return confirmed
}

// record registers a confirmed swing event.
func (t *swingTracker) record(id types.EventID, sp types.SwingPoint) {
	ref := swingRef{id: id, price: sp.Price, bar: sp.BarIndex}
	if sp.Direction == types.DirectionLong {
		t.highs = append(t.highs, ref)
	} else {
		t.lows = append(t.lows, ref)
	}
}

// lastHigh returns the most recent confirmed swing high.
func (t *swingTracker) lastHigh() (swingRef, bool) {
	if len(t.highs) == 0 {
		return swingRef{}, false
	}

	return t.highs[len(t.highs)-1], true
}

// lastLow returns the most recent confirmed swing low.
func (t *swingTracker) lastLow() (swingRef, bool) {
	if len(t.lows) == 0 {
		return swingRef{}, false
	}

	return t.lows[len(t.lows)-1], true
}

// checkShift detects a structure shift on the bar's close. A bullish shift
// needs a close above the prior swing high after a higher-low sequence;
// bearish is the mirror. Each swing extreme is broken at most once.
func (t *swingTracker) checkShift(bar types.Bar) (types.StructureShift, bool) {
	if high, ok := t.lastHigh(); ok && high.id != t.brokenHigh && bar.Close > high.price {
		if t.higherLows() {
			t.brokenHigh = high.id

			return types.StructureShift{
				Direction:   types.DirectionLong,
				BrokenLevel: high.price,
				SwingPoints: t.shiftRefs(high),
			}, true
		}
	}

	if low, ok := t.lastLow(); ok && low.id != t.brokenLow && bar.Close < low.price {
		if t.lowerHighs() {
			t.brokenLow = low.id

			return types.StructureShift{
				Direction:   types.DirectionShort,
				BrokenLevel: low.price,
				SwingPoints: t.shiftRefs(low),
			}, true
		}
	}

	return types.StructureShift{}, false
}

func (t *swingTracker) higherLows() bool {
	n := len(t.lows)

	return n >= 2 && t.lows[n-1].price > t.lows[n-2].price
}

func (t *swingTracker) lowerHighs() bool {
	n := len(t.highs)

	return n >= 2 && t.highs[n-1].price < t.highs[n-2].price
}

func (t *swingTracker) shiftRefs(broken swingRef) []types.EventID {
	refs := []types.EventID{broken.id}

	if high, ok := t.lastHigh(); ok && high.id != broken.id {
		refs = append(refs, high.id)
	}

	if low, ok := t.lastLow(); ok && low.id != broken.id {
		refs = append(refs, low.id)
	}

	return refs
}
