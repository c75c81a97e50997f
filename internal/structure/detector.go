// Package structure implements the structural event detector: a single
// forward pass over a bar series that recognizes initial balances,
// breakouts, fair value gaps, CE violations, inversions, swing points, and
// structure shifts. Every event is confirmed at the bar that triggered its
// emission, never later, so downstream consumers can replay the log
// without look-ahead.
package structure

import (
	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/types"
)

// Detector scans bar series for structural events. It keeps no state
// between scans; running it twice on the same series yields an identical
// event sequence.
type Detector struct {
	config   Config
	calendar *market.Calendar
}

// NewDetector validates the config and builds a detector.
func NewDetector(config Config, calendar *market.Calendar) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Detector{config: config, calendar: calendar}, nil
}

// Result is the output of one scan: the event arena, the session index
// ranges, and the dates of sessions too short to form an initial balance.
type Result struct {
	Events   *types.EventLog
	Sessions []market.Session
	// Skipped sessions emit no IB and therefore no breakout; strategies
	// treat them as "no signal today".
	Skipped []string
}

// sessionState is the per-session detector bookkeeping, discarded at each
// session boundary.
type sessionState struct {
	sess market.Session
	noIB bool

	ibHigh float64
	ibLow  float64
	ibID   types.EventID

	brokeUp    bool
	brokeDown  bool
	breakUpID  types.EventID
	breakDownID types.EventID
	upAway     bool
	downAway   bool

	gaps []*gapState
	// formedAt parallels gaps; CE checks start on the bar after formation.
	formedAt []int
}

func newSessionState(sess market.Session) *sessionState {
	return &sessionState{
		sess:        sess,
		ibID:        types.NoEvent,
		breakUpID:   types.NoEvent,
		breakDownID: types.NoEvent,
	}
}

// Scan runs the forward pass and returns the event log. Events appear in
// confirmation order.
func (d *Detector) Scan(series *types.Series) (*Result, error) {
	bars := series.Bars
	sessions := d.calendar.Sessions(series)

	result := &Result{
		Events:   types.NewEventLog(),
		Sessions: sessions,
	}

	swings := newSwingTracker(d.config.SwingConfirmBars)
	atr := newATRState(d.config.ATRLookback)

	next := 0

	var cur *sessionState

	for i := 0; i < len(bars); i++ {
		if next < len(sessions) && i == sessions[next].Start {
			cur = newSessionState(sessions[next])
			if sessions[next].Len() < d.config.IBBars {
				cur.noIB = true
				result.Skipped = append(result.Skipped, sessions[next].Date)
			}

			next++
		}

		bar := bars[i]
		inSession := cur != nil && i < cur.sess.End

		if inSession {
			d.scanInitialBalance(result.Events, cur, bar, i)
			d.scanBreakout(result.Events, cur, bar, i)
			d.scanGapFormation(result.Events, cur, bars, i, atr.value())
			d.scanGapTests(result.Events, cur, bar, i)
		}

		d.scanSwings(result.Events, swings, cur, bars, i)

		atr.update(bar, i, bars)

		if cur != nil && i == cur.sess.End-1 {
			cur = nil
		}
	}

	return result, nil
}

func (d *Detector) scanInitialBalance(log *types.EventLog, cur *sessionState, bar types.Bar, i int) {
	if cur.noIB {
		return
	}

	offset := i - cur.sess.Start
	if offset >= d.config.IBBars {
		return
	}

	if offset == 0 || bar.High > cur.ibHigh {
		cur.ibHigh = bar.High
	}

	if offset == 0 || bar.Low < cur.ibLow {
		cur.ibLow = bar.Low
	}

	if offset == d.config.IBBars-1 {
		cur.ibID = log.Append(types.Event{
			Kind:        types.EventKindInitialBalance,
			ConfirmedAt: i,
			SessionDate: cur.sess.Date,
			InitialBalance: &types.InitialBalance{
				High:        cur.ibHigh,
				Low:         cur.ibLow,
				SessionDate: cur.sess.Date,
			},
		})
	}
}

func (d *Detector) scanBreakout(log *types.EventLog, cur *sessionState, bar types.Bar, i int) {
	if cur.ibID == types.NoEvent || i-cur.sess.Start < d.config.IBBars {
		return
	}

	// Primary breakout: first bar beyond an IB bound, once per direction
	// per session. Later re-crosses become retest events.
	if !cur.brokeUp && bar.High > cur.ibHigh {
		cur.brokeUp = true
		cur.breakUpID = log.Append(types.Event{
			Kind:        types.EventKindBreakout,
			ConfirmedAt: i,
			SessionDate: cur.sess.Date,
			Breakout: &types.Breakout{
				Direction: types.DirectionLong,
				Level:     cur.ibHigh,
				IB:        cur.ibID,
			},
		})
		cur.upAway = bar.Low > cur.ibHigh
	} else if cur.brokeUp {
		if cur.upAway && bar.Low <= cur.ibHigh {
			cur.upAway = false

			log.Append(types.Event{
				Kind:        types.EventKindRetest,
				ConfirmedAt: i,
				SessionDate: cur.sess.Date,
				Breakout: &types.Breakout{
					Direction: types.DirectionLong,
					Level:     cur.ibHigh,
					IB:        cur.breakUpID,
				},
			})
		} else if !cur.upAway && bar.Low > cur.ibHigh {
			cur.upAway = true
		}
	}

	if !cur.brokeDown && bar.Low < cur.ibLow {
		cur.brokeDown = true
		cur.breakDownID = log.Append(types.Event{
			Kind:        types.EventKindBreakout,
			ConfirmedAt: i,
			SessionDate: cur.sess.Date,
			Breakout: &types.Breakout{
				Direction: types.DirectionShort,
				Level:     cur.ibLow,
				IB:        cur.ibID,
			},
		})
		cur.downAway = bar.High < cur.ibLow
	} else if cur.brokeDown {
		if cur.downAway && bar.High >= cur.ibLow {
			cur.downAway = false

			log.Append(types.Event{
				Kind:        types.EventKindRetest,
				ConfirmedAt: i,
				SessionDate: cur.sess.Date,
				Breakout: &types.Breakout{
					Direction: types.DirectionShort,
					Level:     cur.ibLow,
					IB:        cur.breakDownID,
				},
			})
		} else if !cur.downAway && bar.High < cur.ibLow {
			cur.downAway = true
		}
	}
}

func (d *Detector) scanGapFormation(log *types.EventLog, cur *sessionState, bars []types.Bar, i int, atr float64) {
	// All three bars of the triple must belong to the session, so an
	// overnight gap never reads as an FVG.
	if i-cur.sess.Start < 2 {
		return
	}

	fvg, ok := detectFVG(bars[i-2], bars[i])
	if !ok {
		return
	}

	if atr > 0 && fvg.Top-fvg.Bottom > d.config.VoidATRMultiple*atr {
		fvg.LiquidityVoid = true
	}

	id := log.Append(types.Event{
		Kind:        types.EventKindFairValueGap,
		ConfirmedAt: i,
		SessionDate: cur.sess.Date,
		FVG:         &fvg,
	})

	cur.gaps = append(cur.gaps, &gapState{
		id:     id,
		dir:    fvg.Direction,
		top:    fvg.Top,
		bottom: fvg.Bottom,
		ce:     fvg.CE,
		void:   fvg.LiquidityVoid,
	})
	cur.formedAt = append(cur.formedAt, i)
}

func (d *Detector) scanGapTests(log *types.EventLog, cur *sessionState, bar types.Bar, i int) {
	for gi, gap := range cur.gaps {
		if cur.formedAt[gi] >= i {
			continue
		}

		if !gap.violated && gap.ceViolated(bar) {
			gap.violated = true

			log.Append(types.Event{
				Kind:        types.EventKindCEViolation,
				ConfirmedAt: i,
				SessionDate: cur.sess.Date,
				Violation:   &types.CEViolation{Origin: gap.id},
			})
		}

		if gap.invertedBy(bar) {
			gap.inverted = true

			log.Append(types.Event{
				Kind:        types.EventKindInversionFVG,
				ConfirmedAt: i,
				SessionDate: cur.sess.Date,
				Inversion: &types.InversionFVG{
					Origin:    gap.id,
					Direction: gap.flippedDirection(),
				},
			})
		}
	}
}

func (d *Detector) scanSwings(log *types.EventLog, swings *swingTracker, cur *sessionState, bars []types.Bar, i int) {
	date := ""
	if cur != nil {
		date = cur.sess.Date
	}

	for _, sp := range swings.confirmAt(bars, i) {
		point := sp

		id := log.Append(types.Event{
			Kind:        types.EventKindSwingPoint,
			ConfirmedAt: i,
			SessionDate: date,
			Swing:       &point,
		})
		swings.record(id, sp)
	}

	if shift, ok := swings.checkShift(bars[i]); ok {
		log.Append(types.Event{
			Kind:        types.EventKindStructureShift,
			ConfirmedAt: i,
			SessionDate: date,
			Shift:       &shift,
		})
	}
}

// atrState is a rolling mean of true ranges used for the liquidity-void
// cutoff.
type atrState struct {
	lookback int
	window   []float64
	sum      float64
}

func newATRState(lookback int) *atrState {
	return &atrState{lookback: lookback}
}

// value returns the current rolling ATR, or 0 until the first sample.
func (a *atrState) value() float64 {
	if len(a.window) == 0 {
		return 0
	}

	return a.sum / float64(len(a.window))
}

func (a *atrState) update(bar types.Bar, i int, bars []types.Bar) {
	prevClose := bar.Open
	if i > 0 {
		prevClose = bars[i-1].Close
	}

	tr := bar.TrueRange(prevClose)

	a.window = append(a.window, tr)
	a.sum += tr

	if len(a.window) > a.lookback {
		a.sum -= a.window[0]
		a.window = a.window[1:]
	}
}
