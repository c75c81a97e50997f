package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/edgelab-quant/priceaction/internal/types"
)

// GapFill trades retracements into the freshest fair value gap that agrees
// with the daily bias: BISI gaps are bought against a bullish bias, SIBI
// gaps sold against a bearish one. A neutral bias never agrees. The entry
// requires a CE touch with the bar body holding the gap side during a
// macro window; an inversion cancels the armed setup and may re-arm it in
// the flipped direction.
type GapFill struct {
	config Config

	state State
	pos   *virtualPosition

	armedID  types.EventID
	armedGap types.FairValueGap
	armedDir types.Direction
}

// NewGapFill validates the config and returns the strategy in Idle.
func NewGapFill(config Config) (*GapFill, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &GapFill{config: config, state: StateIdle, armedID: types.NoEvent}, nil
}

// Name implements Strategy.
func (s *GapFill) Name() string {
	return "gapfill"
}

// State implements Strategy.
func (s *GapFill) State() State {
	return s.state
}

// Reset implements Strategy.
func (s *GapFill) Reset() {
	s.state = StateIdle
	s.pos = nil
	s.armedID = types.NoEvent
}

// OnBar implements Strategy.
func (s *GapFill) OnBar(ctx *Context, i int, confirmed []types.Event) (types.Signal, bool) {
	bias := s.sessionBias(ctx, i)

	switch s.state {
	case StateIdle, StateArmed:
		s.watchGaps(bias, confirmed)

		if s.state == StateArmed {
			return s.tryEnter(ctx, i)
		}

	case StateInPosition:
		if s.pos != nil && i > s.pos.entryIndex && s.pos.closedBy(ctx.Series.At(i)) {
			s.pos = nil
			s.state = StateCooling
		}

	case StateCooling:
		// Wait for the session-boundary reset.
	}

	return types.Signal{}, false
}

func (s *GapFill) sessionBias(ctx *Context, i int) types.Bias {
	session, ok := ctx.SessionAt(i)
	if !ok {
		return types.BiasNeutral
	}

	return ctx.BiasFor(session.Date)
}

// watchGaps arms on the newest agreeable gap and handles violations and
// inversions of the armed one.
func (s *GapFill) watchGaps(bias types.Bias, confirmed []types.Event) {
	for _, event := range confirmed {
		switch event.Kind {
		case types.EventKindFairValueGap:
			if event.FVG.LiquidityVoid {
				continue
			}

			if dir, ok := fillDirection(event.FVG.Direction, bias); ok {
				s.armGap(event.ID, *event.FVG, dir)
			}

		case types.EventKindCEViolation:
			if s.armedID == event.Violation.Origin {
				s.dropArmed()
			}

		case types.EventKindInversionFVG:
			if s.armedID != event.Inversion.Origin {
				continue
			}

			s.dropArmed()

			flipped := s.armedGap
			flipped.Direction = event.Inversion.Direction
			flipped.CE = (flipped.Top + flipped.Bottom) / 2

			if dir, ok := fillDirection(flipped.Direction, bias); ok {
				s.armGap(event.ID, flipped, dir)
			}
		}
	}
}

func (s *GapFill) armGap(id types.EventID, gap types.FairValueGap, dir types.Direction) {
	s.armedID = id
	s.armedGap = gap
	s.armedDir = dir
	s.state = StateArmed
}

func (s *GapFill) dropArmed() {
	s.armedID = types.NoEvent
	s.armedDir = types.DirectionFlat
	s.state = StateIdle
}

// fillDirection maps a gap to its fill trade when the bias agrees.
func fillDirection(gap types.GapDirection, bias types.Bias) (types.Direction, bool) {
	switch {
	case gap == types.GapBISI && bias == types.BiasBullish:
		return types.DirectionLong, true
	case gap == types.GapSIBI && bias == types.BiasBearish:
		return types.DirectionShort, true
	default:
		return types.DirectionFlat, false
	}
}

// tryEnter fires on a CE touch where the bar body holds the entry side of
// the gap, inside a macro window.
func (s *GapFill) tryEnter(ctx *Context, i int) (types.Signal, bool) {
	if !s.config.inMacroWindow(ctx, i) {
		return types.Signal{}, false
	}

	bar := ctx.Series.At(i)
	gap := s.armedGap

	var stop, target float64

	if s.armedDir == types.DirectionLong {
		if bar.Low > gap.CE+s.config.CETolerance || bar.Close < gap.CE {
			return types.Signal{}, false
		}

		stop, target = gap.Bottom, gap.Top
	} else {
		if bar.High < gap.CE-s.config.CETolerance || bar.Close > gap.CE {
			return types.Signal{}, false
		}

		stop, target = gap.Top, gap.Bottom
	}

	direction := s.armedDir
	originID := s.armedID

	s.pos = &virtualPosition{dir: direction, stop: stop, target: target, entryIndex: i}
	s.state = StateInPosition
	s.armedID = types.NoEvent

	return types.Signal{
		BarIndex:  i,
		Direction: direction,
		Stop:      optional.Some(stop),
		Target:    optional.Some(target),
		Reason:    []types.EventID{originID},
		Strategy:  s.Name(),
	}, true
}
