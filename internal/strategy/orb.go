package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/edgelab-quant/priceaction/internal/types"
)

// ORB is the opening-range breakout strategy: arm on the session's initial
// balance, enter on the primary breakout, target a configured extension of
// the IB range, stop at the configured retracement back into the range.
type ORB struct {
	config Config

	state State
	ib    types.EventID
	pos   *virtualPosition
}

// NewORB validates the config and returns the strategy in Idle.
func NewORB(config Config) (*ORB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ORB{
		config: config,
		state:  StateIdle,
		ib:     types.NoEvent,
	}, nil
}

// Name implements Strategy.
func (s *ORB) Name() string {
	return "orb"
}

// State implements Strategy.
func (s *ORB) State() State {
	return s.state
}

// Reset implements Strategy.
func (s *ORB) Reset() {
	s.state = StateIdle
	s.ib = types.NoEvent
	s.pos = nil
}

// OnBar implements Strategy.
func (s *ORB) OnBar(ctx *Context, i int, confirmed []types.Event) (types.Signal, bool) {
	switch s.state {
	case StateIdle:
		for _, event := range confirmed {
			if event.Kind == types.EventKindInitialBalance {
				s.ib = event.ID
				s.state = StateArmed

				break
			}
		}

	case StateArmed:
		for _, event := range confirmed {
			if event.Kind != types.EventKindBreakout {
				continue
			}

			return s.enter(ctx, i, event)
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

func (s *ORB) enter(ctx *Context, i int, breakout types.Event) (types.Signal, bool) {
	ibEvent, ok := ctx.Events.Get(s.ib)
	if !ok || ibEvent.InitialBalance == nil {
		return types.Signal{}, false
	}

	ib := ibEvent.InitialBalance
	ibRange := ib.Range()
	direction := breakout.Breakout.Direction

	var stop, target float64

	if direction == types.DirectionLong {
		stop = ib.High - s.config.InvalidationRetracement*ibRange
		target = ib.High + s.config.RetracementTarget*ibRange
	} else {
		stop = ib.Low + s.config.InvalidationRetracement*ibRange
		target = ib.Low - s.config.RetracementTarget*ibRange
	}

	s.pos = &virtualPosition{
		dir:        direction,
		stop:       stop,
		target:     target,
		entryIndex: i,
	}
	s.state = StateInPosition

	return types.Signal{
		BarIndex:  i,
		Direction: direction,
		Stop:      optional.Some(stop),
		Target:    optional.Some(target),
		Reason:    []types.EventID{s.ib, breakout.ID},
		Strategy:  s.Name(),
	}, true
}
