package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// EntryAt selects the continuation entry trigger level.
const (
	EntryAtCE      = "ce"
	EntryAtGapEdge = "gap_edge"
)

// ContinuationConfig extends the shared config with the storyteller
// (manipulation) windows and the entry trigger choice.
type ContinuationConfig struct {
	Config `yaml:",inline" json:",inline"`

	// StorytellerWindows are the intervals in which a liquidity take
	// counts as manipulation.
	StorytellerWindows []TimeWindow `yaml:"storyteller_windows" json:"storyteller_windows" validate:"min=1,dive"`
	// EntryAt is "ce" or "gap_edge".
	EntryAt string `yaml:"entry_at" json:"entry_at" validate:"oneof=ce gap_edge"`

	storyWindows []market.Window
}

// DefaultContinuationConfig mirrors the common intraday setup: London and
// New York manipulation windows with CE entries.
func DefaultContinuationConfig() ContinuationConfig {
	return ContinuationConfig{
		Config:             DefaultConfig(),
		StorytellerWindows: []TimeWindow{{Start: "09:30", End: "10:00"}},
		EntryAt:            EntryAtCE,
	}
}

// Validate checks both the shared and the continuation-specific fields.
func (c *ContinuationConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid continuation config", err)
	}

	windows, err := parseWindows(c.StorytellerWindows)
	if err != nil {
		return err
	}

	c.storyWindows = windows

	return nil
}

func (c *ContinuationConfig) inStoryWindow(ctx *Context, i int) bool {
	t := ctx.Series.At(i).Time

	for _, w := range c.storyWindows {
		if w.Contains(t, ctx.Location) {
			return true
		}
	}

	return false
}

// swingLevel is a confirmed swing extreme tracked strategy-side.
type swingLevel struct {
	id    types.EventID
	price float64
}

// gapCandidate is an impulse-leg FVG eligible for the entry test.
type gapCandidate struct {
	id       types.EventID
	gap      types.FairValueGap
	violated bool
}

// Continuation is the liquidity-manipulation reversal strategy. A
// liquidity take inside a storyteller window arms the machine; entry
// requires, in order, an opposite structure shift, an intact FVG formed in
// the shift's impulse leg, and price entering that gap during a macro
// window. A second manipulation before confirmation re-arms and discards
// the first setup.
type Continuation struct {
	config ContinuationConfig

	state State
	pos   *virtualPosition

	lastHigh *swingLevel
	lastLow  *swingLevel

	manipDir   types.Direction
	manipIndex int
	shiftID    types.EventID
	candidates []gapCandidate
}

// NewContinuation validates the config and returns the strategy in Idle.
func NewContinuation(config ContinuationConfig) (*Continuation, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Continuation{
		config:  config,
		state:   StateIdle,
		shiftID: types.NoEvent,
	}, nil
}

// Name implements Strategy.
func (s *Continuation) Name() string {
	return "continuation"
}

// State implements Strategy.
func (s *Continuation) State() State {
	return s.state
}

// Reset implements Strategy.
func (s *Continuation) Reset() {
	s.state = StateIdle
	s.pos = nil
	s.disarm()
	// Swing levels persist across sessions; structure does not reset at
	// the close.
}

func (s *Continuation) disarm() {
	s.manipDir = types.DirectionFlat
	s.manipIndex = 0
	s.shiftID = types.NoEvent
	s.candidates = nil
}

// OnBar implements Strategy.
func (s *Continuation) OnBar(ctx *Context, i int, confirmed []types.Event) (types.Signal, bool) {
	s.trackSwings(confirmed)

	switch s.state {
	case StateIdle:
		if dir, ok := s.detectManipulation(ctx, i); ok {
			s.arm(dir, i)
		}

	case StateArmed:
		// A fresh manipulation replaces the pending setup.
		if dir, ok := s.detectManipulation(ctx, i); ok {
			s.arm(dir, i)

			return types.Signal{}, false
		}

		s.trackShiftAndGaps(ctx, i, confirmed)

		if s.shiftID != types.NoEvent {
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

func (s *Continuation) trackSwings(confirmed []types.Event) {
	for _, event := range confirmed {
		if event.Kind != types.EventKindSwingPoint {
			continue
		}

		level := &swingLevel{id: event.ID, price: event.Swing.Price}
		if event.Swing.Direction == types.DirectionLong {
			s.lastHigh = level
		} else {
			s.lastLow = level
		}
	}
}

// detectManipulation reports a liquidity take beyond the most recent
// confirmed swing extreme inside a storyteller window.
func (s *Continuation) detectManipulation(ctx *Context, i int) (types.Direction, bool) {
	if !s.config.inStoryWindow(ctx, i) {
		return types.DirectionFlat, false
	}

	bar := ctx.Series.At(i)

	if s.lastHigh != nil && bar.High > s.lastHigh.price {
		return types.DirectionLong, true
	}

	if s.lastLow != nil && bar.Low < s.lastLow.price {
		return types.DirectionShort, true
	}

	return types.DirectionFlat, false
}

func (s *Continuation) arm(dir types.Direction, i int) {
	s.disarm()
	s.manipDir = dir
	s.manipIndex = i
	s.state = StateArmed
}

// trackShiftAndGaps watches for the opposite structure shift and collects
// the impulse-leg FVGs. CE violations close candidates permanently.
func (s *Continuation) trackShiftAndGaps(ctx *Context, i int, confirmed []types.Event) {
	for _, event := range confirmed {
		switch event.Kind {
		case types.EventKindStructureShift:
			if s.shiftID == types.NoEvent && event.Shift.Direction == s.manipDir.Opposite() {
				s.shiftID = event.ID
				s.collectImpulseGaps(ctx, i)
			}

		case types.EventKindCEViolation:
			for ci := range s.candidates {
				if s.candidates[ci].id == event.Violation.Origin {
					s.candidates[ci].violated = true
				}
			}
		}
	}
}

// collectImpulseGaps gathers open FVGs formed between the manipulation bar
// and the shift bar, matching the reversal direction.
func (s *Continuation) collectImpulseGaps(ctx *Context, shiftIndex int) {
	want := types.GapSIBI
	if s.manipDir == types.DirectionShort {
		want = types.GapBISI
	}

	for _, event := range ctx.Events.All() {
		if event.Kind != types.EventKindFairValueGap {
			continue
		}

		if event.ConfirmedAt <= s.manipIndex || event.ConfirmedAt > shiftIndex {
			continue
		}

		if event.FVG.Direction != want || event.FVG.LiquidityVoid {
			continue
		}

		s.candidates = append(s.candidates, gapCandidate{id: event.ID, gap: *event.FVG})
	}

	if len(s.candidates) == 0 {
		// No usable gap in the impulse leg; the setup dies.
		s.disarm()
		s.state = StateIdle
	}
}

// tryEnter fires when price enters an intact candidate gap during a macro
// window.
func (s *Continuation) tryEnter(ctx *Context, i int) (types.Signal, bool) {
	if !s.config.inMacroWindow(ctx, i) {
		return types.Signal{}, false
	}

	bar := ctx.Series.At(i)
	direction := s.manipDir.Opposite()

	for _, candidate := range s.candidates {
		if candidate.violated {
			continue
		}

		if !s.entryTouched(bar, direction, candidate.gap) {
			continue
		}

		target, targetID, ok := s.liquidityTarget(direction)
		if !ok {
			continue
		}

		var stop float64
		if direction == types.DirectionLong {
			stop = candidate.gap.Bottom - s.config.CETolerance
		} else {
			stop = candidate.gap.Top + s.config.CETolerance
		}

		s.pos = &virtualPosition{dir: direction, stop: stop, target: target, entryIndex: i}
		s.state = StateInPosition

		return types.Signal{
			BarIndex:  i,
			Direction: direction,
			Stop:      optional.Some(stop),
			Target:    optional.Some(target),
			Reason:    []types.EventID{s.shiftID, candidate.id, targetID},
			Strategy:  s.Name(),
		}, true
	}

	return types.Signal{}, false
}

// entryTouched reports whether price reached the configured trigger level
// of the gap.
func (s *Continuation) entryTouched(bar types.Bar, direction types.Direction, gap types.FairValueGap) bool {
	if direction == types.DirectionLong {
		level := gap.Top
		if s.config.EntryAt == EntryAtCE {
			level = gap.CE + s.config.CETolerance
		}

		return bar.Low <= level
	}

	level := gap.Bottom
	if s.config.EntryAt == EntryAtCE {
		level = gap.CE - s.config.CETolerance
	}

	return bar.High >= level
}

// liquidityTarget is the prior external liquidity level: the most recent
// opposing swing extreme.
func (s *Continuation) liquidityTarget(direction types.Direction) (float64, types.EventID, bool) {
	if direction == types.DirectionLong {
		if s.lastHigh == nil {
			return 0, types.NoEvent, false
		}

		return s.lastHigh.price, s.lastHigh.id, true
	}

	if s.lastLow == nil {
		return 0, types.NoEvent, false
	}

	return s.lastLow.price, s.lastLow.id, true
}
