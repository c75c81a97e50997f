// Package strategy implements the three price-action strategies as finite
// state machines over {Idle, Armed, InPosition, Cooling}. Each strategy
// supplies its own arming and confirmation predicates over structural
// events and raw bars; the shared Engine drives them bar by bar and
// enforces the signal causality invariant.
package strategy

import (
	"time"

	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/structure"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// State is the common strategy state.
type State string

const (
	// StateIdle waits for an arming event.
	StateIdle State = "idle"
	// StateArmed has seen the arming event and waits for confirmation.
	StateArmed State = "armed"
	// StateInPosition mirrors an open simulated position.
	StateInPosition State = "in_position"
	// StateCooling is post-exit; no re-arming until the session ends.
	StateCooling State = "cooling"
)

// Context is the per-run read-only view handed to strategies. No shared
// mutable state survives between runs, so validation sweeps can execute
// strategies concurrently on their own contexts.
type Context struct {
	Series   *types.Series
	Events   *types.EventLog
	Sessions []market.Session
	// Bias is the externally supplied higher-timeframe narrative per
	// session date. Missing dates read as neutral.
	Bias     map[string]types.Bias
	Location *time.Location

	sessionOf []int
}

// Strategy is one state machine consuming confirmed events plus raw bars
// and emitting position-intent signals.
type Strategy interface {
	Name() string
	// OnBar advances the machine with bar i and the events confirmed at
	// i. The boolean is false when no signal is emitted.
	OnBar(ctx *Context, i int, confirmed []types.Event) (types.Signal, bool)
	// State exposes the current FSM state for tests and audit.
	State() State
	// Reset returns the machine to Idle at a session boundary.
	Reset()
}

// NewContext indexes the sessions for per-bar lookup.
func NewContext(series *types.Series, events *types.EventLog, sessions []market.Session, bias map[string]types.Bias, loc *time.Location) *Context {
	sessionOf := make([]int, series.Len())
	for i := range sessionOf {
		sessionOf[i] = -1
	}

	for si, sess := range sessions {
		for i := sess.Start; i < sess.End; i++ {
			sessionOf[i] = si
		}
	}

	return &Context{
		Series:    series,
		Events:    events,
		Sessions:  sessions,
		Bias:      bias,
		Location:  loc,
		sessionOf: sessionOf,
	}
}

// SessionAt returns the session containing bar i.
func (c *Context) SessionAt(i int) (market.Session, bool) {
	if i < 0 || i >= len(c.sessionOf) || c.sessionOf[i] < 0 {
		return market.Session{}, false
	}

	return c.Sessions[c.sessionOf[i]], true
}

// BiasFor returns the session bias, defaulting to neutral.
func (c *Context) BiasFor(date string) types.Bias {
	if bias, ok := c.Bias[date]; ok {
		return bias
	}

	return types.BiasNeutral
}

// virtualPosition mirrors the simulator's position so the FSM can leave
// InPosition when the stop or target would have been hit. The simulator
// remains the source of truth for fills and PnL.
type virtualPosition struct {
	dir    types.Direction
	stop   float64
	target float64
	// entryIndex is the signal bar; the fill happens later, so exit
	// checks start after it.
	entryIndex int
}

// closedBy reports whether the bar closes the virtual position. When both
// stop and target fall inside the bar's range the stop wins, matching the
// simulator's conservative tie-break.
func (p *virtualPosition) closedBy(bar types.Bar) bool {
	if p.dir == types.DirectionLong {
		if bar.Low <= p.stop {
			return true
		}

		return bar.High >= p.target
	}

	if bar.High >= p.stop {
		return true
	}

	return bar.Low <= p.target
}

// Engine drives a set of strategies over one detector scan, collecting
// signals in bar order and checking the causality invariant on each.
type Engine struct {
	strategies []Strategy
}

// NewEngine builds an engine over the given strategies.
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Run walks the series once. Events are dispatched at their confirmation
// index. Strategies are reset at every session boundary. A causality
// breach aborts the run; it is an internal fault, never corrected.
func (e *Engine) Run(ctx *Context, scan *structure.Result) ([]types.Signal, error) {
	events := scan.Events.All()
	cursor := 0

	var signals []types.Signal

	for i := 0; i < ctx.Series.Len(); i++ {
		start := cursor
		for cursor < len(events) && events[cursor].ConfirmedAt == i {
			cursor++
		}

		confirmed := events[start:cursor]

		for _, s := range e.strategies {
			signal, ok := s.OnBar(ctx, i, confirmed)
			if !ok {
				continue
			}

			if err := signal.CheckCausality(scan.Events); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeSignalBeforeEvent, err,
					"strategy %s emitted a non-causal signal", s.Name())
			}

			signals = append(signals, signal)
		}

		if sess, ok := ctx.SessionAt(i); ok && i == sess.End-1 {
			for _, s := range e.strategies {
				s.Reset()
			}
		}
	}

	return signals, nil
}
