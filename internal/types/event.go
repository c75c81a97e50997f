package types

// Direction is the side of a breakout, structure shift, or position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionFlat  Direction = "flat"
)

// Opposite returns the mirrored direction. Flat is its own opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionFlat
	}
}

// Bias is the higher-timeframe narrative direction, supplied per session by
// an external collaborator. Strategies read it but never compute it.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// GapDirection distinguishes bullish from bearish fair value gaps.
type GapDirection string

const (
	// GapBISI is a bullish gap (buyside imbalance, sellside inefficiency).
	GapBISI GapDirection = "bisi"
	// GapSIBI is a bearish gap (sellside imbalance, buyside inefficiency).
	GapSIBI GapDirection = "sibi"
)

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventKindInitialBalance EventKind = "initial_balance"
	EventKindBreakout       EventKind = "breakout"
	EventKindRetest         EventKind = "retest"
	EventKindFairValueGap   EventKind = "fair_value_gap"
	EventKindCEViolation    EventKind = "ce_violation"
	EventKindInversionFVG   EventKind = "inversion_fvg"
	EventKindSwingPoint     EventKind = "swing_point"
	EventKindStructureShift EventKind = "structure_shift"
)

// EventID is an index into the EventLog arena. Events reference each other
// by ID rather than by pointer, so the log never forms cyclic graphs.
type EventID int

// NoEvent marks an absent back-reference.
const NoEvent EventID = -1

// InitialBalance is the high/low range of a session's opening window.
type InitialBalance struct {
	High        float64
	Low         float64
	SessionDate string
}

// Range returns the width of the initial balance.
func (ib InitialBalance) Range() float64 {
	return ib.High - ib.Low
}

// Breakout is the first close of price beyond an initial balance bound.
type Breakout struct {
	Direction Direction
	Level     float64
	IB        EventID
}

// FairValueGap is a three-bar inefficiency. CE is the consequent
// encroachment, the gap midpoint used as a respect/violation threshold.
type FairValueGap struct {
	Direction GapDirection
	Top       float64
	Bottom    float64
	CE        float64
	// LiquidityVoid marks gaps wider than the configured ATR multiple.
	// Voids are tracked for audit but excluded from gap-fill arming.
	LiquidityVoid bool
}

// CEViolation records the first body close beyond a gap's CE against its
// expected direction. It closes the respect test permanently for that gap.
type CEViolation struct {
	Origin EventID
}

// InversionFVG records a violated gap whose polarity flipped after price
// reversed through the opposite boundary.
type InversionFVG struct {
	Origin EventID
	// Direction is the new polarity: a violated bullish gap acts as
	// resistance (short), a violated bearish gap as support (long).
	Direction GapDirection
}

// SwingPoint is a confirmed local extremum.
type SwingPoint struct {
	Direction Direction // long = swing high, short = swing low
	Price     float64
	// BarIndex is where the extremum printed; confirmation comes later.
	BarIndex int
}

// StructureShift is a break of structure / market structure shift: a close
// beyond the prior confirmed swing extreme.
type StructureShift struct {
	Direction   Direction
	BrokenLevel float64
	SwingPoints []EventID
}

// Event is the tagged variant emitted by the structure detector. Exactly
// one payload pointer is set, matching Kind. Events are immutable once
// emitted, and ConfirmedAt never exceeds the index of the bar that
// triggered the emission.
type Event struct {
	ID          EventID
	Kind        EventKind
	ConfirmedAt int
	SessionDate string

	InitialBalance *InitialBalance
	Breakout       *Breakout
	FVG            *FairValueGap
	Violation      *CEViolation
	Inversion      *InversionFVG
	Swing          *SwingPoint
	Shift          *StructureShift
}

// EventLog is an arena-style append-only store of structural events.
// Integer IDs serve as back-references between events, signals, and trades.
type EventLog struct {
	events []Event
}

// NewEventLog returns an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{events: nil}
}

// Append stores the event and returns its assigned ID.
func (l *EventLog) Append(e Event) EventID {
	e.ID = EventID(len(l.events))
	l.events = append(l.events, e)

	return e.ID
}

// Get returns the event with the given ID. The boolean is false when the ID
// is out of range.
func (l *EventLog) Get(id EventID) (Event, bool) {
	if id < 0 || int(id) >= len(l.events) {
		return Event{}, false
	}

	return l.events[id], true
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	return len(l.events)
}

// All returns the stored events in emission order. The returned slice is
// the arena itself; callers must treat it as read-only.
func (l *EventLog) All() []Event {
	return l.events
}
