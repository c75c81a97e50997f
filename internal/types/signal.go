package types

import (
	"github.com/moznion/go-optional"

	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// Signal is a position intent emitted by a strategy at a bar index. A
// signal may only be produced from events already confirmed at or before
// BarIndex.
type Signal struct {
	// BarIndex is the bar whose close generated this signal.
	BarIndex int
	// Direction long/short opens a position; flat closes any open one.
	Direction Direction
	// Stop is the optional protective stop price.
	Stop optional.Option[float64]
	// Target is the optional profit target price.
	Target optional.Option[float64]
	// Reason lists the originating event IDs for audit.
	Reason []EventID
	// Strategy names the emitting strategy.
	Strategy string
}

// CheckCausality verifies that no referenced event was confirmed after the
// signal's bar index. A breach is an internal-consistency fault that would
// invalidate every downstream statistic, so it is returned as a fatal
// causality error, never corrected.
func (s Signal) CheckCausality(log *EventLog) error {
	for _, id := range s.Reason {
		event, ok := log.Get(id)
		if !ok {
			return errors.Newf(errors.ErrCodeSignalBeforeEvent,
				"signal at bar %d references unknown event %d", s.BarIndex, id)
		}

		if event.ConfirmedAt > s.BarIndex {
			return errors.Newf(errors.ErrCodeSignalBeforeEvent,
				"signal at bar %d references event %d confirmed at bar %d",
				s.BarIndex, id, event.ConfirmedAt)
		}
	}

	return nil
}
