// Package market supplies the thin data collaborators around the engine:
// bar loading from CSV and the session calendar that groups a series into
// exchange-time trading sessions.
package market

import (
	"fmt"
	"time"

	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// Clock is a time of day in the exchange timezone.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" into a Clock.
func ParseClock(s string) (Clock, error) {
	var c Clock

	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, errors.Wrapf(errors.ErrCodeInvalidSessionClock, err, "invalid clock %q", s)
	}

	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, errors.Newf(errors.ErrCodeInvalidSessionClock, "clock %q out of range", s)
	}

	return c, nil
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is strictly earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	return c.Minutes() < other.Minutes()
}

// Window is a half-open [Start, End) clock interval in exchange time.
type Window struct {
	Start Clock
	End   Clock
}

// Contains reports whether t (converted to loc) falls inside the window.
func (w Window) Contains(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	m := local.Hour()*60 + local.Minute()

	return m >= w.Start.Minutes() && m < w.End.Minutes()
}

// Overlaps reports whether two windows intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Minutes() < other.End.Minutes() && other.Start.Minutes() < w.End.Minutes()
}

// Session is a contiguous run of bar indices belonging to one trading day,
// restricted to the calendar's open/close window. Indices are half-open
// [Start, End) into the source series.
type Session struct {
	Date  string
	Start int
	End   int
}

// Len returns the number of bars in the session.
func (s Session) Len() int {
	return s.End - s.Start
}

// Calendar groups a bar series into sessions using a daily open/close
// clock in the exchange timezone. Weekend and holiday gaps simply produce
// no session; they are never surfaced as structural events.
type Calendar struct {
	Location *time.Location
	Open     Clock
	Close    Clock
}

// NewCalendar builds a calendar for the given IANA zone and open/close
// clocks ("09:30", "16:00").
func NewCalendar(zone, open, close string) (*Calendar, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", zone)
	}

	openClock, err := ParseClock(open)
	if err != nil {
		return nil, err
	}

	closeClock, err := ParseClock(close)
	if err != nil {
		return nil, err
	}

	if !openClock.Before(closeClock) {
		return nil, errors.Newf(errors.ErrCodeInvalidSessionClock,
			"session open %s must precede close %s", open, close)
	}

	return &Calendar{Location: loc, Open: openClock, Close: closeClock}, nil
}

// SessionWindow returns the open/close interval as a Window.
func (c *Calendar) SessionWindow() Window {
	return Window{Start: c.Open, End: c.Close}
}

// Sessions scans the series and returns the per-day session index ranges.
// Bars outside the open/close window (pre/post market) are excluded.
func (c *Calendar) Sessions(series *types.Series) []Session {
	window := c.SessionWindow()

	var sessions []Session

	open := false

	var current Session

	for i := 0; i < series.Len(); i++ {
		bar := series.At(i)
		inWindow := window.Contains(bar.Time, c.Location)
		date := bar.Time.In(c.Location).Format("2006-01-02")

		switch {
		case inWindow && !open:
			current = Session{Date: date, Start: i, End: i + 1}
			open = true
		case inWindow && open && date == current.Date:
			current.End = i + 1
		case inWindow && open && date != current.Date:
			sessions = append(sessions, current)
			current = Session{Date: date, Start: i, End: i + 1}
		case !inWindow && open:
			sessions = append(sessions, current)
			open = false
		}
	}

	if open {
		sessions = append(sessions, current)
	}

	return sessions
}
