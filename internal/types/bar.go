package types

import (
	"time"

	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// Bar is a single OHLCV observation for one instrument and timeframe.
type Bar struct {
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}

// Body returns the lower and upper bound of the bar body (open/close range).
func (b Bar) Body() (float64, float64) {
	if b.Open <= b.Close {
		return b.Open, b.Close
	}

	return b.Close, b.Open
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// TrueRange returns the bar's true range given the previous close.
func (b Bar) TrueRange(prevClose float64) float64 {
	tr := b.High - b.Low

	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}

	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}

	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// Series is an immutable ordered sequence of bars for one
// (instrument, timeframe) pair. It is owned by the caller and read-only to
// every downstream component, so slices of it can be shared freely across
// parallel validation runs.
type Series struct {
	Symbol string
	Bars   []Bar
}

// NewSeries validates the bars and wraps them into a Series.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	series := &Series{Symbol: symbol, Bars: bars}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	return series, nil
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.Bars)
}

// At returns the bar at index i.
func (s *Series) At(i int) Bar {
	return s.Bars[i]
}

// Slice returns a read-only view over bars [start, end). The underlying
// array is shared; callers must not mutate it.
func (s *Series) Slice(start, end int) *Series {
	return &Series{Symbol: s.Symbol, Bars: s.Bars[start:end]}
}

// Validate checks the OHLC invariant on every bar and that timestamps are
// strictly increasing. The first offending bar is identified in the error.
func (s *Series) Validate() error {
	if len(s.Bars) == 0 {
		return errors.Newf(errors.ErrCodeEmptySeries, "series %s has no bars", s.Symbol)
	}

	for i, bar := range s.Bars {
		bodyLow, bodyHigh := bar.Body()
		if bar.Low > bodyLow || bodyHigh > bar.High {
			return errors.Newf(errors.ErrCodeMalformedBar,
				"bar %d (%s) violates OHLC invariant: open=%f high=%f low=%f close=%f",
				i, bar.Time.Format(time.RFC3339), bar.Open, bar.High, bar.Low, bar.Close)
		}

		if i > 0 && !bar.Time.After(s.Bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeNonMonotonicTimestamp,
				"bar %d (%s) does not advance past bar %d (%s)",
				i, bar.Time.Format(time.RFC3339), i-1, s.Bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}
