package market

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// timestamp layouts accepted by the loader, tried in order. Naive layouts
// are localized to the calendar zone, matching how the upstream data
// pipeline normalizes everything to exchange time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// LoadCSV reads a `time,open,high,low,close,volume` file into a validated
// series. Timestamps may be RFC3339, naive date-time (localized to loc),
// or epoch seconds.
func LoadCSV(path string, symbol string, loc *time.Location) (*types.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	var bars []types.Bar

	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to read %s line %d", path, line+1)
		}

		line++

		if len(record) < 6 {
			return nil, errors.Newf(errors.ErrCodeDataParseFailed,
				"%s line %d: expected 6 columns, got %d", path, line, len(record))
		}

		// Skip a header row
		if line == 1 && !isNumericOrTime(record[1]) {
			continue
		}

		barTime, err := parseTimestamp(record[0], loc)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "%s line %d: bad timestamp %q", path, line, record[0])
		}

		fields := make([]float64, 5)

		for i := 0; i < 5; i++ {
			fields[i], err = strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "%s line %d: bad value %q", path, line, record[i+1])
			}
		}

		bars = append(bars, types.Bar{
			Time:   barTime,
			Open:   fields[0],
			High:   fields[1],
			Low:    fields[2],
			Close:  fields[3],
			Volume: fields[4],
		})
	}

	return types.NewSeries(symbol, bars)
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)

	// Epoch seconds
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0).In(loc), nil
	}

	var lastErr error

	for i, layout := range timeLayouts {
		if i == 0 {
			if t, err := time.Parse(layout, s); err == nil {
				return t.In(loc), nil
			} else {
				lastErr = err
			}

			continue
		}

		// Naive layouts carry no zone; interpret them in exchange time.
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, lastErr
}

func isNumericOrTime(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

	return err == nil
}
