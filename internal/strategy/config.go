package strategy

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// TimeWindow is a half-open [start, end) clock interval in exchange time,
// expressed as "HH:MM" strings in configuration.
type TimeWindow struct {
	Start string `yaml:"start" json:"start" validate:"required" jsonschema:"title=Start,description=Window start clock HH:MM"`
	End   string `yaml:"end" json:"end" validate:"required" jsonschema:"title=End,description=Window end clock HH:MM"`
}

// Config carries the parameters shared by every strategy. Malformed or
// contradictory values are rejected at construction, never at run time.
type Config struct {
	// MacroWindows are the intraday intervals during which entries are
	// allowed. They must not overlap.
	MacroWindows []TimeWindow `yaml:"macro_windows" json:"macro_windows" validate:"min=1,dive"`
	// CETolerance widens the CE touch test by an absolute price amount.
	CETolerance float64 `yaml:"ce_tolerance" json:"ce_tolerance" validate:"gte=0" jsonschema:"title=CE Tolerance,minimum=0"`
	// RetracementTarget is the profit target as a multiple of the
	// reference range (IB range for ORB).
	RetracementTarget float64 `yaml:"retracement_target" json:"retracement_target" validate:"gt=0" jsonschema:"title=Retracement Target"`
	// InvalidationRetracement is the stop depth as a fraction of the
	// reference range (0.5 = 50% back into the IB).
	InvalidationRetracement float64 `yaml:"invalidation_retracement" json:"invalidation_retracement" validate:"gt=0,lte=1" jsonschema:"title=Invalidation Retracement"`
	// RiskPerTrade is the fraction of equity risked per trade.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"gt=0,lte=1" jsonschema:"title=Risk Per Trade"`

	macroWindows []market.Window
}

// DefaultConfig returns the shared defaults: one macro window spanning the
// US morning, a full-range target, and a 50% invalidation.
func DefaultConfig() Config {
	return Config{
		MacroWindows:            []TimeWindow{{Start: "09:30", End: "12:00"}},
		CETolerance:             0,
		RetracementTarget:       1.0,
		InvalidationRetracement: 0.5,
		RiskPerTrade:            0.01,
	}
}

// Validate checks struct tags and cross-field constraints, and caches the
// parsed macro windows.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	windows, err := parseWindows(c.MacroWindows)
	if err != nil {
		return err
	}

	c.macroWindows = windows

	return nil
}

// Windows returns the parsed macro windows. Validate must have succeeded.
func (c *Config) Windows() []market.Window {
	return c.macroWindows
}

func parseWindows(specs []TimeWindow) ([]market.Window, error) {
	windows := make([]market.Window, 0, len(specs))

	for _, spec := range specs {
		start, err := market.ParseClock(spec.Start)
		if err != nil {
			return nil, err
		}

		end, err := market.ParseClock(spec.End)
		if err != nil {
			return nil, err
		}

		if !start.Before(end) {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"window start %s must precede end %s", spec.Start, spec.End)
		}

		windows = append(windows, market.Window{Start: start, End: end})
	}

	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Overlaps(windows[j]) {
				return nil, errors.Newf(errors.ErrCodeOverlappingWindows,
					"macro windows %d and %d overlap", i, j)
			}
		}
	}

	return windows, nil
}

// inMacroWindow reports whether the bar time falls inside any macro window.
func (c *Config) inMacroWindow(ctx *Context, i int) bool {
	t := ctx.Series.At(i).Time

	for _, w := range c.macroWindows {
		if w.Contains(t, ctx.Location) {
			return true
		}
	}

	return false
}

// GenerateSchemaJSON generates a JSON schema string for a strategy config.
func GenerateSchemaJSON(config any, title string) (string, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(config)
	schema.Title = title
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
