package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/metrics"
	"github.com/edgelab-quant/priceaction/internal/sim"
	"github.com/edgelab-quant/priceaction/internal/strategy"
	"github.com/edgelab-quant/priceaction/internal/structure"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/internal/validation"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// calendarConfig names the exchange session clock.
type calendarConfig struct {
	Zone  string `yaml:"zone"`
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// appConfig is the full YAML configuration file. Every section has a
// working default, so an empty (or absent) file runs the standard
// intraday setup.
type appConfig struct {
	Symbol       string                       `yaml:"symbol"`
	Calendar     calendarConfig               `yaml:"calendar"`
	Detector     structure.Config             `yaml:"detector"`
	Strategy     strategy.Config              `yaml:"strategy"`
	Continuation strategy.ContinuationConfig  `yaml:"continuation"`
	Simulator    sim.Config                   `yaml:"simulator"`
	Metrics      metrics.Config               `yaml:"metrics"`
	Split        validation.SplitConfig       `yaml:"split"`
	WalkForward  validation.WalkForwardConfig `yaml:"walk_forward"`
	Permutation  validation.PermutationConfig `yaml:"permutation"`
	// Bias is the per-session higher-timeframe narrative, keyed by
	// session date (YYYY-MM-DD). Missing dates read as neutral.
	Bias map[string]types.Bias `yaml:"bias"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Symbol:       "SPY",
		Calendar:     calendarConfig{Zone: "America/New_York", Open: "09:30", Close: "16:00"},
		Detector:     structure.DefaultConfig(),
		Strategy:     strategy.DefaultConfig(),
		Continuation: strategy.DefaultContinuationConfig(),
		Simulator:    sim.DefaultConfig(),
		Metrics:      metrics.DefaultConfig(),
		Split:        validation.DefaultSplitConfig(),
		WalkForward:  validation.DefaultWalkForwardConfig(),
		Permutation:  validation.DefaultPermutationConfig(),
	}
}

// loadAppConfig overlays the YAML file at path onto the defaults. An
// empty path returns the defaults untouched.
func loadAppConfig(path string) (appConfig, error) {
	config := defaultAppConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return config, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot read config file %s", path)
		}

		if err := yaml.Unmarshal(raw, &config); err != nil {
			return config, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot parse config file %s", path)
		}
	}

	for date, bias := range config.Bias {
		switch bias {
		case types.BiasBullish, types.BiasBearish, types.BiasNeutral:
		default:
			return config, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown bias %q for session %s", bias, date)
		}
	}

	// Return math anchors on the simulator's starting equity.
	config.Metrics.StartingEquity = config.Simulator.InitialEquity
	config.WalkForward.StartingEquity = config.Simulator.InitialEquity

	return config, nil
}

// buildStrategies constructs a fresh strategy set for one pipeline run.
// Strategies carry per-run state, so validation reruns must never share
// them.
func buildStrategies(names []string, config appConfig) ([]strategy.Strategy, error) {
	built := make([]strategy.Strategy, 0, len(names))

	for _, name := range names {
		switch name {
		case "orb":
			s, err := strategy.NewORB(config.Strategy)
			if err != nil {
				return nil, err
			}

			built = append(built, s)
		case "continuation":
			s, err := strategy.NewContinuation(config.Continuation)
			if err != nil {
				return nil, err
			}

			built = append(built, s)
		case "gapfill":
			s, err := strategy.NewGapFill(config.Strategy)
			if err != nil {
				return nil, err
			}

			built = append(built, s)
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown strategy %q", name)
		}
	}

	return built, nil
}

// pipelineRun wires detection, the strategy engine, simulation, and the
// metrics reduction into one validation.RunFunc. Each invocation builds
// its own detector, strategies, and simulator so the returned function is
// safe to run concurrently across folds and replicas.
func pipelineRun(config appConfig, calendar *market.Calendar, names []string) validation.RunFunc {
	return func(series *types.Series) (validation.RunResult, error) {
		detector, err := structure.NewDetector(config.Detector, calendar)
		if err != nil {
			return validation.RunResult{}, err
		}

		scan, err := detector.Scan(series)
		if err != nil {
			return validation.RunResult{}, err
		}

		strategies, err := buildStrategies(names, config)
		if err != nil {
			return validation.RunResult{}, err
		}

		ctx := strategy.NewContext(series, scan.Events, scan.Sessions, config.Bias, calendar.Location)

		signals, err := strategy.NewEngine(strategies...).Run(ctx, scan)
		if err != nil {
			return validation.RunResult{}, err
		}

		simulator, err := sim.NewSimulator(config.Simulator, nil)
		if err != nil {
			return validation.RunResult{}, err
		}

		run, err := simulator.Run(series, scan.Sessions, signals)
		if err != nil {
			return validation.RunResult{}, err
		}

		return validation.RunResult{
			Metrics: metrics.Compute(run.Trades, run.Equity, config.Metrics),
			Trades:  run.Trades,
			Equity:  run.Equity,
			Signals: signals,
		}, nil
	}
}
