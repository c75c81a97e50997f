package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edgelab-quant/priceaction/internal/logger"
	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/results"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/internal/validation"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

var allStrategies = []string{"orb", "continuation", "gapfill"}

// runSummary is the YAML report printed to stdout after a run.
type runSummary struct {
	RunID       string                    `yaml:"run_id"`
	Symbol      string                    `yaml:"symbol"`
	Strategies  []string                  `yaml:"strategies"`
	Bars        int                       `yaml:"bars"`
	Sessions    int                       `yaml:"sessions"`
	Trades      int                       `yaml:"trades"`
	Metrics     types.PerformanceMetrics  `yaml:"metrics"`
	Train       *types.PerformanceMetrics `yaml:"train,omitempty"`
	Test        *types.PerformanceMetrics `yaml:"test,omitempty"`
	WalkForward *walkForwardSummary       `yaml:"walk_forward,omitempty"`
	Permutation *permutationSummary       `yaml:"permutation,omitempty"`
}

type walkForwardSummary struct {
	Folds    int                      `yaml:"folds"`
	Failed   int                      `yaml:"failed"`
	Combined types.PerformanceMetrics `yaml:"combined"`
}

type permutationSummary struct {
	Replicas    int     `yaml:"replicas"`
	Failed      int     `yaml:"failed"`
	RealMetric  float64 `yaml:"real_metric"`
	PValue      float64 `yaml:"p_value"`
	Significant bool    `yaml:"significant"`
}

func backtestAction(_ context.Context, cmd *cli.Command) error {
	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	config, err := loadAppConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	names := allStrategies
	if picked := cmd.String("strategy"); picked != "all" {
		names = strings.Split(picked, ",")
	}

	calendar, err := market.NewCalendar(config.Calendar.Zone, config.Calendar.Open, config.Calendar.Close)
	if err != nil {
		return err
	}

	series, err := market.LoadCSV(cmd.String("data"), config.Symbol, calendar.Location)
	if err != nil {
		return err
	}

	appLogger.Info("loaded series",
		zap.String("symbol", config.Symbol),
		zap.Int("bars", series.Len()),
		zap.Strings("strategies", names))

	run := pipelineRun(config, calendar, names)

	base, err := run(series)
	if err != nil {
		return err
	}

	store, err := results.NewStore(cmd.String("results"), appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := uuid.NewString()

	if err := store.SaveRun(runID, config.Symbol, strings.Join(names, ","), base.Metrics); err != nil {
		return err
	}

	if err := store.SaveTrades(runID, base.Trades); err != nil {
		return err
	}

	if err := store.SaveEquity(runID, base.Equity); err != nil {
		return err
	}

	summary := runSummary{
		RunID:      runID,
		Symbol:     config.Symbol,
		Strategies: names,
		Bars:       series.Len(),
		Sessions:   len(calendar.Sessions(series)),
		Trades:     base.Trades.Len(),
		Metrics:    base.Metrics,
	}

	switch mode := cmd.String("validate"); mode {
	case "none":
	case "oos":
		split, err := validation.OutOfSample(series, config.Split, run)
		if err != nil {
			return err
		}

		appLogger.Info("out-of-sample split",
			zap.Int("split_index", split.SplitIndex),
			zap.Float64("train_net_pnl", split.Train.Metrics.NetPnL),
			zap.Float64("test_net_pnl", split.Test.Metrics.NetPnL))

		summary.Train = &split.Train.Metrics
		summary.Test = &split.Test.Metrics
	case "walkforward":
		folds, err := validation.WalkForward(series, config.WalkForward, run, appLogger)
		if err != nil {
			return err
		}

		if err := store.SaveWalkForward(runID, folds); err != nil {
			return err
		}

		summary.WalkForward = &walkForwardSummary{
			Folds:    len(folds.Folds),
			Failed:   len(folds.Failed),
			Combined: folds.Combined,
		}
	case "permutation":
		measure := validation.SignalReplay(base.Signals, calendar.Sessions(series), config.Simulator)

		perm, err := validation.Permutation(series, config.Permutation, measure, appLogger)
		if err != nil {
			return err
		}

		if err := store.SavePermutation(runID, perm); err != nil {
			return err
		}

		summary.Permutation = &permutationSummary{
			Replicas:    len(perm.Surrogates),
			Failed:      perm.Failed,
			RealMetric:  perm.RealMetric,
			PValue:      perm.PValue,
			Significant: perm.Significant,
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown validation mode %q", mode)
	}

	if dir := cmd.String("export"); dir != "" {
		if err := store.Export(dir); err != nil {
			return err
		}
	}

	out, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	fmt.Print(string(out))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run an intraday price-action backtest with statistical validation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the minute-bar CSV file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file (defaults apply when omitted)",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   fmt.Sprintf("Comma-separated strategies to run (%s) or \"all\"", strings.Join(allStrategies, ", ")),
				Value:   "all",
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "DuckDB database path for run results (\":memory:\" to skip persistence)",
				Value:   "backtest.duckdb",
			},
			&cli.StringFlag{
				Name:    "export",
				Aliases: []string{"e"},
				Usage:   "Directory to export result tables as Parquet (skipped when empty)",
			},
			&cli.StringFlag{
				Name:    "validate",
				Aliases: []string{"v"},
				Usage:   "Validation mode: none, oos, walkforward, permutation",
				Value:   "none",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
