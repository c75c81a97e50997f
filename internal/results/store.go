// Package results persists backtest output to DuckDB: run summaries,
// trades, equity curves, walk-forward folds, and permutation sweeps, with
// parquet export for downstream analysis.
package results

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/edgelab-quant/priceaction/internal/logger"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/internal/validation"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// Store is a DuckDB-backed sink for run output. Open with ":memory:" for
// throwaway runs or a file path for persistence.
type Store struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *logger.Logger
}

// NewStore opens the database and creates the schema.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to open results database", err)
	}

	store := &Store{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: log,
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT,
			symbol TEXT,
			strategy TEXT,
			created_at TIMESTAMP DEFAULT current_timestamp,
			gross_pnl DOUBLE,
			net_pnl DOUBLE,
			win_rate DOUBLE,
			loss_rate DOUBLE,
			avg_win DOUBLE,
			avg_loss DOUBLE,
			win_loss_ratio DOUBLE,
			max_drawdown DOUBLE,
			sharpe_ratio DOUBLE,
			trade_count INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id TEXT,
			strategy TEXT,
			direction TEXT,
			entry_index INTEGER,
			entry_time TIMESTAMP,
			entry_price DOUBLE,
			exit_index INTEGER,
			exit_time TIMESTAMP,
			exit_price DOUBLE,
			quantity DOUBLE,
			costs DOUBLE,
			exit_reason TEXT,
			signal_index INTEGER,
			net_pnl DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS equity (
			run_id TEXT,
			bar_index INTEGER,
			time TIMESTAMP,
			equity DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS folds (
			run_id TEXT,
			fold_index INTEGER,
			train_start INTEGER,
			train_end INTEGER,
			test_start INTEGER,
			test_end INTEGER,
			net_pnl DOUBLE,
			max_drawdown DOUBLE,
			sharpe_ratio DOUBLE,
			trade_count INTEGER,
			failed BOOLEAN,
			failure TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS permutations (
			run_id TEXT,
			replica INTEGER,
			metric DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS permutation_summary (
			run_id TEXT,
			real_metric DOUBLE,
			p_value DOUBLE,
			significant BOOLEAN,
			replicas INTEGER,
			failed INTEGER
		)`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create schema", err)
		}
	}

	return nil
}

// SaveRun records one run's metrics summary.
func (s *Store) SaveRun(runID, symbol, strategy string, m types.PerformanceMetrics) error {
	_, err := s.sq.
		Insert("runs").
		Columns(
			"run_id", "symbol", "strategy", "gross_pnl", "net_pnl", "win_rate",
			"loss_rate", "avg_win", "avg_loss", "win_loss_ratio", "max_drawdown",
			"sharpe_ratio", "trade_count",
		).
		Values(
			runID, symbol, strategy, m.GrossPnL, m.NetPnL, m.WinRate,
			m.LossRate, m.AvgWin, m.AvgLoss, m.WinLossRatio, m.MaxDrawdown,
			m.SharpeRatio, m.TradeCount,
		).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert run", err)
	}

	return nil
}

// SaveTrades records the closed trades of one run in a transaction.
func (s *Store) SaveTrades(runID string, trades *types.TradeLog) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	for _, trade := range trades.Trades() {
		_, err := s.sq.
			Insert("trades").
			Columns(
				"run_id", "trade_id", "strategy", "direction", "entry_index",
				"entry_time", "entry_price", "exit_index", "exit_time",
				"exit_price", "quantity", "costs", "exit_reason", "signal_index",
				"net_pnl",
			).
			Values(
				runID, trade.ID, trade.Strategy, string(trade.Direction), trade.EntryIndex,
				trade.EntryTime, trade.EntryPrice, trade.ExitIndex, trade.ExitTime,
				trade.ExitPrice, trade.Quantity, trade.Costs, string(trade.ExitReason),
				trade.SignalIndex, trade.NetPnL(),
			).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to commit trades", err)
	}

	return nil
}

// SaveEquity records the per-bar equity curve of one run.
func (s *Store) SaveEquity(runID string, curve *types.EquityCurve) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	for _, point := range curve.Points {
		_, err := s.sq.
			Insert("equity").
			Columns("run_id", "bar_index", "time", "equity").
			Values(runID, point.BarIndex, point.Time, point.Equity).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert equity point", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to commit equity curve", err)
	}

	return nil
}

// SaveWalkForward records per-fold test metrics, including excluded folds.
func (s *Store) SaveWalkForward(runID string, result *validation.WalkForwardResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	for _, fold := range result.Folds {
		m := fold.Test.Metrics

		_, err := s.sq.
			Insert("folds").
			Columns(
				"run_id", "fold_index", "train_start", "train_end", "test_start",
				"test_end", "net_pnl", "max_drawdown", "sharpe_ratio",
				"trade_count", "failed", "failure",
			).
			Values(
				runID, fold.Index, fold.TrainStart, fold.TrainEnd, fold.TestStart,
				fold.TestEnd, m.NetPnL, m.MaxDrawdown, m.SharpeRatio,
				m.TradeCount, false, "",
			).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert fold", err)
		}
	}

	for _, failure := range result.Failed {
		_, err := s.sq.
			Insert("folds").
			Columns("run_id", "fold_index", "failed", "failure").
			Values(runID, failure.Index, true, failure.Err.Error()).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert failed fold", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to commit folds", err)
	}

	return nil
}

// SavePermutation records the surrogate distribution and its summary.
func (s *Store) SavePermutation(runID string, result *validation.PermutationResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	for i, metric := range result.Surrogates {
		_, err := s.sq.
			Insert("permutations").
			Columns("run_id", "replica", "metric").
			Values(runID, i, metric).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert replica", err)
		}
	}

	_, err = s.sq.
		Insert("permutation_summary").
		Columns("run_id", "real_metric", "p_value", "significant", "replicas", "failed").
		Values(runID, result.RealMetric, result.PValue, result.Significant,
			len(result.Surrogates), result.Failed).
		RunWith(tx).
		Exec()
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to insert permutation summary", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to commit permutation sweep", err)
	}

	return nil
}

// TradeCount returns the number of stored trades for a run.
func (s *Store) TradeCount(runID string) (int, error) {
	var count int

	err := s.sq.
		Select("COUNT(*)").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(s.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to count trades", err)
	}

	return count, nil
}

// EquityCount returns the number of stored equity points for a run.
func (s *Store) EquityCount(runID string) (int, error) {
	var count int

	err := s.sq.
		Select("COUNT(*)").
		From("equity").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(s.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to count equity points", err)
	}

	return count, nil
}

// Export copies every table to parquet files under dir.
func (s *Store) Export(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStoreExportFailed, "failed to create export directory", err)
	}

	tables := []string{"runs", "trades", "equity", "folds", "permutations", "permutation_summary"}

	for _, table := range tables {
		path := filepath.Join(dir, table+".parquet")

		if _, err := s.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, path)); err != nil {
			return errors.Wrapf(errors.ErrCodeStoreExportFailed, err, "failed to export %s", table)
		}
	}

	s.logger.Info("exported results to parquet", zap.String("dir", dir))

	return nil
}
