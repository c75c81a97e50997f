package results

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/internal/validation"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
	runID string
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupTest() {
	store, err := NewStore(":memory:", nil)
	suite.Require().NoError(err)
	suite.store = store
	suite.runID = uuid.NewString()
}

func (suite *StoreTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *StoreTestSuite) sampleTrades(n int) *types.TradeLog {
	start := time.Date(2023, 10, 25, 14, 30, 0, 0, time.UTC)
	trades := types.NewTradeLog()

	for i := 0; i < n; i++ {
		trades.Append(types.Trade{
			ID:          uuid.NewString(),
			Strategy:    "orb",
			Direction:   types.DirectionLong,
			EntryIndex:  i,
			EntryTime:   start.Add(time.Duration(i) * time.Minute),
			EntryPrice:  100,
			ExitIndex:   i + 1,
			ExitTime:    start.Add(time.Duration(i+1) * time.Minute),
			ExitPrice:   101,
			Quantity:    10,
			ExitReason:  types.ExitReasonTarget,
			SignalIndex: i - 1,
		})
	}

	return trades
}

func (suite *StoreTestSuite) TestSaveRunSummary() {
	m := types.PerformanceMetrics{
		GrossPnL:     500,
		NetPnL:       480,
		WinRate:      0.6,
		LossRate:     0.4,
		AvgWin:       120,
		AvgLoss:      -60,
		WinLossRatio: 2,
		MaxDrawdown:  -300,
		SharpeRatio:  0.8,
		TradeCount:   10,
	}

	suite.Require().NoError(suite.store.SaveRun(suite.runID, "ES", "orb", m))

	var netPnL float64

	err := suite.store.db.QueryRow(`SELECT net_pnl FROM runs WHERE run_id = ?`, suite.runID).Scan(&netPnL)
	suite.Require().NoError(err)
	suite.InDelta(480.0, netPnL, 1e-9)
}

func (suite *StoreTestSuite) TestSaveRunToleratesNaNMetrics() {
	m := types.PerformanceMetrics{
		WinRate:      math.NaN(),
		LossRate:     math.NaN(),
		AvgWin:       math.NaN(),
		AvgLoss:      math.NaN(),
		WinLossRatio: math.NaN(),
		SharpeRatio:  math.NaN(),
	}

	suite.NoError(suite.store.SaveRun(suite.runID, "ES", "orb", m))
}

func (suite *StoreTestSuite) TestSaveTradesRoundTrip() {
	suite.Require().NoError(suite.store.SaveTrades(suite.runID, suite.sampleTrades(5)))

	count, err := suite.store.TradeCount(suite.runID)
	suite.Require().NoError(err)
	suite.Equal(5, count)

	other, err := suite.store.TradeCount(uuid.NewString())
	suite.Require().NoError(err)
	suite.Zero(other)
}

func (suite *StoreTestSuite) TestSaveEquityCurve() {
	start := time.Date(2023, 10, 25, 14, 30, 0, 0, time.UTC)
	curve := &types.EquityCurve{}

	for i := 0; i < 7; i++ {
		curve.Append(types.EquityPoint{
			BarIndex: i,
			Time:     start.Add(time.Duration(i) * time.Minute),
			Equity:   100_000 + float64(i)*10,
		})
	}

	suite.Require().NoError(suite.store.SaveEquity(suite.runID, curve))

	count, err := suite.store.EquityCount(suite.runID)
	suite.Require().NoError(err)
	suite.Equal(7, count)
}

func (suite *StoreTestSuite) TestSaveWalkForward() {
	result := &validation.WalkForwardResult{
		Folds: []validation.Fold{
			{
				Index:      0,
				TrainStart: 0,
				TrainEnd:   60,
				TestStart:  60,
				TestEnd:    80,
				Test: validation.RunResult{
					Metrics: types.PerformanceMetrics{NetPnL: 250, TradeCount: 3},
				},
			},
		},
		Failed: []validation.FoldFailure{
			{Index: 1, Err: fmt.Errorf("window errored")},
		},
	}

	suite.Require().NoError(suite.store.SaveWalkForward(suite.runID, result))

	var total, failed int

	err := suite.store.db.QueryRow(
		`SELECT COUNT(*) FROM folds WHERE run_id = ?`, suite.runID,
	).Scan(&total)
	suite.Require().NoError(err)
	suite.Equal(2, total)

	err = suite.store.db.QueryRow(
		`SELECT COUNT(*) FROM folds WHERE run_id = ? AND failed`, suite.runID,
	).Scan(&failed)
	suite.Require().NoError(err)
	suite.Equal(1, failed)
}

func (suite *StoreTestSuite) TestSavePermutation() {
	result := &validation.PermutationResult{
		RealMetric:  1200,
		Surrogates:  []float64{-100, 50, 300, 900},
		PValue:      0.0,
		Significant: true,
		Failed:      1,
	}

	suite.Require().NoError(suite.store.SavePermutation(suite.runID, result))

	var replicas int

	err := suite.store.db.QueryRow(
		`SELECT replicas FROM permutation_summary WHERE run_id = ?`, suite.runID,
	).Scan(&replicas)
	suite.Require().NoError(err)
	suite.Equal(4, replicas)
}

func (suite *StoreTestSuite) TestExportWritesParquet() {
	suite.Require().NoError(suite.store.SaveTrades(suite.runID, suite.sampleTrades(2)))

	dir := filepath.Join(suite.T().TempDir(), "export")
	suite.Require().NoError(suite.store.Export(dir))

	for _, name := range []string{"runs", "trades", "equity"} {
		_, err := os.Stat(filepath.Join(dir, name+".parquet"))
		suite.NoError(err)
	}
}
