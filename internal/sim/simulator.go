// Package sim turns ordered strategy signals into a trade log under strict
// causality: a signal produced at bar i fills no earlier than the open of
// bar i+1, and intrabar exits are resolved conservatively with stop
// precedence.
package sim

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/edgelab-quant/priceaction/internal/logger"
	"github.com/edgelab-quant/priceaction/internal/market"
	"github.com/edgelab-quant/priceaction/internal/types"
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// Config drives the execution simulator.
type Config struct {
	// FillOffset is the number of bars between a signal and its fill. The
	// fill happens at the open of signal bar + offset; zero is invalid.
	FillOffset int `yaml:"fill_offset" json:"fill_offset" validate:"min=1"`
	// InitialEquity is the starting account value.
	InitialEquity float64 `yaml:"initial_equity" json:"initial_equity" validate:"gt=0"`
	// RiskPerTrade is the equity fraction risked between entry and stop.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"gt=0,lte=1"`
	// CostModel names the commission/slippage model.
	CostModel ModelName `yaml:"cost_model" json:"cost_model" validate:"oneof=zero fixed proportional"`
	// CostParam parameterizes the cost model: per-fill fee for fixed,
	// notional rate for proportional.
	CostParam float64 `yaml:"cost_param" json:"cost_param" validate:"gte=0"`
}

// DefaultConfig fills one bar later with zero costs.
func DefaultConfig() Config {
	return Config{
		FillOffset:    1,
		InitialEquity: 100_000,
		RiskPerTrade:  0.01,
		CostModel:     ModelZero,
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid simulator config", err)
	}

	return nil
}

// Result is one simulated run: closed trades, the per-bar equity curve,
// and the final account value.
type Result struct {
	Trades      *types.TradeLog
	Equity      *types.EquityCurve
	FinalEquity float64
}

// position is the single open position. At most one exists at a time.
type position struct {
	id          string
	strategy    string
	dir         types.Direction
	entryIndex  int
	entryTime   time.Time
	entryPrice  float64
	quantity    float64
	entryCost   float64
	signalIndex int
	stop        float64
	hasStop     bool
	target      float64
	hasTarget   bool
}

// Simulator replays signals against a bar series.
type Simulator struct {
	config Config
	costs  CostModel
	logger *logger.Logger

	trades   *types.TradeLog
	realized decimal.Decimal
	open     *position
}

// NewSimulator validates the config and resolves the cost model.
func NewSimulator(config Config, log *logger.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	costs, err := NewCostModel(config.CostModel, config.CostParam)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Simulator{config: config, costs: costs, logger: log}, nil
}

// Run executes the signals over the series. Signals must be ordered by bar
// index; positions are flattened at each session end and at end of data.
func (s *Simulator) Run(series *types.Series, sessions []market.Session, signals []types.Signal) (*Result, error) {
	pending, err := s.schedule(series, signals)
	if err != nil {
		return nil, err
	}

	sessionEnd := make(map[int]bool, len(sessions))
	for _, sess := range sessions {
		if sess.Len() > 0 {
			sessionEnd[sess.End-1] = true
		}
	}

	s.trades = types.NewTradeLog()
	s.realized = decimal.NewFromFloat(s.config.InitialEquity)
	s.open = nil

	curve := &types.EquityCurve{}

	for i := 0; i < series.Len(); i++ {
		bar := series.At(i)

		for _, signal := range pending[i] {
			s.fill(signal, i, bar)
		}

		if s.open != nil {
			if price, reason, hit := s.intrabarExit(s.open, bar); hit {
				s.close(i, bar.Time, price, reason)
			}
		}

		if s.open != nil && sessionEnd[i] {
			s.close(i, bar.Time, bar.Close, types.ExitReasonSessionEnd)
		}

		curve.Append(types.EquityPoint{
			BarIndex: i,
			Time:     bar.Time,
			Equity:   s.markToMarket(bar.Close),
		})
	}

	if s.open != nil {
		last := series.At(series.Len() - 1)
		s.close(series.Len()-1, last.Time, last.Close, types.ExitReasonEndOfData)

		if n := len(curve.Points); n > 0 {
			curve.Points[n-1].Equity, _ = s.realized.Float64()
		}
	}

	final, _ := s.realized.Float64()

	s.logger.Debug("simulation complete",
		zap.Int("trades", s.trades.Len()),
		zap.Float64("final_equity", final),
	)

	return &Result{Trades: s.trades, Equity: curve, FinalEquity: final}, nil
}

// schedule maps each signal to its fill bar, enforcing execution
// causality. Signals whose fill bar falls past the data are dropped.
func (s *Simulator) schedule(series *types.Series, signals []types.Signal) (map[int][]types.Signal, error) {
	pending := make(map[int][]types.Signal, len(signals))

	for _, signal := range signals {
		fillIndex := signal.BarIndex + s.config.FillOffset
		if fillIndex <= signal.BarIndex {
			return nil, errors.Newf(errors.ErrCodeFillBeforeSignal,
				"fill at bar %d does not follow signal at bar %d", fillIndex, signal.BarIndex)
		}

		if fillIndex >= series.Len() {
			s.logger.Debug("signal dropped, fill falls past end of data",
				zap.Int("signal_bar", signal.BarIndex),
				zap.String("strategy", signal.Strategy),
			)

			continue
		}

		pending[fillIndex] = append(pending[fillIndex], signal)
	}

	return pending, nil
}

// fill applies one signal at the bar open: flat closes, an opposite
// direction reverses, a fresh direction opens. A same-direction signal
// while in position is ignored.
func (s *Simulator) fill(signal types.Signal, i int, bar types.Bar) {
	if s.open != nil {
		if signal.Direction == s.open.dir {
			return
		}

		reason := types.ExitReasonReversal
		if signal.Direction == types.DirectionFlat {
			reason = types.ExitReasonFlatSignal
		}

		s.close(i, bar.Time, bar.Open, reason)
	}

	if signal.Direction == types.DirectionFlat {
		return
	}

	equity, _ := s.realized.Float64()

	quantity, err := s.size(equity, bar.Open, signal)
	if err != nil {
		s.logger.Warn("signal dropped, unusable stop",
			zap.Int("signal_bar", signal.BarIndex),
			zap.String("strategy", signal.Strategy),
			zap.Error(err),
		)

		return
	}

	pos := &position{
		id:          uuid.NewString(),
		strategy:    signal.Strategy,
		dir:         signal.Direction,
		entryIndex:  i,
		entryTime:   bar.Time,
		entryPrice:  bar.Open,
		quantity:    quantity,
		entryCost:   s.costs.Cost(bar.Open, quantity),
		signalIndex: signal.BarIndex,
	}

	if stop, err := signal.Stop.Take(); err == nil {
		pos.stop, pos.hasStop = stop, true
	}

	if target, err := signal.Target.Take(); err == nil {
		pos.target, pos.hasTarget = target, true
	}

	s.open = pos
}

// close finalizes the open position into a trade and realizes its PnL.
func (s *Simulator) close(i int, at time.Time, price float64, reason types.ExitReason) {
	pos := s.open
	exitCost := s.costs.Cost(price, pos.quantity)

	trade := types.Trade{
		ID:          pos.id,
		Strategy:    pos.strategy,
		Direction:   pos.dir,
		EntryIndex:  pos.entryIndex,
		EntryTime:   pos.entryTime,
		EntryPrice:  pos.entryPrice,
		ExitIndex:   i,
		ExitTime:    at,
		ExitPrice:   price,
		Quantity:    pos.quantity,
		Costs:       pos.entryCost + exitCost,
		ExitReason:  reason,
		SignalIndex: pos.signalIndex,
	}

	s.trades.Append(trade)
	s.realized = s.realized.Add(decimal.NewFromFloat(trade.NetPnL()))
	s.open = nil
}

// size derives the quantity from the risked equity fraction and the stop
// distance.
// Signals without a stop are sized on notional instead.
func (s *Simulator) size(equity, price float64, signal types.Signal) (float64, error) {
	risk := equity * s.config.RiskPerTrade

	stop, err := signal.Stop.Take()
	if err != nil {
		return risk / price, nil
	}

	distance := price - stop
	if signal.Direction == types.DirectionShort {
		distance = stop - price
	}

	if distance <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidStopPrice,
			"stop %.4f on the wrong side of fill %.4f", stop, price)
	}

	return risk / distance, nil
}

// intrabarExit resolves stop and target against the bar's range. When both
// are touched the stop wins. An open beyond the level fills at the open.
func (s *Simulator) intrabarExit(pos *position, bar types.Bar) (float64, types.ExitReason, bool) {
	if pos.dir == types.DirectionLong {
		if pos.hasStop && bar.Low <= pos.stop {
			return min(bar.Open, pos.stop), types.ExitReasonStop, true
		}

		if pos.hasTarget && bar.High >= pos.target {
			return max(bar.Open, pos.target), types.ExitReasonTarget, true
		}

		return 0, "", false
	}

	if pos.hasStop && bar.High >= pos.stop {
		return max(bar.Open, pos.stop), types.ExitReasonStop, true
	}

	if pos.hasTarget && bar.Low <= pos.target {
		return min(bar.Open, pos.target), types.ExitReasonTarget, true
	}

	return 0, "", false
}

func (s *Simulator) markToMarket(close float64) float64 {
	value, _ := s.realized.Float64()
	if s.open == nil {
		return value
	}

	move := close - s.open.entryPrice
	if s.open.dir == types.DirectionShort {
		move = -move
	}

	return value + move*s.open.quantity - s.open.entryCost
}
