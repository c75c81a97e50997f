package strategy

import (
	"github.com/edgelab-quant/priceaction/internal/types"
)

func (suite *StrategyTestSuite) bullishBias() map[string]types.Bias {
	return map[string]types.Bias{"2023-10-25": types.BiasBullish}
}

func (suite *StrategyTestSuite) bearishBias() map[string]types.Bias {
	return map[string]types.Bias{"2023-10-25": types.BiasBearish}
}

func (suite *StrategyTestSuite) TestGapFillLongLifecycle() {
	bars := suite.flatBars(6)
	// Bar 3 dips to the CE at 100.5 and closes back above it.
	bars[3] = types.Bar{Time: bars[3].Time, Open: 101.7, High: 101.8, Low: 100.4, Close: 101.2, Volume: 100}

	events := types.NewEventLog()
	gap := events.Append(fvgEvent(2, types.GapBISI, 101.0, 100.0, false))

	ctx := suite.context(bars, events, suite.bullishBias())

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	signals := suite.drive(strategy, ctx)
	suite.Require().Len(signals, 1)

	signal := signals[0]
	suite.Equal(3, signal.BarIndex)
	suite.Equal(types.DirectionLong, signal.Direction)
	// Stop at the far boundary, target at the near one: a full fill.
	suite.InDelta(100.0, signal.Stop.Unwrap(), 1e-9)
	suite.InDelta(101.0, signal.Target.Unwrap(), 1e-9)
	suite.Equal([]types.EventID{gap}, signal.Reason)

	// Bar 4 trades back through the gap top; the machine cools.
	suite.Equal(StateCooling, strategy.State())
}

func (suite *StrategyTestSuite) TestGapFillRejectsCloseBeyondCE() {
	bars := suite.flatBars(5)
	// The touch is there but the body closes below the CE.
	bars[3] = types.Bar{Time: bars[3].Time, Open: 100.6, High: 100.7, Low: 100.2, Close: 100.3, Volume: 100}
	bars[4] = types.Bar{Time: bars[4].Time, Open: 100.3, High: 100.45, Low: 99.8, Close: 100.0, Volume: 100}

	events := types.NewEventLog()
	events.Append(fvgEvent(2, types.GapBISI, 101.0, 100.0, false))

	ctx := suite.context(bars, events, suite.bullishBias())

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateArmed, strategy.State())
}

func (suite *StrategyTestSuite) TestGapFillShortRequiresBearishBias() {
	bars := suite.flatBars(5)
	// Bar 3 rises to the CE at 102.8 and closes back under it.
	bars[3] = types.Bar{Time: bars[3].Time, Open: 102.3, High: 102.9, Low: 102.2, Close: 102.5, Volume: 100}

	events := types.NewEventLog()
	events.Append(fvgEvent(2, types.GapSIBI, 103.0, 102.6, false))

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	// Bullish bias never agrees with a SIBI fill.
	ctx := suite.context(bars, events, suite.bullishBias())
	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())

	// Bearish bias arms it and the CE touch sells.
	strategy, err = NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	ctx = suite.context(bars, events, suite.bearishBias())
	signals := suite.drive(strategy, ctx)
	suite.Require().Len(signals, 1)
	suite.Equal(types.DirectionShort, signals[0].Direction)
	suite.InDelta(103.0, signals[0].Stop.Unwrap(), 1e-9)
	suite.InDelta(102.6, signals[0].Target.Unwrap(), 1e-9)
}

func (suite *StrategyTestSuite) TestGapFillNeutralBiasNeverArms() {
	bars := suite.flatBars(5)

	events := types.NewEventLog()
	events.Append(fvgEvent(2, types.GapBISI, 101.0, 100.0, false))

	ctx := suite.context(bars, events, nil)

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}

func (suite *StrategyTestSuite) TestGapFillSkipsLiquidityVoids() {
	bars := suite.flatBars(5)

	events := types.NewEventLog()
	events.Append(fvgEvent(2, types.GapBISI, 106, 98, true))

	ctx := suite.context(bars, events, suite.bullishBias())

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}

func (suite *StrategyTestSuite) TestGapFillNewestGapReplacesArmed() {
	bars := suite.flatBars(6)

	events := types.NewEventLog()
	events.Append(fvgEvent(2, types.GapBISI, 101.0, 100.0, false))
	fresh := events.Append(fvgEvent(3, types.GapBISI, 100.8, 100.4, false))

	ctx := suite.context(bars, events, suite.bullishBias())

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateArmed, strategy.State())
	suite.Equal(fresh, strategy.armedID)
}

func (suite *StrategyTestSuite) TestGapFillViolationDisarms() {
	bars := suite.flatBars(6)

	events := types.NewEventLog()
	gap := events.Append(fvgEvent(2, types.GapBISI, 101.0, 100.0, false))
	events.Append(violationEvent(3, gap))

	ctx := suite.context(bars, events, suite.bullishBias())

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}

func (suite *StrategyTestSuite) TestGapFillInversionCancelsSetup() {
	bars := suite.flatBars(6)

	events := types.NewEventLog()
	gap := events.Append(fvgEvent(2, types.GapBISI, 101.0, 100.0, false))
	events.Append(inversionEvent(3, gap, types.GapSIBI))

	ctx := suite.context(bars, events, suite.bullishBias())

	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	// The inversion flips the gap bearish; a bullish bias cannot take the
	// flipped fill, so the machine returns to Idle.
	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}

func (suite *StrategyTestSuite) TestGapFillInversionRequiresFlippedBias() {
	bars := suite.flatBars(6)

	events := types.NewEventLog()
	gap := events.Append(fvgEvent(2, types.GapSIBI, 103.0, 102.6, false))
	events.Append(violationEvent(3, gap))
	events.Append(inversionEvent(3, gap, types.GapBISI))

	// Bearish bias armed the SIBI fill; the flipped BISI fill would need a
	// bullish bias, so nothing re-arms inside this session.
	strategy, err := NewGapFill(DefaultConfig())
	suite.Require().NoError(err)

	ctx := suite.context(bars, events, suite.bearishBias())
	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}
