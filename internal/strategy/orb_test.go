package strategy

import (
	"github.com/edgelab-quant/priceaction/internal/types"
)

func (suite *StrategyTestSuite) TestORBLongLifecycle() {
	bars := suite.flatBars(8)
	// Breakout close above the IB high, then a push through the target.
	bars[3] = types.Bar{Time: bars[3].Time, Open: 104, High: 105.6, Low: 103.8, Close: 105.5, Volume: 100}
	bars[4] = types.Bar{Time: bars[4].Time, Open: 105.5, High: 106.5, Low: 105.2, Close: 106.2, Volume: 100}
	bars[5] = types.Bar{Time: bars[5].Time, Open: 106.2, High: 110.6, Low: 106.0, Close: 110.1, Volume: 100}
	bars[6] = types.Bar{Time: bars[6].Time, Open: 110, High: 110.4, Low: 109.5, Close: 110, Volume: 100}
	bars[7] = types.Bar{Time: bars[7].Time, Open: 110, High: 110.3, Low: 109.6, Close: 109.8, Volume: 100}

	events := types.NewEventLog()
	ib := events.Append(ibEvent(2, 105, 100))
	breakout := events.Append(breakoutEvent(3, types.DirectionLong, 105, ib))

	ctx := suite.context(bars, events, nil)
	orb, err := NewORB(DefaultConfig())
	suite.Require().NoError(err)

	suite.Equal(StateIdle, orb.State())

	signals := suite.drive(orb, ctx)
	suite.Require().Len(signals, 1)

	signal := signals[0]
	suite.Equal(3, signal.BarIndex)
	suite.Equal(types.DirectionLong, signal.Direction)
	// IB range is 5: stop retraces half the range, target extends one full
	// range beyond the high.
	suite.InDelta(102.5, signal.Stop.Unwrap(), 1e-9)
	suite.InDelta(110.0, signal.Target.Unwrap(), 1e-9)
	suite.Equal([]types.EventID{ib, breakout}, signal.Reason)

	// Bar 5 reaches the target, so the machine cools until the reset.
	suite.Equal(StateCooling, orb.State())
}

func (suite *StrategyTestSuite) TestORBShortEntry() {
	bars := suite.flatBars(5)
	bars[3] = types.Bar{Time: bars[3].Time, Open: 100.5, High: 100.8, Low: 99.2, Close: 99.4, Volume: 100}
	bars[4] = types.Bar{Time: bars[4].Time, Open: 99.4, High: 99.8, Low: 98.9, Close: 99.5, Volume: 100}

	events := types.NewEventLog()
	ib := events.Append(ibEvent(2, 105, 100))
	events.Append(breakoutEvent(3, types.DirectionShort, 100, ib))

	ctx := suite.context(bars, events, nil)
	orb, err := NewORB(DefaultConfig())
	suite.Require().NoError(err)

	signals := suite.drive(orb, ctx)
	suite.Require().Len(signals, 1)

	signal := signals[0]
	suite.Equal(types.DirectionShort, signal.Direction)
	suite.InDelta(102.5, signal.Stop.Unwrap(), 1e-9)
	suite.InDelta(95.0, signal.Target.Unwrap(), 1e-9)
}

func (suite *StrategyTestSuite) TestORBStopOutCools() {
	bars := suite.flatBars(6)
	bars[3] = types.Bar{Time: bars[3].Time, Open: 104, High: 105.6, Low: 103.8, Close: 105.5, Volume: 100}
	// Bar 4 trades back through the stop at 102.5.
	bars[4] = types.Bar{Time: bars[4].Time, Open: 105, High: 105.2, Low: 102.1, Close: 102.3, Volume: 100}

	events := types.NewEventLog()
	ib := events.Append(ibEvent(2, 105, 100))
	events.Append(breakoutEvent(3, types.DirectionLong, 105, ib))

	ctx := suite.context(bars, events, nil)
	orb, err := NewORB(DefaultConfig())
	suite.Require().NoError(err)

	signals := suite.drive(orb, ctx)
	suite.Require().Len(signals, 1)
	suite.Equal(StateCooling, orb.State())

	orb.Reset()
	suite.Equal(StateIdle, orb.State())
	suite.Nil(orb.pos)
}

func (suite *StrategyTestSuite) TestORBIgnoresBreakoutWithoutInitialBalance() {
	bars := suite.flatBars(5)

	events := types.NewEventLog()
	events.Append(breakoutEvent(3, types.DirectionLong, 105, types.NoEvent))

	ctx := suite.context(bars, events, nil)
	orb, err := NewORB(DefaultConfig())
	suite.Require().NoError(err)

	signals := suite.drive(orb, ctx)
	suite.Empty(signals)
	suite.Equal(StateIdle, orb.State())
}
