package strategy

import (
	"github.com/edgelab-quant/priceaction/internal/types"
)

func (suite *StrategyTestSuite) continuationConfig() ContinuationConfig {
	config := DefaultContinuationConfig()
	config.StorytellerWindows = []TimeWindow{{Start: "09:30", End: "10:00"}}

	return config
}

// continuationFixture stages a full short-side manipulation reversed into a
// long: swing low 100 and swing high 105, a sweep of the low at bar 5, a
// BISI gap in the recovery leg, a bullish shift, then a dip into the gap.
func (suite *StrategyTestSuite) continuationFixture() ([]types.Bar, *types.EventLog) {
	bars := suite.flatBars(12)
	bars[5] = types.Bar{Time: bars[5].Time, Open: 101.8, High: 102.0, Low: 99.5, Close: 101.9, Volume: 100}
	bars[6] = types.Bar{Time: bars[6].Time, Open: 101.9, High: 102.6, Low: 101.7, Close: 102.5, Volume: 100}
	bars[7] = types.Bar{Time: bars[7].Time, Open: 102.5, High: 103.4, Low: 102.4, Close: 103.3, Volume: 100}
	bars[8] = types.Bar{Time: bars[8].Time, Open: 103.3, High: 104.2, Low: 103.1, Close: 104.0, Volume: 100}
	bars[9] = types.Bar{Time: bars[9].Time, Open: 102.6, High: 102.7, Low: 101.9, Close: 102.5, Volume: 100}
	bars[10] = types.Bar{Time: bars[10].Time, Open: 103, High: 105.3, Low: 102.8, Close: 104.9, Volume: 100}
	bars[11] = types.Bar{Time: bars[11].Time, Open: 104.9, High: 104.95, Low: 104.2, Close: 104.5, Volume: 100}

	events := types.NewEventLog()
	events.Append(swingEvent(2, 1, types.DirectionShort, 100))
	events.Append(swingEvent(4, 3, types.DirectionLong, 105))
	events.Append(fvgEvent(7, types.GapBISI, 102.5, 101.5, false))
	events.Append(shiftEvent(8, types.DirectionLong, 105))

	return bars, events
}

func (suite *StrategyTestSuite) TestContinuationLongLifecycle() {
	bars, events := suite.continuationFixture()
	ctx := suite.context(bars, events, nil)

	strategy, err := NewContinuation(suite.continuationConfig())
	suite.Require().NoError(err)

	signals := suite.drive(strategy, ctx)
	suite.Require().Len(signals, 1)

	signal := signals[0]
	suite.Equal(9, signal.BarIndex)
	suite.Equal(types.DirectionLong, signal.Direction)
	// Stop sits under the gap, target at the prior buyside liquidity.
	suite.InDelta(101.5, signal.Stop.Unwrap(), 1e-9)
	suite.InDelta(105.0, signal.Target.Unwrap(), 1e-9)
	suite.Equal([]types.EventID{3, 2, 1}, signal.Reason)

	// Bar 10 trades through the 105 target; the machine cools.
	suite.Equal(StateCooling, strategy.State())
}

func (suite *StrategyTestSuite) TestContinuationGapEdgeEntry() {
	bars, events := suite.continuationFixture()
	// The dip only reaches the top of the gap, not the CE.
	bars[9] = types.Bar{Time: bars[9].Time, Open: 102.9, High: 103.0, Low: 102.45, Close: 102.8, Volume: 100}

	ctx := suite.context(bars, events, nil)

	config := suite.continuationConfig()
	config.EntryAt = EntryAtGapEdge

	strategy, err := NewContinuation(config)
	suite.Require().NoError(err)

	signals := suite.drive(strategy, ctx)
	suite.Require().Len(signals, 1)
	suite.Equal(9, signals[0].BarIndex)

	// The same dip is too shallow for a CE entry.
	ceStrategy, err := NewContinuation(suite.continuationConfig())
	suite.Require().NoError(err)

	ctx = suite.context(bars, events, nil)
	suite.Empty(suite.drive(ceStrategy, ctx))
}

func (suite *StrategyTestSuite) TestContinuationReArmsOnSecondManipulation() {
	bars, events := suite.continuationFixture()
	// A deeper sweep one bar later discards the first setup.
	bars[6] = types.Bar{Time: bars[6].Time, Open: 101.0, High: 101.5, Low: 99.0, Close: 100.5, Volume: 100}

	ctx := suite.context(bars, events, nil)

	strategy, err := NewContinuation(suite.continuationConfig())
	suite.Require().NoError(err)

	allEvents := events.All()
	for i := 0; i <= 6; i++ {
		var confirmed []types.Event

		for _, event := range allEvents {
			if event.ConfirmedAt == i {
				confirmed = append(confirmed, event)
			}
		}

		strategy.OnBar(ctx, i, confirmed)
	}

	suite.Equal(StateArmed, strategy.State())
	suite.Equal(6, strategy.manipIndex)
	suite.Equal(types.NoEvent, strategy.shiftID)
}

func (suite *StrategyTestSuite) TestContinuationIgnoresSweepOutsideStorytellerWindow() {
	bars, events := suite.continuationFixture()
	ctx := suite.context(bars, events, nil)

	config := suite.continuationConfig()
	config.StorytellerWindows = []TimeWindow{{Start: "09:30", End: "09:32"}}

	strategy, err := NewContinuation(config)
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}

func (suite *StrategyTestSuite) TestContinuationDisarmsWhenImpulseLegHasNoGap() {
	bars, events := suite.continuationFixture()
	// Keep bar 10 below the swing high so no fresh sweep re-arms.
	bars[10] = types.Bar{Time: bars[10].Time, Open: 103, High: 104.5, Low: 102.8, Close: 104.0, Volume: 100}

	// Rebuild the log with the gap confirmed before the sweep, leaving the
	// impulse leg empty.
	rebuilt := types.NewEventLog()
	for _, event := range events.All() {
		if event.Kind == types.EventKindFairValueGap {
			event.ConfirmedAt = 4
		}

		rebuilt.Append(types.Event{
			Kind:        event.Kind,
			ConfirmedAt: event.ConfirmedAt,
			SessionDate: event.SessionDate,
			FVG:         event.FVG,
			Swing:       event.Swing,
			Shift:       event.Shift,
		})
	}

	ctx := suite.context(bars, rebuilt, nil)

	strategy, err := NewContinuation(suite.continuationConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
	suite.Equal(StateIdle, strategy.State())
}

func (suite *StrategyTestSuite) TestContinuationSkipsViolatedGap() {
	bars, events := suite.continuationFixture()
	events.Append(violationEvent(9, 2))

	ctx := suite.context(bars, events, nil)

	strategy, err := NewContinuation(suite.continuationConfig())
	suite.Require().NoError(err)

	suite.Empty(suite.drive(strategy, ctx))
}
