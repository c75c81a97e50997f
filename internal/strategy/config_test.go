package strategy

import (
	"encoding/json"

	"github.com/edgelab-quant/priceaction/pkg/errors"
)

func (suite *StrategyTestSuite) TestDefaultConfigValidates() {
	config := DefaultConfig()
	suite.Require().NoError(config.Validate())
	suite.Len(config.Windows(), 1)
}

func (suite *StrategyTestSuite) TestConfigRejectsOverlappingMacroWindows() {
	config := DefaultConfig()
	config.MacroWindows = []TimeWindow{
		{Start: "09:30", End: "10:30"},
		{Start: "10:00", End: "11:00"},
	}

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOverlappingWindows))
}

func (suite *StrategyTestSuite) TestConfigRejectsInvertedWindow() {
	config := DefaultConfig()
	config.MacroWindows = []TimeWindow{{Start: "12:00", End: "09:30"}}

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *StrategyTestSuite) TestConfigRejectsMalformedClock() {
	config := DefaultConfig()
	config.MacroWindows = []TimeWindow{{Start: "half past nine", End: "12:00"}}

	suite.Error(config.Validate())
}

func (suite *StrategyTestSuite) TestConfigRejectsZeroRisk() {
	config := DefaultConfig()
	config.RiskPerTrade = 0

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *StrategyTestSuite) TestContinuationConfigRejectsUnknownEntryMode() {
	config := DefaultContinuationConfig()
	config.EntryAt = "limit"

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *StrategyTestSuite) TestContinuationConfigRejectsOverlappingStoryWindows() {
	config := DefaultContinuationConfig()
	config.StorytellerWindows = []TimeWindow{
		{Start: "09:30", End: "10:00"},
		{Start: "09:45", End: "10:15"},
	}

	err := config.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOverlappingWindows))
}

func (suite *StrategyTestSuite) TestGenerateSchemaJSON() {
	schema, err := GenerateSchemaJSON(&ContinuationConfig{}, "Continuation Strategy Config")
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	suite.Equal("Continuation Strategy Config", decoded["title"])
	suite.Contains(schema, "macro_windows")
	suite.Contains(schema, "entry_at")
}
