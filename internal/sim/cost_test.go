package sim

import (
	"github.com/edgelab-quant/priceaction/pkg/errors"
)

func (suite *SimulatorTestSuite) TestZeroCost() {
	model, err := NewCostModel(ModelZero, 0)
	suite.Require().NoError(err)

	tests := []struct {
		name     string
		price    float64
		quantity float64
	}{
		{"zero quantity", 100, 0},
		{"small fill", 100, 10},
		{"large fill", 2500, 10000},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Zero(model.Cost(tc.price, tc.quantity))
		})
	}
}

func (suite *SimulatorTestSuite) TestFixedCost() {
	model, err := NewCostModel(ModelFixed, 1.5)
	suite.Require().NoError(err)

	suite.Equal(1.5, model.Cost(100, 0))
	suite.Equal(1.5, model.Cost(5000, 10000))
}

func (suite *SimulatorTestSuite) TestProportionalCost() {
	model, err := NewCostModel(ModelProportional, 0.001)
	suite.Require().NoError(err)

	tests := []struct {
		name     string
		price    float64
		quantity float64
		expected float64
	}{
		{"zero quantity", 100, 0, 0},
		{"unit fill", 100, 1, 0.1},
		{"larger fill", 250, 40, 10},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, model.Cost(tc.price, tc.quantity), 1e-9)
		})
	}
}

func (suite *SimulatorTestSuite) TestUnknownCostModel() {
	_, err := NewCostModel("rebate", 0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
