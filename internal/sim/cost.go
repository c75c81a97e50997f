package sim

import (
	"github.com/shopspring/decimal"

	"github.com/edgelab-quant/priceaction/pkg/errors"
)

// CostModel deducts commission and slippage from a fill. Cost is charged
// per side, so a round trip pays it twice.
type CostModel interface {
	// Cost returns the charge in account currency for one fill.
	Cost(price, quantity float64) float64
}

// ModelName selects a cost model in configuration.
type ModelName string

const (
	ModelZero         ModelName = "zero"
	ModelFixed        ModelName = "fixed"
	ModelProportional ModelName = "proportional"
)

// AllModels lists the accepted cost model names.
var AllModels = []any{
	ModelZero,
	ModelFixed,
	ModelProportional,
}

// NewCostModel builds the named model. The parameter is the per-fill fee
// for the fixed model and the notional rate for the proportional one; the
// zero model ignores it.
func NewCostModel(name ModelName, param float64) (CostModel, error) {
	switch name {
	case ModelZero:
		return &ZeroCost{}, nil
	case ModelFixed:
		return &FixedCost{PerFill: param}, nil
	case ModelProportional:
		return &ProportionalCost{Rate: param}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown cost model %q", name)
	}
}

// ZeroCost charges nothing. The default for synthetic studies.
type ZeroCost struct{}

// Cost implements CostModel.
func (c *ZeroCost) Cost(_, _ float64) float64 {
	return 0
}

// FixedCost charges a flat fee per fill regardless of size.
type FixedCost struct {
	PerFill float64
}

// Cost implements CostModel.
func (c *FixedCost) Cost(_, _ float64) float64 {
	return c.PerFill
}

// ProportionalCost charges a rate on the fill notional.
type ProportionalCost struct {
	Rate float64
}

// Cost implements CostModel.
func (c *ProportionalCost) Cost(price, quantity float64) float64 {
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity))
	cost, _ := notional.Mul(decimal.NewFromFloat(c.Rate)).Float64()

	return cost
}
