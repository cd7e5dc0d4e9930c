// Package profit turns a yield estimate and a market price into per-hectare
// economics.
package profit

import (
	"github.com/shopspring/decimal"

	"github.com/i474232898/crop-recommendation/internal/agro"
)

// Breakdown is the per-hectare economics of one crop. Money is INR, yield is
// quintals per hectare, margin and ROI are percentages.
type Breakdown struct {
	Crop            string  `json:"crop"`
	ExpectedYield   float64 `json:"expected_yield"`
	PricePerQuintal float64 `json:"price_per_quintal"`
	Revenue         float64 `json:"total_revenue"`
	InputCost       float64 `json:"input_cost"`
	NetProfit       float64 `json:"net_profit"`
	ProfitMargin    float64 `json:"profit_margin"`
	ROI             float64 `json:"roi"`
}

// CostFunc returns the per-hectare input cost of a crop.
type CostFunc func(crop string) float64

// Calculator computes profit breakdowns. It holds no mutable state.
type Calculator struct {
	cost CostFunc
}

// NewCalculator returns a Calculator backed by the static cost table.
func NewCalculator() *Calculator {
	return &Calculator{cost: agro.InputCost}
}

// NewCalculatorWithCosts returns a Calculator using a custom cost lookup.
func NewCalculatorWithCosts(cost CostFunc) *Calculator {
	if cost == nil {
		cost = agro.InputCost
	}
	return &Calculator{cost: cost}
}

// Compute returns the breakdown for crop. Revenue is yield times price; margin
// is zero when revenue is zero and ROI is zero when cost is zero.
func (c *Calculator) Compute(crop string, yieldEstimate, pricePerQuintal float64) Breakdown {
	y := decimal.NewFromFloat(yieldEstimate)
	price := decimal.NewFromFloat(pricePerQuintal)
	cost := decimal.NewFromFloat(c.cost(crop))

	revenue := y.Mul(price)
	net := revenue.Sub(cost)

	hundred := decimal.NewFromInt(100)
	margin := decimal.Zero
	if !revenue.IsZero() {
		margin = net.Div(revenue).Mul(hundred)
	}
	roi := decimal.Zero
	if !cost.IsZero() {
		roi = net.Div(cost).Mul(hundred)
	}

	return Breakdown{
		Crop:            crop,
		ExpectedYield:   y.Round(2).InexactFloat64(),
		PricePerQuintal: price.Round(2).InexactFloat64(),
		Revenue:         revenue.Round(2).InexactFloat64(),
		InputCost:       cost.Round(2).InexactFloat64(),
		NetProfit:       net.Round(2).InexactFloat64(),
		ProfitMargin:    margin.Round(1).InexactFloat64(),
		ROI:             roi.Round(1).InexactFloat64(),
	}
}
