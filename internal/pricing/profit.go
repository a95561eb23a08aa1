package pricing

import "github.com/shopspring/decimal"

// The two fee multipliers are independent business parameters, not a shared
// fee model: estimates use a flat ~13% selling fee, while realized sales also
// absorb ~3% payment processing. Tune them separately.
const (
	DefaultEstimateFeeMultiplier = 0.87
	DefaultActualNetMultiplier   = 0.84
)

// ProfitEstimate is the pre-sale margin range for a listing.
type ProfitEstimate struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

// ProfitCalculator derives fee-adjusted profit figures. Both entry points are
// pure functions.
type ProfitCalculator struct {
	estimateFee decimal.Decimal
	actualNet   decimal.Decimal
}

// NewProfitCalculator builds a calculator with the given multipliers; zero
// values fall back to the defaults.
func NewProfitCalculator(estimateFeeMultiplier, actualNetMultiplier float64) *ProfitCalculator {
	if estimateFeeMultiplier <= 0 {
		estimateFeeMultiplier = DefaultEstimateFeeMultiplier
	}
	if actualNetMultiplier <= 0 {
		actualNetMultiplier = DefaultActualNetMultiplier
	}
	return &ProfitCalculator{
		estimateFee: decimal.NewFromFloat(estimateFeeMultiplier),
		actualNet:   decimal.NewFromFloat(actualNetMultiplier),
	}
}

// Estimate computes the expected margin range from adjusted stats. The high
// bound falls back to the low bound when the stats carry no high price.
// Returns nil when the stats have no low price to anchor on.
func (c *ProfitCalculator) Estimate(askingPrice decimal.Decimal, stats Stats) *ProfitEstimate {
	if stats.Low == nil {
		return nil
	}

	low := round2(stats.Low.Mul(c.estimateFee).Sub(askingPrice))
	high := low
	if stats.High != nil {
		high = round2(stats.High.Mul(c.estimateFee).Sub(askingPrice))
	}
	return &ProfitEstimate{Low: low, High: high}
}

// Actual computes realized profit once a deal has both a purchase price and a
// sold price.
func (c *ProfitCalculator) Actual(purchasePrice, soldPrice decimal.Decimal) decimal.Decimal {
	net := soldPrice.Mul(c.actualNet)
	return round2(net.Sub(purchasePrice))
}
