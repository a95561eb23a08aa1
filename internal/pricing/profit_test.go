package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestEstimateHighFallsBackToLow(t *testing.T) {
	calc := NewProfitCalculator(0, 0)
	stats := Stats{Low: dec(108)}

	est := calc.Estimate(decimal.NewFromInt(45), stats)
	if est == nil {
		t.Fatal("expected an estimate")
	}
	want := decimal.NewFromFloat(48.96) // 108*0.87 - 45
	if !est.Low.Equal(want) {
		t.Fatalf("low = %s, want %s", est.Low, want)
	}
	if !est.High.Equal(want) {
		t.Fatalf("high should fall back to low, got %s", est.High)
	}
}

func TestEstimateRange(t *testing.T) {
	calc := NewProfitCalculator(0, 0)
	stats := Stats{Low: dec(100), High: dec(200)}

	est := calc.Estimate(decimal.NewFromInt(50), stats)
	if !est.Low.Equal(decimal.NewFromInt(37)) { // 100*0.87 - 50
		t.Fatalf("low = %s", est.Low)
	}
	if !est.High.Equal(decimal.NewFromInt(124)) { // 200*0.87 - 50
		t.Fatalf("high = %s", est.High)
	}
}

func TestEstimateNilWithoutLow(t *testing.T) {
	calc := NewProfitCalculator(0, 0)
	if est := calc.Estimate(decimal.NewFromInt(45), Stats{}); est != nil {
		t.Fatalf("empty stats should yield no estimate, got %+v", est)
	}
}

func TestActualProfit(t *testing.T) {
	calc := NewProfitCalculator(0, 0)
	got := calc.Actual(decimal.NewFromInt(45), decimal.NewFromInt(127))
	want := decimal.NewFromFloat(61.68) // 127*0.84 - 45
	if !got.Equal(want) {
		t.Fatalf("actual profit = %s, want %s", got, want)
	}
}

func TestActualProfitCanBeNegative(t *testing.T) {
	calc := NewProfitCalculator(0, 0)
	got := calc.Actual(decimal.NewFromInt(100), decimal.NewFromInt(50))
	want := decimal.NewFromInt(-58) // 50*0.84 - 100
	if !got.Equal(want) {
		t.Fatalf("actual profit = %s, want %s", got, want)
	}
}

func TestConfigurableMultipliers(t *testing.T) {
	calc := NewProfitCalculator(0.90, 0.80)
	est := calc.Estimate(decimal.NewFromInt(10), Stats{Low: dec(100)})
	if !est.Low.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("low with 0.90 fee = %s", est.Low)
	}
	if got := calc.Actual(decimal.NewFromInt(10), decimal.NewFromInt(100)); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("actual with 0.80 net = %s", got)
	}
}
