package profit

import "testing"

func TestCompute(t *testing.T) {
	c := NewCalculator()
	got := c.Compute("Wheat", 40, 2200)

	want := Breakdown{
		Crop:            "Wheat",
		ExpectedYield:   40,
		PricePerQuintal: 2200,
		Revenue:         88000,
		InputCost:       20000,
		NetProfit:       68000,
		ProfitMargin:    77.3,
		ROI:             340,
	}
	if got != want {
		t.Fatalf("unexpected breakdown:\n got %+v\nwant %+v", got, want)
	}
	if again := c.Compute("Wheat", 40, 2200); again != got {
		t.Fatalf("Compute must be reproducible: %+v vs %+v", again, got)
	}
}

func TestComputeZeroGuards(t *testing.T) {
	noRevenue := NewCalculator().Compute("Wheat", 40, 0)
	if noRevenue.Revenue != 0 || noRevenue.ProfitMargin != 0 || noRevenue.NetProfit != -20000 || noRevenue.ROI != -100 {
		t.Fatalf("unexpected zero-price breakdown: %+v", noRevenue)
	}

	free := NewCalculatorWithCosts(func(string) float64 { return 0 })
	noCost := free.Compute("Rice", 30, 2800)
	if noCost.ROI != 0 || noCost.ProfitMargin != 100 || noCost.NetProfit != 84000 {
		t.Fatalf("unexpected zero-cost breakdown: %+v", noCost)
	}
}

func TestComputeGuardsOnlyZero(t *testing.T) {
	subsidised := NewCalculatorWithCosts(func(string) float64 { return -500 }).Compute("Cotton", 10, 100)
	if subsidised.NetProfit != 1500 || subsidised.ProfitMargin != 150 || subsidised.ROI != -300 {
		t.Fatalf("negative cost should still yield a ratio: %+v", subsidised)
	}

	loss := NewCalculatorWithCosts(func(string) float64 { return 1000 }).Compute("Cotton", 10, -5)
	if loss.Revenue != -50 || loss.NetProfit != -1050 || loss.ProfitMargin != 2100 || loss.ROI != -105 {
		t.Fatalf("negative revenue should still yield a ratio: %+v", loss)
	}
}

func TestComputeRoundsMoney(t *testing.T) {
	b := NewCalculatorWithCosts(func(string) float64 { return 1000 }).Compute("Maize", 10.005, 3.333)
	if b.ExpectedYield != 10.01 || b.PricePerQuintal != 3.33 {
		t.Fatalf("inputs must be rounded to two places: %+v", b)
	}
	// 10.005 * 3.333 = 33.346665
	if b.Revenue != 33.35 {
		t.Fatalf("expected revenue 33.35, got %v", b.Revenue)
	}
}
