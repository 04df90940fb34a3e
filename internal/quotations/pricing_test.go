package quotations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func TestPriceLineWorkedExample(t *testing.T) {
	policy := DefaultPricingPolicy()

	line := policy.PriceLine(ProductLine{
		Quantity:     10,
		VendorCost:   100,
		PrintCost:    20,
		ProfitMargin: 30,
	})

	// baseCost=120, unit=120/0.7, total=unit*10
	assert.InDelta(t, 171.428571, line.UnitPrice, 1e-4)
	assert.InDelta(t, 1714.285714, line.Total, 1e-4)
	assert.InDelta(t, 514.285714, line.Revenue, 1e-4)
	assert.InDelta(t, 51.428571, line.Commission, 1e-4)
}

func TestPriceLineDerivedInvariants(t *testing.T) {
	policy := DefaultPricingPolicy()

	cases := []ProductLine{
		{Quantity: 1, VendorCost: 10, PrintCost: 0, ProfitMargin: 25},
		{Quantity: 7, VendorCost: 3.5, PrintCost: 1.25, ProfitMargin: 45},
		{Quantity: 100, VendorCost: 0, PrintCost: 0.01, ProfitMargin: 99},
		{Quantity: 3, VendorCost: 250, PrintCost: 80, ProfitMargin: 30, ExtraProfit: true},
	}
	for _, input := range cases {
		line := policy.PriceLine(input)
		assert.InDelta(t, line.UnitPrice*float64(line.Quantity), line.Total, tolerance)
		baseCost := input.VendorCost + input.PrintCost
		assert.InDelta(t, line.Total-baseCost*float64(line.Quantity), line.Revenue, tolerance)
		assert.InDelta(t, line.Revenue*policy.CommissionRate, line.Commission, tolerance)
	}
}

func TestPriceLineIdempotent(t *testing.T) {
	policy := DefaultPricingPolicy()

	once := policy.PriceLine(ProductLine{
		Quantity:     4,
		VendorCost:   55,
		PrintCost:    12.5,
		ProfitMargin: 40,
		ExtraProfit:  true,
	})
	twice := policy.PriceLine(once)

	assert.Equal(t, once, twice)
}

func TestPriceLineDegradesInvalidInputs(t *testing.T) {
	policy := DefaultPricingPolicy()

	t.Run("quantity clamped to one", func(t *testing.T) {
		line := policy.PriceLine(ProductLine{Quantity: 0, VendorCost: 70, ProfitMargin: 30})
		assert.Equal(t, 1, line.Quantity)
		assert.InDelta(t, line.UnitPrice, line.Total, tolerance)
	})

	t.Run("negative costs become zero", func(t *testing.T) {
		line := policy.PriceLine(ProductLine{Quantity: 2, VendorCost: -50, PrintCost: -3, ProfitMargin: 30})
		assert.Zero(t, line.UnitPrice)
		assert.Zero(t, line.Total)
		assert.Zero(t, line.Revenue)
		assert.Zero(t, line.Commission)
	})

	t.Run("missing margin falls back to default", func(t *testing.T) {
		line := policy.PriceLine(ProductLine{Quantity: 1, VendorCost: 70})
		assert.InDelta(t, 100, line.UnitPrice, tolerance)
	})

	t.Run("NaN margin falls back to default", func(t *testing.T) {
		line := policy.PriceLine(ProductLine{Quantity: 1, VendorCost: 70, ProfitMargin: math.NaN()})
		assert.InDelta(t, 100, line.UnitPrice, tolerance)
		assert.False(t, math.IsNaN(line.Total))
	})

	t.Run("margin at or above hundred keeps base cost", func(t *testing.T) {
		line := policy.PriceLine(ProductLine{Quantity: 1, VendorCost: 80, PrintCost: 20, ProfitMargin: 100})
		assert.InDelta(t, 100, line.UnitPrice, tolerance)
	})
}

func TestPriceLineExtraProfitUplift(t *testing.T) {
	policy := DefaultPricingPolicy()

	plain := policy.PriceLine(ProductLine{Quantity: 1, VendorCost: 100, ProfitMargin: 30})
	uplifted := policy.PriceLine(ProductLine{Quantity: 1, VendorCost: 100, ProfitMargin: 30, ExtraProfit: true})

	assert.InDelta(t, plain.UnitPrice*(1+policy.ExtraProfitUplift), uplifted.UnitPrice, tolerance)
}

func TestAggregateTotals(t *testing.T) {
	policy := DefaultPricingPolicy()

	t.Run("empty yields zeros", func(t *testing.T) {
		totals := policy.AggregateTotals(nil)
		assert.Equal(t, Totals{}, totals)
	})

	t.Run("two line quotation", func(t *testing.T) {
		lines := []ProductLine{
			{Total: 1714.29},
			{Total: 500.00},
		}
		totals := policy.AggregateTotals(lines)
		require.InDelta(t, 2214.29, totals.SubTotal, 1e-2)
		assert.InDelta(t, totals.SubTotal*0.16, totals.Tax, tolerance)
		assert.InDelta(t, totals.SubTotal+totals.Tax, totals.Total, tolerance)
	})
}

func TestPolicyOverrides(t *testing.T) {
	policy := PricingPolicy{TaxRate: 0.08}

	totals := policy.AggregateTotals([]ProductLine{{Total: 100}})
	assert.InDelta(t, 8, totals.Tax, tolerance)

	// Unset fields still fall back to defaults.
	line := policy.PriceLine(ProductLine{Quantity: 1, VendorCost: 70})
	assert.InDelta(t, 100, line.UnitPrice, tolerance)
}
