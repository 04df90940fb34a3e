package quotations

import "math"

// PricingPolicy centralizes the commercial constants that used to live
// scattered across call sites. Zero-value fields fall back to the defaults
// from DefaultPricingPolicy, so a partially populated policy is usable.
type PricingPolicy struct {
	// DefaultMarginPercent is applied when a line carries no margin.
	DefaultMarginPercent float64
	// CommissionRate is the advisor commission taken from line revenue.
	CommissionRate float64
	// TaxRate is applied on the quotation subtotal.
	TaxRate float64
	// ExtraProfitUplift is the fractional surcharge applied on top of the
	// margin-derived unit price when a line has the extra-profit flag set.
	// The exact figure is a business setting; confirm with the system
	// owner before changing it.
	ExtraProfitUplift float64
}

// DefaultPricingPolicy mirrors the rates observed in production:
// 30% margin, 10% commission, 16% tax, 10% extra-profit uplift.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		DefaultMarginPercent: 30,
		CommissionRate:       0.10,
		TaxRate:              0.16,
		ExtraProfitUplift:    0.10,
	}
}

func (p PricingPolicy) withDefaults() PricingPolicy {
	def := DefaultPricingPolicy()
	if p.DefaultMarginPercent == 0 {
		p.DefaultMarginPercent = def.DefaultMarginPercent
	}
	if p.CommissionRate == 0 {
		p.CommissionRate = def.CommissionRate
	}
	if p.TaxRate == 0 {
		p.TaxRate = def.TaxRate
	}
	if p.ExtraProfitUplift == 0 {
		p.ExtraProfitUplift = def.ExtraProfitUplift
	}
	return p
}

// Totals are the quotation-level aggregate amounts.
type Totals struct {
	SubTotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// PriceLine recomputes the derived fields of a product line from its input
// fields. It is pure and idempotent: the derived fields are never read, so
// pricing an already-priced line yields the same result. Invalid inputs
// degrade instead of failing: quantity is clamped to 1, negative costs to
// 0, and a missing or NaN margin falls back to the policy default.
func (p PricingPolicy) PriceLine(line ProductLine) ProductLine {
	pol := p.withDefaults()

	if line.Quantity < 1 {
		line.Quantity = 1
	}
	vendorCost := line.VendorCost
	if vendorCost < 0 || math.IsNaN(vendorCost) {
		vendorCost = 0
	}
	printCost := line.PrintCost
	if printCost < 0 || math.IsNaN(printCost) {
		printCost = 0
	}
	margin := line.ProfitMargin
	if margin == 0 || math.IsNaN(margin) {
		margin = pol.DefaultMarginPercent
	}

	baseCost := vendorCost + printCost
	marginFraction := margin / 100

	unitPrice := baseCost
	if marginFraction < 1 {
		unitPrice = baseCost / (1 - marginFraction)
	}
	if line.ExtraProfit {
		unitPrice *= 1 + pol.ExtraProfitUplift
	}

	qty := float64(line.Quantity)
	line.UnitPrice = unitPrice
	line.Total = unitPrice * qty
	line.Revenue = line.Total - baseCost*qty
	line.Commission = line.Revenue * pol.CommissionRate
	return line
}

// PriceLines prices every line in order.
func (p PricingPolicy) PriceLines(lines []ProductLine) []ProductLine {
	out := make([]ProductLine, len(lines))
	for i, line := range lines {
		out[i] = p.PriceLine(line)
	}
	return out
}

// AggregateTotals folds priced lines into the quotation-level amounts. Tax
// is charged on the subtotal, not per line. An empty line list yields all
// zeros.
func (p PricingPolicy) AggregateTotals(lines []ProductLine) Totals {
	pol := p.withDefaults()
	var t Totals
	for _, line := range lines {
		t.SubTotal += line.Total
	}
	t.Tax = t.SubTotal * pol.TaxRate
	t.Total = t.SubTotal + t.Tax
	return t
}
