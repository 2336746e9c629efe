package invoicing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Monetary aggregation. All figures are derived on demand from current
// item state and rounded to 2 decimal places with commercial rounding.
//
// Two different rounding paths coexist on purpose: Subtotal sums
// per-item rounded values while VATSummary rounds aggregated raw
// contributions. Total is derived from the summary groups, not from
// Subtotal+VAT, so the two can diverge by rounding residue. That
// divergence is contractual and must not be "fixed".

var hundred = decimal.NewFromInt(100)

// Subtotal returns the discounted line amount: the raw product of unit
// price and quantity is rounded first, the discount is applied after.
func (i *Item) Subtotal() decimal.Decimal {
	raw := i.UnitPrice.Mul(i.Quantity).Round(2)
	return raw.Mul(hundred.Sub(i.Discount)).Div(hundred).Round(2)
}

// VAT returns the tax amount for the line, zero when no rate is set
func (i *Item) VAT() decimal.Decimal {
	if i.TaxRate == nil {
		return decimal.Zero
	}
	return i.Subtotal().Mul(*i.TaxRate).Div(hundred).Round(2)
}

// Total returns the line amount including tax
func (i *Item) Total() decimal.Decimal {
	return i.Subtotal().Add(i.VAT()).Round(2)
}

// UnitPriceWithVAT returns the gross unit price
func (i *Item) UnitPriceWithVAT() decimal.Decimal {
	rate := decimal.Zero
	if i.TaxRate != nil {
		rate = *i.TaxRate
	}
	return i.UnitPrice.Mul(hundred.Add(rate)).Div(hundred).Round(2)
}

// VATSummaryLine is one tax-rate group of the invoice.
// Rate and VAT are nil for the group of items without a tax rate.
// Base keeps the unrounded sum of raw discounted line amounts.
type VATSummaryLine struct {
	Rate *decimal.Decimal `json:"rate"`
	Base decimal.Decimal  `json:"base"`
	VAT  *decimal.Decimal `json:"vat"`
}

// VATSummary groups all items by tax rate. Per group, base sums the raw
// (unrounded) discounted amounts and vat rounds the aggregated raw tax
// contributions once - aggregate-then-round, unlike the per-item VAT
// path. The tax contribution intentionally ignores the discount.
// Groups are ordered with the rate-less group first, then by ascending
// rate.
func (i *Invoice) VATSummary() []VATSummaryLine {
	type group struct {
		rate *decimal.Decimal
		base decimal.Decimal
		vat  decimal.Decimal
	}

	groups := make(map[string]*group)
	for idx := range i.Items {
		item := &i.Items[idx]
		key := ""
		if item.TaxRate != nil {
			key = item.TaxRate.String()
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			if item.TaxRate != nil {
				rate := *item.TaxRate
				g.rate = &rate
			}
			groups[key] = g
		}
		raw := item.Quantity.Mul(item.UnitPrice)
		g.base = g.base.Add(raw.Mul(hundred.Sub(item.Discount)).Div(hundred))
		if item.TaxRate != nil {
			g.vat = g.vat.Add(raw.Mul(item.TaxRate.Div(hundred)))
		}
	}

	lines := make([]VATSummaryLine, 0, len(groups))
	for _, g := range groups {
		line := VATSummaryLine{Rate: g.rate, Base: g.base}
		if g.rate != nil {
			vat := g.vat.Round(2)
			line.VAT = &vat
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(a, b int) bool {
		if lines[a].Rate == nil {
			return lines[b].Rate != nil
		}
		if lines[b].Rate == nil {
			return false
		}
		return lines[a].Rate.LessThan(*lines[b].Rate)
	})
	return lines
}

// Subtotal returns the sum of per-item discounted subtotals. Each item
// is rounded before summing; the sum is rounded again.
func (i *Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for idx := range i.Items {
		sum = sum.Add(i.Items[idx].Subtotal())
	}
	return sum.Round(2)
}

// VAT returns the total tax across all summary groups. It returns nil
// ("undefined") when no item carries any tax rate at all - callers must
// distinguish that from an actual zero amount.
func (i *Invoice) VAT() *decimal.Decimal {
	defined := false
	for idx := range i.Items {
		if i.Items[idx].TaxRate != nil {
			defined = true
			break
		}
	}
	if !defined {
		return nil
	}

	sum := decimal.Zero
	for _, line := range i.VATSummary() {
		if line.VAT != nil {
			sum = sum.Add(*line.VAT)
		}
	}
	return &sum
}

// Total returns the grand total: per summary group vat+base, summed,
// minus the invoice credit, rounded to 2 decimals. It is deliberately
// not Subtotal()+VAT().
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range i.VATSummary() {
		if line.VAT != nil {
			total = total.Add(*line.VAT)
		}
		total = total.Add(line.Base)
	}
	return total.Sub(i.Credit).Round(2)
}
