// Package totals derives subtotal, discount, tax and grand total for a set of
// line items. Computation is pure: the same input always yields the same
// breakdown, and nothing is rounded until the breakdown is finalised.
package totals

import (
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/internal/money"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("totals",
	fx.Provide(NewCalculator),
)

// Discount is the document-level discount. Percent wins when present and
// positive; Flat applies otherwise.
type Discount struct {
	Percent decimal.NullDecimal
	Flat    decimal.NullDecimal
}

// Result is a computed breakdown plus the items with their computed amounts.
type Result struct {
	Items  []documentdomain.LineItem
	Totals documentdomain.MoneyBreakdown
}

type Calculator struct {
	tax taxdomain.Engine
}

func NewCalculator(tax taxdomain.Engine) *Calculator {
	return &Calculator{tax: tax}
}

// LineAmount returns quantity × unitPrice × (1 − discountPercent/100), unrounded.
func LineAmount(quantity, unitPrice, discountPercent decimal.Decimal) decimal.Decimal {
	gross := quantity.Mul(unitPrice)
	return gross.Sub(money.Percent(gross, discountPercent))
}

// Compute validates items and returns the breakdown. On error no breakdown is
// returned.
func (c *Calculator) Compute(items []documentdomain.LineItem, discount Discount, decision taxdomain.Decision, currency string) (Result, error) {
	if err := documentdomain.ValidateItems(items); err != nil {
		return Result{}, err
	}
	if err := documentdomain.ValidateDiscount(discount.Percent, discount.Flat); err != nil {
		return Result{}, err
	}

	out := make([]documentdomain.LineItem, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		amount := LineAmount(item.Quantity, item.UnitPrice, item.DiscountPercent)
		subtotal = subtotal.Add(amount)
		item.ComputedAmount = money.Round(amount, currency)
		out[i] = item
	}

	discountAmount := discountFor(subtotal, discount)
	base := subtotal.Sub(discountAmount)

	components := taxdomain.Components{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	if len(items) > 0 && c.tax != nil {
		components = c.tax.Apply(base, decision)
	}

	return Result{Items: out, Totals: finalise(subtotal, discountAmount, components, currency)}, nil
}

// discountFor never discounts more than the subtotal.
func discountFor(subtotal decimal.Decimal, discount Discount) decimal.Decimal {
	var amount decimal.Decimal
	switch {
	case discount.Percent.Valid && discount.Percent.Decimal.IsPositive():
		amount = money.Percent(subtotal, discount.Percent.Decimal)
	case discount.Flat.Valid && discount.Flat.Decimal.IsPositive():
		amount = discount.Flat.Decimal
	default:
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

func finalise(subtotal, discountAmount decimal.Decimal, components taxdomain.Components, currency string) documentdomain.MoneyBreakdown {
	b := documentdomain.MoneyBreakdown{
		Subtotal:       money.Round(subtotal, currency),
		DiscountAmount: money.Round(discountAmount, currency),
		CGST:           money.Round(components.CGST, currency),
		SGST:           money.Round(components.SGST, currency),
		IGST:           money.Round(components.IGST, currency),
	}
	b.TaxAmount = money.Sum(b.CGST, b.SGST, b.IGST)
	b.GrandTotal = b.Subtotal.Sub(b.DiscountAmount).Add(b.TaxAmount)
	return b
}
