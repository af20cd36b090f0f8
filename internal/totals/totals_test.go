package totals

import (
	"testing"

	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	taxservice "github.com/smallbiznis/docflow/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	issuer       = taxdomain.Jurisdiction{Country: "IN", State: "MH"}
	sameState    = taxdomain.Jurisdiction{Country: "IN", State: "MH"}
	otherState   = taxdomain.Jurisdiction{Country: "IN", State: "KA"}
	foreignParty = taxdomain.Jurisdiction{Country: "US", State: "CA"}
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func consultingItem() documentdomain.LineItem {
	return documentdomain.LineItem{
		Name:        "Consulting",
		Description: "Architecture review",
		Quantity:    d("1"),
		UnitPrice:   d("65000"),
		TaxRate:     decimal.NewNullDecimal(d("18")),
	}
}

func decide(counterparty taxdomain.Jurisdiction, placeOfSupply string, items []documentdomain.LineItem) taxdomain.Decision {
	in := taxdomain.Input{Issuer: issuer, Counterparty: counterparty, PlaceOfSupply: placeOfSupply}
	if len(items) > 0 && items[0].TaxRate.Valid {
		r := items[0].TaxRate.Decimal
		in.FirstItemRate = &r
	}
	return taxservice.NewEngine().Decide(in)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s got %s", field, want, got)
}

func TestCompute_Scenarios(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{consultingItem()}

	t.Run("A intra-state", func(t *testing.T) {
		res, err := calc.Compute(items, Discount{}, decide(sameState, "MH", items), "INR")
		require.NoError(t, err)
		assertAmount(t, "5850", res.Totals.CGST, "cgst")
		assertAmount(t, "5850", res.Totals.SGST, "sgst")
		assertAmount(t, "0", res.Totals.IGST, "igst")
		assertAmount(t, "76700", res.Totals.GrandTotal, "grand_total")
	})

	t.Run("B inter-state", func(t *testing.T) {
		res, err := calc.Compute(items, Discount{}, decide(otherState, "MH", items), "INR")
		require.NoError(t, err)
		assertAmount(t, "0", res.Totals.CGST, "cgst")
		assertAmount(t, "0", res.Totals.SGST, "sgst")
		assertAmount(t, "11700", res.Totals.IGST, "igst")
		assertAmount(t, "76700", res.Totals.GrandTotal, "grand_total")
	})

	t.Run("C foreign counterparty", func(t *testing.T) {
		res, err := calc.Compute(items, Discount{}, decide(foreignParty, "", items), "INR")
		require.NoError(t, err)
		assertAmount(t, "0", res.Totals.TaxAmount, "tax_amount")
		assertAmount(t, "65000", res.Totals.GrandTotal, "grand_total")
	})

	t.Run("D ten percent discount", func(t *testing.T) {
		discount := Discount{Percent: decimal.NewNullDecimal(d("10"))}
		res, err := calc.Compute(items, discount, decide(sameState, "MH", items), "INR")
		require.NoError(t, err)
		assertAmount(t, "6500", res.Totals.DiscountAmount, "discount_amount")
		assertAmount(t, "5265", res.Totals.CGST, "cgst")
		assertAmount(t, "5265", res.Totals.SGST, "sgst")
		assertAmount(t, "69030", res.Totals.GrandTotal, "grand_total")
	})
}

func TestCompute_Invariants(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{
		{Name: "Design", Description: "Wireframes", Quantity: d("3"), UnitPrice: d("1999.99"), DiscountPercent: d("5"), TaxRate: decimal.NewNullDecimal(d("18"))},
		{Name: "Hosting", Description: "Monthly", Quantity: d("2.5"), UnitPrice: d("333.33")},
		{Name: "Support", Description: "Hours", Quantity: d("0.01"), UnitPrice: d("0")},
	}

	for _, counterparty := range []taxdomain.Jurisdiction{sameState, otherState, foreignParty} {
		decision := decide(counterparty, "MH", items)
		res, err := calc.Compute(items, Discount{Percent: decimal.NewNullDecimal(d("7.5"))}, decision, "INR")
		require.NoError(t, err)
		b := res.Totals

		itemSum := decimal.Zero
		for _, item := range res.Items {
			itemSum = itemSum.Add(item.ComputedAmount)
		}
		assert.True(t, b.Subtotal.Sub(itemSum).Abs().LessThanOrEqual(d("0.01")), "subtotal %s items %s", b.Subtotal, itemSum)
		assert.True(t, b.TaxAmount.Equal(b.CGST.Add(b.SGST).Add(b.IGST)))
		assert.True(t, b.GrandTotal.Equal(b.Subtotal.Sub(b.DiscountAmount).Add(b.TaxAmount)))

		split := b.CGST.IsPositive() && b.SGST.IsPositive() && b.IGST.IsZero()
		igstOnly := b.IGST.IsPositive() && b.CGST.IsZero() && b.SGST.IsZero()
		none := b.TaxAmount.IsZero()
		assert.True(t, split || igstOnly || none)

		switch decision.Treatment {
		case taxdomain.TreatmentIntraState:
			assert.True(t, b.CGST.Equal(b.SGST))
			assert.True(t, b.IGST.IsZero())
		case taxdomain.TreatmentInterState:
			assert.True(t, b.CGST.IsZero())
		default:
			assert.True(t, none)
		}
	}
}

func TestCompute_GrandTotalNonIncreasingInDiscount(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{consultingItem()}
	decision := decide(otherState, "MH", items)

	previous := decimal.Zero
	for pct := int64(0); pct <= 100; pct += 5 {
		res, err := calc.Compute(items, Discount{Percent: decimal.NewNullDecimal(decimal.NewFromInt(pct))}, decision, "INR")
		require.NoError(t, err)
		assertAmount(t, expectedDiscount(t, res.Totals.Subtotal, pct), res.Totals.DiscountAmount, "discount_amount")
		if pct > 0 {
			assert.True(t, res.Totals.GrandTotal.LessThanOrEqual(previous))
		}
		previous = res.Totals.GrandTotal
	}
}

func expectedDiscount(t *testing.T, subtotal decimal.Decimal, pct int64) string {
	t.Helper()
	return subtotal.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)).Round(2).String()
}

func TestCompute_FlatDiscount(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{consultingItem()}
	decision := decide(sameState, "", items)

	res, err := calc.Compute(items, Discount{Flat: decimal.NewNullDecimal(d("5000"))}, decision, "INR")
	require.NoError(t, err)
	assertAmount(t, "5000", res.Totals.DiscountAmount, "discount_amount")
	assertAmount(t, "5400", res.Totals.CGST, "cgst")

	res, err = calc.Compute(items, Discount{Percent: decimal.NewNullDecimal(d("10")), Flat: decimal.NewNullDecimal(d("5000"))}, decision, "INR")
	require.NoError(t, err)
	assertAmount(t, "6500", res.Totals.DiscountAmount, "percent wins over flat")

	res, err = calc.Compute(items, Discount{Flat: decimal.NewNullDecimal(d("90000"))}, decision, "INR")
	require.NoError(t, err)
	assertAmount(t, "0", res.Totals.GrandTotal, "flat discount capped at subtotal")
}

func TestCompute_RoundsOnceHalfAwayFromZero(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{
		{Name: "A", Description: "a", Quantity: d("1"), UnitPrice: d("0.125")},
		{Name: "B", Description: "b", Quantity: d("1"), UnitPrice: d("0.125")},
	}
	res, err := calc.Compute(items, Discount{}, taxdomain.NoTax(taxdomain.ProtocolNone, ""), "INR")
	require.NoError(t, err)
	// 0.25 summed before rounding; each item alone rounds to 0.13.
	assertAmount(t, "0.25", res.Totals.Subtotal, "subtotal")
	assertAmount(t, "0.13", res.Items[0].ComputedAmount, "item amount")
}

func TestCompute_RejectsInvalidItems(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{
		consultingItem(),
		{Name: " ", Description: "", Quantity: d("0"), UnitPrice: d("-1")},
	}
	res, err := calc.Compute(items, Discount{}, taxdomain.NoTax(taxdomain.ProtocolNone, ""), "INR")
	require.Error(t, err)
	assert.ErrorIs(t, err, documentdomain.ErrInvalidLineItems)
	assert.Empty(t, res.Items)
	assert.True(t, res.Totals.GrandTotal.IsZero())

	var verr *documentdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestCompute_Idempotent(t *testing.T) {
	calc := NewCalculator(taxservice.NewEngine())
	items := []documentdomain.LineItem{consultingItem()}
	decision := decide(otherState, "MH", items)
	first, err := calc.Compute(items, Discount{}, decision, "INR")
	require.NoError(t, err)
	second, err := calc.Compute(items, Discount{}, decision, "INR")
	require.NoError(t, err)
	assert.Equal(t, first.Totals.GrandTotal.String(), second.Totals.GrandTotal.String())
	assert.Equal(t, first.Totals.IGST.String(), second.Totals.IGST.String())
}
