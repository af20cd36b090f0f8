package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/money"
)

var (
	minQuantity = decimal.RequireFromString("0.01")
	hundred     = decimal.NewFromInt(100)
)

// ValidateItems rejects items that fail the presence or range rules. Items are
// never dropped: one bad item fails the whole set.
func ValidateItems(items []LineItem) error {
	verr := &ValidationError{}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			verr.add(i, "name", "is required")
		}
		if strings.TrimSpace(item.Description) == "" {
			verr.add(i, "description", "is required")
		}
		if item.Quantity.LessThan(minQuantity) {
			verr.add(i, "quantity", "must be at least 0.01")
		}
		if item.UnitPrice.IsNegative() {
			verr.add(i, "unit_price", "must not be negative")
		}
		if !money.InRange(item.DiscountPercent, decimal.Zero, hundred) {
			verr.add(i, "discount_percent", "must be between 0 and 100")
		}
		if item.TaxRate.Valid && !money.InRange(item.TaxRate.Decimal, decimal.Zero, hundred) {
			verr.add(i, "tax_rate", "must be between 0 and 100")
		}
	}
	return verr.orNil()
}

// ValidateDiscount checks the document-level discount inputs.
func ValidateDiscount(percent, flat decimal.NullDecimal) error {
	verr := &ValidationError{}
	if percent.Valid && !money.InRange(percent.Decimal, decimal.Zero, hundred) {
		verr.add(-1, "discount_percent", "must be between 0 and 100")
	}
	if flat.Valid && flat.Decimal.IsNegative() {
		verr.add(-1, "discount_amount", "must not be negative")
	}
	return verr.orNil()
}

// ValidateItemsForType applies the per-type presence rule before item validation.
func ValidateItemsForType(documentType Type, items []LineItem) error {
	switch {
	case documentType.RequiresItems() && len(items) == 0:
		verr := &ValidationError{}
		verr.add(-1, "items", "at least one item is required")
		return verr
	case !documentType.CarriesItems() && len(items) > 0:
		verr := &ValidationError{}
		verr.add(-1, "items", "not accepted for "+string(documentType))
		return verr
	}
	return ValidateItems(items)
}
