package service

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/money"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
)

// DefaultGSTRate applies when neither the first item nor configuration supply a rate.
var DefaultGSTRate = decimal.NewFromInt(18)

type engine struct{}

// NewEngine returns the stateless tax engine.
func NewEngine() taxdomain.Engine {
	return engine{}
}

// Decide resolves the tax treatment. Rules are evaluated in order:
//  1. an explicit NONE hint carries no tax
//  2. an explicit EXPORT hint, or the legacy export flag when no hint is set
//  3. any counterparty outside the issuer's country
//  4. otherwise GST, split by place of supply
func (engine) Decide(in taxdomain.Input) taxdomain.Decision {
	issuer := in.Issuer.Normalize()
	counterparty := in.Counterparty.Normalize()
	placeOfSupply := normalizePlace(in.PlaceOfSupply)

	switch {
	case in.ProtocolHint == taxdomain.ProtocolNone:
		return taxdomain.NoTax(taxdomain.ProtocolNone, placeOfSupply)
	case in.ProtocolHint == taxdomain.ProtocolExport,
		in.ProtocolHint == taxdomain.ProtocolUnspecified && in.ExportOfServices:
		return taxdomain.NoTax(taxdomain.ProtocolExport, placeOfSupply)
	case isCrossBorder(issuer, counterparty):
		return taxdomain.NoTax(taxdomain.ProtocolExport, placeOfSupply)
	}

	rate := resolveRate(in.FirstItemRate, in.DefaultRate)
	treatment := taxdomain.TreatmentInterState
	if placeOfSupply == "" || counterparty.State == placeOfSupply {
		treatment = taxdomain.TreatmentIntraState
	}

	return taxdomain.Decision{
		Protocol:      taxdomain.ProtocolGST,
		Treatment:     treatment,
		Rate:          rate,
		PlaceOfSupply: placeOfSupply,
	}
}

// Apply computes unrounded tax components on the post-discount base.
func (engine) Apply(base decimal.Decimal, d taxdomain.Decision) taxdomain.Components {
	if !base.IsPositive() {
		return taxdomain.Components{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	}
	cgstRate, sgstRate, igstRate := d.ComponentRates()
	return taxdomain.Components{
		CGST: money.Percent(base, cgstRate),
		SGST: money.Percent(base, sgstRate),
		IGST: money.Percent(base, igstRate),
	}
}

// isCrossBorder treats a counterparty without a country as domestic.
func isCrossBorder(issuer, counterparty taxdomain.Jurisdiction) bool {
	if counterparty.Country == "" || issuer.Country == "" {
		return false
	}
	return counterparty.Country != issuer.Country
}

func resolveRate(first *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if first != nil {
		return *first
	}
	if def.IsPositive() {
		return def
	}
	return DefaultGSTRate
}

func normalizePlace(v string) string {
	return taxdomain.Jurisdiction{State: v}.Normalize().State
}
