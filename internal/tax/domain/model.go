package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Protocol is the tax regime a document is issued under.
// These values are persisted. Do NOT rename once used in documents.
type Protocol string

const (
	ProtocolUnspecified Protocol = ""
	ProtocolGST         Protocol = "GST"
	ProtocolExport      Protocol = "EXPORT"
	ProtocolNone        Protocol = "NONE"
)

// ParseProtocol accepts the persisted names case-insensitively. A blank value
// is ProtocolUnspecified.
func ParseProtocol(raw string) (Protocol, error) {
	switch Protocol(strings.ToUpper(strings.TrimSpace(raw))) {
	case ProtocolUnspecified:
		return ProtocolUnspecified, nil
	case ProtocolGST:
		return ProtocolGST, nil
	case ProtocolExport:
		return ProtocolExport, nil
	case ProtocolNone:
		return ProtocolNone, nil
	default:
		return ProtocolUnspecified, ErrInvalidProtocol
	}
}

// Treatment is how a GST decision splits between authorities.
type Treatment string

const (
	TreatmentNone       Treatment = "none"
	TreatmentIntraState Treatment = "intra_state"
	TreatmentInterState Treatment = "inter_state"
)

// Jurisdiction identifies a country and, for domestic parties, a state.
type Jurisdiction struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
}

func (j Jurisdiction) Normalize() Jurisdiction {
	return Jurisdiction{
		Country: normalizeCode(j.Country),
		State:   normalizeCode(j.State),
	}
}

// Input collects everything Decide looks at.
type Input struct {
	ProtocolHint Protocol
	// ExportOfServices is the legacy flag; it is only consulted when
	// ProtocolHint is unspecified.
	ExportOfServices bool

	Issuer        Jurisdiction
	Counterparty  Jurisdiction
	PlaceOfSupply string

	// FirstItemRate is the tax rate (percent) carried on the first line item, if any.
	FirstItemRate *decimal.Decimal
	// DefaultRate applies when the first item carries no rate.
	DefaultRate decimal.Decimal
}

// Decision is the outcome of a tax classification. It is a value; once
// attached to a document revision it is never modified.
type Decision struct {
	Protocol      Protocol        `json:"protocol"`
	Treatment     Treatment       `json:"treatment"`
	Rate          decimal.Decimal `json:"rate"`
	PlaceOfSupply string          `json:"place_of_supply,omitempty"`
}

// NoTax is the decision for documents that carry no indirect tax under protocol.
func NoTax(protocol Protocol, placeOfSupply string) Decision {
	return Decision{
		Protocol:      protocol,
		Treatment:     TreatmentNone,
		Rate:          decimal.Zero,
		PlaceOfSupply: placeOfSupply,
	}
}

// Taxable reports whether any tax component can be non-zero.
func (d Decision) Taxable() bool {
	return d.Protocol == ProtocolGST && d.Treatment != TreatmentNone && d.Rate.IsPositive()
}

// ComponentRates returns the CGST, SGST and IGST percentages implied by d.
func (d Decision) ComponentRates() (cgst, sgst, igst decimal.Decimal) {
	if !d.Taxable() {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	if d.Treatment == TreatmentInterState {
		return decimal.Zero, decimal.Zero, d.Rate
	}
	half := d.Rate.Div(decimal.NewFromInt(2))
	return half, half, decimal.Zero
}

// Equal compares decisions by value; decimal fields need Equal, not ==.
func (d Decision) Equal(other Decision) bool {
	return d.Protocol == other.Protocol &&
		d.Treatment == other.Treatment &&
		d.Rate.Equal(other.Rate) &&
		d.PlaceOfSupply == other.PlaceOfSupply
}

// Components holds tax amounts for one computation.
type Components struct {
	CGST decimal.Decimal `json:"cgst"`
	SGST decimal.Decimal `json:"sgst"`
	IGST decimal.Decimal `json:"igst"`
}

func (c Components) Total() decimal.Decimal {
	return c.CGST.Add(c.SGST).Add(c.IGST)
}

// Engine classifies tax treatment and applies it to a taxable base.
type Engine interface {
	Decide(in Input) Decision
	Apply(base decimal.Decimal, d Decision) Components
}

func normalizeCode(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}
