// Package domain contains the document model shared by the computation engine,
// the lifecycle state machine and persistence.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	"gorm.io/datatypes"
)

// Type is the kind of document being issued.
type Type string

const (
	TypeInvoice     Type = "invoice"
	TypeQuotation   Type = "quotation"
	TypeProposal    Type = "proposal"
	TypeOfferLetter Type = "offer_letter"
)

func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeInvoice, TypeQuotation, TypeProposal, TypeOfferLetter:
		return t, nil
	default:
		return "", ErrInvalidDocumentType
	}
}

// RequiresItems reports whether a document of this type must carry line items.
func (t Type) RequiresItems() bool {
	return t == TypeInvoice || t == TypeQuotation
}

// CarriesItems reports whether line items are accepted at all.
func (t Type) CarriesItems() bool {
	return t != TypeOfferLetter
}

// Payable reports whether payments can be recorded against this type.
func (t Type) Payable() bool {
	return t == TypeInvoice
}

// Status represents document lifecycle states.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
	StatusCancelled     Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusDraft, StatusSent, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// PartySnapshot is the copy of an issuer or counterparty taken when a document
// is created. Later edits to the client record do not reach issued documents.
type PartySnapshot struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

func (p PartySnapshot) Jurisdiction() taxdomain.Jurisdiction {
	return taxdomain.Jurisdiction{Country: p.Country, State: p.State}
}

// CompanyDefaults is the issuer configuration passed into every engine entry point.
type CompanyDefaults struct {
	HomeCountry  string
	HomeState    string
	NumberPrefix string
	// NumberFormat overrides the per-type format when set.
	NumberFormat string
	Currency     string
	Issuer       PartySnapshot
}

func (c CompanyDefaults) Jurisdiction() taxdomain.Jurisdiction {
	return taxdomain.Jurisdiction{Country: c.HomeCountry, State: c.HomeState}
}

// MoneyBreakdown is the result of a totals computation. All amounts are
// rounded at the currency minor unit.
type MoneyBreakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:numeric(20,4);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:numeric(20,4);not null;default:0"`
	CGST           decimal.Decimal `json:"cgst" gorm:"column:cgst;type:numeric(20,4);not null;default:0"`
	SGST           decimal.Decimal `json:"sgst" gorm:"column:sgst;type:numeric(20,4);not null;default:0"`
	IGST           decimal.Decimal `json:"igst" gorm:"column:igst;type:numeric(20,4);not null;default:0"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:numeric(20,4);not null;default:0"`
	GrandTotal     decimal.Decimal `json:"grand_total" gorm:"type:numeric(20,4);not null;default:0"`
}

// ZeroBreakdown is the breakdown of a document without financial content.
func ZeroBreakdown() MoneyBreakdown {
	return MoneyBreakdown{
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		CGST:           decimal.Zero,
		SGST:           decimal.Zero,
		IGST:           decimal.Zero,
		TaxAmount:      decimal.Zero,
		GrandTotal:     decimal.Zero,
	}
}

// LineItem represents a line on a document.
type LineItem struct {
	ID              snowflake.ID        `json:"id" gorm:"primaryKey"`
	DocumentID      snowflake.ID        `json:"document_id" gorm:"not null;index"`
	Position        int                 `json:"position" gorm:"not null"`
	Name            string              `json:"name" gorm:"type:text;not null"`
	Description     string              `json:"description" gorm:"type:text;not null"`
	Quantity        decimal.Decimal     `json:"quantity" gorm:"type:numeric(20,4);not null"`
	UnitPrice       decimal.Decimal     `json:"unit_price" gorm:"type:numeric(20,4);not null"`
	DiscountPercent decimal.Decimal     `json:"discount_percent" gorm:"type:numeric(7,4);not null;default:0"`
	TaxRate         decimal.NullDecimal `json:"tax_rate" gorm:"type:numeric(7,4)"`
	HSNSAC          string              `json:"hsn_sac,omitempty" gorm:"column:hsn_sac;type:text"`
	ComputedAmount  decimal.Decimal     `json:"computed_amount" gorm:"type:numeric(20,4);not null"`
	CreatedAt       time.Time           `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "document_items" }

// Document is a financial or HR document and its computed totals.
type Document struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	DocumentType   Type         `json:"document_type" gorm:"type:text;not null;uniqueIndex:ux_documents_type_number,priority:1"`
	DocumentNumber string       `json:"document_number" gorm:"type:text;not null;uniqueIndex:ux_documents_type_number,priority:2"`
	Status         Status       `json:"status" gorm:"type:text;not null;default:'draft';index"`
	IsLocked       bool         `json:"is_locked" gorm:"not null;default:false"`
	ClientID       snowflake.ID `json:"client_id" gorm:"index"`

	Issuer       datatypes.JSONType[PartySnapshot] `json:"issuer" gorm:"column:issuer_snapshot;not null"`
	Counterparty datatypes.JSONType[PartySnapshot] `json:"counterparty" gorm:"column:counterparty_snapshot;not null"`

	Items []LineItem `json:"items" gorm:"-"`

	DiscountPercent decimal.NullDecimal `json:"discount_percent" gorm:"type:numeric(7,4)"`
	FlatDiscount    decimal.NullDecimal `json:"flat_discount" gorm:"type:numeric(20,4)"`

	// TaxProtocolHint and ExportOfServices are the caller's inputs; TaxDecision is
	// what the engine resolved from them.
	TaxProtocolHint  taxdomain.Protocol `json:"tax_protocol_hint,omitempty" gorm:"type:text"`
	ExportOfServices bool               `json:"export_of_services" gorm:"not null;default:false"`
	TaxDecision      taxdomain.Decision `json:"tax_decision" gorm:"embedded;embeddedPrefix:tax_"`

	Totals   MoneyBreakdown `json:"totals" gorm:"embedded"`
	Currency string         `json:"currency" gorm:"type:text;not null"`

	Notes    string            `json:"notes,omitempty" gorm:"type:text"`
	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	DueDate     *time.Time `json:"due_date,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	OverdueAt   *time.Time `json:"overdue_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Version   int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// Clone returns a deep copy so callers can mutate without touching the original.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.Items != nil {
		out.Items = make([]LineItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	if d.Metadata != nil {
		out.Metadata = make(datatypes.JSONMap, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	out.DueDate = cloneTime(d.DueDate)
	out.SentAt = cloneTime(d.SentAt)
	out.PaidAt = cloneTime(d.PaidAt)
	out.OverdueAt = cloneTime(d.OverdueAt)
	out.CancelledAt = cloneTime(d.CancelledAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
