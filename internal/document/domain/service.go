package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	"github.com/smallbiznis/docflow/pkg/db/pagination"
	"gorm.io/gorm"
)

// LineItemInput is a caller-supplied line before computation.
type LineItemInput struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Quantity        decimal.Decimal     `json:"quantity"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	DiscountPercent decimal.Decimal     `json:"discount_percent"`
	TaxRate         decimal.NullDecimal `json:"tax_rate"`
	HSNSAC          string              `json:"hsn_sac,omitempty"`
}

// CreateInput is the raw input of a new document.
type CreateInput struct {
	DocumentType Type         `json:"document_type"`
	ClientID     snowflake.ID `json:"client_id"`
	// Counterparty is used when ClientID is zero, e.g. an offer letter candidate.
	Counterparty     *PartySnapshot      `json:"counterparty,omitempty"`
	DocumentNumber   string              `json:"document_number,omitempty"`
	Currency         string              `json:"currency,omitempty"`
	Items            []LineItemInput     `json:"items"`
	DiscountPercent  decimal.NullDecimal `json:"discount_percent"`
	DiscountAmount   decimal.NullDecimal `json:"discount_amount"`
	TaxProtocol      taxdomain.Protocol  `json:"tax_protocol,omitempty"`
	ExportOfServices bool                `json:"export_of_services,omitempty"`
	PlaceOfSupply    string              `json:"place_of_supply,omitempty"`
	DueDate          *time.Time          `json:"due_date,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	Metadata         map[string]any      `json:"metadata,omitempty"`
}

// Patch holds the fields to change on a draft. Nil fields are left untouched.
type Patch struct {
	Items            *[]LineItemInput     `json:"items,omitempty"`
	DiscountPercent  *decimal.NullDecimal `json:"discount_percent,omitempty"`
	DiscountAmount   *decimal.NullDecimal `json:"discount_amount,omitempty"`
	TaxProtocol      *taxdomain.Protocol  `json:"tax_protocol,omitempty"`
	ExportOfServices *bool                `json:"export_of_services,omitempty"`
	PlaceOfSupply    *string              `json:"place_of_supply,omitempty"`
	Currency         *string              `json:"currency,omitempty"`
	DueDate          *time.Time           `json:"due_date,omitempty"`
	Notes            *string              `json:"notes,omitempty"`
	Metadata         map[string]any       `json:"metadata,omitempty"`
	// Version is the revision the caller edited; zero skips the check.
	Version int64 `json:"version,omitempty"`
}

// Summary is a document read with its derived state.
type Summary struct {
	Document        *Document       `json:"document"`
	EffectiveStatus Status          `json:"effective_status"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	Outstanding     decimal.Decimal `json:"outstanding"`
}

type ListRequest struct {
	DocumentType *Type
	Status       *Status
	ClientID     *snowflake.ID
	PageToken    string
	PageSize     int32
}

type ListResponse struct {
	pagination.PageInfo
	Documents []Document `json:"documents"`
}

// PaymentInput records money received against an invoice.
type PaymentInput struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Reference      string          `json:"reference,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// Repository persists documents. Methods take the *gorm.DB to run on so
// services can compose them inside one transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	Update(ctx context.Context, db *gorm.DB, doc *Document, expectedVersion int64) error
	ReplaceItems(ctx context.Context, db *gorm.DB, documentID snowflake.ID, items []LineItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Document, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedVersion int64) error
}

// ListFilter is the repository form of ListRequest.
type ListFilter struct {
	DocumentType *Type
	Status       *Status
	ClientID     *snowflake.ID
	AfterID      *snowflake.ID
	Limit        int
}

// PartyDirectory is the client and company collaborator.
type PartyDirectory interface {
	GetClient(ctx context.Context, id snowflake.ID) (PartySnapshot, error)
	GetCompanyDefaults(ctx context.Context) (CompanyDefaults, error)
}

// PaymentLedger is the payments collaborator read by markPaid.
type PaymentLedger interface {
	Record(ctx context.Context, db *gorm.DB, doc *Document, in PaymentInput) (recorded bool, err error)
	TotalPaid(ctx context.Context, db *gorm.DB, documentID snowflake.ID) (decimal.Decimal, int, error)
}

// Service is the persistence-backed document API.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*Document, error)
	Preview(ctx context.Context, in CreateInput) (*Document, error)
	Get(ctx context.Context, id string) (*Summary, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, id string, patch Patch) (*Document, error)
	Send(ctx context.Context, id string) (*Document, error)
	Cancel(ctx context.Context, id string) (*Document, error)
	MarkOverdue(ctx context.Context, id string) (*Document, error)
	RecordPayment(ctx context.Context, id string, in PaymentInput) (*Summary, error)
	Delete(ctx context.Context, id string) error
}
