package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is money received against an invoice.
type Payment struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	DocumentID     snowflake.ID    `json:"document_id" gorm:"not null;index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(20,4);not null"`
	Currency       string          `json:"currency" gorm:"type:text;not null"`
	Method         string          `json:"method" gorm:"type:text;not null"`
	Reference      string          `json:"reference,omitempty" gorm:"type:text;not null;default:''"`
	IdempotencyKey string          `json:"idempotency_key" gorm:"type:text;not null;uniqueIndex:ux_payments_idempotency_key"`
	PaidAt         time.Time       `json:"paid_at" gorm:"not null"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

const (
	MethodBankTransfer = "bank_transfer"
	MethodUPI          = "upi"
	MethodCard         = "card"
	MethodCash         = "cash"
	MethodCheque       = "cheque"
	MethodOther        = "other"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]Payment, error)
	SumByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) (decimal.Decimal, int, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_payment_amount")
	ErrInvalidMethod = errors.New("invalid_payment_method")
)
