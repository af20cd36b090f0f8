package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/internal/money"
	paymentdomain "github.com/smallbiznis/docflow/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  paymentdomain.Repository
}

// Service is the payments collaborator behind documentdomain.PaymentLedger.
type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  paymentdomain.Repository
	now   func() time.Time
}

func NewService(p Params) *Service {
	return &Service{
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		repo:  p.Repo,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Ledger exposes the service as the document collaborator.
func Ledger(s *Service) documentdomain.PaymentLedger { return s }

var allowedMethods = map[string]bool{
	paymentdomain.MethodBankTransfer: true,
	paymentdomain.MethodUPI:          true,
	paymentdomain.MethodCard:         true,
	paymentdomain.MethodCash:         true,
	paymentdomain.MethodCheque:       true,
	paymentdomain.MethodOther:        true,
}

// Record stores a payment against doc. A repeated idempotency key is
// reported as recorded=false and is not an error. Callers generate no key
// when they do not retry; a fresh ULID is used.
func (s *Service) Record(ctx context.Context, db *gorm.DB, doc *documentdomain.Document, in documentdomain.PaymentInput) (bool, error) {
	if doc == nil {
		return false, documentdomain.ErrDocumentNotFound
	}
	amount := money.Round(in.Amount, doc.Currency)
	if !amount.IsPositive() {
		return false, paymentdomain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method == "" {
		method = paymentdomain.MethodBankTransfer
	}
	if !allowedMethods[method] {
		return false, paymentdomain.ErrInvalidMethod
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = ulid.Make().String()
	}

	now := s.now()
	paidAt := now
	if in.PaidAt != nil {
		paidAt = in.PaidAt.UTC()
	}

	payment := &paymentdomain.Payment{
		ID:             s.genID.Generate(),
		DocumentID:     doc.ID,
		Amount:         amount,
		Currency:       doc.Currency,
		Method:         method,
		Reference:      strings.TrimSpace(in.Reference),
		IdempotencyKey: key,
		PaidAt:         paidAt,
		CreatedAt:      now,
	}
	inserted, err := s.repo.Insert(ctx, db, payment)
	if err != nil {
		return false, err
	}
	if !inserted {
		s.log.Info("duplicate payment ignored",
			zap.String("document_id", doc.ID.String()),
			zap.String("idempotency_key", key),
		)
		return false, nil
	}

	s.log.Info("payment recorded",
		zap.String("document_id", doc.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", amount.String()),
		zap.String("method", method),
	)
	return true, nil
}

func (s *Service) TotalPaid(ctx context.Context, db *gorm.DB, documentID snowflake.ID) (decimal.Decimal, int, error) {
	return s.repo.SumByDocument(ctx, db, documentID)
}

func (s *Service) List(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]paymentdomain.Payment, error) {
	return s.repo.ListByDocument(ctx, db, documentID)
}
