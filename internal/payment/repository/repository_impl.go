package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert reports false when a payment with the same idempotency key exists.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, document_id, amount, currency, method, reference,
			idempotency_key, paid_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		payment.ID,
		payment.DocumentID,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Reference,
		payment.IdempotencyKey,
		payment.PaidAt,
		payment.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, document_id, amount, currency, method, reference,
		        idempotency_key, paid_at, created_at
		 FROM payments
		 WHERE document_id = ?
		 ORDER BY paid_at ASC, id ASC`,
		documentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SumByDocument adds amounts in Go so the result keeps decimal precision on
// every dialect.
func (r *repo) SumByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) (decimal.Decimal, int, error) {
	items, err := r.ListByDocument(ctx, db, documentID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total, len(items), nil
}
