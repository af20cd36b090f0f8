package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert writes the document and its items. A number collision within the
// document type surfaces as ErrDuplicateNumber.
func (r *repo) Insert(ctx context.Context, conn *gorm.DB, doc *domain.Document) error {
	if err := conn.WithContext(ctx).Omit(clause.Associations).Create(doc).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateNumber, doc.DocumentNumber)
		}
		return err
	}
	return r.insertItems(ctx, conn, doc.Items)
}

// Update writes the mutable columns when the stored version still equals
// expectedVersion, then bumps the version on doc.
func (r *repo) Update(ctx context.Context, conn *gorm.DB, doc *domain.Document, expectedVersion int64) error {
	next := expectedVersion + 1
	res := conn.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND version = ?", doc.ID, expectedVersion).
		Updates(map[string]any{
			"status":              doc.Status,
			"is_locked":           doc.IsLocked,
			"discount_percent":    doc.DiscountPercent,
			"flat_discount":       doc.FlatDiscount,
			"tax_protocol_hint":   doc.TaxProtocolHint,
			"export_of_services":  doc.ExportOfServices,
			"tax_protocol":        doc.TaxDecision.Protocol,
			"tax_treatment":       doc.TaxDecision.Treatment,
			"tax_rate":            doc.TaxDecision.Rate,
			"tax_place_of_supply": doc.TaxDecision.PlaceOfSupply,
			"subtotal":            doc.Totals.Subtotal,
			"discount_amount":     doc.Totals.DiscountAmount,
			"cgst":                doc.Totals.CGST,
			"sgst":                doc.Totals.SGST,
			"igst":                doc.Totals.IGST,
			"tax_amount":          doc.Totals.TaxAmount,
			"grand_total":         doc.Totals.GrandTotal,
			"currency":            doc.Currency,
			"notes":               doc.Notes,
			"metadata":            doc.Metadata,
			"due_date":            doc.DueDate,
			"sent_at":             doc.SentAt,
			"paid_at":             doc.PaidAt,
			"overdue_at":          doc.OverdueAt,
			"cancelled_at":        doc.CancelledAt,
			"version":             next,
			"updated_at":          doc.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	doc.Version = next
	return nil
}

func (r *repo) ReplaceItems(ctx context.Context, conn *gorm.DB, documentID snowflake.ID, items []domain.LineItem) error {
	if err := conn.WithContext(ctx).Exec(
		`DELETE FROM document_items WHERE document_id = ?`,
		documentID,
	).Error; err != nil {
		return err
	}
	return r.insertItems(ctx, conn, items)
}

func (r *repo) insertItems(ctx context.Context, conn *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	return r.find(ctx, conn.WithContext(ctx), id)
}

// FindByIDForUpdate row-locks the document where the dialect supports it.
func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	return r.find(ctx, conn.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) find(ctx context.Context, stmt *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := stmt.Where("id = ?", id).Limit(1).Find(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}

	var items []domain.LineItem
	err = stmt.Session(&gorm.Session{NewDB: true}).
		WithContext(ctx).
		Where("document_id = ?", id).
		Order("position asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return &doc, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Document, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Document{})
	if filter.DocumentType != nil {
		stmt = stmt.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.AfterID != nil {
		stmt = stmt.Where("id < ?", *filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var docs []domain.Document
	if err := stmt.Order("id desc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID, expectedVersion int64) error {
	res := conn.WithContext(ctx).Exec(
		`DELETE FROM documents WHERE id = ? AND version = ?`,
		id,
		expectedVersion,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return conn.WithContext(ctx).Exec(
		`DELETE FROM document_items WHERE document_id = ?`,
		id,
	).Error
}
