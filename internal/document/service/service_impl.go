package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Engine   *Engine
	Repo     domain.Repository
	Parties  domain.PartyDirectory
	Payments domain.PaymentLedger
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	engine   *Engine
	repo     domain.Repository
	parties  domain.PartyDirectory
	payments domain.PaymentLedger
}

func NewService(p ServiceParams) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("document.service"),
		engine:   p.Engine,
		repo:     p.Repo,
		parties:  p.Parties,
		payments: p.Payments,
	}
}

func (s *Service) Create(ctx context.Context, in domain.CreateInput) (*domain.Document, error) {
	defaults, client, err := s.collaborators(ctx, in)
	if err != nil {
		return nil, err
	}

	doc, err := s.engine.ComputeAndCreate(ctx, in, defaults, client)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, doc)
	})
	if err != nil {
		return nil, err
	}

	logDocument(s.log, doc).Info("document created",
		zap.String("grand_total", doc.Totals.GrandTotal.String()),
		zap.String("tax_protocol", string(doc.TaxDecision.Protocol)),
	)
	return doc, nil
}

func (s *Service) Preview(ctx context.Context, in domain.CreateInput) (*domain.Document, error) {
	defaults, client, err := s.collaborators(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.engine.Preview(ctx, in, defaults, client)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Summary, error) {
	documentID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	paid, _, err := s.payments.TotalPaid(ctx, s.db, doc.ID)
	if err != nil {
		return nil, err
	}
	return s.engine.Summarize(doc, paid), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	limit := pagination.Limit(req.PageSize)
	filter := domain.ListFilter{
		DocumentType: req.DocumentType,
		Status:       req.Status,
		ClientID:     req.ClientID,
		Limit:        limit + 1,
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		filter.AfterID = &afterID
	}

	docs, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	docs, info, err := pagination.Page(docs, limit, func(d domain.Document) pagination.Cursor {
		return pagination.Cursor{ID: d.ID.String()}
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{PageInfo: info, Documents: docs}, nil
}

func (s *Service) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Document, error) {
	var updated *domain.Document
	err := s.withDocument(ctx, id, func(tx *gorm.DB, doc *domain.Document) error {
		if patch.Version != 0 && patch.Version != doc.Version {
			return domain.ErrVersionConflict
		}
		next, err := s.engine.ComputeAndUpdate(ctx, doc, patch)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, next, doc.Version); err != nil {
			return err
		}
		if patch.Items != nil {
			if err := s.repo.ReplaceItems(ctx, tx, next.ID, next.Items); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	logDocument(s.log, updated).Info("document updated", zap.Int64("version", updated.Version))
	return updated, nil
}

func (s *Service) Send(ctx context.Context, id string) (*domain.Document, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, doc *domain.Document) (*domain.Document, error) {
		return s.engine.Send(ctx, doc)
	})
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.Document, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, doc *domain.Document) (*domain.Document, error) {
		_, count, err := s.payments.TotalPaid(ctx, tx, doc.ID)
		if err != nil {
			return nil, err
		}
		return s.engine.Cancel(ctx, doc, count)
	})
}

func (s *Service) MarkOverdue(ctx context.Context, id string) (*domain.Document, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, doc *domain.Document) (*domain.Document, error) {
		return s.engine.MarkOverdue(ctx, doc)
	})
}

// RecordPayment stores the payment and reclassifies the invoice in one
// transaction.
func (s *Service) RecordPayment(ctx context.Context, id string, in domain.PaymentInput) (*domain.Summary, error) {
	var (
		result *domain.Document
		paid   decimal.Decimal
	)
	err := s.withDocument(ctx, id, func(tx *gorm.DB, doc *domain.Document) error {
		if err := s.engine.CanRecordPayment(ctx, doc); err != nil {
			return err
		}
		if _, err := s.payments.Record(ctx, tx, doc, in); err != nil {
			return err
		}
		total, _, err := s.payments.TotalPaid(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		next, err := s.engine.MarkPaid(ctx, doc, total)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, next, doc.Version); err != nil {
			return err
		}
		result, paid = next, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.engine.Summarize(result, paid), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	var deleted *domain.Document
	err := s.withDocument(ctx, id, func(tx *gorm.DB, doc *domain.Document) error {
		if err := s.engine.Delete(ctx, doc); err != nil {
			return err
		}
		deleted = doc
		return s.repo.Delete(ctx, tx, doc.ID, doc.Version)
	})
	if err != nil {
		return err
	}
	logDocument(s.log, deleted).Info("draft document deleted")
	return nil
}

func (s *Service) transition(ctx context.Context, id string, apply func(*gorm.DB, *domain.Document) (*domain.Document, error)) (*domain.Document, error) {
	var result *domain.Document
	err := s.withDocument(ctx, id, func(tx *gorm.DB, doc *domain.Document) error {
		next, err := apply(tx, doc)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, next, doc.Version); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withDocument loads the document for update inside a transaction.
func (s *Service) withDocument(ctx context.Context, id string, fn func(tx *gorm.DB, doc *domain.Document) error) error {
	documentID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrDocumentNotFound
		}
		return fn(tx, doc)
	})
}

// collaborators fetches company defaults and the counterparty snapshot.
func (s *Service) collaborators(ctx context.Context, in domain.CreateInput) (domain.CompanyDefaults, domain.PartySnapshot, error) {
	defaults, err := s.parties.GetCompanyDefaults(ctx)
	if err != nil {
		return domain.CompanyDefaults{}, domain.PartySnapshot{}, err
	}

	if in.ClientID != 0 {
		client, err := s.parties.GetClient(ctx, in.ClientID)
		if err != nil {
			return domain.CompanyDefaults{}, domain.PartySnapshot{}, err
		}
		return defaults, client, nil
	}
	if in.Counterparty != nil && strings.TrimSpace(in.Counterparty.Name) != "" {
		return defaults, *in.Counterparty, nil
	}
	return domain.CompanyDefaults{}, domain.PartySnapshot{}, domain.ErrClientNotFound
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidDocumentID
	}
	return id, nil
}
