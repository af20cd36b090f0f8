package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/clock"
	"github.com/smallbiznis/docflow/internal/config"
	"github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/internal/lifecycle"
	"github.com/smallbiznis/docflow/internal/money"
	numberingdomain "github.com/smallbiznis/docflow/internal/numbering/domain"
	"github.com/smallbiznis/docflow/internal/observability/logger"
	"github.com/smallbiznis/docflow/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	"github.com/smallbiznis/docflow/internal/totals"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type EngineParams struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Tax        taxdomain.Engine
	Calculator *totals.Calculator
	Allocator  numberingdomain.Allocator
	Config     *config.DocumentConfigHolder
	Metrics    *metrics.Metrics `optional:"true"`
}

// Engine is the single compute-and-validate path. Every write and every
// preview goes through it; it never touches storage other than the number
// allocator.
type Engine struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	tax        taxdomain.Engine
	calculator *totals.Calculator
	allocator  numberingdomain.Allocator
	config     *config.DocumentConfigHolder
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		log:        p.Log.Named("document.engine"),
		genID:      p.GenID,
		clock:      p.Clock,
		tax:        p.Tax,
		calculator: p.Calculator,
		allocator:  p.Allocator,
		config:     p.Config,
		metrics:    p.Metrics,
		tracer:     otel.Tracer("docflow/document"),
	}
}

// ComputeAndCreate validates input, computes totals and assigns a number when
// the input carries none. The returned document is a draft; nothing is persisted.
func (e *Engine) ComputeAndCreate(ctx context.Context, in domain.CreateInput, defaults domain.CompanyDefaults, client domain.PartySnapshot) (doc *domain.Document, err error) {
	ctx, span := e.tracer.Start(ctx, "document.compute_and_create")
	defer func() { endSpan(span, err) }()

	doc, err = e.build(ctx, in, defaults, client)
	if err != nil {
		return nil, err
	}

	doc.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	if doc.DocumentNumber == "" {
		number, err := e.allocate(ctx, doc, defaults)
		if err != nil {
			return nil, err
		}
		doc.DocumentNumber = number
	}
	span.SetAttributes(
		attribute.String("document.type", string(doc.DocumentType)),
		attribute.String("document.number", doc.DocumentNumber),
	)
	return doc, nil
}

// Preview runs the same computation as ComputeAndCreate without allocating a number.
func (e *Engine) Preview(ctx context.Context, in domain.CreateInput, defaults domain.CompanyDefaults, client domain.PartySnapshot) (doc *domain.Document, err error) {
	ctx, span := e.tracer.Start(ctx, "document.preview")
	defer func() { endSpan(span, err) }()

	doc, err = e.build(ctx, in, defaults, client)
	if err != nil {
		return nil, err
	}
	doc.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	return doc, nil
}

// ComputeAndUpdate applies patch to an editable draft and recomputes it.
// existing is not modified.
func (e *Engine) ComputeAndUpdate(ctx context.Context, existing *domain.Document, patch domain.Patch) (doc *domain.Document, err error) {
	ctx, span := e.tracer.Start(ctx, "document.compute_and_update")
	defer func() { endSpan(span, err) }()

	if err := lifecycle.CanEdit(existing); err != nil {
		e.rejected(ctx, err)
		return nil, err
	}

	doc = existing.Clone()
	cfg := e.config.Get()
	if patch.Currency != nil {
		doc.Currency = money.NormalizeCurrency(*patch.Currency, cfg.DefaultCurrency)
		if err := validateCurrency(doc.Currency); err != nil {
			return nil, err
		}
	}
	if patch.Items != nil {
		doc.Items = e.newItems(doc.ID, *patch.Items)
	}
	if patch.DiscountPercent != nil {
		doc.DiscountPercent = *patch.DiscountPercent
	}
	if patch.DiscountAmount != nil {
		doc.FlatDiscount = *patch.DiscountAmount
	}
	if patch.TaxProtocol != nil {
		protocol, err := taxdomain.ParseProtocol(string(*patch.TaxProtocol))
		if err != nil {
			return nil, err
		}
		doc.TaxProtocolHint = protocol
	}
	if patch.ExportOfServices != nil {
		doc.ExportOfServices = *patch.ExportOfServices
	}
	placeOfSupply := doc.TaxDecision.PlaceOfSupply
	if patch.PlaceOfSupply != nil {
		placeOfSupply = *patch.PlaceOfSupply
	}
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		doc.DueDate = &due
	}
	if patch.Notes != nil {
		doc.Notes = *patch.Notes
	}
	if patch.Metadata != nil {
		doc.Metadata = datatypes.JSONMap(patch.Metadata)
	}

	if err := domain.ValidateItemsForType(doc.DocumentType, doc.Items); err != nil {
		e.metrics.RecordComputationError(ctx, string(doc.DocumentType), "invalid_items")
		return nil, err
	}
	issuer := doc.Issuer.Data()
	if err := e.compute(ctx, doc, issuer.Jurisdiction(), placeOfSupply); err != nil {
		return nil, err
	}
	doc.UpdatedAt = e.now()
	return doc, nil
}

// Send locks a draft. existing is not modified.
func (e *Engine) Send(ctx context.Context, existing *domain.Document) (*domain.Document, error) {
	return e.transition(ctx, existing, func(doc *domain.Document, now time.Time) error {
		return lifecycle.Send(doc, now)
	})
}

// Cancel applies the cancel transition given the number of recorded payments.
func (e *Engine) Cancel(ctx context.Context, existing *domain.Document, paymentCount int) (*domain.Document, error) {
	return e.transition(ctx, existing, func(doc *domain.Document, now time.Time) error {
		return lifecycle.Cancel(doc, paymentCount, now)
	})
}

// MarkPaid classifies an invoice by the total of its payments.
func (e *Engine) MarkPaid(ctx context.Context, existing *domain.Document, paid decimal.Decimal) (*domain.Document, error) {
	return e.transition(ctx, existing, func(doc *domain.Document, now time.Time) error {
		return lifecycle.MarkPaid(doc, paid, now)
	})
}

func (e *Engine) MarkOverdue(ctx context.Context, existing *domain.Document) (*domain.Document, error) {
	return e.transition(ctx, existing, func(doc *domain.Document, now time.Time) error {
		return lifecycle.MarkOverdue(doc, now)
	})
}

// CanRecordPayment reports whether a payment may be recorded against doc.
func (e *Engine) CanRecordPayment(ctx context.Context, doc *domain.Document) error {
	switch {
	case !doc.DocumentType.Payable():
	case doc.Status == domain.StatusSent, doc.Status == domain.StatusPartiallyPaid, doc.Status == domain.StatusOverdue:
		return nil
	}
	err := domain.NewTransitionError("record_payment", doc.Status, domain.ErrIllegalTransition)
	e.rejected(ctx, err)
	return err
}

// Delete checks that doc may be hard-deleted.
func (e *Engine) Delete(ctx context.Context, doc *domain.Document) error {
	if err := lifecycle.Delete(doc); err != nil {
		e.rejected(ctx, err)
		return err
	}
	return nil
}

// Summarize derives the read-time view of a document.
func (e *Engine) Summarize(doc *domain.Document, paid decimal.Decimal) *domain.Summary {
	return &domain.Summary{
		Document:        doc,
		EffectiveStatus: lifecycle.EffectiveStatus(doc, paid, e.now()),
		AmountPaid:      paid,
		Outstanding:     lifecycle.Outstanding(doc, paid),
	}
}

func (e *Engine) transition(ctx context.Context, existing *domain.Document, apply func(*domain.Document, time.Time) error) (*domain.Document, error) {
	doc := existing.Clone()
	now := e.now()
	if err := apply(doc, now); err != nil {
		e.rejected(ctx, err)
		return nil, err
	}
	doc.UpdatedAt = now
	if doc.Status != existing.Status {
		e.metrics.RecordTransition(ctx, string(existing.Status), string(doc.Status))
		logDocument(e.log, doc).Info("document status changed",
			zap.String("from", string(existing.Status)),
			zap.String("to", string(doc.Status)),
		)
	}
	return doc, nil
}

func (e *Engine) build(ctx context.Context, in domain.CreateInput, defaults domain.CompanyDefaults, client domain.PartySnapshot) (*domain.Document, error) {
	documentType, err := domain.ParseType(string(in.DocumentType))
	if err != nil {
		return nil, err
	}
	protocol, err := taxdomain.ParseProtocol(string(in.TaxProtocol))
	if err != nil {
		return nil, err
	}

	cfg := e.config.Get()
	currency := money.NormalizeCurrency(in.Currency, firstNonEmpty(defaults.Currency, cfg.DefaultCurrency))
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}

	now := e.now()
	doc := &domain.Document{
		ID:               e.genID.Generate(),
		DocumentType:     documentType,
		ClientID:         in.ClientID,
		Issuer:           datatypes.NewJSONType(defaults.Issuer),
		Counterparty:     datatypes.NewJSONType(client),
		DiscountPercent:  in.DiscountPercent,
		FlatDiscount:     in.DiscountAmount,
		TaxProtocolHint:  protocol,
		ExportOfServices: in.ExportOfServices,
		Currency:         currency,
		Notes:            in.Notes,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.Metadata != nil {
		doc.Metadata = datatypes.JSONMap(in.Metadata)
	}
	lifecycle.Create(doc)
	doc.Items = e.newItems(doc.ID, in.Items)

	if err := domain.ValidateItemsForType(documentType, doc.Items); err != nil {
		e.metrics.RecordComputationError(ctx, string(documentType), "invalid_items")
		return nil, err
	}
	if err := e.compute(ctx, doc, defaults.Jurisdiction(), in.PlaceOfSupply); err != nil {
		return nil, err
	}

	switch {
	case in.DueDate != nil:
		due := in.DueDate.UTC()
		doc.DueDate = &due
	case documentType.Payable() && cfg.PaymentTermsDays > 0:
		due := now.AddDate(0, 0, cfg.PaymentTermsDays)
		doc.DueDate = &due
	}
	return doc, nil
}

// compute attaches a fresh tax decision and breakdown to doc. Documents
// without items carry no tax and zero totals.
func (e *Engine) compute(ctx context.Context, doc *domain.Document, issuer taxdomain.Jurisdiction, placeOfSupply string) error {
	if len(doc.Items) == 0 {
		doc.TaxDecision = taxdomain.NoTax(taxdomain.ProtocolNone, strings.ToUpper(strings.TrimSpace(placeOfSupply)))
		doc.Totals = domain.ZeroBreakdown()
		e.metrics.RecordComputation(ctx, string(doc.DocumentType), string(doc.TaxDecision.Protocol))
		return nil
	}

	in := taxdomain.Input{
		ProtocolHint:     doc.TaxProtocolHint,
		ExportOfServices: doc.ExportOfServices,
		Issuer:           issuer,
		Counterparty:     doc.Counterparty.Data().Jurisdiction(),
		PlaceOfSupply:    placeOfSupply,
		DefaultRate:      decimal.NewFromFloat(e.config.Get().DefaultTaxRate),
	}
	if first := doc.Items[0]; first.TaxRate.Valid {
		rate := first.TaxRate.Decimal
		in.FirstItemRate = &rate
	}
	decision := e.tax.Decide(in)

	result, err := e.calculator.Compute(doc.Items, totals.Discount{
		Percent: doc.DiscountPercent,
		Flat:    doc.FlatDiscount,
	}, decision, doc.Currency)
	if err != nil {
		e.metrics.RecordComputationError(ctx, string(doc.DocumentType), "invalid_input")
		return err
	}

	doc.Items = result.Items
	doc.TaxDecision = decision
	doc.Totals = result.Totals
	e.metrics.RecordComputation(ctx, string(doc.DocumentType), string(decision.Protocol))
	return nil
}

func (e *Engine) allocate(ctx context.Context, doc *domain.Document, defaults domain.CompanyDefaults) (string, error) {
	typeCfg := e.config.Get().TypeConfig(string(doc.DocumentType))
	format := typeCfg.Format
	if strings.TrimSpace(defaults.NumberFormat) != "" {
		format = defaults.NumberFormat
	}

	number, err := e.allocator.Allocate(ctx, numberingdomain.AllocateRequest{
		DocumentType: string(doc.DocumentType),
		TypeTag:      typeCfg.Tag,
		Prefix:       defaults.NumberPrefix,
		Format:       format,
		Year:         doc.CreatedAt.Year(),
	})
	if err != nil {
		logDocument(e.log, doc).Error("failed to allocate document number", zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrAllocationFailure, err)
	}
	return number, nil
}

func (e *Engine) newItems(documentID snowflake.ID, inputs []domain.LineItemInput) []domain.LineItem {
	if len(inputs) == 0 {
		return nil
	}
	now := e.now()
	items := make([]domain.LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = domain.LineItem{
			ID:              e.genID.Generate(),
			DocumentID:      documentID,
			Position:        i,
			Name:            strings.TrimSpace(in.Name),
			Description:     strings.TrimSpace(in.Description),
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.DiscountPercent,
			TaxRate:         in.TaxRate,
			HSNSAC:          strings.TrimSpace(in.HSNSAC),
			CreatedAt:       now,
		}
	}
	return items
}

func (e *Engine) rejected(ctx context.Context, err error) {
	var terr *domain.TransitionError
	if errors.As(err, &terr) {
		e.metrics.RecordRejectedTransition(ctx, terr.Op, string(terr.From))
	}
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

func validateCurrency(currency string) error {
	if len(currency) != 3 {
		return domain.ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return domain.ErrInvalidCurrency
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func logDocument(log *zap.Logger, doc *domain.Document) *zap.Logger {
	return logger.WithDocument(log, string(doc.DocumentType), doc.ID.String()).
		With(zap.String("document_number", doc.DocumentNumber))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
