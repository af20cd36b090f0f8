package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/docflow/internal/numbering/domain"
	"github.com/smallbiznis/docflow/internal/numbering/format"
	"github.com/smallbiznis/docflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Store   domain.Store
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	store   domain.Store
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Allocator {
	return &Service{
		log:     p.Log.Named("numbering.service"),
		store:   p.Store,
		metrics: p.Metrics,
	}
}

// ScopeFor builds the counter scope for a request. The prefix segment is
// slugged so "Acme Corp" and "acme-corp" share one sequence.
func ScopeFor(req domain.AllocateRequest) (domain.Scope, error) {
	documentType := strings.ToLower(strings.TrimSpace(req.DocumentType))
	if documentType == "" || req.Year <= 0 {
		return domain.Scope{}, domain.ErrInvalidScope
	}
	prefix := slug.Make(req.Prefix)
	return domain.Scope{
		Key:          strings.Join([]string{documentType, prefix, strconv.Itoa(req.Year)}, ":"),
		DocumentType: documentType,
		Prefix:       prefix,
		Year:         req.Year,
	}, nil
}

// Allocate reserves the next value for the request's scope and renders it.
// The template is checked before anything is reserved. A failed reservation
// returns no number.
func (s *Service) Allocate(ctx context.Context, req domain.AllocateRequest) (string, error) {
	scope, err := ScopeFor(req)
	if err != nil {
		return "", err
	}
	if _, err := format.Render(req.Format, req.Prefix, req.TypeTag, req.Year, 1); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}

	backend := s.store.Backend()
	seq, err := s.store.Reserve(ctx, scope)
	if err != nil {
		s.metrics.RecordAllocationFailure(ctx, scope.DocumentType, backend)
		s.log.Error("failed to reserve document number",
			zap.String("scope_key", scope.Key),
			zap.String("backend", backend),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", domain.ErrAllocationFailure, err)
	}

	number, err := format.Render(req.Format, req.Prefix, req.TypeTag, req.Year, seq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}

	s.metrics.RecordNumberAllocated(ctx, scope.DocumentType, backend)
	s.log.Debug("document number allocated",
		zap.String("scope_key", scope.Key),
		zap.Int64("sequence", seq),
		zap.String("document_number", number),
	)
	return number, nil
}
