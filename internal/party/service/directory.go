package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/internal/party/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

// Directory serves client snapshots and company defaults to the document engine.
type Directory struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewDirectory(p Params) documentdomain.PartyDirectory {
	return &Directory{
		db:   p.DB,
		log:  p.Log.Named("party.directory"),
		repo: p.Repo,
	}
}

func (d *Directory) GetClient(ctx context.Context, id snowflake.ID) (documentdomain.PartySnapshot, error) {
	if id == 0 {
		return documentdomain.PartySnapshot{}, documentdomain.ErrClientNotFound
	}
	client, err := d.repo.FindClientByID(ctx, d.db, id)
	if err != nil {
		d.log.Error("failed to load client", zap.String("client_id", id.String()), zap.Error(err))
		return documentdomain.PartySnapshot{}, fmt.Errorf("%w: %v", documentdomain.ErrUpstreamUnavailable, err)
	}
	if client == nil {
		return documentdomain.PartySnapshot{}, documentdomain.ErrClientNotFound
	}
	return ClientSnapshot(client), nil
}

func (d *Directory) GetCompanyDefaults(ctx context.Context) (documentdomain.CompanyDefaults, error) {
	company, err := d.repo.FindActiveCompany(ctx, d.db)
	if err != nil {
		d.log.Error("failed to load company profile", zap.Error(err))
		return documentdomain.CompanyDefaults{}, fmt.Errorf("%w: %v", documentdomain.ErrUpstreamUnavailable, err)
	}
	if company == nil {
		return documentdomain.CompanyDefaults{}, fmt.Errorf("%w: %v", documentdomain.ErrUpstreamUnavailable, domain.ErrCompanyNotConfigured)
	}
	return CompanyDefaults(company), nil
}

func ClientSnapshot(c *domain.Client) documentdomain.PartySnapshot {
	return documentdomain.PartySnapshot{
		ID:      c.ID.String(),
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Country: c.Country,
		State:   c.State,
		TaxID:   c.TaxID,
	}
}

func CompanyDefaults(c *domain.CompanyProfile) documentdomain.CompanyDefaults {
	return documentdomain.CompanyDefaults{
		HomeCountry:  c.Country,
		HomeState:    c.State,
		NumberPrefix: c.NumberPrefix,
		NumberFormat: c.NumberFormat,
		Currency:     c.Currency,
		Issuer: documentdomain.PartySnapshot{
			ID:      c.ID.String(),
			Name:    c.Name,
			Email:   c.Email,
			Phone:   c.Phone,
			Address: c.Address,
			Country: c.Country,
			State:   c.State,
			TaxID:   c.TaxID,
		},
	}
}
