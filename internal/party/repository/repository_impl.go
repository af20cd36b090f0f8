package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/docflow/internal/party/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertClient(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, name, email, phone, address, country, state, tax_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.Country,
		client.State,
		client.TaxID,
		client.Metadata,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindClientByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, address, country, state, tax_id, metadata, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) InsertCompany(ctx context.Context, db *gorm.DB, company *domain.CompanyProfile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO company_profiles (
			id, name, email, phone, address, country, state, tax_id,
			number_prefix, number_format, currency, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		company.ID,
		company.Name,
		company.Email,
		company.Phone,
		company.Address,
		company.Country,
		company.State,
		company.TaxID,
		company.NumberPrefix,
		company.NumberFormat,
		company.Currency,
		company.IsActive,
		company.CreatedAt,
		company.UpdatedAt,
	).Error
}

func (r *repo) FindActiveCompany(ctx context.Context, db *gorm.DB) (*domain.CompanyProfile, error) {
	var company domain.CompanyProfile
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, address, country, state, tax_id,
		        number_prefix, number_format, currency, is_active, created_at, updated_at
		 FROM company_profiles
		 WHERE is_active = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		true,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}
