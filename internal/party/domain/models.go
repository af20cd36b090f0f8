package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Client is a counterparty documents are issued to.
type Client struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `gorm:"not null;default:''" json:"email"`
	Phone     string            `gorm:"not null;default:''" json:"phone,omitempty"`
	Address   string            `gorm:"type:text;not null;default:''" json:"address,omitempty"`
	Country   string            `gorm:"not null" json:"country"`
	State     string            `gorm:"not null;default:''" json:"state,omitempty"`
	TaxID     string            `gorm:"column:tax_id;not null;default:''" json:"tax_id,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// CompanyProfile holds the issuing company's defaults. One row is active.
type CompanyProfile struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Email        string       `gorm:"not null;default:''" json:"email"`
	Phone        string       `gorm:"not null;default:''" json:"phone,omitempty"`
	Address      string       `gorm:"type:text;not null;default:''" json:"address,omitempty"`
	Country      string       `gorm:"not null" json:"country"`
	State        string       `gorm:"not null;default:''" json:"state"`
	TaxID        string       `gorm:"column:tax_id;not null;default:''" json:"tax_id,omitempty"`
	NumberPrefix string       `gorm:"not null;default:''" json:"number_prefix"`
	NumberFormat string       `gorm:"not null;default:''" json:"number_format,omitempty"`
	Currency     string       `gorm:"not null;default:''" json:"currency,omitempty"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (CompanyProfile) TableName() string { return "company_profiles" }

type Repository interface {
	InsertClient(ctx context.Context, db *gorm.DB, client *Client) error
	FindClientByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	InsertCompany(ctx context.Context, db *gorm.DB, company *CompanyProfile) error
	FindActiveCompany(ctx context.Context, db *gorm.DB) (*CompanyProfile, error)
}

var ErrCompanyNotConfigured = errors.New("company_profile_not_configured")
