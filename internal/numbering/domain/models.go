// Package domain contains the sequence counter model and the allocator contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SequenceCounter is the last value reserved for one scope.
type SequenceCounter struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	ScopeKey     string       `gorm:"type:text;not null;uniqueIndex:ux_sequence_counters_scope"`
	DocumentType string       `gorm:"type:text;not null"`
	Prefix       string       `gorm:"type:text;not null;default:''"`
	Year         int          `gorm:"not null"`
	LastValue    int64        `gorm:"not null;default:0"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (SequenceCounter) TableName() string { return "sequence_counters" }

// Scope identifies one numbering sequence: a document type, a prefix and a year.
type Scope struct {
	Key          string
	DocumentType string
	Prefix       string
	Year         int
}

// AllocateRequest describes the number to produce.
type AllocateRequest struct {
	DocumentType string
	// TypeTag renders {TYPE}, e.g. INV.
	TypeTag string
	Prefix  string
	Format  string
	Year    int
}

// Store reserves the next value of a scope in one atomic step.
type Store interface {
	Reserve(ctx context.Context, scope Scope) (int64, error)
	Backend() string
}

// Seeder reports the last value already reserved for a scope, zero when none.
type Seeder interface {
	Current(ctx context.Context, scope Scope) (int64, error)
}

type Allocator interface {
	Allocate(ctx context.Context, req AllocateRequest) (string, error)
}

var (
	ErrInvalidFormat     = errors.New("invalid_number_format")
	ErrInvalidScope      = errors.New("invalid_number_scope")
	ErrAllocationFailure = errors.New("number_allocation_failed")
)
