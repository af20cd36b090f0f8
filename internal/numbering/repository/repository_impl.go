package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/docflow/internal/numbering/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const backendName = "database"

type Params struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
}

// Store keeps sequence counters in the sequence_counters table.
type Store struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewStore(p Params) *Store {
	return &Store{db: p.DB, genID: p.GenID}
}

func (s *Store) Backend() string { return backendName }

// Reserve increments and reads the counter in a single statement, creating it
// at 1 on first use.
func (s *Store) Reserve(ctx context.Context, scope domain.Scope) (int64, error) {
	now := time.Now().UTC()
	id := s.genID.Generate()

	if s.db.Dialector.Name() == "mysql" {
		return s.reserveMySQL(ctx, scope, id, now)
	}

	var value int64
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO sequence_counters (
			id, scope_key, document_type, prefix, year, last_value, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (scope_key) DO UPDATE
		SET last_value = sequence_counters.last_value + 1,
		    updated_at = excluded.updated_at
		RETURNING last_value`,
		id,
		scope.Key,
		scope.DocumentType,
		scope.Prefix,
		scope.Year,
		now,
		now,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// reserveMySQL relies on LAST_INSERT_ID(expr), which is scoped to the
// connection, so both statements run in one transaction.
func (s *Store) reserveMySQL(ctx context.Context, scope domain.Scope, id snowflake.ID, now time.Time) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO sequence_counters (
				id, scope_key, document_type, prefix, year, last_value, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, LAST_INSERT_ID(1), ?, ?)
			ON DUPLICATE KEY UPDATE
				last_value = LAST_INSERT_ID(last_value + 1),
				updated_at = VALUES(updated_at)`,
			id,
			scope.Key,
			scope.DocumentType,
			scope.Prefix,
			scope.Year,
			now,
			now,
		).Error; err != nil {
			return err
		}
		return tx.Raw(`SELECT LAST_INSERT_ID()`).Scan(&value).Error
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Current returns the last reserved value without advancing it.
func (s *Store) Current(ctx context.Context, scope domain.Scope) (int64, error) {
	var counter domain.SequenceCounter
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, scope_key, last_value
		 FROM sequence_counters
		 WHERE scope_key = ?
		 LIMIT 1`,
		scope.Key,
	).Scan(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter.LastValue, nil
}
