package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/clock"
	"github.com/smallbiznis/docflow/internal/config"
	"github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/smallbiznis/docflow/internal/document/repository"
	numberingdomain "github.com/smallbiznis/docflow/internal/numbering/domain"
	numberingrepo "github.com/smallbiznis/docflow/internal/numbering/repository"
	numberingservice "github.com/smallbiznis/docflow/internal/numbering/service"
	partydomain "github.com/smallbiznis/docflow/internal/party/domain"
	partyrepo "github.com/smallbiznis/docflow/internal/party/repository"
	partyservice "github.com/smallbiznis/docflow/internal/party/service"
	paymentdomain "github.com/smallbiznis/docflow/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/docflow/internal/payment/repository"
	paymentservice "github.com/smallbiznis/docflow/internal/payment/service"
	taxservice "github.com/smallbiznis/docflow/internal/tax/service"
	"github.com/smallbiznis/docflow/internal/totals"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	engine  *Engine
	svc     domain.Service
	node    *snowflake.Node
	clients map[string]snowflake.ID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Document{},
		&domain.LineItem{},
		&numberingdomain.SequenceCounter{},
		&partydomain.Client{},
		&partydomain.CompanyProfile{},
		&paymentdomain.Payment{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(testNow)

	taxEngine := taxservice.NewEngine()
	allocator := numberingservice.NewService(numberingservice.Params{
		Log:   log,
		Store: numberingrepo.NewStore(numberingrepo.Params{DB: db, GenID: node}),
	})
	engine := NewEngine(EngineParams{
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Tax:        taxEngine,
		Calculator: totals.NewCalculator(taxEngine),
		Allocator:  allocator,
		Config:     config.NewStaticDocumentConfigHolder(config.DefaultDocumentConfig()),
	})

	parties := partyrepo.Provide()
	payments := paymentservice.NewService(paymentservice.Params{Log: log, GenID: node, Repo: paymentrepo.Provide()})
	svc := NewService(ServiceParams{
		DB:       db,
		Log:      log,
		Engine:   engine,
		Repo:     repository.Provide(),
		Parties:  partyservice.NewDirectory(partyservice.Params{DB: db, Log: log, Repo: parties}),
		Payments: paymentservice.Ledger(payments),
	})

	h := &harness{db: db, clock: fake, engine: engine, svc: svc, node: node, clients: map[string]snowflake.ID{}}

	ctx := context.Background()
	require.NoError(t, parties.InsertCompany(ctx, db, &partydomain.CompanyProfile{
		ID: node.Generate(), Name: "Acme Consulting", Country: "IN", State: "MH",
		NumberPrefix: "ACME", Currency: "INR", IsActive: true, CreatedAt: testNow, UpdatedAt: testNow,
	}))
	for name, jurisdiction := range map[string][2]string{
		"local":   {"IN", "MH"},
		"karnat":  {"IN", "KA"},
		"foreign": {"US", "CA"},
	} {
		id := node.Generate()
		require.NoError(t, parties.InsertClient(ctx, db, &partydomain.Client{
			ID: id, Name: name, Country: jurisdiction[0], State: jurisdiction[1], CreatedAt: testNow, UpdatedAt: testNow,
		}))
		h.clients[name] = id
	}
	return h
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func consulting() []domain.LineItemInput {
	return []domain.LineItemInput{{
		Name:        "Consulting",
		Description: "Architecture review",
		Quantity:    d("1"),
		UnitPrice:   d("65000"),
		TaxRate:     decimal.NewNullDecimal(d("18")),
	}}
}

func (h *harness) invoiceInput(client string) domain.CreateInput {
	return domain.CreateInput{
		DocumentType:  domain.TypeInvoice,
		ClientID:      h.clients[client],
		Items:         consulting(),
		PlaceOfSupply: "MH",
	}
}
