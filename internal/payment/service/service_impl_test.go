package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	paymentdomain "github.com/smallbiznis/docflow/internal/payment/domain"
	"github.com/smallbiznis/docflow/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *Service, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:payment_service?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&paymentdomain.Payment{}))
	require.NoError(t, db.AutoMigrate(&paymentdomain.Payment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, NewService(Params{Log: zap.NewNop(), GenID: node, Repo: repository.Provide()}), node
}

func TestRecord_SumsPayments(t *testing.T) {
	db, svc, node := setup(t)
	ctx := context.Background()
	doc := &documentdomain.Document{ID: node.Generate(), Currency: "INR"}

	ok, err := svc.Record(ctx, db, doc, documentdomain.PaymentInput{Amount: decimal.RequireFromString("100.555"), Method: "UPI"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Record(ctx, db, doc, documentdomain.PaymentInput{Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, ok)

	total, count, err := svc.TotalPaid(ctx, db, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, decimal.RequireFromString("150.56").Equal(total), "total %s", total)

	payments, err := svc.List(ctx, db, doc.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, paymentdomain.MethodUPI, payments[0].Method)
	assert.Len(t, payments[0].IdempotencyKey, 26)
}

func TestRecord_IdempotencyKey(t *testing.T) {
	db, svc, node := setup(t)
	ctx := context.Background()
	doc := &documentdomain.Document{ID: node.Generate(), Currency: "INR"}
	in := documentdomain.PaymentInput{Amount: decimal.NewFromInt(10), IdempotencyKey: "retry-1"}

	ok, err := svc.Record(ctx, db, doc, in)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Record(ctx, db, doc, in)
	require.NoError(t, err)
	assert.False(t, ok)

	_, count, err := svc.TotalPaid(ctx, db, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecord_Validation(t *testing.T) {
	db, svc, node := setup(t)
	ctx := context.Background()
	doc := &documentdomain.Document{ID: node.Generate(), Currency: "INR"}

	_, err := svc.Record(ctx, db, doc, documentdomain.PaymentInput{Amount: decimal.Zero})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = svc.Record(ctx, db, doc, documentdomain.PaymentInput{Amount: decimal.NewFromInt(1), Method: "barter"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = svc.Record(ctx, db, nil, documentdomain.PaymentInput{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, documentdomain.ErrDocumentNotFound)
}
