package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/docflow/internal/numbering/domain"
	"github.com/smallbiznis/docflow/internal/numbering/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.SequenceCounter{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return repository.NewStore(repository.Params{DB: db, GenID: node})
}

func newService(store domain.Store) domain.Allocator {
	return NewService(Params{Log: zap.NewNop(), Store: store})
}

func invoiceRequest() domain.AllocateRequest {
	return domain.AllocateRequest{
		DocumentType: "invoice",
		TypeTag:      "INV",
		Prefix:       "ACME",
		Format:       "{PREFIX}/{YEAR}/{TYPE}/{NUMBER:4}",
		Year:         2026,
	}
}

func TestAllocate_Sequential(t *testing.T) {
	svc := newService(setupStore(t))
	ctx := context.Background()

	first, err := svc.Allocate(ctx, invoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, "ACME/2026/INV/0001", first)

	second, err := svc.Allocate(ctx, invoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, "ACME/2026/INV/0002", second)
}

func TestAllocate_ScopesAreIndependent(t *testing.T) {
	svc := newService(setupStore(t))
	ctx := context.Background()

	_, err := svc.Allocate(ctx, invoiceRequest())
	require.NoError(t, err)

	quote := invoiceRequest()
	quote.DocumentType = "quotation"
	quote.TypeTag = "QUO"
	got, err := svc.Allocate(ctx, quote)
	require.NoError(t, err)
	assert.Equal(t, "ACME/2026/QUO/0001", got)

	nextYear := invoiceRequest()
	nextYear.Year = 2027
	got, err = svc.Allocate(ctx, nextYear)
	require.NoError(t, err)
	assert.Equal(t, "ACME/2027/INV/0001", got)
}

func TestAllocate_Concurrent(t *testing.T) {
	svc := newService(setupStore(t))
	ctx := context.Background()

	const n = 40
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, n)
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := svc.Allocate(ctx, invoiceRequest())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[number] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, n)
}

func TestScopeFor_SlugsPrefix(t *testing.T) {
	a, err := ScopeFor(domain.AllocateRequest{DocumentType: "Invoice", Prefix: "Acme Corp", Year: 2026})
	require.NoError(t, err)
	b, err := ScopeFor(domain.AllocateRequest{DocumentType: "invoice", Prefix: "acme-corp", Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, "invoice:acme-corp:2026", a.Key)

	_, err = ScopeFor(domain.AllocateRequest{Prefix: "x", Year: 2026})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Reserve(ctx context.Context, scope domain.Scope) (int64, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Backend() string { return "mock" }

func TestAllocate_StoreFailureReturnsNoNumber(t *testing.T) {
	store := new(mockStore)
	store.On("Reserve", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection refused"))

	number, err := newService(store).Allocate(context.Background(), invoiceRequest())
	assert.ErrorIs(t, err, domain.ErrAllocationFailure)
	assert.Empty(t, number)
	store.AssertExpectations(t)
}

func TestAllocate_InvalidFormatReservesNothing(t *testing.T) {
	store := new(mockStore)
	req := invoiceRequest()
	req.Format = "{PREFIX}/{YEAR}"

	_, err := newService(store).Allocate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
	store.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}
