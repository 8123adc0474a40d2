package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garasipos/garasipos/internal/catalog/products"
	"github.com/garasipos/garasipos/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	products map[int64]*products.Product
	logs     []Movement
	nextLog  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		products: make(map[int64]*products.Product),
		nextLog:  1,
	}
}

func (m *mockRepository) addProduct(id int64, sku string, stockQty int, priceBuy float64) {
	m.products[id] = &products.Product{
		ID:       id,
		SKU:      sku,
		Name:     "Product " + sku,
		PriceBuy: priceBuy,
		Stock:    stockQty,
	}
}

func (m *mockRepository) snapshot() *mockRepository {
	cp := newMockRepository()
	cp.nextLog = m.nextLog
	for id, p := range m.products {
		v := *p
		cp.products[id] = &v
	}
	cp.logs = append(cp.logs, m.logs...)
	return cp
}

func (m *mockRepository) restore(from *mockRepository) {
	m.products = from.products
	m.logs = from.logs
	m.nextLog = from.nextLog
}

// WithTx emulates rollback: a failing fn leaves the repository untouched.
func (m *mockRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	saved := m.snapshot()
	if err := fn(ctx, &mockTxRepo{mock: m}); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

func (m *mockRepository) ListLogs(ctx context.Context, req ListLogsRequest) ([]Movement, int, error) {
	result := []Movement{}
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if l.ProductID != req.ProductID {
			continue
		}
		if req.Type != nil && l.Type != *req.Type {
			continue
		}
		result = append(result, l)
	}
	return result, len(result), nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (tx *mockTxRepo) GetProductForUpdate(ctx context.Context, productID int64) (products.Product, error) {
	p, ok := tx.mock.products[productID]
	if !ok {
		return products.Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	return *p, nil
}

func (tx *mockTxRepo) UpdateProduct(ctx context.Context, productID int64, stockQty int, priceBuy float64) error {
	p, ok := tx.mock.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	p.Stock = stockQty
	p.PriceBuy = priceBuy
	return nil
}

func (tx *mockTxRepo) InsertLog(ctx context.Context, m Movement) (int64, error) {
	m.ID = tx.mock.nextLog
	tx.mock.nextLog++
	m.CreatedAt = time.Now()
	tx.mock.logs = append(tx.mock.logs, m)
	return m.ID, nil
}

func (tx *mockTxRepo) ListOutByRef(ctx context.Context, refType RefType, refID int64) ([]Movement, error) {
	result := []Movement{}
	for _, l := range tx.mock.logs {
		if l.Type == MovementOut && l.RefType == refType && l.RefID == refID {
			result = append(result, l)
		}
	}
	return result, nil
}

type recorderStub struct {
	entries []shared.AuditEntry
}

func (r *recorderStub) Record(ctx context.Context, entry shared.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newTestService(repo *mockRepository) (*Service, *recorderStub) {
	rec := &recorderStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, rec, nil, nil, logger), rec
}

func testContext() context.Context {
	return shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 7, Role: shared.RoleAdmin})
}

func ptr[T any](v T) *T {
	return &v
}

// ============================================================================
// MOVING AVERAGE COST
// ============================================================================

func TestNextAverageCost(t *testing.T) {
	cases := []struct {
		name        string
		stockBefore int
		oldCost     float64
		qtyIn       int
		unitPrice   float64
		want        float64
	}{
		{"weighted blend", 20, 250000, 10, 300000, 266666.67},
		{"first receipt", 0, 0, 5, 120000, 120000},
		{"same price keeps cost", 10, 50000, 10, 50000, 50000},
		{"zero denominator keeps old cost", 0, 75000, 0, 99999, 75000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextAverageCost(tc.stockBefore, tc.oldCost, tc.qtyIn, tc.unitPrice)
			assert.InDelta(t, tc.want, got, 0.001)
		})
	}
}

func TestStockInRecomputesAverageCost(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 20, 250000)
	svc, rec := newTestService(repo)

	m, err := svc.StockIn(testContext(), StockInRequest{
		ProductID: 1,
		Qty:       10,
		BuyPrice:  ptr(300000.0),
	})
	require.NoError(t, err)

	assert.Equal(t, MovementIn, m.Type)
	assert.Equal(t, 10, m.Qty)
	assert.Equal(t, 20, m.StockBefore)
	assert.Equal(t, 30, m.StockAfter)
	assert.Equal(t, RefPurchase, m.RefType)
	assert.Equal(t, int64(7), m.ActorID)

	p := repo.products[1]
	assert.Equal(t, 30, p.Stock)
	assert.InDelta(t, 266666.67, p.PriceBuy, 0.001)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "STOCK_IN", rec.entries[0].Action)
}

func TestStockInWithoutPriceKeepsCost(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "FLT-001", 4, 30000)
	svc, _ := newTestService(repo)

	_, err := svc.StockIn(testContext(), StockInRequest{ProductID: 1, Qty: 6})
	require.NoError(t, err)

	p := repo.products[1]
	assert.Equal(t, 10, p.Stock)
	assert.InDelta(t, 30000, p.PriceBuy, 0.001)
}

func TestStockInUnknownProduct(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(repo)

	_, err := svc.StockIn(testContext(), StockInRequest{ProductID: 99, Qty: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Empty(t, repo.logs)
}

// ============================================================================
// OUT AND COMPENSATION
// ============================================================================

func TestOutForTransaction(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 10, 45000)

	err := repo.WithTx(testContext(), func(ctx context.Context, tx TxRepository) error {
		m, err := OutForTransaction(ctx, tx, 1, 3, 55, 7)
		require.NoError(t, err)
		assert.Equal(t, -3, m.Qty)
		assert.Equal(t, 10, m.StockBefore)
		assert.Equal(t, 7, m.StockAfter)
		assert.Equal(t, RefTransaction, m.RefType)
		assert.Equal(t, int64(55), m.RefID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, repo.products[1].Stock)
}

func TestOutForTransactionInsufficientStock(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 2, 45000)

	err := repo.WithTx(testContext(), func(ctx context.Context, tx TxRepository) error {
		_, err := OutForTransaction(ctx, tx, 1, 5, 55, 7)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Equal(t, 2, repo.products[1].Stock)
	assert.Empty(t, repo.logs)
}

func TestCompensateTransactionRestoresStock(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 10, 45000)
	repo.addProduct(2, "FLT-001", 4, 30000)

	err := repo.WithTx(testContext(), func(ctx context.Context, tx TxRepository) error {
		if _, err := OutForTransaction(ctx, tx, 1, 4, 55, 7); err != nil {
			return err
		}
		_, err := OutForTransaction(ctx, tx, 2, 1, 55, 7)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 6, repo.products[1].Stock)
	assert.Equal(t, 3, repo.products[2].Stock)

	err = repo.WithTx(testContext(), func(ctx context.Context, tx TxRepository) error {
		reversals, err := CompensateTransaction(ctx, tx, 55, 7)
		require.NoError(t, err)
		require.Len(t, reversals, 2)
		for _, m := range reversals {
			assert.Equal(t, MovementIn, m.Type)
			assert.Equal(t, RefTransactionCancel, m.RefType)
			assert.Equal(t, int64(55), m.RefID)
		}
		return nil
	})
	require.NoError(t, err)

	// Full restore, cost basis untouched.
	assert.Equal(t, 10, repo.products[1].Stock)
	assert.Equal(t, 4, repo.products[2].Stock)
	assert.InDelta(t, 45000, repo.products[1].PriceBuy, 0.001)
	assert.InDelta(t, 30000, repo.products[2].PriceBuy, 0.001)
}

func TestStockConservationAcrossMovements(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 0, 0)
	svc, _ := newTestService(repo)
	ctx := testContext()

	_, err := svc.StockIn(ctx, StockInRequest{ProductID: 1, Qty: 20, BuyPrice: ptr(250000.0)})
	require.NoError(t, err)
	_, err = svc.StockIn(ctx, StockInRequest{ProductID: 1, Qty: 10, BuyPrice: ptr(300000.0)})
	require.NoError(t, err)

	err = repo.WithTx(ctx, func(txCtx context.Context, tx TxRepository) error {
		_, err := OutForTransaction(txCtx, tx, 1, 12, 55, 7)
		return err
	})
	require.NoError(t, err)

	_, err = svc.StockAudit(ctx, AuditRequest{ProductID: 1, ActualStock: 17, Reason: "damaged"})
	require.NoError(t, err)

	logs, _, err := svc.Logs(ctx, ListLogsRequest{ProductID: 1})
	require.NoError(t, err)
	require.NotEmpty(t, logs)

	// Every log is internally consistent and the newest one matches the
	// product's live stock.
	for _, l := range logs {
		assert.Equal(t, l.StockAfter, l.StockBefore+l.Qty, "log %d", l.ID)
	}
	assert.Equal(t, repo.products[1].Stock, logs[0].StockAfter)
	assert.Equal(t, 17, repo.products[1].Stock)
}

// ============================================================================
// STOCK AUDIT (OPNAME)
// ============================================================================

func TestStockAuditWritesAdjustment(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 10, 45000)
	svc, rec := newTestService(repo)

	result, err := svc.StockAudit(testContext(), AuditRequest{
		ProductID:   1,
		ActualStock: 15,
		Reason:      "miscount",
		Notes:       "found extra carton",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.SystemStock)
	assert.Equal(t, 15, result.ActualStock)
	assert.Equal(t, 5, result.Difference)
	require.NotNil(t, result.Movement)
	assert.Equal(t, MovementAdjustment, result.Movement.Type)
	assert.Equal(t, 5, result.Movement.Qty)
	assert.Equal(t, RefStockAudit, result.Movement.RefType)
	assert.Contains(t, result.Movement.Notes, "miscount")

	assert.Equal(t, 15, repo.products[1].Stock)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "STOCK_AUDIT", rec.entries[0].Action)
}

func TestStockAuditMatchingCountWritesNoMovement(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 10, 45000)
	svc, rec := newTestService(repo)

	result, err := svc.StockAudit(testContext(), AuditRequest{ProductID: 1, ActualStock: 10})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Difference)
	assert.Nil(t, result.Movement)
	assert.Empty(t, repo.logs)
	assert.Empty(t, rec.entries)
}

func TestStockAuditNegativeActualStock(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 10, 45000)
	svc, _ := newTestService(repo)

	_, err := svc.StockAudit(testContext(), AuditRequest{ProductID: 1, ActualStock: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestBulkStockAuditCollectsFailures(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 10, 45000)
	repo.addProduct(2, "FLT-001", 4, 30000)
	svc, _ := newTestService(repo)

	result, err := svc.BulkStockAudit(testContext(), BulkAuditRequest{Items: []AuditRequest{
		{ProductID: 1, ActualStock: 8, Reason: "leak"},
		{ProductID: 99, ActualStock: 3},
		{ProductID: 2, ActualStock: 5},
	}})
	require.NoError(t, err)

	assert.NotEmpty(t, result.OpnameCode)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, int64(99), result.Errors[0].ProductID)

	// Earlier successes survive the failed item.
	assert.Equal(t, 8, repo.products[1].Stock)
	assert.Equal(t, 5, repo.products[2].Stock)

	for _, r := range result.Results {
		if r.Movement != nil {
			assert.Contains(t, r.Movement.Notes, result.OpnameCode)
		}
	}
}

func TestLogsRequiresProductID(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(repo)

	_, _, err := svc.Logs(testContext(), ListLogsRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestLogsFiltersByType(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "OLI-001", 0, 0)
	svc, _ := newTestService(repo)
	ctx := testContext()

	_, err := svc.StockIn(ctx, StockInRequest{ProductID: 1, Qty: 10, BuyPrice: ptr(45000.0)})
	require.NoError(t, err)
	err = repo.WithTx(ctx, func(txCtx context.Context, tx TxRepository) error {
		_, err := OutForTransaction(txCtx, tx, 1, 2, 55, 7)
		return err
	})
	require.NoError(t, err)

	outType := MovementOut
	logs, total, err := svc.Logs(ctx, ListLogsRequest{ProductID: 1, Type: &outType})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, MovementOut, logs[0].Type)
}
