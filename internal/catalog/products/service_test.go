package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garasipos/garasipos/internal/shared"
)

type mockRepository struct {
	products map[int64]*Product
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{products: make(map[int64]*Product), nextID: 1}
}

func (m *mockRepository) Create(ctx context.Context, p Product) (int64, error) {
	for _, existing := range m.products {
		if existing.SKU == p.SKU && existing.DeletedAt == nil {
			return 0, fmt.Errorf("%w: sku %s", shared.ErrDuplicate, p.SKU)
		}
	}
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = &p
	return p.ID, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok || p.DeletedAt != nil {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return *p, nil
}

func (m *mockRepository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	for _, p := range m.products {
		if p.SKU == strings.ToUpper(sku) && p.DeletedAt == nil {
			return *p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: sku %s", shared.ErrNotFound, sku)
}

func (m *mockRepository) List(ctx context.Context, req ListRequest) ([]Product, int, error) {
	result := []Product{}
	for _, p := range m.products {
		if p.DeletedAt != nil {
			continue
		}
		if req.LowStock && p.Stock > p.MinStockAlert {
			continue
		}
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	p, ok := m.products[id]
	if !ok || p.DeletedAt != nil {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["category"].(string); ok {
		p.Category = v
	}
	if v, ok := updates["price_sell"].(float64); ok {
		p.PriceSell = v
	}
	if v, ok := updates["min_stock_alert"].(int); ok {
		p.MinStockAlert = v
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id int64) error {
	p, ok := m.products[id]
	if !ok || p.DeletedAt != nil {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

type recorderStub struct {
	entries []shared.AuditEntry
}

func (r *recorderStub) Record(ctx context.Context, entry shared.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type invalidatorStub struct {
	invalidated []int64
}

func (i *invalidatorStub) InvalidateProduct(ctx context.Context, id int64) error {
	i.invalidated = append(i.invalidated, id)
	return nil
}

func newTestService() (*Service, *mockRepository, *recorderStub, *invalidatorStub) {
	repo := newMockRepository()
	rec := &recorderStub{}
	inv := &invalidatorStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, rec, inv, logger), repo, rec, inv
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateProduct(t *testing.T) {
	svc, _, rec, _ := newTestService()

	p, err := svc.Create(context.Background(), CreateRequest{
		SKU:           " oli-001 ",
		Name:          "Oli Mesin 10W-40",
		Category:      "Oli",
		PriceBuy:      45000,
		PriceSell:     65000,
		MinStockAlert: 5,
	})
	require.NoError(t, err)

	// SKU is normalised, stock always starts at zero.
	assert.Equal(t, "OLI-001", p.SKU)
	assert.Equal(t, 0, p.Stock)
	assert.InDelta(t, 45000, p.PriceBuy, 0.001)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "CREATE", rec.entries[0].Action)
	assert.Equal(t, "products", rec.entries[0].Entity)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateRequest{SKU: "OLI-001", Name: "First"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateRequest{SKU: "OLI-001", Name: "Second"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDuplicate))
}

func TestUpdateProductCannotTouchStockOrCost(t *testing.T) {
	svc, repo, _, inv := newTestService()

	created, err := svc.Create(context.Background(), CreateRequest{SKU: "OLI-001", Name: "Oli", PriceBuy: 45000, PriceSell: 65000})
	require.NoError(t, err)
	repo.products[created.ID].Stock = 9

	updated, err := svc.Update(context.Background(), created.ID, UpdateRequest{
		Name:      ptr("Oli Mesin Premium"),
		PriceSell: ptr(70000.0),
	})
	require.NoError(t, err)

	assert.Equal(t, "Oli Mesin Premium", updated.Name)
	assert.InDelta(t, 70000, updated.PriceSell, 0.001)

	// Ledger-owned fields are untouched by master data updates.
	assert.Equal(t, 9, updated.Stock)
	assert.InDelta(t, 45000, updated.PriceBuy, 0.001)

	assert.Contains(t, inv.invalidated, created.ID)
}

func TestDeleteProductSoftDeletes(t *testing.T) {
	svc, repo, rec, _ := newTestService()

	created, err := svc.Create(context.Background(), CreateRequest{SKU: "OLI-001", Name: "Oli"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	// Row survives for historical references.
	assert.NotNil(t, repo.products[created.ID].DeletedAt)

	assert.Equal(t, "DELETE", rec.entries[len(rec.entries)-1].Action)
}

func TestDeleteUnknownProduct(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.Delete(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestListLowStockFilter(t *testing.T) {
	svc, repo, _, _ := newTestService()

	a, err := svc.Create(context.Background(), CreateRequest{SKU: "OLI-001", Name: "Oli", MinStockAlert: 5})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), CreateRequest{SKU: "FLT-001", Name: "Filter", MinStockAlert: 2})
	require.NoError(t, err)
	repo.products[a.ID].Stock = 3
	repo.products[b.ID].Stock = 10

	result, total, err := svc.List(context.Background(), ListRequest{LowStock: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, result, 1)
	assert.Equal(t, a.ID, result[0].ID)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Oli Mesin (OLI-001)", Describe(Product{Name: "Oli Mesin", SKU: "OLI-001"}))
}
