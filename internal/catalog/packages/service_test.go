package packages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garasipos/garasipos/internal/shared"
)

type mockRepository struct {
	packages map[int64]*Package
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{packages: make(map[int64]*Package), nextID: 1}
}

func (m *mockRepository) Create(ctx context.Context, p Package) (int64, error) {
	p.ID = m.nextID
	m.nextID++
	for i := range p.Items {
		p.Items[i].ID = int64(i + 1)
		p.Items[i].PackageID = p.ID
	}
	m.packages[p.ID] = &p
	return p.ID, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Package, error) {
	p, ok := m.packages[id]
	if !ok || p.DeletedAt != nil {
		return Package{}, fmt.Errorf("%w: package %d", shared.ErrNotFound, id)
	}
	return *p, nil
}

func (m *mockRepository) List(ctx context.Context, req ListRequest) ([]Package, int, error) {
	result := []Package{}
	for _, p := range m.packages {
		if p.DeletedAt != nil {
			continue
		}
		if req.ActiveOnly && !p.IsActive {
			continue
		}
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	p, ok := m.packages[id]
	if !ok || p.DeletedAt != nil {
		return fmt.Errorf("%w: package %d", shared.ErrNotFound, id)
	}
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["price"].(float64); ok {
		p.Price = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		p.IsActive = v
	}
	return nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id int64) error {
	if _, ok := m.packages[id]; !ok {
		return fmt.Errorf("%w: package %d", shared.ErrNotFound, id)
	}
	delete(m.packages, id)
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

func (i *invalidatorStub) InvalidatePackage(ctx context.Context, id int64) error {
	i.invalidated = append(i.invalidated, id)
	return nil
}

func newTestService() (*Service, *invalidatorStub) {
	inv := &invalidatorStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(newMockRepository(), &recorderStub{}, inv, logger), inv
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreatePackage(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Paket Ganti Oli",
		Price: 300000,
		Items: []ItemRequest{
			{ProductID: ptr(int64(1)), Qty: 4},
			{ServiceID: ptr(int64(1)), Qty: 1},
		},
	})
	require.NoError(t, err)

	assert.True(t, p.IsActive)
	assert.InDelta(t, 300000, p.Price, 0.001)
	require.Len(t, p.Items, 2)
}

func TestCreatePackageItemValidation(t *testing.T) {
	svc, _ := newTestService()

	cases := []ItemRequest{
		{Qty: 1},
		{ProductID: ptr(int64(1)), ServiceID: ptr(int64(1)), Qty: 1},
		{ProductID: ptr(int64(0)), Qty: 1},
		{ProductID: ptr(int64(1)), Qty: 0},
	}
	for _, item := range cases {
		_, err := svc.Create(context.Background(), CreateRequest{
			Name: "Paket", Price: 1000, Items: []ItemRequest{item},
		})
		require.Error(t, err, "item %+v", item)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	}
}

func TestUpdatePackageInvalidatesCache(t *testing.T) {
	svc, inv := newTestService()

	p, err := svc.Create(context.Background(), CreateRequest{
		Name: "Paket", Price: 1000,
		Items: []ItemRequest{{ProductID: ptr(int64(1)), Qty: 1}},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), p.ID, UpdateRequest{
		Price:    ptr(1500.0),
		IsActive: ptr(false),
	})
	require.NoError(t, err)

	assert.InDelta(t, 1500, updated.Price, 0.001)
	assert.False(t, updated.IsActive)
	assert.Contains(t, inv.invalidated, p.ID)
}

func TestDeletePackage(t *testing.T) {
	svc, inv := newTestService()

	p, err := svc.Create(context.Background(), CreateRequest{
		Name: "Paket", Price: 1000,
		Items: []ItemRequest{{ProductID: ptr(int64(1)), Qty: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	assert.Contains(t, inv.invalidated, p.ID)

	_, err = svc.Get(context.Background(), p.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
