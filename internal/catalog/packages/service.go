package packages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garasipos/garasipos/internal/shared"
)

type RepositoryPort interface {
	Create(ctx context.Context, p Package) (int64, error)
	Get(ctx context.Context, id int64) (Package, error)
	List(ctx context.Context, req ListRequest) ([]Package, int, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	SoftDelete(ctx context.Context, id int64) error
}

// Invalidator drops cached package snapshots after a write.
type Invalidator interface {
	InvalidatePackage(ctx context.Context, id int64) error
}

type Service struct {
	repo  RepositoryPort
	audit shared.Recorder
	cache Invalidator
	log   *slog.Logger
}

func NewService(repo RepositoryPort, audit shared.Recorder, cache Invalidator, log *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, log: log}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Package, error) {
	items := make([]Item, 0, len(req.Items))
	for i, item := range req.Items {
		if err := validateItem(item); err != nil {
			return Package{}, fmt.Errorf("%w: item %d: %s", shared.ErrValidation, i, err)
		}
		items = append(items, Item{ProductID: item.ProductID, ServiceID: item.ServiceID, Qty: item.Qty})
	}

	id, err := s.repo.Create(ctx, Package{
		Name:        req.Name,
		Description: req.Description,
		Price:       shared.Round2(req.Price),
		IsActive:    true,
		Items:       items,
	})
	if err != nil {
		return Package{}, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return Package{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "CREATE", "packages", id, nil, map[string]any{
		"name": created.Name, "price": created.Price, "items": len(created.Items),
	}))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Package, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Package, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Package, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Package{}, err
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = shared.Round2(*req.Price)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return Package{}, err
	}
	if err := s.cache.InvalidatePackage(ctx, id); err != nil {
		s.log.Warn("package cache invalidation failed", "package_id", id, "error", err)
	}
	after, err := s.repo.Get(ctx, id)
	if err != nil {
		return Package{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "UPDATE", "packages", id,
		map[string]any{"name": before.Name, "price": before.Price, "is_active": before.IsActive},
		map[string]any{"name": after.Name, "price": after.Price, "is_active": after.IsActive},
	))
	return after, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.InvalidatePackage(ctx, id); err != nil {
		s.log.Warn("package cache invalidation failed", "package_id", id, "error", err)
	}
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "DELETE", "packages", id,
		map[string]any{"name": before.Name, "price": before.Price}, nil))
	return nil
}

func validateItem(item ItemRequest) error {
	hasProduct := item.ProductID != nil && *item.ProductID != 0
	hasService := item.ServiceID != nil && *item.ServiceID != 0
	if hasProduct == hasService {
		return fmt.Errorf("exactly one of product_id or service_id must be set")
	}
	if item.Qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}
	return nil
}
