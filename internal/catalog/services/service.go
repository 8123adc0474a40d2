package services

import (
	"context"
	"log/slog"

	"github.com/garasipos/garasipos/internal/shared"
)

type RepositoryPort interface {
	Create(ctx context.Context, s Service) (int64, error)
	Get(ctx context.Context, id int64) (Service, error)
	List(ctx context.Context, req ListRequest) ([]Service, int, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	SoftDelete(ctx context.Context, id int64) error
}

// UseCase contains labor-item master data use-cases. Named UseCase because the
// domain type already claims Service.
type UseCase struct {
	repo  RepositoryPort
	audit shared.Recorder
	log   *slog.Logger
}

func NewUseCase(repo RepositoryPort, audit shared.Recorder, log *slog.Logger) *UseCase {
	return &UseCase{repo: repo, audit: audit, log: log}
}

func (u *UseCase) Create(ctx context.Context, req CreateRequest) (Service, error) {
	id, err := u.repo.Create(ctx, Service{
		Name:     req.Name,
		Category: req.Category,
		Price:    shared.Round2(req.Price),
	})
	if err != nil {
		return Service{}, err
	}
	created, err := u.repo.Get(ctx, id)
	if err != nil {
		return Service{}, err
	}
	shared.RecordAudit(ctx, u.audit, u.log, shared.AuditEntryFromContext(ctx, "CREATE", "services", id, nil, map[string]any{
		"name": created.Name, "price": created.Price,
	}))
	return created, nil
}

func (u *UseCase) Get(ctx context.Context, id int64) (Service, error) {
	return u.repo.Get(ctx, id)
}

func (u *UseCase) List(ctx context.Context, req ListRequest) ([]Service, int, error) {
	return u.repo.List(ctx, req)
}

func (u *UseCase) Update(ctx context.Context, id int64, req UpdateRequest) (Service, error) {
	before, err := u.repo.Get(ctx, id)
	if err != nil {
		return Service{}, err
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Price != nil {
		updates["price"] = shared.Round2(*req.Price)
	}
	if err := u.repo.Update(ctx, id, updates); err != nil {
		return Service{}, err
	}
	after, err := u.repo.Get(ctx, id)
	if err != nil {
		return Service{}, err
	}
	shared.RecordAudit(ctx, u.audit, u.log, shared.AuditEntryFromContext(ctx, "UPDATE", "services", id,
		map[string]any{"name": before.Name, "price": before.Price},
		map[string]any{"name": after.Name, "price": after.Price},
	))
	return after, nil
}

// Delete soft-deletes a labor item. Packages that reference it become
// unavailable until the component is replaced.
func (u *UseCase) Delete(ctx context.Context, id int64) error {
	before, err := u.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := u.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	shared.RecordAudit(ctx, u.audit, u.log, shared.AuditEntryFromContext(ctx, "DELETE", "services", id,
		map[string]any{"name": before.Name, "price": before.Price}, nil))
	return nil
}
