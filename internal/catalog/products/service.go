package products

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garasipos/garasipos/internal/shared"
)

// RepositoryPort abstracts product persistence for the service layer.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) (int64, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	List(ctx context.Context, req ListRequest) ([]Product, int, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	SoftDelete(ctx context.Context, id int64) error
}

// Invalidator drops cached product snapshots after a write.
type Invalidator interface {
	InvalidateProduct(ctx context.Context, id int64) error
}

// Service contains product master data use-cases.
type Service struct {
	repo  RepositoryPort
	audit shared.Recorder
	cache Invalidator
	log   *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit shared.Recorder, cache Invalidator, log *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, log: log}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Product, error) {
	if req.PriceSell < req.PriceBuy {
		s.log.Warn("product priced below cost", "sku", req.SKU, "price_buy", req.PriceBuy, "price_sell", req.PriceSell)
	}
	p := Product{
		SKU:           strings.ToUpper(strings.TrimSpace(req.SKU)),
		Name:          req.Name,
		Category:      req.Category,
		PriceBuy:      shared.Round2(req.PriceBuy),
		PriceSell:     shared.Round2(req.PriceSell),
		Stock:         0,
		MinStockAlert: req.MinStockAlert,
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "CREATE", "products", id, nil, map[string]any{
		"sku": created.SKU, "name": created.Name, "price_buy": created.PriceBuy, "price_sell": created.PriceSell,
	}))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return s.repo.GetBySKU(ctx, sku)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

// Update changes descriptive fields and the sell price. Stock and buy cost are
// owned by the stock ledger and cannot be set here.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Product, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.PriceSell != nil {
		updates["price_sell"] = shared.Round2(*req.PriceSell)
	}
	if req.MinStockAlert != nil {
		updates["min_stock_alert"] = *req.MinStockAlert
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return Product{}, err
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.log.Warn("product cache invalidation failed", "product_id", id, "error", err)
	}

	after, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "UPDATE", "products", id,
		map[string]any{"name": before.Name, "price_sell": before.PriceSell, "min_stock_alert": before.MinStockAlert},
		map[string]any{"name": after.Name, "price_sell": after.PriceSell, "min_stock_alert": after.MinStockAlert},
	))
	return after, nil
}

// Delete soft-deletes a product. Historical transaction items keep their
// snapshots, and existing package components referencing it make the package
// unavailable rather than broken.
func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if before.Stock > 0 {
		s.log.Info("deleting product with remaining stock", "product_id", id, "stock", before.Stock)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.log.Warn("product cache invalidation failed", "product_id", id, "error", err)
	}
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "DELETE", "products", id,
		map[string]any{"sku": before.SKU, "name": before.Name, "stock": before.Stock}, nil))
	return nil
}

// Describe returns a short human label used in log lines and alerts.
func Describe(p Product) string {
	return fmt.Sprintf("%s (%s)", p.Name, p.SKU)
}
