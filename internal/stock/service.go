package stock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/garasipos/garasipos/internal/observability"
	"github.com/garasipos/garasipos/internal/shared"
)

// ApplyTx applies one movement against an open ledger transaction: lock the
// product row, guard the stock bounds, recompute cost on priced IN, mutate the
// product, append the log. Callers own commit/rollback.
func ApplyTx(ctx context.Context, repo TxRepository, in MovementInput) (Movement, error) {
	p, err := repo.GetProductForUpdate(ctx, in.ProductID)
	if err != nil {
		return Movement{}, err
	}

	before := p.Stock
	cost := p.PriceBuy
	var delta int

	switch in.Type {
	case MovementIn:
		if in.Qty <= 0 {
			return Movement{}, fmt.Errorf("%w: IN qty must be positive", shared.ErrValidation)
		}
		delta = in.Qty
		if in.BuyPrice != nil {
			cost = NextAverageCost(before, p.PriceBuy, in.Qty, *in.BuyPrice)
		}
	case MovementOut:
		if in.Qty <= 0 {
			return Movement{}, fmt.Errorf("%w: OUT qty must be positive", shared.ErrValidation)
		}
		if in.Qty > before {
			return Movement{}, fmt.Errorf("%w: %s has %d, requested %d", shared.ErrInsufficientStock, p.SKU, before, in.Qty)
		}
		delta = -in.Qty
	case MovementAdjustment:
		delta = in.Qty
		if before+delta < 0 {
			return Movement{}, fmt.Errorf("%w: adjustment would drive %s stock below zero", shared.ErrValidation, p.SKU)
		}
	default:
		return Movement{}, fmt.Errorf("%w: unknown movement type %q", shared.ErrValidation, in.Type)
	}

	after := before + delta
	if err := repo.UpdateProduct(ctx, p.ID, after, cost); err != nil {
		return Movement{}, err
	}

	m := Movement{
		ProductID:   p.ID,
		Type:        in.Type,
		Qty:         delta,
		StockBefore: before,
		StockAfter:  after,
		RefType:     in.RefType,
		RefID:       in.RefID,
		Notes:       in.Notes,
		ActorID:     in.ActorID,
	}
	m.ID, err = repo.InsertLog(ctx, m)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

// OutForTransaction issues a sale OUT movement inside the sale's own unit of
// work. The row lock taken here makes the commit-time stock check
// authoritative over any advisory resolution-time check.
func OutForTransaction(ctx context.Context, repo TxRepository, productID int64, qty int, transactionID, actorID int64) (Movement, error) {
	return ApplyTx(ctx, repo, MovementInput{
		ProductID: productID,
		Type:      MovementOut,
		Qty:       qty,
		RefType:   RefTransaction,
		RefID:     transactionID,
		ActorID:   actorID,
	})
}

// CompensateTransaction reverses a sale's stock impact. Quantities come from
// the OUT logs recorded for the transaction, not from its line items, so the
// reversal is exact even if the catalog changed since the sale. Cost basis is
// left untouched.
func CompensateTransaction(ctx context.Context, repo TxRepository, transactionID, actorID int64) ([]Movement, error) {
	outs, err := repo.ListOutByRef(ctx, RefTransaction, transactionID)
	if err != nil {
		return nil, err
	}
	reversals := make([]Movement, 0, len(outs))
	for _, out := range outs {
		m, err := ApplyTx(ctx, repo, MovementInput{
			ProductID: out.ProductID,
			Type:      MovementIn,
			Qty:       -out.Qty,
			RefType:   RefTransactionCancel,
			RefID:     transactionID,
			Notes:     fmt.Sprintf("reversal of log %d", out.ID),
			ActorID:   actorID,
		})
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, m)
	}
	return reversals, nil
}

// RepositoryPort abstracts the ledger persistence for the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error
	ListLogs(ctx context.Context, req ListLogsRequest) ([]Movement, int, error)
}

// Invalidator drops cached product snapshots after a stock change.
type Invalidator interface {
	InvalidateProduct(ctx context.Context, id int64) error
}

// Service contains the stock ledger use-cases behind the inventory endpoints.
type Service struct {
	repo    RepositoryPort
	audit   shared.Recorder
	cache   Invalidator
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewService constructs Service. cache and metrics may be nil.
func NewService(repo RepositoryPort, audit shared.Recorder, cache Invalidator, metrics *observability.Metrics, log *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, metrics: metrics, log: log}
}

// StockIn receives goods. A buy price triggers the moving-average cost
// recompute; without one the cost basis stays put.
func (s *Service) StockIn(ctx context.Context, req StockInRequest) (Movement, error) {
	actor, _ := shared.IdentityFromContext(ctx)
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		var err error
		movement, err = ApplyTx(ctx, repo, MovementInput{
			ProductID: req.ProductID,
			Type:      MovementIn,
			Qty:       req.Qty,
			BuyPrice:  req.BuyPrice,
			RefType:   RefPurchase,
			Notes:     req.Notes,
			ActorID:   actor.UserID,
		})
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.afterMovement(ctx, movement)
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "STOCK_IN", "inventory_logs", movement.ID,
		map[string]any{"stock": movement.StockBefore},
		map[string]any{"stock": movement.StockAfter, "qty": movement.Qty}))
	return movement, nil
}

// StockAudit reconciles system stock with a physical count. A matching count
// writes no movement at all.
func (s *Service) StockAudit(ctx context.Context, req AuditRequest) (AuditResult, error) {
	return s.stockAudit(ctx, req, "")
}

func (s *Service) stockAudit(ctx context.Context, req AuditRequest, opnameCode string) (AuditResult, error) {
	if req.ActualStock < 0 {
		return AuditResult{}, fmt.Errorf("%w: actual_stock must not be negative", shared.ErrValidation)
	}
	actor, _ := shared.IdentityFromContext(ctx)
	var result AuditResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		p, err := repo.GetProductForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		diff := req.ActualStock - p.Stock
		result = AuditResult{
			ProductID:   p.ID,
			SystemStock: p.Stock,
			ActualStock: req.ActualStock,
			Difference:  diff,
		}
		if diff == 0 {
			return nil
		}
		notes := req.Notes
		if req.Reason != "" {
			notes = fmt.Sprintf("%s: %s", req.Reason, req.Notes)
		}
		if opnameCode != "" {
			notes = fmt.Sprintf("opname %s %s", opnameCode, notes)
		}
		movement, err := ApplyTx(ctx, repo, MovementInput{
			ProductID: p.ID,
			Type:      MovementAdjustment,
			Qty:       diff,
			RefType:   RefStockAudit,
			Notes:     notes,
			ActorID:   actor.UserID,
		})
		if err != nil {
			return err
		}
		result.Movement = &movement
		return nil
	})
	if err != nil {
		return AuditResult{}, err
	}
	if result.Movement != nil {
		s.afterMovement(ctx, *result.Movement)
		shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "STOCK_AUDIT", "inventory_logs", result.Movement.ID,
			map[string]any{"stock": result.SystemStock},
			map[string]any{"stock": result.ActualStock, "reason": req.Reason}))
	}
	return result, nil
}

// BulkStockAudit applies a batch of opname items sequentially, each in its own
// transaction. Failures are collected per item; successes are never rolled
// back because of later failures.
func (s *Service) BulkStockAudit(ctx context.Context, req BulkAuditRequest) (BulkAuditResult, error) {
	result := BulkAuditResult{
		OpnameCode: uuid.NewString(),
		Results:    make([]AuditResult, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		r, err := s.stockAudit(ctx, item, result.OpnameCode)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkAuditItemError{ProductID: item.ProductID, Error: err.Error()})
			s.log.Warn("bulk stock audit item failed", "product_id", item.ProductID, "error", err)
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, r)
	}
	return result, nil
}

// Logs returns a product's movement history.
func (s *Service) Logs(ctx context.Context, req ListLogsRequest) ([]Movement, int, error) {
	if req.ProductID <= 0 {
		return nil, 0, fmt.Errorf("%w: product_id is required", shared.ErrValidation)
	}
	return s.repo.ListLogs(ctx, req)
}

func (s *Service) afterMovement(ctx context.Context, m Movement) {
	s.metrics.CountMovement(string(m.Type))
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, m.ProductID); err != nil {
		s.log.Warn("product cache invalidation failed", "product_id", m.ProductID, "error", err)
	}
}
