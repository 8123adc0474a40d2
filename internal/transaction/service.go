package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garasipos/garasipos/internal/catalog"
	"github.com/garasipos/garasipos/internal/observability"
	"github.com/garasipos/garasipos/internal/shared"
	"github.com/garasipos/garasipos/internal/stock"
)

// LineResolver prices requested lines. Satisfied by catalog.Resolver.
type LineResolver interface {
	ResolveLine(ctx context.Context, req catalog.LineRequest) (catalog.ResolvedLine, error)
}

// RepositoryPort abstracts invoice persistence for the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, req ListRequest) ([]Transaction, int, error)
	DailySummary(ctx context.Context, day time.Time) (DailySummary, error)
}

// Invalidator drops cached product snapshots after stock-affecting writes.
type Invalidator interface {
	InvalidateProduct(ctx context.Context, id int64) error
}

// Service implements the invoice use-cases: creation, payment reconciliation,
// cancellation, and read-side queries.
type Service struct {
	repo     RepositoryPort
	resolver LineResolver
	audit    shared.Recorder
	cache    Invalidator
	metrics  *observability.Metrics
	log      *slog.Logger
}

// NewService constructs Service. cache and metrics may be nil.
func NewService(repo RepositoryPort, resolver LineResolver, audit shared.Recorder, cache Invalidator, metrics *observability.Metrics, log *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, audit: audit, cache: cache, metrics: metrics, log: log}
}

// Create builds an invoice in one unit of work: resolve every line, compute
// totals, persist header and item snapshots, then issue an OUT movement per
// product-bearing component under row locks. Any failure rolls everything
// back; no partial invoice or partial stock decrement is ever observable.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Transaction, error) {
	actor, ok := shared.IdentityFromContext(ctx)
	if !ok {
		return Transaction{}, fmt.Errorf("%w: cashier identity is required", shared.ErrValidation)
	}
	if req.DiscountAmount < 0 {
		return Transaction{}, fmt.Errorf("%w: discount_amount must not be negative", shared.ErrInvalidDiscount)
	}
	if len(req.Items) == 0 {
		return Transaction{}, fmt.Errorf("%w: at least one item is required", shared.ErrValidation)
	}

	// Advisory pass: price all lines before opening the transaction. The
	// commit-time FOR UPDATE checks below remain authoritative for stock.
	lines := make([]catalog.ResolvedLine, 0, len(req.Items))
	for i, item := range req.Items {
		line, err := s.resolver.ResolveLine(ctx, item)
		if err != nil {
			return Transaction{}, fmt.Errorf("item %d: %w", i, err)
		}
		lines = append(lines, line)
	}

	var subtotal float64
	for _, line := range lines {
		subtotal += line.SellPrice * float64(line.Qty)
	}
	subtotal = shared.Round2(subtotal)
	// The discount is rounded before the total so the stored values satisfy
	// total_amount = subtotal - discount_amount exactly.
	discount := shared.Round2(req.DiscountAmount)
	total := shared.Round2(subtotal - discount)
	if total < 0 {
		total = 0
	}

	header := Transaction{
		InvoiceNumber:  newInvoiceNumber(),
		CustomerID:     req.CustomerID,
		VehicleID:      req.VehicleID,
		MechanicID:     req.MechanicID,
		UserID:         actor.UserID,
		Status:         DeriveStatus(total, 0),
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TotalAmount:    total,
		CurrentKM:      req.CurrentKM,
		Notes:          req.Notes,
	}

	var txID int64
	var touched []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		id, err := repo.InsertTransaction(ctx, header)
		if err != nil {
			return err
		}
		txID = id

		for _, line := range lines {
			item := Item{
				TransactionID:  id,
				ItemType:       line.Type,
				ItemID:         line.RefID,
				ItemName:       line.Name,
				Qty:            line.Qty,
				BasePrice:      line.BasePrice,
				DiscountAmount: line.DiscountAmount,
				SellPrice:      line.SellPrice,
				CostPrice:      line.CostPrice,
				VendorName:     line.VendorName,
			}
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return err
			}
		}

		ledger := repo.Ledger()
		for _, line := range lines {
			for _, comp := range line.Components {
				if _, err := stock.OutForTransaction(ctx, ledger, comp.ProductID, comp.Qty, id, actor.UserID); err != nil {
					return err
				}
				touched = append(touched, comp.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.metrics.CountTransaction()
	s.invalidateProducts(ctx, touched)
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "CREATE", "transactions", txID, nil, map[string]any{
		"invoice_number": header.InvoiceNumber,
		"total_amount":   header.TotalAmount,
		"status":         string(header.Status),
		"items":          len(lines),
	}))

	return s.repo.Get(ctx, txID)
}

// Get loads one invoice with items, payments, and summary.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoice headers matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Transaction, int, error) {
	return s.repo.List(ctx, req)
}

// DailySummary aggregates one calendar day of non-cancelled sales.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (DailySummary, error) {
	return s.repo.DailySummary(ctx, day)
}

// AddPayment records a payment event and recomputes invoice status from the
// new payment sum, both in the same unit of work. A REFUND is the only method
// that may (and must) carry a negative amount.
func (s *Service) AddPayment(ctx context.Context, transactionID int64, req PayRequest) (PayResult, error) {
	if req.Amount == 0 {
		return PayResult{}, fmt.Errorf("%w: amount must not be zero", shared.ErrValidation)
	}
	if (req.Amount < 0) != (req.Method == MethodRefund) {
		return PayResult{}, fmt.Errorf("%w: negative amounts require method REFUND and vice versa", shared.ErrValidation)
	}
	actor, _ := shared.IdentityFromContext(ctx)

	var result PayResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		t, err := repo.GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Status == StatusCancelled {
			return fmt.Errorf("%w: transaction %s is cancelled", shared.ErrInvalidState, t.InvoiceNumber)
		}

		payment := Payment{
			TransactionID:   t.ID,
			Amount:          shared.Round2(req.Amount),
			Method:          req.Method,
			ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
			ActorID:         actor.UserID,
		}
		payment.ID, err = repo.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}

		paid, err := repo.SumPayments(ctx, t.ID)
		if err != nil {
			return err
		}
		status := DeriveStatus(t.TotalAmount, paid)
		if status != t.Status {
			if err := repo.UpdateStatus(ctx, t.ID, status); err != nil {
				return err
			}
		}

		result = PayResult{
			Payment: payment,
			Status:  status,
			Summary: PaymentSummary{
				TotalAmount: t.TotalAmount,
				TotalPaid:   paid,
				Remaining:   shared.Round2(t.TotalAmount - paid),
			},
		}
		return nil
	})
	if err != nil {
		return PayResult{}, err
	}

	s.metrics.CountPayment(string(req.Method))
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "PAYMENT", "transactions", transactionID,
		nil,
		map[string]any{"amount": result.Payment.Amount, "method": string(req.Method), "status": string(result.Status)}))
	return result, nil
}

// Cancel voids an invoice and restores stock by replaying exact reversals of
// the OUT logs recorded at sale time. Terminal: no payments or un-cancel
// afterwards. The handler restricts this to ADMIN.
func (s *Service) Cancel(ctx context.Context, transactionID int64) (Transaction, error) {
	actor, _ := shared.IdentityFromContext(ctx)

	var oldStatus Status
	var touched []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		t, err := repo.GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Status == StatusCancelled {
			return fmt.Errorf("%w: transaction %s already cancelled", shared.ErrInvalidState, t.InvoiceNumber)
		}
		oldStatus = t.Status

		reversals, err := stock.CompensateTransaction(ctx, repo.Ledger(), t.ID, actor.UserID)
		if err != nil {
			return err
		}
		for _, m := range reversals {
			touched = append(touched, m.ProductID)
		}
		return repo.MarkCancelled(ctx, t.ID)
	})
	if err != nil {
		return Transaction{}, err
	}

	s.invalidateProducts(ctx, touched)
	shared.RecordAudit(ctx, s.audit, s.log, shared.AuditEntryFromContext(ctx, "UPDATE", "transactions", transactionID,
		map[string]any{"status": string(oldStatus)},
		map[string]any{"status": string(StatusCancelled)}))

	return s.repo.Get(ctx, transactionID)
}

func (s *Service) invalidateProducts(ctx context.Context, ids []int64) {
	if s.cache == nil {
		return
	}
	seen := map[int64]struct{}{}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := s.cache.InvalidateProduct(ctx, id); err != nil {
			s.log.Warn("product cache invalidation failed", "product_id", id, "error", err)
		}
	}
}

func newInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("INV-%s-%s", time.Now().Format("20060102"), suffix)
}
