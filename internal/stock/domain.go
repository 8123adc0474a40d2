// Package stock owns product stock counts and weighted-average buy cost. Every
// change goes through a movement that locks the product row, mutates it, and
// appends exactly one immutable inventory log entry in the same transaction.
package stock

import (
	"time"

	"github.com/garasipos/garasipos/internal/shared"
)

// MovementType classifies a stock movement. ADJUSTMENT is kept distinct from
// OUT at the type level so sales and profit queries can never include physical
// count corrections.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// RefType correlates a movement with its originating record.
type RefType string

const (
	RefTransaction       RefType = "TRANSACTION"
	RefTransactionCancel RefType = "TRANSACTION_CANCEL"
	RefPurchase          RefType = "PURCHASE"
	RefStockAudit        RefType = "STOCK_AUDIT"
)

// Movement is one immutable inventory log row. Qty is the signed delta;
// StockAfter = StockBefore + Qty always holds.
type Movement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	Type        MovementType `json:"type"`
	Qty         int          `json:"qty"`
	StockBefore int          `json:"stock_before"`
	StockAfter  int          `json:"stock_after"`
	RefType     RefType      `json:"reference_type,omitempty"`
	RefID       int64        `json:"reference_id,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	ActorID     int64        `json:"actor_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MovementInput describes one movement to apply. Qty is a positive magnitude
// for IN/OUT and a signed difference for ADJUSTMENT. BuyPrice, when set on an
// IN, triggers the moving-average cost recompute.
type MovementInput struct {
	ProductID int64
	Type      MovementType
	Qty       int
	BuyPrice  *float64
	RefType   RefType
	RefID     int64
	Notes     string
	ActorID   int64
}

// NextAverageCost recomputes the weighted-average unit cost after receiving
// qtyIn units at unitPrice. The result is rounded to 2 decimal places. When
// the resulting stock would be zero the previous cost is kept.
func NextAverageCost(stockBefore int, oldCost float64, qtyIn int, unitPrice float64) float64 {
	denom := stockBefore + qtyIn
	if denom == 0 {
		return oldCost
	}
	return shared.Round2((float64(stockBefore)*oldCost + float64(qtyIn)*unitPrice) / float64(denom))
}

type StockInRequest struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Qty       int      `json:"qty" validate:"required,gt=0"`
	BuyPrice  *float64 `json:"buy_price,omitempty" validate:"omitempty,gte=0"`
	Notes     string   `json:"notes" validate:"max=500"`
}

type AuditRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	ActualStock int    `json:"actual_stock" validate:"gte=0"`
	Reason      string `json:"reason" validate:"max=200"`
	Notes       string `json:"notes" validate:"max=500"`
}

// AuditResult reports one opname outcome. Movement is nil when the physical
// count matched system stock and no log was written.
type AuditResult struct {
	ProductID   int64     `json:"product_id"`
	SystemStock int       `json:"system_stock"`
	ActualStock int       `json:"actual_stock"`
	Difference  int       `json:"difference"`
	Movement    *Movement `json:"movement,omitempty"`
}

type BulkAuditRequest struct {
	Items []AuditRequest `json:"items" validate:"required,min=1,dive"`
}

// BulkAuditItemError is one failed item in a bulk opname.
type BulkAuditItemError struct {
	ProductID int64  `json:"product_id"`
	Error     string `json:"error"`
}

// BulkAuditResult accounts for a bulk opname. Each item ran in its own
// transaction, so failures never roll back earlier successes.
type BulkAuditResult struct {
	OpnameCode string               `json:"opname_code"`
	Succeeded  int                  `json:"succeeded"`
	Failed     int                  `json:"failed"`
	Results    []AuditResult        `json:"results"`
	Errors     []BulkAuditItemError `json:"errors,omitempty"`
}

type ListLogsRequest struct {
	ProductID int64
	Type      *MovementType
	Limit     int
	Offset    int
}
