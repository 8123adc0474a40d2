// Package transaction owns the invoice: header, immutable item snapshots,
// payments, and the status machine driven by the running payment sum.
package transaction

import (
	"time"

	"github.com/garasipos/garasipos/internal/catalog"
)

// Status of an invoice. PENDING collapses into UNPAID at creation; CANCELLED
// is terminal.
type Status string

const (
	StatusUnpaid    Status = "UNPAID"
	StatusPartial   Status = "PARTIAL"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// PaymentMethod enumerates accepted tender. REFUND is the only method allowed
// to carry a negative amount, and the only way to reduce a balance.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodQRIS     PaymentMethod = "QRIS"
	MethodDebit    PaymentMethod = "DEBIT"
	MethodRefund   PaymentMethod = "REFUND"
)

// Transaction is one invoice. Totals are fixed at creation; only status moves
// afterwards.
type Transaction struct {
	ID             int64      `json:"id"`
	InvoiceNumber  string     `json:"invoice_number"`
	CustomerID     *int64     `json:"customer_id,omitempty"`
	VehicleID      *int64     `json:"vehicle_id,omitempty"`
	MechanicID     *int64     `json:"mechanic_id,omitempty"`
	UserID         int64      `json:"user_id"`
	Status         Status     `json:"status"`
	Subtotal       float64    `json:"subtotal"`
	DiscountAmount float64    `json:"discount_amount"`
	TotalAmount    float64    `json:"total_amount"`
	CurrentKM      *int       `json:"current_km,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`

	Items    []Item          `json:"items,omitempty"`
	Payments []Payment       `json:"payments,omitempty"`
	Summary  *PaymentSummary `json:"payment_summary,omitempty"`
}

// Item is a point-in-time snapshot of one sold line, never a live join back to
// the catalog. ItemID is a loose reference resolved by ItemType; EXTERNAL
// items reference nothing.
type Item struct {
	ID             int64            `json:"id"`
	TransactionID  int64            `json:"transaction_id"`
	ItemType       catalog.LineType `json:"item_type"`
	ItemID         int64            `json:"item_id,omitempty"`
	ItemName       string           `json:"item_name"`
	Qty            int              `json:"qty"`
	BasePrice      float64          `json:"base_price"`
	DiscountAmount float64          `json:"discount_amount"`
	SellPrice      float64          `json:"sell_price"`
	CostPrice      float64          `json:"cost_price"`
	VendorName     string           `json:"vendor_name,omitempty"`
}

// Payment is one payment event. Amount is signed; negative encodes a refund.
type Payment struct {
	ID              int64         `json:"id"`
	TransactionID   int64         `json:"transaction_id"`
	Amount          float64       `json:"amount"`
	Method          PaymentMethod `json:"payment_method"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	ActorID         int64         `json:"actor_id,omitempty"`
	PaidAt          time.Time     `json:"paid_at"`
}

// PaymentSummary is the client-facing reconciliation view. Remaining may be
// negative when overpaid; it is surfaced, not clamped.
type PaymentSummary struct {
	TotalAmount float64 `json:"total_amount"`
	TotalPaid   float64 `json:"total_paid"`
	Remaining   float64 `json:"remaining"`
}

// DeriveStatus recomputes invoice status from the running payment sum. Refunds
// carry negative amounts, so the sum can fall back below the total and lower
// the status again.
func DeriveStatus(totalAmount, totalPaid float64) Status {
	switch {
	case totalPaid >= totalAmount:
		return StatusPaid
	case totalPaid > 0:
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

type CreateRequest struct {
	CustomerID     *int64                `json:"customer_id,omitempty"`
	VehicleID      *int64                `json:"vehicle_id,omitempty"`
	MechanicID     *int64                `json:"mechanic_id,omitempty"`
	CurrentKM      *int                  `json:"current_km,omitempty" validate:"omitempty,gte=0"`
	DiscountAmount float64               `json:"discount_amount" validate:"gte=0"`
	Notes          string                `json:"notes" validate:"max=1000"`
	Items          []catalog.LineRequest `json:"items" validate:"required,min=1,dive"`
}

type PayRequest struct {
	Amount          float64       `json:"amount" validate:"required"`
	Method          PaymentMethod `json:"payment_method" validate:"required,oneof=CASH TRANSFER QRIS DEBIT REFUND"`
	ReferenceNumber string        `json:"reference_number" validate:"max=100"`
}

// PayResult is returned from the payment endpoint.
type PayResult struct {
	Payment Payment        `json:"payment"`
	Status  Status         `json:"status"`
	Summary PaymentSummary `json:"summary"`
}

type ListRequest struct {
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// DailySummary aggregates one day of sales. CANCELLED invoices are excluded
// and stock ADJUSTMENT corrections can never appear here because the figures
// come from invoice items, not inventory logs.
type DailySummary struct {
	Date             string  `json:"date"`
	TransactionCount int     `json:"transaction_count"`
	Revenue          float64 `json:"revenue"`
	Cost             float64 `json:"cost"`
	Profit           float64 `json:"profit"`
}
