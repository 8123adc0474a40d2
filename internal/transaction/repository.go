package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garasipos/garasipos/internal/shared"
	"github.com/garasipos/garasipos/internal/stock"
)

// TxRepository is the invoice's view of one open transaction. Ledger exposes
// the stock ledger bound to the same pgx.Tx so header, items, and stock
// movements commit or roll back together.
type TxRepository interface {
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	// GetForUpdate locks the invoice header until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (Transaction, error)
	SumPayments(ctx context.Context, transactionID int64) (float64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	MarkCancelled(ctx context.Context, id int64) error
	Ledger() stock.TxRepository
}

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a read-committed transaction. The FOR UPDATE row locks
// do the serializing; a stricter isolation level would abort lock waiters with
// serialization failures once the winner commits.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("transaction: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("transaction: commit tx: %w", err)
	}
	return nil
}

const headerColumns = `id, invoice_number, customer_id, vehicle_id, mechanic_id, user_id, status, subtotal, discount_amount, total_amount, current_km, notes, created_at, updated_at, cancelled_at`

// Get loads an invoice with items, payments, and the payment summary.
func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM transactions WHERE id=$1 AND deleted_at IS NULL`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return Transaction{}, err
	}

	itemRows, err := r.pool.Query(ctx, `SELECT id, transaction_id, item_type, item_id, item_name, qty, base_price, discount_amount, sell_price, cost_price, vendor_name
FROM transaction_items WHERE transaction_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer itemRows.Close()

	t.Items = []Item{}
	for itemRows.Next() {
		var item Item
		var itemID *int64
		var vendor *string
		if err := itemRows.Scan(&item.ID, &item.TransactionID, &item.ItemType, &itemID, &item.ItemName, &item.Qty,
			&item.BasePrice, &item.DiscountAmount, &item.SellPrice, &item.CostPrice, &vendor); err != nil {
			return Transaction{}, err
		}
		if itemID != nil {
			item.ItemID = *itemID
		}
		if vendor != nil {
			item.VendorName = *vendor
		}
		t.Items = append(t.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return Transaction{}, err
	}

	payRows, err := r.pool.Query(ctx, `SELECT id, transaction_id, amount, payment_method, reference_number, actor_id, paid_at
FROM payments WHERE transaction_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer payRows.Close()

	t.Payments = []Payment{}
	var totalPaid float64
	for payRows.Next() {
		var p Payment
		var ref *string
		var actorID *int64
		if err := payRows.Scan(&p.ID, &p.TransactionID, &p.Amount, &p.Method, &ref, &actorID, &p.PaidAt); err != nil {
			return Transaction{}, err
		}
		if ref != nil {
			p.ReferenceNumber = *ref
		}
		if actorID != nil {
			p.ActorID = *actorID
		}
		totalPaid += p.Amount
		t.Payments = append(t.Payments, p)
	}
	if err := payRows.Err(); err != nil {
		return Transaction{}, err
	}

	totalPaid = shared.Round2(totalPaid)
	t.Summary = &PaymentSummary{
		TotalAmount: t.TotalAmount,
		TotalPaid:   totalPaid,
		Remaining:   shared.Round2(t.TotalAmount - totalPaid),
	}
	return t, nil
}

// List returns invoice headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Transaction, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	argPos := 1
	if req.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.DateFrom != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		where = append(where, fmt.Sprintf("created_at < $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+strings.Join(where, " AND "), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, strings.Join(where, " AND "), argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// DailySummary aggregates one calendar day from invoice items. CANCELLED
// invoices are filtered out; inventory adjustments never feed these figures.
func (r *Repository) DailySummary(ctx context.Context, day time.Time) (DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var count int
	var revenue float64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
FROM transactions WHERE deleted_at IS NULL AND status <> $1 AND created_at >= $2 AND created_at < $3`,
		string(StatusCancelled), start, end).Scan(&count, &revenue)
	if err != nil {
		return DailySummary{}, err
	}

	var cost float64
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(ti.cost_price * ti.qty), 0)
FROM transaction_items ti
JOIN transactions t ON t.id = ti.transaction_id
WHERE t.deleted_at IS NULL AND t.status <> $1 AND t.created_at >= $2 AND t.created_at < $3`,
		string(StatusCancelled), start, end).Scan(&cost)
	if err != nil {
		return DailySummary{}, err
	}

	revenue = shared.Round2(revenue)
	cost = shared.Round2(cost)
	return DailySummary{
		Date:             start.Format("2006-01-02"),
		TransactionCount: count,
		Revenue:          revenue,
		Cost:             cost,
		Profit:           shared.Round2(revenue - cost),
	}, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Ledger() stock.TxRepository {
	return stock.NewTxRepository(r.tx)
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (invoice_number, customer_id, vehicle_id, mechanic_id, user_id, status, subtotal, discount_amount, total_amount, current_km, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW()) RETURNING id`,
		t.InvoiceNumber, t.CustomerID, t.VehicleID, t.MechanicID, t.UserID, string(t.Status),
		t.Subtotal, t.DiscountAmount, t.TotalAmount, t.CurrentKM, t.Notes).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	var itemID any
	if item.ItemID != 0 {
		itemID = item.ItemID
	}
	var vendor any
	if item.VendorName != "" {
		vendor = item.VendorName
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO transaction_items (transaction_id, item_type, item_id, item_name, qty, base_price, discount_amount, sell_price, cost_price, vendor_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		item.TransactionID, string(item.ItemType), itemID, item.ItemName, item.Qty,
		item.BasePrice, item.DiscountAmount, item.SellPrice, item.CostPrice, vendor).Scan(&id)
	return id, err
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	var ref any
	if p.ReferenceNumber != "" {
		ref = p.ReferenceNumber
	}
	var actor any
	if p.ActorID != 0 {
		actor = p.ActorID
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (transaction_id, amount, payment_method, reference_number, actor_id, paid_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`,
		p.TransactionID, p.Amount, string(p.Method), ref, actor).Scan(&id)
	return id, err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+headerColumns+` FROM transactions WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`, id)
	return scanTransaction(row)
}

func (r *txRepository) SumPayments(ctx context.Context, transactionID int64) (float64, error) {
	var sum float64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE transaction_id=$1`, transactionID).Scan(&sum)
	return shared.Round2(sum), err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transactions SET status=$1, updated_at=NOW() WHERE id=$2 AND deleted_at IS NULL`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *txRepository) MarkCancelled(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transactions SET status=$1, cancelled_at=NOW(), updated_at=NOW() WHERE id=$2 AND deleted_at IS NULL`,
		string(StatusCancelled), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var notes *string
	err := row.Scan(&t.ID, &t.InvoiceNumber, &t.CustomerID, &t.VehicleID, &t.MechanicID, &t.UserID, &t.Status,
		&t.Subtotal, &t.DiscountAmount, &t.TotalAmount, &t.CurrentKM, &notes, &t.CreatedAt, &t.UpdatedAt, &t.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrNotFound
		}
		return Transaction{}, err
	}
	if notes != nil {
		t.Notes = *notes
	}
	return t, nil
}
