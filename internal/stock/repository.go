package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garasipos/garasipos/internal/catalog/products"
	"github.com/garasipos/garasipos/internal/shared"
)

// TxRepository is the ledger's view of one open transaction. The transaction
// module builds one over its own pgx.Tx so a sale's stock movements share the
// sale's unit of work.
type TxRepository interface {
	// GetProductForUpdate locks the product row until the transaction ends.
	GetProductForUpdate(ctx context.Context, productID int64) (products.Product, error)
	UpdateProduct(ctx context.Context, productID int64, stock int, priceBuy float64) error
	InsertLog(ctx context.Context, m Movement) (int64, error)
	// ListOutByRef returns the OUT movements recorded for a reference, used to
	// build exact compensating reversals.
	ListOutByRef(ctx context.Context, refType RefType, refID int64) ([]Movement, error)
}

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a read-committed transaction with a ledger view bound
// to it. Read committed lets a request that waited on the FOR UPDATE lock see
// the winner's committed stock instead of aborting on a stale snapshot.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("stock: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("stock: commit tx: %w", err)
	}
	return nil
}

// NewTxRepository binds a ledger view to an externally owned transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

const logColumns = `id, product_id, type, qty, stock_before, stock_after, reference_type, reference_id, notes, actor_id, created_at`

// ListLogs returns a product's movement history, newest first.
func (r *Repository) ListLogs(ctx context.Context, req ListLogsRequest) ([]Movement, int, error) {
	where := []string{"product_id = $1"}
	args := []any{req.ProductID}
	argPos := 2
	if req.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", argPos))
		args = append(args, string(*req.Type))
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_logs WHERE `+strings.Join(where, " AND "), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM inventory_logs WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		logColumns, strings.Join(where, " AND "), argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (products.Product, error) {
	var p products.Product
	err := r.tx.QueryRow(ctx, `SELECT id, sku, name, category, price_buy, price_sell, stock, min_stock_alert, created_at, updated_at, deleted_at
FROM products WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.PriceBuy, &p.PriceSell, &p.Stock, &p.MinStockAlert, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return products.Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
		}
		return products.Product{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateProduct(ctx context.Context, productID int64, stock int, priceBuy float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock=$1, price_buy=$2, updated_at=NOW() WHERE id=$3 AND deleted_at IS NULL`,
		stock, priceBuy, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	return nil
}

func (r *txRepository) InsertLog(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_logs (product_id, type, qty, stock_before, stock_after, reference_type, reference_id, notes, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id`,
		m.ProductID, string(m.Type), m.Qty, m.StockBefore, m.StockAfter, nullString(string(m.RefType)), nullInt64(m.RefID), m.Notes, nullInt64(m.ActorID)).Scan(&id)
	return id, err
}

func (r *txRepository) ListOutByRef(ctx context.Context, refType RefType, refID int64) ([]Movement, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+logColumns+` FROM inventory_logs
WHERE type=$1 AND reference_type=$2 AND reference_id=$3 ORDER BY id ASC`,
		string(MovementOut), string(refType), refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, m)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row rowScanner) (Movement, error) {
	var m Movement
	var refType, notes *string
	var refID, actorID *int64
	err := row.Scan(&m.ID, &m.ProductID, &m.Type, &m.Qty, &m.StockBefore, &m.StockAfter, &refType, &refID, &notes, &actorID, &m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	if refType != nil {
		m.RefType = RefType(*refType)
	}
	if refID != nil {
		m.RefID = *refID
	}
	if notes != nil {
		m.Notes = *notes
	}
	if actorID != nil {
		m.ActorID = *actorID
	}
	return m, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
