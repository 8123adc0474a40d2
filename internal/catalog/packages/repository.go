package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garasipos/garasipos/internal/platform/db"
	"github.com/garasipos/garasipos/internal/shared"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const packageColumns = `id, name, description, price, is_active, created_at, updated_at, deleted_at`

// Create inserts the package header and its items atomically.
func (r *Repository) Create(ctx context.Context, p Package) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO packages (name, description, price, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW()) RETURNING id`, p.Name, p.Description, p.Price, p.IsActive).Scan(&id); err != nil {
			return err
		}
		for _, item := range p.Items {
			if _, err := tx.Exec(ctx, `INSERT INTO package_items (package_id, product_id, service_id, qty)
VALUES ($1,$2,$3,$4)`, id, item.ProductID, item.ServiceID, item.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a non-deleted package with its items loaded.
func (r *Repository) Get(ctx context.Context, id int64) (Package, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id=$1 AND deleted_at IS NULL`, id)
	p, err := scanPackage(row)
	if err != nil {
		return Package{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, package_id, product_id, service_id, qty FROM package_items WHERE package_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Package{}, err
	}
	defer rows.Close()

	p.Items = []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.PackageID, &item.ProductID, &item.ServiceID, &item.Qty); err != nil {
			return Package{}, err
		}
		p.Items = append(p.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Package{}, err
	}
	return p, nil
}

// List returns package headers without items.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Package, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	argPos := 1
	if req.Search != nil && *req.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}
	if req.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM packages WHERE `+strings.Join(where, " AND "), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM packages WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		packageColumns, strings.Join(where, " AND "), argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	var setClauses []string
	var args []any
	argPos := 1
	for field, value := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argPos))
		args = append(args, value)
		argPos++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now())
	argPos++
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE packages SET %s WHERE id = $%d AND deleted_at IS NULL`, strings.Join(setClauses, ", "), argPos), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: package %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE packages SET deleted_at=NOW(), is_active=FALSE, updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: package %d", shared.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Package{}, shared.ErrNotFound
		}
		return Package{}, err
	}
	return p, nil
}
