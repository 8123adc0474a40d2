package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns audit entries matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Entry, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argPos := 1

	addFilter := func(clause string, value any) {
		where = append(where, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}
	if req.Entity != nil {
		addFilter("entity = $%d", *req.Entity)
	}
	if req.EntityID != nil {
		addFilter("entity_id = $%d", *req.EntityID)
	}
	if req.ActorID != nil {
		addFilter("actor_id = $%d", *req.ActorID)
	}
	if req.Action != nil {
		addFilter("action = $%d", *req.Action)
	}
	if req.DateFrom != nil {
		addFilter("occurred_at >= $%d", *req.DateFrom)
	}
	if req.DateTo != nil {
		addFilter("occurred_at < $%d", *req.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE `+strings.Join(where, " AND "), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, actor_id, action, entity, entity_id, old_values, new_values, ip, user_agent, occurred_at
FROM audit_logs WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`, strings.Join(where, " AND "), argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var ip, ua *string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.OldValues, &e.NewValues, &ip, &ua, &e.At); err != nil {
			return nil, 0, err
		}
		if ip != nil {
			e.IP = *ip
		}
		if ua != nil {
			e.UserAgent = *ua
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
