package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/garasipos/garasipos/internal/platform/httpx"
	"github.com/garasipos/garasipos/internal/shared"
)

// Lister abstracts the trail query for the handler.
type Lister interface {
	List(ctx context.Context, req ListRequest) ([]Entry, int, error)
}

// Handler serves the audit trail. ADMIN-only: the trail exposes actor IPs and
// row snapshots.
type Handler struct {
	logger *slog.Logger
	repo   Lister
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo Lister) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(shared.RequireRole(shared.RoleAdmin)).Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("entity"); v != "" {
		req.Entity = &v
	}
	if v := q.Get("entity_id"); v != "" {
		req.EntityID = &v
	}
	if v := q.Get("action"); v != "" {
		req.Action = &v
	}
	if v := q.Get("actor_id"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			req.ActorID = &parsed
		}
	}
	if v := q.Get("date_from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			req.DateFrom = &parsed
		}
	}
	if v := q.Get("date_to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			end := parsed.Add(24 * time.Hour)
			req.DateTo = &end
		}
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	entries, total, err := h.repo.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list audit logs failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":   entries,
		"total":  total,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}
