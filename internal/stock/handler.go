package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/garasipos/garasipos/internal/platform/httpx"
)

// Handler serves the inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/in", h.stockIn)
	r.Post("/stock-audit", h.stockAudit)
	r.Post("/stock-audit/bulk", h.bulkStockAudit)
	r.Get("/logs", h.listLogs)
}

func (h *Handler) stockIn(w http.ResponseWriter, r *http.Request) {
	var req StockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	movement, err := h.service.StockIn(r.Context(), req)
	if err != nil {
		h.logger.Error("stock in failed", "error", err, "product_id", req.ProductID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) stockAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.StockAudit(r.Context(), req)
	if err != nil {
		h.logger.Error("stock audit failed", "error", err, "product_id", req.ProductID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) bulkStockAudit(w http.ResponseWriter, r *http.Request) {
	var req BulkAuditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.BulkStockAudit(r.Context(), req)
	if err != nil {
		h.logger.Error("bulk stock audit failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if result.Failed > 0 && result.Succeeded == 0 {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "product_id must be a positive integer")
		return
	}
	req := ListLogsRequest{ProductID: productID, Limit: 50}
	if t := r.URL.Query().Get("type"); t != "" {
		mt := MovementType(t)
		req.Type = &mt
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	logs, total, err := h.service.Logs(r.Context(), req)
	if err != nil {
		h.logger.Error("list inventory logs failed", "error", err, "product_id", productID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":   logs,
		"total":  total,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}
