package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/garasipos/garasipos/internal/catalog/packages"
	"github.com/garasipos/garasipos/internal/catalog/products"
	"github.com/garasipos/garasipos/internal/catalog/services"
	"github.com/garasipos/garasipos/internal/platform/httpx"
	"github.com/garasipos/garasipos/internal/shared"
)

// Handler serves catalog endpoints: product/service/package master data and
// the package availability check.
type Handler struct {
	logger   *slog.Logger
	products *products.Service
	services *services.UseCase
	packages *packages.Service
	resolver *Resolver
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(
	logger *slog.Logger,
	productSvc *products.Service,
	serviceUC *services.UseCase,
	packageSvc *packages.Service,
	resolver *Resolver,
	validate *validator.Validate,
) *Handler {
	return &Handler{
		logger:   logger,
		products: productSvc,
		services: serviceUC,
		packages: packageSvc,
		resolver: resolver,
		validate: validate,
	}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.With(shared.RequireRole(shared.RoleAdmin)).Delete("/{id}", h.deleteProduct)
	})
	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.listServices)
		r.Post("/", h.createService)
		r.Get("/{id}", h.getService)
		r.Put("/{id}", h.updateService)
		r.With(shared.RequireRole(shared.RoleAdmin)).Delete("/{id}", h.deleteService)
	})
	r.Route("/packages", func(r chi.Router) {
		r.Get("/", h.listPackages)
		r.Post("/", h.createPackage)
		r.Get("/{id}", h.getPackage)
		r.Get("/{id}/availability", h.packageAvailability)
		r.Put("/{id}", h.updatePackage)
		r.With(shared.RequireRole(shared.RoleAdmin)).Delete("/{id}", h.deletePackage)
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func listParams(r *http.Request) (search *string, limit, offset int) {
	if s := r.URL.Query().Get("search"); s != "" {
		search = &s
	}
	limit = 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return search, limit, offset
}

type listResponse struct {
	Data   any `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	search, limit, offset := listParams(r)
	req := products.ListRequest{Search: search, Limit: limit, Offset: offset}
	if c := r.URL.Query().Get("category"); c != "" {
		req.Category = &c
	}
	req.LowStock = r.URL.Query().Get("low_stock") == "true"

	items, total, err := h.products.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list products failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req products.CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.products.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create product failed", "error", err, "sku", req.SKU)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	var req products.UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.products.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update product failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete product failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	search, limit, offset := listParams(r)
	items, total, err := h.services.List(r.Context(), services.ListRequest{Search: search, Limit: limit, Offset: offset})
	if err != nil {
		h.logger.Error("list services failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	svc, err := h.services.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create service failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, svc)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "service id must be a positive integer")
		return
	}
	svc, err := h.services.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *Handler) updateService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "service id must be a positive integer")
		return
	}
	var req services.UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	svc, err := h.services.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update service failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "service id must be a positive integer")
		return
	}
	if err := h.services.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete service failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPackages(w http.ResponseWriter, r *http.Request) {
	search, limit, offset := listParams(r)
	req := packages.ListRequest{Search: search, Limit: limit, Offset: offset}
	req.ActiveOnly = r.URL.Query().Get("active_only") == "true"

	items, total, err := h.packages.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list packages failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) createPackage(w http.ResponseWriter, r *http.Request) {
	var req packages.CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pkg, err := h.packages.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create package failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pkg)
}

func (h *Handler) getPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "package id must be a positive integer")
		return
	}
	pkg, err := h.packages.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pkg)
}

// packageAvailability answers the advisory "can this be sold right now" check
// the UI shows before adding a package line. Commit-time checks stay
// authoritative.
func (h *Handler) packageAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "package id must be a positive integer")
		return
	}
	multiplier := 1
	if q := r.URL.Query().Get("qty"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			multiplier = parsed
		}
	}
	avail, err := h.resolver.CheckAvailability(r.Context(), id, multiplier)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, avail)
}

func (h *Handler) updatePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "package id must be a positive integer")
		return
	}
	var req packages.UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pkg, err := h.packages.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update package failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pkg)
}

func (h *Handler) deletePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "package id must be a positive integer")
		return
	}
	if err := h.packages.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete package failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
