package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

type ProductsHandler struct {
	Repo   orders.ProductRepository
	Logger *slog.Logger
}

// prices are stored as NUMERIC(10,2)
var maxPrice = decimal.New(1, 8)

type ProductReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func (req ProductReq) validate() string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case len(req.Name) > 255:
		return "name must be at most 255 characters"
	case req.Price.IsNegative():
		return "price must be greater than or equal to 0"
	case !req.Price.Equal(req.Price.Truncate(2)):
		return "price must have at most 2 decimal places"
	case req.Price.GreaterThanOrEqual(maxPrice):
		return "price must be less than 100000000"
	case req.Stock < 0:
		return "stock must be greater than or equal to 0"
	}
	return ""
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.ListProducts(ctx)
	if err != nil {
		h.Logger.Error("failed to list products", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		h.fail(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.CreateProduct(ctx, orders.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		h.Logger.Error("failed to create product", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.Logger.Info("product created", "product_id", p.ID)
	writeJSON(w, http.StatusCreated, toProductView(p))
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.UpdateProduct(ctx, orders.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		h.fail(w, err, id)
		return
	}
	h.Logger.Info("product updated", "product_id", p.ID)
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// soft delete; hard delete is never exposed over HTTP
	if err := h.Repo.DeleteProduct(ctx, id); err != nil {
		h.fail(w, err, id)
		return
	}
	h.Logger.Info("product trashed", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductsHandler) fail(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.Logger.Error("product request failed", "error", err, "product_id", id)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (ProductReq, bool) {
	var req ProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return req, false
	}
	return req, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}
