package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

// OrderCache is satisfied by redisx.OrderCache. It stores encoded
// orderSnapshot values, never rendered views.
type OrderCache interface {
	Get(ctx context.Context, orderID int64) ([]byte, bool)
	Set(ctx context.Context, orderID int64, snapshot []byte)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req orders.Requirements, traceID string) (orders.Order, error)
}

type OrdersHandler struct {
	Repo    orders.OrderRepository
	Service OrderPlacer
	Cache   OrderCache // optional
	Logger  *slog.Logger
}

type CreateOrderReq struct {
	Products []orders.Line `json:"products"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/", methodNotAllowed("GET, POST"))
		r.Delete("/", methodNotAllowed("GET, POST"))
		r.Get("/{id}", h.get)
		r.Put("/{id}", methodNotAllowed("GET"))
		r.Patch("/{id}", methodNotAllowed("GET"))
		r.Delete("/{id}", methodNotAllowed("GET"))
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, "products must not be empty")
		return
	}
	for _, l := range req.Products {
		if l.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Service.PlaceOrder(ctx, orders.NewRequirements(req.Products), middleware.GetReqID(r.Context()))
	if err != nil {
		switch orders.KindOf(err) {
		case orders.KindProductNotFound, orders.KindInsufficientStock:
			writeJSON(w, http.StatusBadRequest, err.Error())
		case orders.KindLockUnavailable:
			writeJSON(w, http.StatusConflict, err.Error())
		default:
			h.Logger.Error("failed to place order", "error", err, "order_id", order.ID)
			writeJSON(w, http.StatusInternalServerError, orders.ErrUnexpected.Error())
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	all, err := h.Repo.ListOrders(ctx)
	if err != nil {
		h.Logger.Error("failed to list orders", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]OrderView, 0, len(all))
	for _, o := range all {
		out = append(out, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.loadOrder(ctx, id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.Logger.Error("failed to get order", "error", err, "order_id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

// loadOrder reads the order through the snapshot cache. Products are always
// loaded fresh so the view and its discount follow catalog edits.
func (h *OrdersHandler) loadOrder(ctx context.Context, id int64) (orders.Order, error) {
	// 1) coba cache
	if h.Cache != nil {
		if b, ok := h.Cache.Get(ctx, id); ok {
			var snap orderSnapshot
			if err := json.Unmarshal(b, &snap); err == nil {
				return h.withProducts(ctx, snap.order())
			}
			h.Logger.Warn("dropping undecodable order snapshot", "order_id", id)
		}
	}

	// 2) fallback DB
	o, err := h.Repo.GetOrder(ctx, id)
	if err != nil {
		return orders.Order{}, err
	}
	// only terminal orders are stable enough to cache
	if h.Cache != nil && o.Status.Terminal() {
		if b, err := json.Marshal(newOrderSnapshot(o)); err == nil {
			h.Cache.Set(ctx, id, b)
		}
	}
	return o, nil
}

func (h *OrdersHandler) withProducts(ctx context.Context, o orders.Order) (orders.Order, error) {
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	ps, err := h.Repo.ItemProducts(ctx, ids)
	if err != nil {
		return orders.Order{}, err
	}
	byID := make(map[int64]orders.Product, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}
	for i, it := range o.Items {
		if p, ok := byID[it.ProductID]; ok {
			o.Items[i].Product = &p
		}
	}
	return o, nil
}
