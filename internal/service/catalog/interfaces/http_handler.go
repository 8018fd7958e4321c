// internal/service/catalog/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/catalog/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

const serviceName = "catalog-service"

// CatalogHandler 封装了目录/库存服务的 HTTP 处理器。
type CatalogHandler struct {
	repo domain.CatalogRepository
}

func NewCatalogHandler(repo domain.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/restaurants", h.listRestaurants)
	mux.HandleFunc("POST /api/v1/restaurants", h.createRestaurant)
	mux.HandleFunc("GET /api/v1/restaurants/{id}", h.getRestaurant)
	mux.HandleFunc("GET /api/v1/restaurants/{id}/menu", h.getMenu)
	mux.HandleFunc("POST /api/v1/restaurants/{id}/menu", h.createMenuItem)
	mux.HandleFunc("POST /api/v1/restaurants/{id}/menu/{item}/reserve", h.reserveItem)
	mux.HandleFunc("POST /api/v1/restaurants/{id}/menu/{item}/release", h.releaseItem)
}

type restaurantPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

type menuItemPayload struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurantId"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
}

func toItemPayload(item *domain.MenuItem) menuItemPayload {
	return menuItemPayload{
		ID:           item.ID,
		RestaurantID: item.RestaurantID,
		Name:         item.Name,
		Price:        item.Price,
		Stock:        item.Stock,
	}
}

func (h *CatalogHandler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	out, err := h.repo.ListRestaurants(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload := make([]restaurantPayload, 0, len(out))
	for _, rest := range out {
		payload = append(payload, restaurantPayload{
			ID: rest.ID, Name: rest.Name, Address: rest.Address,
			Description: rest.Description, Rating: rest.Rating,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"restaurants": payload})
}

func (h *CatalogHandler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var payload restaurantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" || payload.Name == "" {
		http.Error(w, "'id' and 'name' are required", http.StatusBadRequest)
		return
	}
	rest := &domain.Restaurant{
		ID: payload.ID, Name: payload.Name, Address: payload.Address,
		Description: payload.Description, Rating: payload.Rating,
	}
	if err := h.repo.CreateRestaurant(ctx, rest); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (h *CatalogHandler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	rest, err := h.repo.GetRestaurant(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurantPayload{
		ID: rest.ID, Name: rest.Name, Address: rest.Address,
		Description: rest.Description, Rating: rest.Rating,
	})
}

func (h *CatalogHandler) getMenu(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	items, err := h.repo.GetMenu(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload := make([]menuItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, toItemPayload(item))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"menu": payload})
}

func (h *CatalogHandler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var payload menuItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" || payload.Name == "" {
		http.Error(w, "'id' and 'name' are required", http.StatusBadRequest)
		return
	}
	item := &domain.MenuItem{
		ID:           payload.ID,
		RestaurantID: r.PathValue("id"),
		Name:         payload.Name,
		Price:        payload.Price,
		Stock:        payload.Stock,
	}
	if err := h.repo.CreateMenuItem(ctx, item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemPayload(item))
}

// reserveItem 处理库存预留。这是目录服务唯一的强一致写路径。
func (h *CatalogHandler) reserveItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "catalog.Reserve")
	defer span.End()

	quantity, err := parseQuantity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	restID, itemID := r.PathValue("id"), r.PathValue("item")
	span.SetAttributes(
		attribute.String("item.id", itemID),
		attribute.Int("item.quantity", quantity),
	)

	item, err := h.repo.Reserve(ctx, restID, itemID, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reservation failed")
		writeError(w, r, err)
		return
	}
	span.AddEvent("stock reserved")
	writeJSON(w, http.StatusOK, toItemPayload(item))
}

func (h *CatalogHandler) releaseItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "catalog.Release")
	defer span.End()

	quantity, err := parseQuantity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.repo.Release(ctx, r.PathValue("id"), r.PathValue("item"), quantity)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemPayload(item))
}

func parseQuantity(r *http.Request) (int, error) {
	q := r.URL.Query().Get("quantity")
	if q == "" {
		return 1, nil
	}
	quantity, err := strconv.Atoi(q)
	if err != nil || quantity <= 0 {
		return 0, errors.New("'quantity' must be a positive integer")
	}
	return quantity, nil
}

func extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRestaurantNotFound), errors.Is(err, domain.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrOutOfStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
