// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/order/application"
	"dispatch/internal/service/order/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

const serviceName = "order-service"

// OrderHandler 封装了订单服务的 HTTP 处理器。
type OrderHandler struct {
	service *application.OrderService
}

func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/orders", h.createOrder)
	mux.HandleFunc("GET /api/v1/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/v1/orders/{id}/complete", h.completeOrder)
	mux.HandleFunc("GET /api/v1/stats/couriers", h.statsByCourier)
	mux.HandleFunc("GET /api/v1/stats/restaurants", h.statsByRestaurant)
}

// createOrder 是入口事务：预留库存、落台账、尝试派单。
func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "http.CreateOrder")
	defer span.End()

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("order.restaurant_id", req.RestaurantID))

	order, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")
		writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	writeJSON(w, http.StatusCreated, application.ToOrderResponse(order))
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	order, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

func (h *OrderHandler) completeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "http.CompleteOrder")
	defer span.End()

	order, err := h.service.CompleteOrder(ctx, r.PathValue("id"))
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

type statEntry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

func (h *OrderHandler) statsByCourier(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, h.service.OrdersByCourier)
}

func (h *OrderHandler) statsByRestaurant(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, h.service.OrdersByRestaurant)
}

func (h *OrderHandler) stats(w http.ResponseWriter, r *http.Request, query func(context.Context, time.Time) ([]domain.MonthlyCount, error)) {
	ctx := extract(r)
	month, err := parseMonth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	counts, err := query(ctx, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload := make([]statEntry, 0, len(counts))
	for _, c := range counts {
		payload = append(payload, statEntry{Key: c.Key, Count: c.Count})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"month": month.Format("2006-01"), "stats": payload})
}

// parseMonth 解析 ?month=YYYY-MM，缺省为当前月。
func parseMonth(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, errors.New("'month' must be in YYYY-MM format")
	}
	return month, nil
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
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrReservationFailed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
