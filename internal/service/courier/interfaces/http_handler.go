// internal/service/courier/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/courier/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

const serviceName = "courier-service"

// CourierHandler 封装了骑手池服务的 HTTP 处理器。
type CourierHandler struct {
	repo domain.CourierRepository
}

func NewCourierHandler(repo domain.CourierRepository) *CourierHandler {
	return &CourierHandler{repo: repo}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *CourierHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/couriers", h.listCouriers)
	mux.HandleFunc("POST /api/v1/couriers", h.createCourier)
	mux.HandleFunc("GET /api/v1/couriers/{id}", h.getCourier)
	mux.HandleFunc("POST /api/v1/couriers/assign-next", h.assignNext)
	mux.HandleFunc("POST /api/v1/couriers/{id}/assign", h.assign)
	mux.HandleFunc("POST /api/v1/couriers/{id}/free", h.free)
}

type courierPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status,omitempty"`
}

func toPayload(c *domain.Courier) courierPayload {
	return courierPayload{ID: c.ID, Name: c.Name, Phone: c.Phone, Status: string(c.Status)}
}

func (h *CourierHandler) listCouriers(w http.ResponseWriter, r *http.Request) {
	out, err := h.repo.List(extract(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload := make([]courierPayload, 0, len(out))
	for _, c := range out {
		payload = append(payload, toPayload(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"couriers": payload})
}

func (h *CourierHandler) createCourier(w http.ResponseWriter, r *http.Request) {
	var payload courierPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" || payload.Name == "" {
		http.Error(w, "'id' and 'name' are required", http.StatusBadRequest)
		return
	}
	c := &domain.Courier{ID: payload.ID, Name: payload.Name, Phone: payload.Phone, Status: domain.StatusAvailable}
	if err := h.repo.Create(extract(r), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayload(c))
}

func (h *CourierHandler) getCourier(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Get(extract(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(c))
}

// assignNext 返回 200 + 骑手快照，或在没有可用骑手时返回 204。
// “没人可派”是业务上的正常情况，不用错误状态码表达。
func (h *CourierHandler) assignNext(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "courier.AssignNext")
	defer span.End()

	c, err := h.repo.AssignNext(ctx)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	if c == nil {
		span.AddEvent("no courier available")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	span.SetAttributes(attribute.String("courier.id", c.ID))
	writeJSON(w, http.StatusOK, toPayload(c))
}

func (h *CourierHandler) assign(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "courier.Assign")
	defer span.End()

	c, err := h.repo.Assign(ctx, r.PathValue("id"))
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(c))
}

func (h *CourierHandler) free(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(extract(r), "courier.Free")
	defer span.End()

	c, err := h.repo.Free(ctx, r.PathValue("id"))
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(c))
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
	case errors.Is(err, domain.ErrCourierNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrCourierBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
