package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/healthchat/internal/model"
)

// StatusReporter reports the state of the storage backend.
type StatusReporter interface {
	Status(ctx context.Context) (*model.StoreStatus, error)
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string             `json:"status"`
	Storage *model.StoreStatus `json:"storage"`
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	store  StatusReporter
	logger *slog.Logger
}

func NewHealthHandler(store StatusReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HandleHealth answers 200 "ok" when storage is connected and 503 "degraded"
// otherwise, so load balancers can act on the status code alone.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.Status(r.Context())
	if err != nil {
		h.logger.Error("storage status check failed", slog.String("error", err.Error()))
		status = &model.StoreStatus{Connected: false, Message: "status check failed"}
	}

	if !status.Connected {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Storage: status})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Storage: status})
}
