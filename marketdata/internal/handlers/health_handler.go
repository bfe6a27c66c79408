package handlers

import (
	"net/http"

	"github.com/quoteline-systems/quoteline-stack/common/httputil"
	"github.com/quoteline-systems/quoteline-stack/common/messaging"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
)

type HealthHandler struct {
	service  string
	provider string
	bus      messaging.Client
}

// NewHealthHandler reports on the provider and, when configured, the
// message bus. bus may be nil.
func NewHealthHandler(serviceName, providerName string, bus messaging.Client) *HealthHandler {
	return &HealthHandler{service: serviceName, provider: providerName, bus: bus}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:   "healthy",
		Service:  h.service,
		Provider: h.provider,
	}

	health := messaging.CheckClientHealth(h.bus)
	switch {
	case !health.Enabled:
	case health.Connected:
		resp.Messaging = "connected"
	default:
		resp.Messaging = "disconnected"
		resp.Status = "degraded"
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
