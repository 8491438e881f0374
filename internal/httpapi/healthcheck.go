package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"analogfinder/internal/utils"
)

const healthcheckTimeout = 2 * time.Second

// Pinger is the index store as seen by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionStatus reports the broker connection of the summary publisher.
type ConnectionStatus interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store  Pinger
	broker ConnectionStatus
}

// NewHealthchecker builds the /healthz handler. broker may be nil when MQTT
// is disabled; a disconnected broker is reported but does not fail the check.
func NewHealthchecker(store Pinger, broker ConnectionStatus) healthchecker {
	return &healthcheckerImpl{store: store, broker: broker}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthcheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	mqttStatus := "disabled"
	if h.broker != nil {
		mqttStatus = "disconnected"
		if h.broker.IsConnected() {
			mqttStatus = "connected"
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "mqtt": mqttStatus})
}

func registerHealthcheck(mux *http.ServeMux, store Pinger, broker ConnectionStatus) {
	healthchecker := NewHealthchecker(store, broker)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
