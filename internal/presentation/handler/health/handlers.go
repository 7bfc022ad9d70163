package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hilthontt/cipherroom/internal/infrastructure/json"
)

const checkTimeout = 2 * time.Second

// Check probes one dependency; a nil error means ready.
type Check func(ctx context.Context) error

type Handler struct {
	startTime time.Time
	checks    map[string]Check
}

func NewHandler(checks map[string]Check) *Handler {
	return &Handler{
		startTime: time.Now(),
		checks:    checks,
	}
}

// GetHealth godoc
// @Summary      Liveness check
// @Description  Returns the liveness of the service with its uptime and the current timestamp
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is alive"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, h.response("ok", nil))
}

// GetReady godoc
// @Summary      Readiness check
// @Description  Probes the message store and broker; any failing dependency makes the service unready
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is ready"
// @Failure      503 {object} healthResponse "A dependency is unavailable"
// @Router       /ready [get]
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		json.Write(w, http.StatusServiceUnavailable, h.response("unhealthy", failures))
		return
	}

	json.Write(w, http.StatusOK, h.response("ok", nil))
}

func (h *Handler) response(status string, failures map[string]string) healthResponse {
	return healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Failures:  failures,
	}
}
