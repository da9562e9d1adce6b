package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

const healthCheckTimeout = 3 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	Store          string  `json:"store"`
	UptimeSeconds  int64   `json:"uptimeSeconds"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	Error          string  `json:"error,omitempty"`
}

// HealthHandler reports process and store health.
type HealthHandler struct {
	backend string
	ping    func(ctx context.Context) error
	started time.Time
}

// NewHealthHandler creates a new HealthHandler. ping checks the store and may be nil.
func NewHealthHandler(backend string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{backend: backend, ping: ping, started: time.Now()}
}

// Get handles GET /health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:        "ok",
		Store:         h.backend,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemUsedPercent = vm.UsedPercent
	} else {
		log.Warn().Err(err).Msg("Failed to read memory stats")
	}

	code := http.StatusOK
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			log.Error().Err(err).Str("store", h.backend).Msg("Store health check failed")
			status.Status = "degraded"
			status.Error = "store unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, status)
}
