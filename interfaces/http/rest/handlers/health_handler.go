package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/application/services"
	"nodal/pkg/common"
)

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	workspaces *services.WorkspaceService
	checks     map[string]ports.HealthChecker
	logger     *zap.Logger
}

// NewHealthHandler creates a health handler. checks maps a dependency name
// to its probe.
func NewHealthHandler(workspaces *services.WorkspaceService, checks map[string]ports.HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{workspaces: workspaces, checks: checks, logger: logger}
}

// ReadinessReport is the body of /ready
type ReadinessReport struct {
	Status       string                     `json:"status"`
	Persistence  services.PersistenceHealth `json:"persistence"`
	Dependencies map[string]string          `json:"dependencies,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready. It fails when a dependency does not answer or
// when background saves keep failing.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	report := ReadinessReport{
		Status:       "ready",
		Persistence:  h.workspaces.Health(),
		Dependencies: make(map[string]string, len(h.checks)),
	}
	if !report.Persistence.Healthy {
		report.Status = "degraded"
	}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			report.Dependencies[name] = err.Error()
			report.Status = "unavailable"
			continue
		}
		report.Dependencies[name] = "ok"
	}

	status := http.StatusOK
	if report.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	common.RespondJSON(w, status, report)
}
