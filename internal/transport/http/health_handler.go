package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gateguard/internal/infrastructure"
	"gateguard/internal/services"
	"gateguard/pkg/contracts"
)

// HealthHandler serves liveness and readiness probes. Readiness reports the
// license gate: the instance is not ready until a grant has been validated.
type HealthHandler struct {
	license services.LicenseService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(license services.LicenseService) *HealthHandler {
	return &HealthHandler{license: license}
}

// Routes returns a chi router for health endpoints
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetHealth)
	r.Get("/ready", h.GetReadiness)
	return r
}

// GetHealth returns basic liveness along with build identification
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	info := contracts.GetVersionInfo()
	render.JSON(w, r, map[string]any{
		"status":     "ok",
		"version":    info.Version,
		"build_time": info.BuildTime,
		"git_commit": info.GitCommit,
		"go_version": info.GoVersion,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// GetReadiness returns readiness, gated on license validation
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	grant := h.license.Current()
	if grant == nil {
		infrastructure.LoggerWithContext(r.Context()).Warn("readiness probe failed, no validated license grant")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]any{
			"status": "not_ready",
			"reason": "license not validated",
		})
		return
	}

	render.JSON(w, r, map[string]any{
		"status":         "ready",
		"license_source": string(grant.Source()),
		"expires_at":     grant.ExpiresAt().Format(time.RFC3339),
	})
}
