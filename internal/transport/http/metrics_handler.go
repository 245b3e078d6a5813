package http

import (
	"net/http"

	"github.com/go-chi/render"

	apperrors "gateguard/internal/errors"
)

// MetricsHandler exposes the Prometheus metrics endpoint backed by the OTel
// prometheus exporter.
type MetricsHandler struct {
	prometheus http.Handler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(prometheus http.Handler) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus}
}

// ServeHTTP serves the Prometheus exposition format
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		render.Render(w, r, apperrors.ErrNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
