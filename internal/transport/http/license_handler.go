package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/infrastructure"
	"gateguard/internal/services"
)

// LicenseHandler exposes read-only license state on the deployed instance.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.GetStatus)
	return r
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.get_status",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/status"),
		),
	)
	defer span.End()

	status, err := h.service.Status(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "license status failed",
			slog.String("error", err.Error()),
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))
		render.Render(w, r, apperrors.LicenseProblem(err))
		return
	}

	render.JSON(w, r, status)
}
