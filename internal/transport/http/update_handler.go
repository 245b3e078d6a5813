package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/infrastructure"
	"gateguard/internal/services"
	"gateguard/pkg/contracts/domain"
)

// UpdateHandler handles the update subsystem endpoints. Everything except the
// version probe requires administrative authorization, which is applied by
// the adminOnly middleware passed to Routes.
type UpdateHandler struct {
	service  services.UpdateService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(service services.UpdateService, logger *slog.Logger) *UpdateHandler {
	return &UpdateHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("handler", "update")),
	}
}

// Routes returns a chi router for update endpoints.
func (h *UpdateHandler) Routes(adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/version", h.GetVersion)

	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/check", h.Check)
		r.Get("/latest", h.Latest)
		r.Post("/install", h.Install)
		r.Post("/auto-update", h.AutoUpdate)
	})

	return r
}

// GetVersion handles GET /api/update/version. No authorization required.
func (h *UpdateHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, domain.VersionResponse{Version: h.service.Version()})
}

// Check handles GET /api/update/check.
func (h *UpdateHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("update-handler")

	ctx, span := tracer.Start(ctx, "update_handler.check",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/update/check"),
		),
	)
	defer span.End()

	resp, err := h.service.Check(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "update check failed",
			slog.String("error", err.Error()),
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))
		render.Render(w, r, apperrors.UpdateProblem(err))
		return
	}

	render.JSON(w, r, resp)
}

// Latest handles GET /api/update/latest. Returns 404 when the manifest is
// unavailable.
func (h *UpdateHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, err := h.service.Latest(ctx)
	if err != nil {
		render.Render(w, r, apperrors.UpdateProblem(err))
		return
	}

	render.JSON(w, r, entry)
}

// Install handles POST /api/update/install. Missing or blank required fields
// yield 400; install failures yield structured 5xx responses and never affect
// the running instance.
func (h *UpdateHandler) Install(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("update-handler")

	ctx, span := tracer.Start(ctx, "update_handler.install",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/update/install"),
		),
	)
	defer span.End()

	var req domain.UpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apperrors.ErrInvalidRequest.WithDetails(err.Error()))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Render(w, r, apperrors.ErrValidationFailed.WithDetails(err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "install requested",
		slog.String("version", req.Version),
		slog.Bool("force_restart", req.ForceRestart),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))

	if err := h.service.Install(ctx, req); err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "install failed",
			slog.String("version", req.Version),
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.UpdateProblem(err))
		return
	}

	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "Update installed",
		"version": req.Version,
	})
}

// AutoUpdate handles POST /api/update/auto-update. Responds 200 with a no-op
// message when the instance is already current.
func (h *UpdateHandler) AutoUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.AutoUpdate(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "auto-update failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.UpdateProblem(err))
		return
	}

	render.JSON(w, r, resp)
}
