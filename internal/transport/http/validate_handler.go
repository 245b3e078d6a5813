package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/authority"
)

// ValidateHandler serves the authority's validation endpoint.
type ValidateHandler struct {
	signer *authority.Signer
	logger *slog.Logger
}

// NewValidateHandler creates the authority validate handler.
func NewValidateHandler(signer *authority.Signer, logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{
		signer: signer,
		logger: logger.With(slog.String("handler", "validate")),
	}
}

// Routes returns the authority router.
func (h *ValidateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/validate", h.Validate)
	return r
}

// Validate handles GET /api/validate?licenseKey=<k>&machineId=<m>.
// Unknown keys and machine-binding mismatches both return 404 so callers
// cannot probe which case occurred.
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	licenseKey := r.URL.Query().Get("licenseKey")
	machineID := r.URL.Query().Get("machineId")
	if licenseKey == "" || machineID == "" {
		render.Render(w, r, apperrors.NewProblem(http.StatusNotFound,
			"/errors/license-invalid", "License Invalid",
			"The license key is not valid for this machine"))
		return
	}

	grant, err := h.signer.ValidateAndSign(ctx, licenseKey, machineID)
	if err != nil {
		if errors.Is(err, apperrors.ErrLicenseNotFound) || errors.Is(err, apperrors.ErrMachineMismatch) {
			render.Render(w, r, apperrors.LicenseProblem(err))
			return
		}
		h.logger.ErrorContext(ctx, "grant issuance failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.NewProblem(http.StatusInternalServerError,
			"/errors/internal-server-error", "Internal Server Error",
			"An unexpected error occurred"))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, grant)
}
