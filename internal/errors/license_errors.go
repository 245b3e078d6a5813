package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// License validation sentinel errors. The authority returns the first two;
// the deployed-instance verifier returns the rest. All cryptographic
// verification failures map to ErrSignatureInvalid and fail closed.
var (
	// Authority-side rejections. The HTTP layer collapses both to a single
	// 404 so callers cannot distinguish a bad key from a bad machine binding.
	ErrLicenseNotFound = errors.New("license not found")
	ErrMachineMismatch = errors.New("license bound to a different machine")

	// Verifier outcomes.
	ErrSignatureInvalid   = errors.New("grant signature verification failed")
	ErrLicenseExpired     = errors.New("license expired")
	ErrCachedGrantStale   = errors.New("cached grant past its verification window; connectivity to the license server is required")
	ErrNoCachedGrant      = errors.New("no cached grant available for offline validation")
	ErrNetworkUnreachable = errors.New("license server unreachable")
)

// Update subsystem sentinel errors.
var (
	ErrChecksumMismatch    = errors.New("downloaded artifact checksum mismatch")
	ErrInstallIOFailure    = errors.New("update installation failed")
	ErrInstallInProgress   = errors.New("another installation is already in progress")
	ErrManifestUnavailable = errors.New("update manifest unavailable")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	render.Status(r, pd.Status)
	return nil
}

// NewProblem creates a ProblemDetails with the standard fields populated.
func NewProblem(status int, problemType, title, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// LicenseProblem maps a license sentinel error to an RFC 7807 response.
// Unrecognized errors map to a generic 500.
func LicenseProblem(err error) *ProblemDetails {
	switch {
	case errors.Is(err, ErrLicenseNotFound), errors.Is(err, ErrMachineMismatch):
		// Deliberately identical on the wire.
		return NewProblem(http.StatusNotFound, "/errors/license-invalid",
			"License Invalid", "The license key is not valid for this machine")
	case errors.Is(err, ErrLicenseExpired):
		return NewProblem(http.StatusForbidden, "/errors/license-expired",
			"License Expired", "The license has expired and must be renewed")
	case errors.Is(err, ErrSignatureInvalid):
		return NewProblem(http.StatusForbidden, "/errors/license-tampered",
			"License Tampered", "License data failed cryptographic verification")
	case errors.Is(err, ErrCachedGrantStale):
		return NewProblem(http.StatusForbidden, "/errors/license-stale",
			"License Revalidation Required", "The cached license grant is past its verification window; restore connectivity to the license server")
	case errors.Is(err, ErrNoCachedGrant):
		return NewProblem(http.StatusForbidden, "/errors/license-missing",
			"License Missing", "No license grant is available on this machine")
	case errors.Is(err, ErrNetworkUnreachable):
		return NewProblem(http.StatusServiceUnavailable, "/errors/license-server-unreachable",
			"License Server Unreachable", "Unable to reach the license server")
	default:
		return NewProblem(http.StatusInternalServerError, "/errors/internal-server-error",
			"Internal Server Error", "An unexpected error occurred")
	}
}

// UpdateProblem maps an update subsystem error to an RFC 7807 response.
func UpdateProblem(err error) *ProblemDetails {
	switch {
	case errors.Is(err, ErrChecksumMismatch):
		return NewProblem(http.StatusInternalServerError, "/errors/update-checksum-mismatch",
			"Checksum Mismatch", "The downloaded artifact did not match the manifest checksum; installation aborted")
	case errors.Is(err, ErrInstallInProgress):
		return NewProblem(http.StatusConflict, "/errors/update-in-progress",
			"Installation In Progress", "Another installation attempt is already running")
	case errors.Is(err, ErrManifestUnavailable):
		return NewProblem(http.StatusNotFound, "/errors/update-manifest-unavailable",
			"Manifest Unavailable", "The update manifest could not be retrieved")
	case errors.Is(err, ErrInstallIOFailure):
		return NewProblem(http.StatusInternalServerError, "/errors/update-install-failed",
			"Installation Failed", "The update could not be installed; the previous installation is intact")
	default:
		return NewProblem(http.StatusInternalServerError, "/errors/internal-server-error",
			"Internal Server Error", "An unexpected error occurred")
	}
}
