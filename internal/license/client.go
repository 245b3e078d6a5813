package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apperrors "gateguard/internal/errors"
	"gateguard/pkg/contracts/domain"
)

// Client is the HTTP client for the license authority's validate endpoint.
// All requests are bounded by the configured timeout; a timeout is reported
// as ErrNetworkUnreachable, never as a validation failure.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an authority client with an explicit request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "license_client")),
	}
}

// Validate requests a signed grant for this instance. A 404 from the
// authority (unknown key or machine mismatch, indistinguishable by design)
// maps to ErrLicenseNotFound; transport failures map to
// ErrNetworkUnreachable.
func (c *Client) Validate(ctx context.Context, licenseKey, machineID string) (*domain.SignedGrant, error) {
	endpoint := fmt.Sprintf("%s/api/validate?licenseKey=%s&machineId=%s",
		c.baseURL, url.QueryEscape(licenseKey), url.QueryEscape(machineID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build validate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "license server unreachable",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var grant domain.SignedGrant
		if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
			// A response we cannot parse is not a grant. Fail closed.
			return nil, fmt.Errorf("%w: malformed grant response: %v", apperrors.ErrSignatureInvalid, err)
		}
		if grant.Signature == "" {
			return nil, fmt.Errorf("%w: unsigned grant response", apperrors.ErrSignatureInvalid)
		}
		return &grant, nil
	case http.StatusNotFound:
		return nil, apperrors.ErrLicenseNotFound
	default:
		c.logger.WarnContext(ctx, "unexpected license server response",
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: license server returned status %d",
			apperrors.ErrNetworkUnreachable, resp.StatusCode)
	}
}
