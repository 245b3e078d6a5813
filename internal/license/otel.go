package license

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "gateguard/internal/errors"
)

const MeterName = "license-verifier"

// Metrics holds the verifier's OpenTelemetry instruments.
type Metrics struct {
	ValidationAttempts metric.Int64Counter
	ValidationSuccess  metric.Int64Counter
	ValidationFailures metric.Int64Counter
	ValidationDuration metric.Float64Histogram
}

// newMetrics registers the verifier instruments. Registration failures are
// logged and leave the corresponding instrument nil; recording handles that.
func newMetrics(logger *slog.Logger) *Metrics {
	meter := otel.Meter(MeterName)
	m := &Metrics{}
	var err error

	if m.ValidationAttempts, err = meter.Int64Counter("license_validation_attempts_total",
		metric.WithDescription("License validation attempts")); err != nil {
		logger.Warn("failed to register validation attempts counter", slog.String("error", err.Error()))
	}
	if m.ValidationSuccess, err = meter.Int64Counter("license_validation_success_total",
		metric.WithDescription("Successful license validations")); err != nil {
		logger.Warn("failed to register validation success counter", slog.String("error", err.Error()))
	}
	if m.ValidationFailures, err = meter.Int64Counter("license_validation_failures_total",
		metric.WithDescription("Failed license validations by outcome")); err != nil {
		logger.Warn("failed to register validation failures counter", slog.String("error", err.Error()))
	}
	if m.ValidationDuration, err = meter.Float64Histogram("license_validation_duration_seconds",
		metric.WithDescription("License validation duration")); err != nil {
		logger.Warn("failed to register validation duration histogram", slog.String("error", err.Error()))
	}

	return m
}

// record updates the instruments for one validation attempt.
func (m *Metrics) record(ctx context.Context, err error, elapsed time.Duration) {
	if m.ValidationAttempts != nil {
		m.ValidationAttempts.Add(ctx, 1)
	}
	if m.ValidationDuration != nil {
		m.ValidationDuration.Record(ctx, elapsed.Seconds())
	}
	if err == nil {
		if m.ValidationSuccess != nil {
			m.ValidationSuccess.Add(ctx, 1)
		}
		return
	}
	if m.ValidationFailures != nil {
		m.ValidationFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", failureOutcome(err))))
	}
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrSignatureInvalid):
		return "tampered"
	case errors.Is(err, apperrors.ErrLicenseExpired):
		return "expired"
	case errors.Is(err, apperrors.ErrCachedGrantStale):
		return "stale"
	case errors.Is(err, apperrors.ErrNoCachedGrant):
		return "no_cache"
	case errors.Is(err, apperrors.ErrLicenseNotFound), errors.Is(err, apperrors.ErrMachineMismatch):
		return "rejected"
	case errors.Is(err, apperrors.ErrNetworkUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}
