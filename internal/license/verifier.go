package license

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/security"
	"gateguard/pkg/contracts/domain"
)

// Verifier resolves a valid license grant for this instance. It holds only
// the authority's public key and can therefore verify grants but never
// produce them.
type Verifier struct {
	client     *Client
	cache      *Cache
	publicKey  *rsa.PublicKey
	licenseKey string
	machineID  string
	logger     *slog.Logger
	metrics    *Metrics
	group      singleflight.Group
	now        func() time.Time
}

// NewVerifier creates a verifier for the given license key and machine
// identity.
func NewVerifier(client *Client, cache *Cache, publicKey *rsa.PublicKey, licenseKey, machineID string, logger *slog.Logger) *Verifier {
	return &Verifier{
		client:     client,
		cache:      cache,
		publicKey:  publicKey,
		licenseKey: licenseKey,
		machineID:  machineID,
		logger:     logger.With(slog.String("component", "license_verifier")),
		metrics:    newMetrics(logger),
		now:        time.Now,
	}
}

// EnsureValid produces a validated grant or fails with one of the license
// sentinel errors. Concurrent callers share a single validation round trip;
// the last successful cache write wins.
func (v *Verifier) EnsureValid(ctx context.Context) (*Grant, error) {
	res, err, _ := v.group.Do("validate", func() (interface{}, error) {
		return v.ensureValid(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Grant), nil
}

func (v *Verifier) ensureValid(ctx context.Context) (*Grant, error) {
	start := v.now()
	grant, err := v.validate(ctx)
	v.metrics.record(ctx, err, v.now().Sub(start))
	return grant, err
}

func (v *Verifier) validate(ctx context.Context) (*Grant, error) {
	signed, liveErr := v.client.Validate(ctx, v.licenseKey, v.machineID)
	if liveErr == nil {
		return v.acceptLive(ctx, signed)
	}

	// A tampered live response is fatal; it must not silently degrade to the
	// cache, or an attacker able to corrupt responses could force permanent
	// cache operation.
	if errors.Is(liveErr, apperrors.ErrSignatureInvalid) {
		return nil, liveErr
	}

	v.logger.WarnContext(ctx, "live validation unavailable, falling back to cached grant",
		slog.String("reason", liveErr.Error()))
	return v.acceptCached(ctx)
}

// acceptLive verifies a grant freshly issued by the authority and persists it.
func (v *Verifier) acceptLive(ctx context.Context, signed *domain.SignedGrant) (*Grant, error) {
	if err := security.VerifyCanonical(v.publicKey, signed.CanonicalString(), signed.Signature); err != nil {
		v.logger.ErrorContext(ctx, "live grant failed signature verification",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSignatureInvalid, err)
	}

	expiresAt, err := signed.ExpiresAt()
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable expiration date", apperrors.ErrSignatureInvalid)
	}
	nextCheck, err := signed.NextVerificationAt()
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable next verification date", apperrors.ErrSignatureInvalid)
	}

	if !expiresAt.After(v.now()) {
		v.logger.ErrorContext(ctx, "license expired",
			slog.String("expired_at", signed.ExpirationDate))
		return nil, apperrors.ErrLicenseExpired
	}

	if err := v.cache.Store(ctx, signed); err != nil {
		// The live grant is valid; a cache write failure degrades the next
		// offline startup but must not block this one.
		v.logger.WarnContext(ctx, "failed to persist grant cache",
			slog.String("error", err.Error()))
	}

	v.logger.InfoContext(ctx, "license validated via authority",
		slog.String("license_key", signed.LicenseKey),
		slog.String("expires_at", signed.ExpirationDate),
		slog.String("next_verification", signed.NextVerificationDate))

	return newGrant(*signed, expiresAt, nextCheck, SourceLive), nil
}

// acceptCached re-verifies the cached grant entirely from its stored bytes.
func (v *Verifier) acceptCached(ctx context.Context) (*Grant, error) {
	entry, err := v.cache.Load(ctx)
	if err != nil {
		return nil, err
	}
	signed := entry.Grant

	if err := security.VerifyCanonical(v.publicKey, signed.CanonicalString(), signed.Signature); err != nil {
		v.logger.ErrorContext(ctx, "cached grant failed signature verification, treating as tampered",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSignatureInvalid, err)
	}

	expiresAt, err := signed.ExpiresAt()
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable expiration date in cache", apperrors.ErrSignatureInvalid)
	}
	nextCheck, err := signed.NextVerificationAt()
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable next verification date in cache", apperrors.ErrSignatureInvalid)
	}

	now := v.now()
	if !expiresAt.After(now) {
		return nil, apperrors.ErrLicenseExpired
	}
	if now.After(nextCheck) {
		v.logger.ErrorContext(ctx, "cached grant past its verification window",
			slog.String("next_verification", signed.NextVerificationDate),
			slog.Time("now", now))
		return nil, apperrors.ErrCachedGrantStale
	}

	v.logger.InfoContext(ctx, "license validated from cache",
		slog.String("license_key", signed.LicenseKey),
		slog.Time("cached_at", entry.CachedAt),
		slog.String("grace_until", signed.NextVerificationDate))

	return newGrant(signed, expiresAt, nextCheck, SourceCache), nil
}
