package authority

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"time"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/security"
	"gateguard/pkg/contracts/domain"
)

// DefaultRevalidationInterval is how far ahead nextVerificationDate is set
// when no interval is configured.
const DefaultRevalidationInterval = 7 * 24 * time.Hour

// Signer validates license requests against the store and produces signed
// grants with the authority's private key.
type Signer struct {
	store      *Store
	privateKey *rsa.PrivateKey
	interval   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewSigner creates a signer. interval <= 0 falls back to the default
// seven-day revalidation interval.
func NewSigner(store *Store, privateKey *rsa.PrivateKey, interval time.Duration, logger *slog.Logger) *Signer {
	if interval <= 0 {
		interval = DefaultRevalidationInterval
	}
	return &Signer{
		store:      store,
		privateKey: privateKey,
		interval:   interval,
		logger:     logger.With(slog.String("component", "license_signer")),
		now:        time.Now,
	}
}

// ValidateAndSign looks up the license key, enforces the machine binding and
// returns a freshly signed grant. An unset binding on the record accepts any
// requesting machine; this operation never records a binding as a side
// effect. Returns ErrLicenseNotFound or ErrMachineMismatch on rejection.
func (s *Signer) ValidateAndSign(ctx context.Context, licenseKey, machineID string) (*domain.SignedGrant, error) {
	rec, ok := s.store.Lookup(licenseKey)
	if !ok {
		s.logger.WarnContext(ctx, "validation rejected: unknown license key",
			slog.String("machine_id", machineID))
		return nil, apperrors.ErrLicenseNotFound
	}

	if rec.MachineID != "" && rec.MachineID != machineID {
		s.logger.WarnContext(ctx, "validation rejected: machine binding mismatch",
			slog.String("license_key", licenseKey),
			slog.String("machine_id", machineID))
		return nil, apperrors.ErrMachineMismatch
	}

	grant := &domain.SignedGrant{
		LicenseKey:             rec.LicenseKey,
		ExpirationDate:         domain.FormatGrantTime(rec.ExpirationDate),
		EnabledFeatures:        append([]string(nil), rec.EnabledFeatures...),
		NextVerificationDate:   domain.FormatGrantTime(s.now().Add(s.interval)),
		LatestVersion:          rec.LatestVersion,
		MinimumRequiredVersion: rec.MinimumRequiredVersion,
	}

	signature, err := security.SignCanonical(s.privateKey, grant.CanonicalString())
	if err != nil {
		s.logger.ErrorContext(ctx, "grant signing failed",
			slog.String("license_key", licenseKey),
			slog.String("error", err.Error()))
		return nil, err
	}
	grant.Signature = signature

	s.logger.InfoContext(ctx, "grant issued",
		slog.String("license_key", licenseKey),
		slog.String("machine_id", machineID),
		slog.String("next_verification", grant.NextVerificationDate))

	return grant, nil
}
