package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/security"
	"gateguard/pkg/contracts/domain"
)

func newTestSigner(t *testing.T, interval time.Duration) (*Signer, *Store) {
	t.Helper()

	path := writeStoreFile(t, validStoreYAML)
	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	_, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	return NewSigner(store, priv, interval, testLogger()), store
}

func TestValidateAndSignUnknownKey(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)

	grant, err := signer.ValidateAndSign(context.Background(), "GATE-9999", "machine-aaa")
	assert.Nil(t, grant)
	assert.ErrorIs(t, err, apperrors.ErrLicenseNotFound)
}

func TestValidateAndSignMachineBinding(t *testing.T) {
	signer, _ := newTestSigner(t, time.Hour)

	t.Run("bound record rejects other machine", func(t *testing.T) {
		grant, err := signer.ValidateAndSign(context.Background(), "GATE-1001", "machine-bbb")
		assert.Nil(t, grant)
		assert.ErrorIs(t, err, apperrors.ErrMachineMismatch)
	})

	t.Run("bound record accepts its machine", func(t *testing.T) {
		grant, err := signer.ValidateAndSign(context.Background(), "GATE-1001", "machine-aaa")
		require.NoError(t, err)
		assert.Equal(t, "GATE-1001", grant.LicenseKey)
	})

	t.Run("unbound record accepts any machine", func(t *testing.T) {
		for _, machine := range []string{"machine-aaa", "machine-zzz", "anything"} {
			grant, err := signer.ValidateAndSign(context.Background(), "GATE-1002", machine)
			require.NoError(t, err)
			assert.Equal(t, "GATE-1002", grant.LicenseKey)
		}
	})
}

func TestValidateAndSignGrantFields(t *testing.T) {
	signer, store := newTestSigner(t, 48*time.Hour)

	issuedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issuedAt }

	grant, err := signer.ValidateAndSign(context.Background(), "GATE-1001", "machine-aaa")
	require.NoError(t, err)

	rec, _ := store.Lookup("GATE-1001")
	assert.Equal(t, domain.FormatGrantTime(rec.ExpirationDate), grant.ExpirationDate)
	assert.Equal(t, rec.EnabledFeatures, grant.EnabledFeatures)
	assert.Equal(t, rec.LatestVersion, grant.LatestVersion)
	assert.Equal(t, rec.MinimumRequiredVersion, grant.MinimumRequiredVersion)
	assert.Equal(t, "2026-09-01T12:00:00Z", grant.NextVerificationDate)
	assert.NotEmpty(t, grant.Signature)
}

func TestValidateAndSignSignatureVerifies(t *testing.T) {
	path := writeStoreFile(t, validStoreYAML)
	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	signer := NewSigner(store, priv, time.Hour, testLogger())

	grant, err := signer.ValidateAndSign(context.Background(), "GATE-1002", "machine-any")
	require.NoError(t, err)

	assert.NoError(t, security.VerifyCanonical(pub, grant.CanonicalString(), grant.Signature))

	// Mutating any signed field invalidates the signature.
	tampered := *grant
	tampered.EnabledFeatures = append(tampered.EnabledFeatures, "intercom")
	assert.Error(t, security.VerifyCanonical(pub, tampered.CanonicalString(), tampered.Signature))
}

func TestNewSignerDefaultInterval(t *testing.T) {
	signer, _ := newTestSigner(t, 0)
	assert.Equal(t, DefaultRevalidationInterval, signer.interval)
}
