package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gateguard/internal/errors"
	"gateguard/internal/license"
	"gateguard/internal/security"
	"gateguard/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLicenseServiceLifecycle(t *testing.T) {
	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(90 * 24 * time.Hour).Truncate(time.Second)
	nextCheck := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)

	grant := &domain.SignedGrant{
		LicenseKey:             "GATE-1234",
		ExpirationDate:         domain.FormatGrantTime(expiresAt),
		EnabledFeatures:        []string{"anpr"},
		NextVerificationDate:   domain.FormatGrantTime(nextCheck),
		LatestVersion:          "3.1.0",
		MinimumRequiredVersion: "2.8.0",
	}
	sig, err := security.SignCanonical(priv, grant.CanonicalString())
	require.NoError(t, err)
	grant.Signature = sig

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(grant)
	}))
	defer server.Close()

	client := license.NewClient(server.URL, 2*time.Second, testLogger())
	cache := license.NewCache(filepath.Join(t.TempDir(), "grant.json"), testLogger())
	verifier := license.NewVerifier(client, cache, pub, "GATE-1234", "machine-aaa", testLogger())
	svc := NewLicenseService(verifier, testLogger())

	t.Run("status before validation", func(t *testing.T) {
		assert.Nil(t, svc.Current())

		status, err := svc.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "not_validated", status.LicenseStatus)
		assert.Empty(t, status.LicenseKey)
	})

	t.Run("ensure valid sets current grant", func(t *testing.T) {
		got, err := svc.EnsureValid(context.Background())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Same(t, got, svc.Current())
	})

	t.Run("status after validation", func(t *testing.T) {
		status, err := svc.Status(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "active", status.LicenseStatus)
		assert.Equal(t, "GATE-1234", status.LicenseKey)
		assert.Equal(t, []string{"anpr"}, status.Features)
		assert.Equal(t, "live", status.Source)
		assert.True(t, status.ExpiresAt.Equal(expiresAt))
		assert.True(t, status.GraceUntil.Equal(nextCheck))
		assert.Greater(t, status.DaysLeft, 80)
	})
}

func TestLicenseServiceEnsureValidFailure(t *testing.T) {
	pub, _, err := security.GenerateKeyPair()
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := license.NewClient(server.URL, 2*time.Second, testLogger())
	cache := license.NewCache(filepath.Join(t.TempDir(), "grant.json"), testLogger())
	verifier := license.NewVerifier(client, cache, pub, "GATE-9999", "machine-aaa", testLogger())
	svc := NewLicenseService(verifier, testLogger())

	_, err = svc.EnsureValid(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoCachedGrant)

	// A failed cycle leaves no current grant behind.
	assert.Nil(t, svc.Current())
}
