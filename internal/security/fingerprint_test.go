package security

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFingerprint(t *testing.T) {
	fm := NewFingerprintManager()

	fp, err := fm.Generate()
	require.NoError(t, err)
	require.NotNil(t, fp)

	// SHA-256 hex digest.
	assert.Len(t, fp.Fingerprint, 64)
	assert.NotEmpty(t, fp.Hostname)
	assert.Equal(t, strings.ToLower(fp.Hostname), fp.Hostname)
	assert.Equal(t, runtime.GOOS, fp.OS)
	assert.Contains(t, fp.Platform, runtime.GOARCH)
	assert.False(t, fp.GeneratedAt.IsZero())
}

func TestFingerprintIsStable(t *testing.T) {
	fm := NewFingerprintManager()

	first, err := fm.MachineID()
	require.NoError(t, err)
	second, err := fm.MachineID()
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// A fresh manager on the same host computes the same identity.
	other, err := NewFingerprintManager().MachineID()
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestFingerprintCacheReturnsCopy(t *testing.T) {
	fm := NewFingerprintManager()

	first, err := fm.Generate()
	require.NoError(t, err)
	second, err := fm.Generate()
	require.NoError(t, err)

	require.NotSame(t, first, second)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestGetHostname(t *testing.T) {
	fm := NewFingerprintManager()

	hostname, err := fm.GetHostname()
	require.NoError(t, err)
	assert.NotEmpty(t, hostname)
	assert.Equal(t, strings.TrimSpace(hostname), hostname)
}
