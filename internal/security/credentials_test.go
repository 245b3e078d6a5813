package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyAdminToken(t *testing.T) {
	stored, err := HashAdminToken("gate-admin-secret")
	require.NoError(t, err)
	require.Contains(t, stored, ":")

	assert.True(t, VerifyAdminToken("gate-admin-secret", stored))
	assert.False(t, VerifyAdminToken("wrong-token", stored))
	assert.False(t, VerifyAdminToken("", stored))
}

func TestHashAdminTokenSaltsEachHash(t *testing.T) {
	first, err := HashAdminToken("same-token")
	require.NoError(t, err)
	second, err := HashAdminToken("same-token")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyAdminToken("same-token", first))
	assert.True(t, VerifyAdminToken("same-token", second))
}

func TestVerifyAdminTokenMalformedStored(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separator", "deadbeef"},
		{"salt not hex", "zz:deadbeef"},
		{"hash not hex", "deadbeef:zz"},
		{"only separator", ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyAdminToken("anything", tt.stored))
		})
	}
}

func TestHashAdminTokenFormat(t *testing.T) {
	stored, err := HashAdminToken("token")
	require.NoError(t, err)

	parts := strings.SplitN(stored, ":", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], scryptSaltLen*2)
	assert.Len(t, parts[1], scryptKeyLen*2)
}
