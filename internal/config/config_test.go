package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loaders at an empty config file location so a developer's
// local gateguard.yaml cannot leak into tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("GATEGUARD_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("GATEGUARD_AUTHORITY_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("GATEGUARD_LICENSE_KEY", "GATE-1234")
	t.Setenv("GATEGUARD_LICENSE_SERVER_URL", "https://license.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "GATE-1234", cfg.License.Key)
	assert.Equal(t, "https://license.example.com", cfg.License.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.License.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Update.RequestTimeout)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, float64(100), cfg.Security.RateLimit.RPS)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Relative paths resolve against the executable directory.
	assert.True(t, filepath.IsAbs(cfg.Paths.CacheFile))
	assert.True(t, filepath.IsAbs(cfg.Paths.StagingDir))
	assert.Equal(t, "license-grant.json", filepath.Base(cfg.Paths.CacheFile))
}

func TestLoadMissingRequiredFields(t *testing.T) {
	t.Run("missing license key", func(t *testing.T) {
		isolate(t)
		t.Setenv("GATEGUARD_LICENSE_SERVER_URL", "https://license.example.com")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing server url", func(t *testing.T) {
		isolate(t)
		t.Setenv("GATEGUARD_LICENSE_KEY", "GATE-1234")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)

	configPath := filepath.Join(t.TempDir(), "gateguard.yaml")
	content := `
license:
  key: GATE-FILE
  server_url: https://file.example.com
server:
  port: 9090
security:
  admin_token_hash: "aabb:ccdd"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	t.Setenv("GATEGUARD_CONFIG_FILE", configPath)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "GATE-FILE", cfg.License.Key)
	assert.Equal(t, "https://file.example.com", cfg.License.ServerURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "aabb:ccdd", cfg.Security.AdminTokenHash)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)

	configPath := filepath.Join(t.TempDir(), "gateguard.yaml")
	content := `
license:
  key: GATE-FILE
  server_url: https://file.example.com
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	t.Setenv("GATEGUARD_CONFIG_FILE", configPath)
	t.Setenv("GATEGUARD_LICENSE_KEY", "GATE-ENV")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "GATE-ENV", cfg.License.Key)
	assert.Equal(t, "https://file.example.com", cfg.License.ServerURL)
}

func TestLoadAuthority(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		isolate(t)

		cfg, err := LoadAuthority()
		require.NoError(t, err)

		assert.Equal(t, 8090, cfg.Server.Port)
		assert.Equal(t, "licenses.yaml", cfg.StoreFile)
		assert.Equal(t, "license.key", cfg.PrivateKeyFile)
		assert.Equal(t, 168*time.Hour, cfg.RevalidationInterval)
	})

	t.Run("env override", func(t *testing.T) {
		isolate(t)
		t.Setenv("GATEGUARD_AUTHORITY_STORE_FILE", "/etc/gateguard/licenses.yaml")
		t.Setenv("GATEGUARD_AUTHORITY_REVALIDATION_INTERVAL", "24h")

		cfg, err := LoadAuthority()
		require.NoError(t, err)

		assert.Equal(t, "/etc/gateguard/licenses.yaml", cfg.StoreFile)
		assert.Equal(t, 24*time.Hour, cfg.RevalidationInterval)
	})

	t.Run("file config", func(t *testing.T) {
		isolate(t)

		configPath := filepath.Join(t.TempDir(), "authority.yaml")
		content := `
store_file: custom-licenses.yaml
revalidation_interval: 72h
server:
  port: 9999
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
		t.Setenv("GATEGUARD_AUTHORITY_CONFIG_FILE", configPath)

		cfg, err := LoadAuthority()
		require.NoError(t, err)

		assert.Equal(t, "custom-licenses.yaml", cfg.StoreFile)
		assert.Equal(t, 72*time.Hour, cfg.RevalidationInterval)
		assert.Equal(t, 9999, cfg.Server.Port)
	})
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
	assert.False(t, FileExists(dir))
}
