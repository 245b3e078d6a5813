package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete configuration of a deployed instance.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	License  LicenseConfig  `yaml:"license" envconfig:"LICENSE"`
	Update   UpdateConfig   `yaml:"update" envconfig:"UPDATE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LicenseConfig identifies this instance to the license authority.
type LicenseConfig struct {
	Key            string        `yaml:"key" envconfig:"KEY"`
	ServerURL      string        `yaml:"server_url" envconfig:"SERVER_URL"`
	PublicKeyFile  string        `yaml:"public_key_file" envconfig:"PUBLIC_KEY_FILE" default:"license.pub"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// UpdateConfig points the update checker at its release channel manifest.
type UpdateConfig struct {
	ManifestURL    string        `yaml:"manifest_url" envconfig:"MANIFEST_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration. AdminTokenHash is
// the scrypt hash of the bearer token required by mutating update endpoints.
type SecurityConfig struct {
	AdminTokenHash string          `yaml:"admin_token_hash" envconfig:"ADMIN_TOKEN_HASH"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/gateguard.log"`
}

// Load loads configuration from environment variables and, when present, the
// gateguard.yaml config file. Environment variables take precedence.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("GATEGUARD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Paths.resolve(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.License.Key == "" {
		envConfig.License.Key = fileConfig.License.Key
	}
	if envConfig.License.ServerURL == "" {
		envConfig.License.ServerURL = fileConfig.License.ServerURL
	}
	if envConfig.Update.ManifestURL == "" {
		envConfig.Update.ManifestURL = fileConfig.Update.ManifestURL
	}
	if envConfig.Security.AdminTokenHash == "" {
		envConfig.Security.AdminTokenHash = fileConfig.Security.AdminTokenHash
	}
	if fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Paths.CacheFile != "" {
		envConfig.Paths.CacheFile = fileConfig.Paths.CacheFile
	}
	if fileConfig.Paths.StagingDir != "" {
		envConfig.Paths.StagingDir = fileConfig.Paths.StagingDir
	}
	return envConfig
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.License.Key == "" {
		return fmt.Errorf("license key is required (GATEGUARD_LICENSE_KEY)")
	}
	if c.License.ServerURL == "" {
		return fmt.Errorf("license server URL is required (GATEGUARD_LICENSE_SERVER_URL)")
	}
	if c.License.RequestTimeout <= 0 {
		return fmt.Errorf("license request timeout must be positive")
	}
	return nil
}

func getConfigFilePath() string {
	if path := os.Getenv("GATEGUARD_CONFIG_FILE"); path != "" {
		return path
	}
	return "gateguard.yaml"
}
