package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// AuthorityConfig configures the license authority process.
type AuthorityConfig struct {
	Server struct {
		Port            int           `yaml:"port" envconfig:"PORT" default:"8090"`
		ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	} `yaml:"server" envconfig:"SERVER"`

	// StoreFile is the YAML license record set, keyed by license key.
	StoreFile      string `yaml:"store_file" envconfig:"STORE_FILE" default:"licenses.yaml"`
	PrivateKeyFile string `yaml:"private_key_file" envconfig:"PRIVATE_KEY_FILE" default:"license.key"`

	// RevalidationInterval bounds how long issued grants remain acceptable
	// offline: nextVerificationDate = issuance time + this interval.
	RevalidationInterval time.Duration `yaml:"revalidation_interval" envconfig:"REVALIDATION_INTERVAL" default:"168h"`

	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// LoadAuthority loads the authority configuration from the environment and,
// when present, the authority.yaml config file.
func LoadAuthority() (*AuthorityConfig, error) {
	var cfg AuthorityConfig

	if err := envconfig.Process("GATEGUARD_AUTHORITY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load authority config from env: %w", err)
	}

	configFile := os.Getenv("GATEGUARD_AUTHORITY_CONFIG_FILE")
	if configFile == "" {
		configFile = "authority.yaml"
	}
	if data, err := os.ReadFile(configFile); err == nil {
		var fileCfg AuthorityConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
		if fileCfg.StoreFile != "" {
			cfg.StoreFile = fileCfg.StoreFile
		}
		if fileCfg.PrivateKeyFile != "" {
			cfg.PrivateKeyFile = fileCfg.PrivateKeyFile
		}
		if fileCfg.RevalidationInterval != 0 {
			cfg.RevalidationInterval = fileCfg.RevalidationInterval
		}
		if fileCfg.Server.Port != 0 {
			cfg.Server.Port = fileCfg.Server.Port
		}
	}

	if cfg.RevalidationInterval <= 0 {
		return nil, fmt.Errorf("revalidation interval must be positive")
	}
	if cfg.StoreFile == "" {
		return nil, fmt.Errorf("license store file is required")
	}
	if cfg.PrivateKeyFile == "" {
		return nil, fmt.Errorf("private key file is required")
	}

	return &cfg, nil
}
