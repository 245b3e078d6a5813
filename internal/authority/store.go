package authority

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
)

// Record is a single license record in the authority store.
type Record struct {
	LicenseKey             string    `yaml:"license_key"`
	MachineID              string    `yaml:"machine_id,omitempty"`
	ExpirationDate         time.Time `yaml:"expiration_date"`
	EnabledFeatures        []string  `yaml:"enabled_features"`
	LatestVersion          string    `yaml:"latest_version"`
	MinimumRequiredVersion string    `yaml:"minimum_required_version"`
}

// storeFile is the on-disk YAML shape of the license store.
type storeFile struct {
	Licenses []Record `yaml:"licenses"`
}

// Store holds license records keyed by license key, loaded from a YAML file.
// Reload replaces the full record set atomically under the write lock.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	records map[string]Record
}

// NewStore loads the license store from path.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.With(slog.String("component", "license_store")),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the store file, replacing all records.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read license store %s: %w", s.path, err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse license store %s: %w", s.path, err)
	}

	records := make(map[string]Record, len(file.Licenses))
	for _, rec := range file.Licenses {
		if rec.LicenseKey == "" {
			return fmt.Errorf("license store %s contains a record without a license key", s.path)
		}
		if _, dup := records[rec.LicenseKey]; dup {
			return fmt.Errorf("license store %s contains duplicate key %s", s.path, rec.LicenseKey)
		}
		records[rec.LicenseKey] = rec
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Info("license store loaded",
		slog.String("path", s.path),
		slog.Int("records", len(records)))

	return nil
}

// Lookup returns the record for the given license key.
func (s *Store) Lookup(licenseKey string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[licenseKey]
	return rec, ok
}

// Len returns the number of records currently loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
