package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "gateguard/internal/errors"
	"gateguard/pkg/contracts/domain"
)

// CachedGrant is the durable copy of the last grant this instance verified.
// The embedded SignedGrant carries the exact canonical field strings from
// signing time, so reloading and re-verifying compares the same bytes the
// authority signed.
type CachedGrant struct {
	Grant    domain.SignedGrant `json:"grant"`
	CachedAt time.Time          `json:"cached_at"`
}

// Cache persists a single CachedGrant to disk. Exactly one grant is retained;
// each successful live validation overwrites the previous one.
type Cache struct {
	path   string
	logger *slog.Logger
}

// NewCache creates a cache backed by the given file path.
func NewCache(path string, logger *slog.Logger) *Cache {
	return &Cache{
		path:   path,
		logger: logger.With(slog.String("component", "license_cache")),
	}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Store atomically replaces the cache file with the given grant. The write
// goes to a temp file in the same directory followed by a rename, so a crash
// mid-write never leaves a half-written cache behind and concurrent writers
// cannot interleave bytes.
func (c *Cache) Store(ctx context.Context, grant *domain.SignedGrant) error {
	entry := CachedGrant{
		Grant:    *grant,
		CachedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cached grant: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".grant-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cached grant: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync cached grant: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set cache permissions: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.logger.InfoContext(ctx, "cached grant written",
		slog.String("path", c.path),
		slog.String("next_verification", grant.NextVerificationDate))

	return nil
}

// Load reads the cached grant. A missing file returns ErrNoCachedGrant; a
// file that cannot be parsed fails closed as ErrSignatureInvalid, since an
// unreadable cache is indistinguishable from a tampered one.
func (c *Cache) Load(ctx context.Context) (*CachedGrant, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNoCachedGrant
		}
		return nil, fmt.Errorf("failed to read cached grant: %w", err)
	}

	var entry CachedGrant
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.ErrorContext(ctx, "cached grant unparsable, treating as tampered",
			slog.String("path", c.path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: cache file unparsable", apperrors.ErrSignatureInvalid)
	}

	return &entry, nil
}

// Remove deletes the cache file if present.
func (c *Cache) Remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
