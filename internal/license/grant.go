package license

import (
	"time"

	"gateguard/pkg/contracts/domain"
)

// Source records which validation path produced a grant.
type Source string

const (
	// SourceLive means the grant came from a successful authority round trip.
	SourceLive Source = "live"
	// SourceCache means the grant was accepted from the offline cache within
	// its grace window.
	SourceCache Source = "cache"
)

// Grant is the validated-license handle produced once at startup and injected
// into whatever needs to query feature flags. It is immutable; a revalidation
// cycle produces a new handle rather than mutating this one.
type Grant struct {
	signed     domain.SignedGrant
	features   map[string]struct{}
	expiresAt  time.Time
	nextCheck  time.Time
	source     Source
	verifiedAt time.Time
}

func newGrant(signed domain.SignedGrant, expiresAt, nextCheck time.Time, source Source) *Grant {
	features := make(map[string]struct{}, len(signed.EnabledFeatures))
	for _, f := range signed.EnabledFeatures {
		features[f] = struct{}{}
	}
	return &Grant{
		signed:     signed,
		features:   features,
		expiresAt:  expiresAt,
		nextCheck:  nextCheck,
		source:     source,
		verifiedAt: time.Now().UTC(),
	}
}

// LicenseKey returns the key the grant was issued for.
func (g *Grant) LicenseKey() string { return g.signed.LicenseKey }

// HasFeature reports whether the grant enables the given feature token.
func (g *Grant) HasFeature(token string) bool {
	_, ok := g.features[token]
	return ok
}

// EnabledFeatures returns a copy of the enabled feature tokens.
func (g *Grant) EnabledFeatures() []string {
	return append([]string(nil), g.signed.EnabledFeatures...)
}

// ExpiresAt returns the license expiration time.
func (g *Grant) ExpiresAt() time.Time { return g.expiresAt }

// NextVerificationAt returns the end of the offline grace window.
func (g *Grant) NextVerificationAt() time.Time { return g.nextCheck }

// LatestVersion returns the newest version the authority knows about.
func (g *Grant) LatestVersion() string { return g.signed.LatestVersion }

// MinimumRequiredVersion returns the oldest version allowed to run under this
// license. The bootstrap compares it against the build version and refuses to
// serve until the instance updates.
func (g *Grant) MinimumRequiredVersion() string { return g.signed.MinimumRequiredVersion }

// Source reports whether validation used the live path or the cache.
func (g *Grant) Source() Source { return g.source }

// VerifiedAt returns when this handle was produced.
func (g *Grant) VerifiedAt() time.Time { return g.verifiedAt }
