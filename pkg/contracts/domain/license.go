// Package domain contains the core domain models shared between the license
// authority, deployed instances and the HTTP transport layer. These types are
// the single source of truth for the wire shapes.
package domain

import (
	"strings"
	"time"
)

// GrantTimeFormat is the textual form of every date that participates in a
// grant signature. Dates are normalized to UTC before formatting; the
// formatted string itself is signed and must be carried verbatim, never
// re-derived from a parsed timestamp.
const GrantTimeFormat = time.RFC3339

// FormatGrantTime renders t in the canonical signed form.
func FormatGrantTime(t time.Time) string {
	return t.UTC().Format(GrantTimeFormat)
}

// ParseGrantTime parses a canonical grant timestamp.
func ParseGrantTime(s string) (time.Time, error) {
	return time.Parse(GrantTimeFormat, s)
}

// SignedGrant is the wire artifact produced by the license authority and
// consumed by deployed instances. Date fields are canonical strings in
// GrantTimeFormat: the signature covers these exact bytes, so the struct
// carries them as strings end to end.
type SignedGrant struct {
	LicenseKey             string   `json:"licenseKey"`
	ExpirationDate         string   `json:"expirationDate"`
	EnabledFeatures        []string `json:"enabledFeatures"`
	NextVerificationDate   string   `json:"nextVerificationDate"`
	LatestVersion          string   `json:"latestVersion"`
	MinimumRequiredVersion string   `json:"minimumRequiredVersion"`
	Signature              string   `json:"signature"`
}

// CanonicalString returns the exact byte sequence the authority signs: key,
// expiration, comma-joined features, next-verification date and the two
// version strings, pipe-separated, in that order.
func (g *SignedGrant) CanonicalString() string {
	return strings.Join([]string{
		g.LicenseKey,
		g.ExpirationDate,
		strings.Join(g.EnabledFeatures, ","),
		g.NextVerificationDate,
		g.LatestVersion,
		g.MinimumRequiredVersion,
	}, "|")
}

// ExpiresAt parses the canonical expiration date.
func (g *SignedGrant) ExpiresAt() (time.Time, error) {
	return ParseGrantTime(g.ExpirationDate)
}

// NextVerificationAt parses the canonical next-verification date.
func (g *SignedGrant) NextVerificationAt() (time.Time, error) {
	return ParseGrantTime(g.NextVerificationDate)
}

// HasFeature reports whether the grant enables the given feature token.
func (g *SignedGrant) HasFeature(token string) bool {
	for _, f := range g.EnabledFeatures {
		if f == token {
			return true
		}
	}
	return false
}
