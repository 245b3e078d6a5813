package domain

import "time"

// UpdateManifestEntry describes the latest published build for a release
// channel. Checksum is the hex-encoded SHA-256 of the downloadable artifact.
type UpdateManifestEntry struct {
	Version        string    `json:"version"`
	ReleaseDate    time.Time `json:"releaseDate"`
	DownloadURL    string    `json:"downloadUrl"`
	Checksum       string    `json:"checksum"`
	Changelog      string    `json:"changelog,omitempty"`
	IsRequired     bool      `json:"isRequired"`
	MinimumVersion string    `json:"minimumVersion,omitempty"`
}

// UpdateRequest is the installer input for POST /api/update/install.
type UpdateRequest struct {
	Version      string `json:"version" validate:"required"`
	DownloadURL  string `json:"downloadUrl" validate:"required,url"`
	Checksum     string `json:"checksum" validate:"required,hexadecimal,len=64"`
	ForceRestart bool   `json:"forceRestart"`
}

// UpdateCheckResponse is the result of comparing the running build against the
// channel manifest.
type UpdateCheckResponse struct {
	UpdateAvailable bool   `json:"updateAvailable"`
	CurrentVersion  string `json:"currentVersion"`
	LatestVersion   string `json:"latestVersion,omitempty"`
	Message         string `json:"message"`
}

// VersionResponse is the unauthenticated running-version probe.
type VersionResponse struct {
	Version string `json:"version"`
}
