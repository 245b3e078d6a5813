// Package updater implements the self-update subsystem: checking a release
// channel manifest for a newer build, downloading and checksum-verifying the
// artifact, and swapping it into place without disturbing the running
// installation on failure.
package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	apperrors "gateguard/internal/errors"
	"gateguard/pkg/contracts/domain"
)

// Service handles update checks and installation for the running binary.
// At most one installation runs at a time; concurrent attempts fail with
// ErrInstallInProgress rather than queueing.
type Service struct {
	currentVersion string
	manifestURL    string
	httpClient     *http.Client
	executablePath string
	stagingDir     string
	logger         *slog.Logger

	installMu sync.Mutex

	// restart is swappable for tests; the default spawns the replaced binary
	// and exits this process.
	restart func() error
}

// NewService creates an update service for the running executable.
func NewService(currentVersion, manifestURL, stagingDir string, timeout time.Duration, logger *slog.Logger) (*Service, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	s := &Service{
		currentVersion: currentVersion,
		manifestURL:    manifestURL,
		httpClient:     &http.Client{Timeout: timeout},
		executablePath: execPath,
		stagingDir:     stagingDir,
		logger:         logger.With(slog.String("component", "updater")),
	}
	s.restart = s.restartProcess
	return s, nil
}

// CurrentVersion returns the running build's version.
func (s *Service) CurrentVersion() string {
	return s.currentVersion
}

// CompareVersions orders two semantic versions: -1 when a is older than b,
// 0 when equal, 1 when newer. Components compare numerically, so "2.9.0"
// orders before "2.10.0".
func CompareVersions(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", a, err)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", b, err)
	}
	return va.Compare(vb), nil
}

// CheckForUpdates fetches the channel manifest and compares its version
// against the running build.
func (s *Service) CheckForUpdates(ctx context.Context) (*domain.UpdateCheckResponse, error) {
	entry, err := s.LatestVersionInfo(ctx)
	if err != nil {
		return nil, err
	}

	cmp, err := CompareVersions(s.currentVersion, entry.Version)
	if err != nil {
		return nil, fmt.Errorf("version comparison failed: %w", err)
	}

	resp := &domain.UpdateCheckResponse{
		CurrentVersion: s.currentVersion,
		LatestVersion:  entry.Version,
	}
	if cmp < 0 {
		resp.UpdateAvailable = true
		resp.Message = fmt.Sprintf("Update available: %s -> %s", s.currentVersion, entry.Version)
	} else {
		resp.Message = fmt.Sprintf("Already up to date (%s)", s.currentVersion)
	}

	s.logger.InfoContext(ctx, "update check completed",
		slog.String("current_version", s.currentVersion),
		slog.String("latest_version", entry.Version),
		slog.Bool("update_available", resp.UpdateAvailable))

	return resp, nil
}

// LatestVersionInfo fetches the full manifest entry for the channel, or
// ErrManifestUnavailable when the manifest cannot be retrieved or parsed.
func (s *Service) LatestVersionInfo(ctx context.Context) (*domain.UpdateManifestEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "update manifest unreachable",
			slog.String("url", s.manifestURL),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrManifestUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: manifest returned status %d",
			apperrors.ErrManifestUnavailable, resp.StatusCode)
	}

	var entry domain.UpdateManifestEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("%w: malformed manifest: %v", apperrors.ErrManifestUnavailable, err)
	}
	if entry.Version == "" {
		return nil, fmt.Errorf("%w: manifest has no version", apperrors.ErrManifestUnavailable)
	}

	return &entry, nil
}

// DownloadAndInstall downloads the artifact, verifies its SHA-256 checksum
// against the request, and swaps it into place. A checksum mismatch or any
// staging I/O failure aborts without touching the running installation.
func (s *Service) DownloadAndInstall(ctx context.Context, req domain.UpdateRequest) error {
	if !s.installMu.TryLock() {
		return apperrors.ErrInstallInProgress
	}
	defer s.installMu.Unlock()

	s.logger.InfoContext(ctx, "starting update installation",
		slog.String("version", req.Version),
		slog.String("url", req.DownloadURL))

	staged, err := s.downloadVerified(ctx, req.DownloadURL, req.Checksum)
	if err != nil {
		return err
	}
	defer os.Remove(staged)

	if err := s.swapExecutable(staged); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "update installed",
		slog.String("version", req.Version),
		slog.String("executable", s.executablePath),
		slog.Bool("restart", req.ForceRestart))

	if req.ForceRestart {
		return s.restart()
	}
	return nil
}

// AutoUpdate composes check and install for unattended use. It short-circuits
// with a no-op response when no update is available.
func (s *Service) AutoUpdate(ctx context.Context) (*domain.UpdateCheckResponse, error) {
	check, err := s.CheckForUpdates(ctx)
	if err != nil {
		return nil, err
	}
	if !check.UpdateAvailable {
		return check, nil
	}

	entry, err := s.LatestVersionInfo(ctx)
	if err != nil {
		return nil, err
	}

	err = s.DownloadAndInstall(ctx, domain.UpdateRequest{
		Version:      entry.Version,
		DownloadURL:  entry.DownloadURL,
		Checksum:     entry.Checksum,
		ForceRestart: true,
	})
	if err != nil {
		return nil, err
	}

	check.Message = fmt.Sprintf("Updated to %s", entry.Version)
	return check, nil
}

// downloadVerified streams the artifact to a temp file in the staging
// directory, hashing as it goes. The temp file survives only when the hash
// matches; partial or mismatched downloads are discarded.
func (s *Service) downloadVerified(ctx context.Context, url, checksum string) (string, error) {
	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create staging dir: %v", apperrors.ErrInstallIOFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrInstallIOFailure, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download failed: %v", apperrors.ErrInstallIOFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download returned status %d", apperrors.ErrInstallIOFailure, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.stagingDir, "update-*.bin")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create staging file: %v", apperrors.ErrInstallIOFailure, err)
	}
	tmpName := tmp.Name()

	hasher := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if copyErr != nil || syncErr != nil || closeErr != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to stage artifact: %v", apperrors.ErrInstallIOFailure, copyErr)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, checksum) {
		os.Remove(tmpName)
		s.logger.ErrorContext(ctx, "artifact checksum mismatch, install aborted",
			slog.String("expected", checksum),
			slog.String("actual", actual))
		return "", fmt.Errorf("%w: expected %s, got %s", apperrors.ErrChecksumMismatch, checksum, actual)
	}

	return tmpName, nil
}

// swapExecutable replaces the running binary with the staged artifact. The
// artifact is first copied to a temporary file next to the executable, since
// the staging directory may be on a different filesystem, and then renamed
// into place so the executable path never holds a partially written binary.
// The current binary is moved aside before the final rename so it can be
// restored if the rename fails.
func (s *Service) swapExecutable(staged string) error {
	replacement, err := os.CreateTemp(filepath.Dir(s.executablePath), ".replace-*.new")
	if err != nil {
		return fmt.Errorf("%w: failed to create replacement file: %v", apperrors.ErrInstallIOFailure, err)
	}
	replacementName := replacement.Name()
	replacement.Close()

	if err := copyFile(staged, replacementName); err != nil {
		os.Remove(replacementName)
		return fmt.Errorf("%w: failed to prepare replacement executable: %v", apperrors.ErrInstallIOFailure, err)
	}
	if err := os.Chmod(replacementName, 0755); err != nil {
		os.Remove(replacementName)
		return fmt.Errorf("%w: failed to set executable permissions: %v", apperrors.ErrInstallIOFailure, err)
	}

	backup := s.executablePath + ".old"
	if err := os.Rename(s.executablePath, backup); err != nil {
		os.Remove(replacementName)
		return fmt.Errorf("%w: failed to move current executable aside: %v", apperrors.ErrInstallIOFailure, err)
	}

	if err := os.Rename(replacementName, s.executablePath); err != nil {
		// Restore the previous installation.
		if restoreErr := os.Rename(backup, s.executablePath); restoreErr != nil {
			s.logger.Error("failed to restore previous executable",
				slog.String("backup", backup),
				slog.String("error", restoreErr.Error()))
		}
		os.Remove(replacementName)
		return fmt.Errorf("%w: failed to install new executable: %v", apperrors.ErrInstallIOFailure, err)
	}

	os.Remove(backup)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// restartProcess starts the replaced binary with the same arguments and
// environment, then exits this process.
func (s *Service) restartProcess() error {
	cmd := exec.Command(s.executablePath, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	cmd.Dir = filepath.Dir(s.executablePath)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start replacement process: %v", apperrors.ErrInstallIOFailure, err)
	}

	s.logger.Info("restarting into updated binary",
		slog.Int("pid", cmd.Process.Pid))
	os.Exit(0)
	return nil
}
