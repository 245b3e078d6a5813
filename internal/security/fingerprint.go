package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// MachineFingerprint identifies the installation a license is bound to.
type MachineFingerprint struct {
	Fingerprint string    `json:"fingerprint"`
	Hostname    string    `json:"hostname"`
	MACAddress  string    `json:"mac_address"`
	OS          string    `json:"os"`
	Platform    string    `json:"platform"`
	GeneratedAt time.Time `json:"generated_at"`
}

// FingerprintManager computes and caches the machine fingerprint. Interface
// enumeration is not free, and the fingerprint is stable for the life of the
// process, so results are cached for an hour.
type FingerprintManager struct {
	cache         *MachineFingerprint
	cacheMutex    sync.RWMutex
	cacheExpiry   time.Time
	cacheDuration time.Duration
}

// NewFingerprintManager creates a new fingerprint manager with caching
func NewFingerprintManager() *FingerprintManager {
	return &FingerprintManager{
		cacheDuration: 1 * time.Hour,
	}
}

// GetMACAddress retrieves the primary network interface MAC address
func (fm *FingerprintManager) GetMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}

	// Prefer a non-loopback interface that is up.
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	// Fallback: any interface with a MAC address.
	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			slog.Warn("Using fallback MAC address",
				slog.String("interface", iface.Name),
				slog.String("mac", mac),
			)
			return mac, nil
		}
	}

	return "", fmt.Errorf("no valid MAC address found")
}

// GetHostname retrieves the normalized machine hostname
func (fm *FingerprintManager) GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return "", fmt.Errorf("hostname is empty")
	}

	return hostname, nil
}

// Generate computes the machine fingerprint: SHA-256 over hostname, MAC
// address and platform, hex-encoded. A missing MAC degrades to hostname and
// platform only rather than failing, so diskless or container deployments
// still produce a stable identity.
func (fm *FingerprintManager) Generate() (*MachineFingerprint, error) {
	fm.cacheMutex.RLock()
	if fm.cache != nil && time.Now().Before(fm.cacheExpiry) {
		cached := *fm.cache
		fm.cacheMutex.RUnlock()
		return &cached, nil
	}
	fm.cacheMutex.RUnlock()

	hostname, err := fm.GetHostname()
	if err != nil {
		return nil, err
	}

	mac, err := fm.GetMACAddress()
	if err != nil {
		slog.Warn("MAC address unavailable for fingerprint",
			slog.String("error", err.Error()))
		mac = "unknown"
	}

	platform := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)

	h := sha256.New()
	h.Write([]byte(hostname))
	h.Write([]byte("|"))
	h.Write([]byte(mac))
	h.Write([]byte("|"))
	h.Write([]byte(platform))

	fp := &MachineFingerprint{
		Fingerprint: hex.EncodeToString(h.Sum(nil)),
		Hostname:    hostname,
		MACAddress:  mac,
		OS:          runtime.GOOS,
		Platform:    platform,
		GeneratedAt: time.Now(),
	}

	fm.cacheMutex.Lock()
	fm.cache = fp
	fm.cacheExpiry = time.Now().Add(fm.cacheDuration)
	fm.cacheMutex.Unlock()

	return fp, nil
}

// MachineID returns the fingerprint hash used as this machine's identity in
// license validation requests.
func (fm *FingerprintManager) MachineID() (string, error) {
	fp, err := fm.Generate()
	if err != nil {
		return "", err
	}
	return fp.Fingerprint, nil
}
