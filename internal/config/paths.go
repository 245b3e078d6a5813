package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathsConfig contains file system paths used by the instance. Relative paths
// are resolved against the executable directory so the deployment remains
// relocatable.
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	CacheFile     string `yaml:"cache_file" envconfig:"CACHE_FILE" default:"license-grant.json"`
	StagingDir    string `yaml:"staging_dir" envconfig:"STAGING_DIR" default:"staging"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// resolve fills in the executable directory and absolutizes relative paths.
func (p *PathsConfig) resolve() error {
	if p.ExecutableDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to determine executable path: %w", err)
		}
		p.ExecutableDir = filepath.Dir(exe)
	}

	p.CacheFile = p.absolutize(p.CacheFile)
	p.StagingDir = p.absolutize(p.StagingDir)
	p.LogsDir = p.absolutize(p.LogsDir)
	return nil
}

func (p *PathsConfig) absolutize(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ExecutableDir, path)
}

// EnsureDirectories creates the directories the instance writes into.
func (p *PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.StagingDir, p.LogsDir, filepath.Dir(p.CacheFile)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
