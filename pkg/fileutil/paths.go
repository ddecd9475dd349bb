// Package fileutil locates the configuration file and the static assets.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigName is the config file looked up when no path is given.
const DefaultConfigName = "cfg.toml"

// SystemConfigDir holds the system-wide configuration.
const SystemConfigDir = "/etc/ahagon"

// ConfigCandidates lists where name is looked for, most specific first:
// the working directory, its config/ subdirectory, then SystemConfigDir.
func ConfigCandidates(name string) []string {
	return []string{
		name,
		filepath.Join("config", name),
		filepath.Join(SystemConfigDir, name),
	}
}

// FindFile returns the first candidate that is a regular file, or "".
func FindFile(candidates []string) string {
	for _, path := range candidates {
		if FileExists(path) {
			return path
		}
	}
	return ""
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CheckAssets reports why dir cannot serve the index page, or nil when it
// can.
func CheckAssets(dir string) error {
	if !DirExists(dir) {
		return fmt.Errorf("assets directory %s does not exist", dir)
	}
	if index := filepath.Join(dir, "index.html"); !FileExists(index) {
		return fmt.Errorf("assets directory %s has no index.html", dir)
	}
	return nil
}
