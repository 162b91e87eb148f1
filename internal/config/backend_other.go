//go:build !darwin

package config

import (
	"os"
	"path/filepath"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "foxstyle-data"
		}
	}
	return filepath.Join(dir, "foxstyle")
}

func newPlatformBackend() Backend {
	return newFileBackend(configFilePath())
}

// Location describes where SetKey writes.
func Location() string {
	return configFilePath()
}
