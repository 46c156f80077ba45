package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "dlcache"

	// ManifestFilename is the name of the persisted cache manifest inside the
	// cache root.
	ManifestFilename = "manifest.json"
)

// GetCacheDir returns the platform-specific default cache root for the
// application.
// On Linux: ~/.cache/dlcache/
// On macOS: ~/Library/Caches/dlcache/
// On Windows: %LOCALAPPDATA%\dlcache\cache\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// ManifestPath returns the manifest location for a given cache root.
func ManifestPath(cacheRoot string) string {
	return filepath.Join(cacheRoot, ManifestFilename)
}

// TempDir returns the staging directory for in-flight downloads under a cache
// root. Keeping it inside the root makes the final rename same-device on
// common setups.
func TempDir(cacheRoot string) string {
	return filepath.Join(cacheRoot, ".tmp")
}

// EnsureDir creates a directory and all necessary parent directories with
// default permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}
