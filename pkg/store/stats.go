package store

import (
	"os"
	"path/filepath"

	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/fsutil"
)

// Stats summarizes the on-disk cache contents. Used for reporting, not
// correctness.
type Stats struct {
	FileCount  int
	TotalBytes int64
}

// AbsolutePath resolves a manifest relative path against the cache root.
func (s *Store) AbsolutePath(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Statistics walks the cache root and counts artifact files and bytes. The
// manifest file and the staging directory are not artifacts and are excluded.
func (s *Store) Statistics() (Stats, error) {
	var stats Stats
	tempDir := s.TempDir()
	manifestPath := fsutil.ManifestPath(s.root)

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == tempDir {
				return filepath.SkipDir
			}
			return nil
		}
		if path == manifestPath {
			return nil
		}
		stats.FileCount++
		stats.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, errors.Wrapf(errors.ErrStorage, "error walking cache root %s: %v", s.root, err)
	}
	return stats, nil
}

// Clean removes every cached artifact and resets the manifest. This is the
// only operation that removes manifest entries. It returns the bytes freed.
func (s *Store) Clean() (int64, error) {
	stats, err := s.Statistics()
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrStorage, "failed to read cache root: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return 0, errors.Wrapf(errors.ErrStorage, "failed to remove %s: %v", e.Name(), err)
		}
	}
	if err := os.MkdirAll(s.TempDir(), fsutil.DirModeDefault); err != nil {
		return 0, errors.Wrapf(errors.ErrStorage, "failed to recreate staging dir: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = newManifest()
	if err := s.saveManifestLocked(); err != nil {
		return 0, err
	}
	return stats.TotalBytes, nil
}
