package store

import (
	"encoding/json"
	"os"
	"time"

	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/fsutil"
	"github.com/nikolai-in/dlcache/pkg/model"
)

func loadManifest(path string) (*model.CacheManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newManifest(), nil
		}
		return nil, errors.Wrapf(errors.ErrStorage, "failed to read manifest: %v", err)
	}
	var m model.CacheManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(errors.ErrManifestCorrupt, "%s: %v", path, err)
	}
	return &m, nil
}

// saveManifestLocked persists the manifest via temp file + rename so a crash
// mid-write never leaves a truncated manifest. Callers hold s.mu.
func (s *Store) saveManifestLocked() error {
	s.manifest.GeneratedAtUTC = time.Now().UTC()
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return errors.Wrapf(errors.ErrStorage, "failed to encode manifest: %v", err)
	}
	path := fsutil.ManifestPath(s.root)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrapf(errors.ErrStorage, "failed to write manifest: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(errors.ErrStorage, "failed to finalize manifest: %v", err)
	}
	return nil
}

// Drift returns manifest entries whose files are missing on disk. The
// filesystem is ground truth; drifted entries are excluded from cached
// buckets by reporting and surfaced so the operator can clear them.
func (s *Store) Drift() []model.CacheManifestEntry {
	manifest := s.Manifest()
	var drift []model.CacheManifestEntry
	for _, e := range manifest.Entries {
		if !fileExists(s.AbsolutePath(e.RelativePath)) {
			drift = append(drift, e)
		}
	}
	return drift
}
