// Package store is the authoritative on-disk representation of the download
// cache: content-addressed artifact files partitioned by category, plus a JSON
// manifest describing every committed entry. The filesystem is ground truth;
// the manifest is an index that readers reconcile against it.
package store

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/nikolai-in/dlcache/pkg/address"
	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/fsutil"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// Store manages a cache root directory. Commit and manifest access are safe
// for concurrent use; the manifest file is the one shared mutable resource and
// all writers serialize on the store's mutex.
type Store struct {
	root string

	mu       sync.Mutex
	manifest *model.CacheManifest
}

// Open opens (or initializes) a cache store rooted at root. The root and its
// staging directory are created if absent. An existing manifest is loaded; a
// corrupt one is an error rather than silently discarded.
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, errors.ErrInvalidCacheRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidCacheRoot, err.Error())
	}
	if err := os.MkdirAll(abs, fsutil.DirModeDefault); err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "failed to create cache root %s: %v", abs, err)
	}
	if err := os.MkdirAll(fsutil.TempDir(abs), fsutil.DirModeDefault); err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "failed to create staging dir: %v", err)
	}

	s := &Store{root: abs}
	manifest, err := loadManifest(fsutil.ManifestPath(abs))
	if err != nil {
		return nil, err
	}
	s.manifest = manifest
	return s, nil
}

// Root returns the absolute cache root directory.
func (s *Store) Root() string {
	return s.root
}

// TempDir returns the staging directory for in-flight downloads.
func (s *Store) TempDir() string {
	return fsutil.TempDir(s.root)
}

// Exists reports whether a fully committed artifact exists for the entry. It
// checks the filesystem, never the manifest, so a manifest entry whose file
// was removed out-of-band reads as absent.
func (s *Store) Exists(entry model.CatalogEntry) bool {
	_, ok := s.Locate(entry)
	return ok
}

// Locate returns the absolute path of the cached artifact for the entry, if
// present on disk. The primary candidate is the computed relative path; a
// glob by cache key covers artifacts committed under a different category by
// an older catalog.
func (s *Store) Locate(entry model.CatalogEntry) (string, bool) {
	rel := address.ComputePath(entry.CacheKey, entry.URL, entry.Category)
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if fileExists(abs) {
		return abs, true
	}
	matches, err := filepath.Glob(filepath.Join(s.root, "*", entry.CacheKey+"_*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	for _, m := range matches {
		if fileExists(m) {
			return m, true
		}
	}
	return "", false
}

// Commit atomically moves a fully written temp file into its final
// content-addressed path and records the manifest entry. A reader never
// observes a partial artifact under the final path. On error the temp file is
// left in place; cleanup is the caller's responsibility.
func (s *Store) Commit(entry model.CatalogEntry, tempFile string) (model.CacheManifestEntry, error) {
	rel := address.ComputePath(entry.CacheKey, entry.URL, entry.Category)
	abs := filepath.Join(s.root, filepath.FromSlash(rel))

	info, err := os.Stat(tempFile)
	if err != nil {
		return model.CacheManifestEntry{}, errors.Wrapf(errors.ErrStorage, "temp file missing: %v", err)
	}
	sum, err := fileDigest(tempFile, sha256.New())
	if err != nil {
		return model.CacheManifestEntry{}, errors.Wrap(errors.ErrStorage, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(abs), fsutil.DirModeDefault); err != nil {
		return model.CacheManifestEntry{}, errors.Wrapf(errors.ErrStorage, "failed to create category dir: %v", err)
	}
	if err := fsutil.Move(tempFile, abs); err != nil {
		return model.CacheManifestEntry{}, errors.Wrap(errors.ErrStorage, err.Error())
	}
	if err := os.Chmod(abs, fsutil.FileModeDefault); err != nil {
		return model.CacheManifestEntry{}, errors.Wrapf(errors.ErrStorage, "failed to set permissions: %v", err)
	}

	manifestEntry := model.CacheManifestEntry{
		CacheKey:        entry.CacheKey,
		OriginalURL:     entry.URL,
		RelativePath:    rel,
		FileSizeBytes:   info.Size(),
		SHA256:          sum,
		DownloadedAtUTC: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(manifestEntry)
	if err := s.saveManifestLocked(); err != nil {
		return model.CacheManifestEntry{}, err
	}
	return manifestEntry, nil
}

// Manifest returns a snapshot of the persisted manifest.
func (s *Store) Manifest() model.CacheManifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := model.CacheManifest{
		Platform:       s.manifest.Platform,
		GeneratedAtUTC: s.manifest.GeneratedAtUTC,
		Entries:        make([]model.CacheManifestEntry, len(s.manifest.Entries)),
	}
	copy(out.Entries, s.manifest.Entries)
	return out
}

// VerifyChecksum computes the digests requested by expected over the file and
// compares them case-insensitively. An empty expectation passes trivially;
// checksum enforcement is opt-in per entry.
func (s *Store) VerifyChecksum(path string, expected model.Checksum) (bool, error) {
	if expected.Empty() {
		return true, nil
	}
	if expected.SHA256 != "" {
		sum, err := fileDigest(path, sha256.New())
		if err != nil {
			return false, errors.Wrap(errors.ErrStorage, err.Error())
		}
		if !strings.EqualFold(sum, strings.TrimSpace(expected.SHA256)) {
			return false, nil
		}
	}
	if expected.SHA512 != "" {
		sum, err := fileDigest(path, sha512.New())
		if err != nil {
			return false, errors.Wrap(errors.ErrStorage, err.Error())
		}
		if !strings.EqualFold(sum, strings.TrimSpace(expected.SHA512)) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) upsertLocked(e model.CacheManifestEntry) {
	for i := range s.manifest.Entries {
		if s.manifest.Entries[i].CacheKey == e.CacheKey {
			s.manifest.Entries[i] = e
			return
		}
	}
	s.manifest.Entries = append(s.manifest.Entries, e)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func fileDigest(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newManifest() *model.CacheManifest {
	return &model.CacheManifest{
		Platform:       runtime.GOOS,
		GeneratedAtUTC: time.Now().UTC(),
	}
}
