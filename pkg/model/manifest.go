package model

import "time"

// CacheManifestEntry is the persisted record of one successfully cached
// artifact. Entries are never updated in place; a changed URL produces a new
// entry under a new key.
type CacheManifestEntry struct {
	CacheKey        string    `json:"cacheKey"`
	OriginalURL     string    `json:"originalUrl"`
	RelativePath    string    `json:"relativePath"`
	FileSizeBytes   int64     `json:"fileSizeBytes"`
	SHA256          string    `json:"sha256,omitempty"`
	DownloadedAtUTC time.Time `json:"downloadedAtUtc"`
}

// CacheManifest is the persisted index of the cache, keyed by cache key. The
// filesystem remains ground truth; readers reconcile against it and flag
// drift.
type CacheManifest struct {
	Platform       string               `json:"platform"`
	GeneratedAtUTC time.Time            `json:"generatedAtUtc"`
	Entries        []CacheManifestEntry `json:"entries"`
}

// Lookup returns the entry for key, if present.
func (m *CacheManifest) Lookup(key string) (CacheManifestEntry, bool) {
	for _, e := range m.Entries {
		if e.CacheKey == key {
			return e, true
		}
	}
	return CacheManifestEntry{}, false
}
