//go:generate mockgen -destination=./mocks/orchestrator.go -package=mocks . ArtifactStore

package orchestrator

import (
	"github.com/nikolai-in/dlcache/pkg/model"
)

// ArtifactStore is the subset of the cache store used by the orchestrator.
type ArtifactStore interface {
	Locate(entry model.CatalogEntry) (string, bool)
	Commit(entry model.CatalogEntry, tempFile string) (model.CacheManifestEntry, error)
	VerifyChecksum(path string, expected model.Checksum) (bool, error)
	Manifest() model.CacheManifest
	TempDir() string
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // discovering|resolving|downloading|committing|done|error
	Key   string // cache key of the entry, when applicable
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// BuildOptions control a build run.
type BuildOptions struct {
	// Concurrency bounds the download worker pool.
	Concurrency int
	// Force re-downloads entries that are already cached.
	Force bool
	// FailureTolerance is the number of per-entry failures tolerated before
	// Build returns an error. -1 tolerates any number.
	FailureTolerance int
}
