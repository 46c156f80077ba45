// Package orchestrator composes the catalog, download and store layers into
// the two cache workflows: build (discover, resolve, download, commit) and
// report (discover, resolve, analyze). Each invocation rebuilds the catalog
// from scratch; the persisted cache manifest is the only state carried
// between runs.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/catalog"
	"github.com/nikolai-in/dlcache/pkg/coverage"
	"github.com/nikolai-in/dlcache/pkg/download"
	pkgerrors "github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// Manager ties catalog, download and store together.
type Manager struct {
	Store        ArtifactStore
	Fetcher      download.Fetcher
	HeadResolver catalog.HeadResolver
	CatalogOpts  catalog.Options
	Hooks        Hooks
}

// defaultConcurrency bounds the worker pool when the caller does not.
// Downloads are network-bound; single-digit parallelism saturates typical
// egress without hammering remote hosts.
const defaultConcurrency = 4

// Assemble runs the discovery and resolution phases over a source descriptor
// and returns the final entry set. Every run starts from an empty catalog.
func (m *Manager) Assemble(ctx context.Context, desc *catalog.SourceDescriptor) []model.CatalogEntry {
	m.emit(Event{Phase: "discovering"})
	cat := catalog.New(m.CatalogOpts)
	cat.AddRecords(catalog.DiscoverRecords(desc))

	m.emit(Event{Phase: "resolving"})
	cat.ResolveVariables(desc.Variables)
	if len(desc.RedirectDomains) > 0 && m.HeadResolver != nil {
		cat.ResolveRedirects(ctx, desc.RedirectDomains, m.HeadResolver)
	}
	return cat.Entries()
}

// Build downloads and commits every cacheable entry not already in the store.
// Entries already cached are skipped unless opts.Force is set. A single
// entry's download failure is recorded and the workflow continues; only a
// commit-time storage failure aborts the run, since a store that cannot write
// is not usable. The returned summary always reflects every entry, even on
// early abort.
func (m *Manager) Build(ctx context.Context, entries []model.CatalogEntry, opts BuildOptions) (*model.BuildSummary, error) {
	if m.Store == nil {
		return nil, fmt.Errorf("cache store is not configured")
	}
	if m.Fetcher == nil {
		return nil, fmt.Errorf("download fetcher is not configured")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	// Dedup by cache key before scheduling so at most one download is ever
	// in flight per key. The catalog's URL dedup should already guarantee
	// this; the in-flight lock below enforces it regardless.
	scheduled := make([]model.CatalogEntry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.Cacheable || seen[e.CacheKey] {
			continue
		}
		seen[e.CacheKey] = true
		scheduled = append(scheduled, e)
	}

	summary := &model.BuildSummary{}
	var (
		mu    sync.Mutex
		locks keyLocks
	)
	record := func(r model.EntryResult) {
		mu.Lock()
		summary.Add(r)
		mu.Unlock()
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Concurrency)
	for _, entry := range scheduled {
		entry := entry
		group.Go(func() error {
			unlock := locks.lock(entry.CacheKey)
			defer unlock()

			if gctx.Err() != nil {
				record(model.EntryResult{Entry: entry, Outcome: model.OutcomeFailed, Err: gctx.Err()})
				return nil
			}
			res, fatal := m.buildOne(gctx, entry, opts)
			record(res)
			return fatal
		})
	}

	if err := group.Wait(); err != nil {
		// Fatal storage failure: the summary still describes what happened.
		return summary, err
	}

	if opts.FailureTolerance >= 0 && summary.Failed > opts.FailureTolerance {
		var agg *multierror.Error
		agg = multierror.Append(agg, fmt.Errorf("%d download failures exceed tolerance of %d", summary.Failed, opts.FailureTolerance))
		for _, r := range summary.Results {
			if r.Outcome == model.OutcomeFailed && r.Err != nil {
				agg = multierror.Append(agg, fmt.Errorf("%s: %w", r.Entry.URL, r.Err))
			}
		}
		return summary, agg.ErrorOrNil()
	}
	return summary, nil
}

// buildOne disposes of a single entry: skip, download+verify+commit, or fail.
// The second return value is non-nil only for errors that must abort the
// whole build (commit-time storage failures).
func (m *Manager) buildOne(ctx context.Context, entry model.CatalogEntry, opts BuildOptions) (model.EntryResult, error) {
	if _, ok := m.Store.Locate(entry); ok && !opts.Force {
		logger.Debug("cache hit, skipping", logger.Fields{"url": entry.URL, "key": entry.CacheKey})
		return model.EntryResult{Entry: entry, Outcome: model.OutcomeSkipped}, nil
	}

	m.emit(Event{Phase: "downloading", Key: entry.CacheKey, Msg: entry.URL})
	tempPath := filepath.Join(m.Store.TempDir(), entry.CacheKey+".part")
	res := m.Fetcher.Fetch(ctx, entry.URL, tempPath)
	if res.Status != model.FetchSuccess {
		m.emit(Event{Phase: "error", Key: entry.CacheKey, Msg: entry.URL})
		logger.Warn("download failed", logger.Fields{
			"url":      entry.URL,
			"attempts": res.Attempts,
			"error":    errString(res.LastError),
		})
		return model.EntryResult{Entry: entry, Outcome: model.OutcomeFailed, Err: res.LastError}, nil
	}

	// A checksum mismatch is not retried: the bytes arrived fine, so the
	// catalog's expectation is the likelier culprit. Surfaced distinctly from
	// transport failures.
	ok, err := m.Store.VerifyChecksum(tempPath, entry.Checksum)
	if err != nil {
		_ = os.Remove(tempPath)
		return model.EntryResult{Entry: entry, Outcome: model.OutcomeFailed, Err: err}, nil
	}
	if !ok {
		_ = os.Remove(tempPath)
		err := pkgerrors.Wrapf(pkgerrors.ErrChecksumMismatch, "url %s", entry.URL)
		m.emit(Event{Phase: "error", Key: entry.CacheKey, Msg: entry.URL})
		logger.Warn("checksum mismatch, entry discarded", logger.Fields{"url": entry.URL})
		return model.EntryResult{Entry: entry, Outcome: model.OutcomeFailed, Err: err}, nil
	}

	// No commit after cancellation, even with all bytes received: a cancelled
	// run must leave a consistent partial cache.
	if ctx.Err() != nil {
		_ = os.Remove(tempPath)
		return model.EntryResult{Entry: entry, Outcome: model.OutcomeFailed, Err: ctx.Err()}, nil
	}

	m.emit(Event{Phase: "committing", Key: entry.CacheKey, Msg: entry.URL})
	manifestEntry, err := m.Store.Commit(entry, tempPath)
	if err != nil {
		_ = os.Remove(tempPath)
		return model.EntryResult{Entry: entry, Outcome: model.OutcomeFailed, Err: err},
			pkgerrors.Wrapf(err, "commit failed for %s", entry.URL)
	}

	logger.Info("cached artifact", logger.Fields{
		"url":  entry.URL,
		"path": manifestEntry.RelativePath,
		"size": manifestEntry.FileSizeBytes,
	})
	return model.EntryResult{Entry: entry, Outcome: model.OutcomeDownloaded}, nil
}

// Report analyzes the entries against the store. Read-only; no downloads.
func (m *Manager) Report(entries []model.CatalogEntry) model.CoverageReport {
	m.emit(Event{Phase: "analyzing"})
	report := coverage.Analyze(entries, m.Store)
	m.emit(Event{Phase: "done"})
	return report
}

func (m *Manager) emit(e Event) {
	if m.Hooks.OnEvent != nil {
		m.Hooks.OnEvent(e)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// keyLocks serializes work per cache key for the duration of a run.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
