package orchestrator_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nikolai-in/dlcache/pkg/address"
	dlmocks "github.com/nikolai-in/dlcache/pkg/download/mocks"
	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/model"
	"github.com/nikolai-in/dlcache/pkg/orchestrator"
	"github.com/nikolai-in/dlcache/pkg/orchestrator/mocks"
	"github.com/nikolai-in/dlcache/pkg/store"
)

// stubFetcher serves canned payloads by URL and records every request.
type stubFetcher struct {
	mu       sync.Mutex
	payloads map[string]string
	calls    []string
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL, destTemp string) model.FetchResult {
	s.mu.Lock()
	s.calls = append(s.calls, rawURL)
	s.mu.Unlock()

	payload, ok := s.payloads[rawURL]
	if !ok {
		return model.FetchResult{Status: model.FetchFailed, Attempts: 1, LastError: errors.ErrDownloadFailed}
	}
	if err := os.WriteFile(destTemp, []byte(payload), 0o644); err != nil {
		return model.FetchResult{Status: model.FetchFailed, Attempts: 1, LastError: err}
	}
	return model.FetchResult{Status: model.FetchSuccess, Attempts: 1, BytesWritten: int64(len(payload))}
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func entry(url string, category model.Category) model.CatalogEntry {
	return model.CatalogEntry{
		URL:       url,
		CacheKey:  address.ComputeKey(url),
		Category:  category,
		Cacheable: true,
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestBuild_DownloadsAndCommits(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{payloads: map[string]string{
		"https://example.com/a.msi": "installer bytes",
		"https://example.com/b.zip": "archive bytes",
	}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	entries := []model.CatalogEntry{
		entry("https://example.com/a.msi", model.CategoryInstaller),
		entry("https://example.com/b.zip", model.CategoryArchive),
	}

	summary, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)

	for _, e := range entries {
		assert.True(t, st.Exists(e), e.URL)
	}
	assert.Len(t, st.Manifest().Entries, 2)
}

func TestBuild_SecondRunSkipsEverything(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{payloads: map[string]string{
		"https://example.com/a.msi": "installer bytes",
	}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}
	entries := []model.CatalogEntry{entry("https://example.com/a.msi", model.CategoryInstaller)}

	_, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())

	summary, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Downloaded)
	assert.Equal(t, 1, fetcher.callCount(), "cached entry must not be re-fetched")
}

func TestBuild_ForceRedownloads(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{payloads: map[string]string{
		"https://example.com/a.msi": "installer bytes",
	}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}
	entries := []model.CatalogEntry{entry("https://example.com/a.msi", model.CategoryInstaller)}

	_, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)

	summary, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{Force: true, FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestBuild_SkipsUnresolvedEntries(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{payloads: map[string]string{}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	entries := []model.CatalogEntry{{
		URL:      "https://example.com/${version}/a.zip",
		Category: model.CategoryArchive,
	}}

	summary, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Zero(t, summary.Downloaded+summary.Skipped+summary.Failed)
	assert.Zero(t, fetcher.callCount())
}

func TestBuild_ToleratesFailuresByDefault(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{payloads: map[string]string{
		"https://example.com/ok.zip": "fine",
	}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	entries := []model.CatalogEntry{
		entry("https://example.com/ok.zip", model.CategoryArchive),
		entry("https://example.com/missing.zip", model.CategoryArchive),
	}

	summary, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err, "unlimited tolerance must not fail the build")
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)

	require.Len(t, summary.Results, 2)
}

func TestBuild_FailureToleranceExceeded(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{payloads: map[string]string{}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	entries := []model.CatalogEntry{entry("https://example.com/missing.zip", model.CategoryArchive)}

	summary, err := mgr.Build(context.Background(), entries, orchestrator.BuildOptions{FailureTolerance: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDownloadFailed)
	assert.Equal(t, 1, summary.Failed)
}

func TestBuild_ChecksumMismatchDiscardsDownload(t *testing.T) {
	st := openStore(t)
	url := "https://example.com/a.msi"
	fetcher := &stubFetcher{payloads: map[string]string{url: "actual bytes"}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	bad := entry(url, model.CategoryInstaller)
	bad.Checksum = model.Checksum{SHA256: "deadbeef" + hex.EncodeToString(make([]byte, 28))}

	summary, err := mgr.Build(context.Background(), []model.CatalogEntry{bad}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.ErrorIs(t, summary.Results[0].Err, errors.ErrChecksumMismatch)

	// Nothing committed, nothing staged.
	assert.False(t, st.Exists(bad))
	infos, readErr := os.ReadDir(st.TempDir())
	require.NoError(t, readErr)
	assert.Empty(t, infos)
}

func TestBuild_ChecksumMatchCommits(t *testing.T) {
	st := openStore(t)
	url := "https://example.com/a.msi"
	payload := "verified bytes"
	fetcher := &stubFetcher{payloads: map[string]string{url: payload}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	sum := sha256.Sum256([]byte(payload))
	good := entry(url, model.CategoryInstaller)
	good.Checksum = model.Checksum{SHA256: hex.EncodeToString(sum[:])}

	summary, err := mgr.Build(context.Background(), []model.CatalogEntry{good}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downloaded)
	assert.True(t, st.Exists(good))
}

func TestBuild_CommitFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	tempDir := t.TempDir()

	e := entry("https://example.com/a.msi", model.CategoryInstaller)

	mockStore := mocks.NewMockArtifactStore(ctrl)
	mockStore.EXPECT().Locate(e).Return("", false)
	mockStore.EXPECT().TempDir().Return(tempDir)
	mockStore.EXPECT().VerifyChecksum(gomock.Any(), e.Checksum).Return(true, nil)
	mockStore.EXPECT().Commit(e, gomock.Any()).Return(model.CacheManifestEntry{}, errors.ErrStorage)

	mockFetcher := dlmocks.NewMockFetcher(ctrl)
	mockFetcher.EXPECT().Fetch(gomock.Any(), e.URL, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, destTemp string) model.FetchResult {
			require.NoError(t, os.WriteFile(destTemp, []byte("bytes"), 0o644))
			return model.FetchResult{Status: model.FetchSuccess, Attempts: 1, BytesWritten: 5}
		})

	mgr := &orchestrator.Manager{Store: mockStore, Fetcher: mockFetcher}

	summary, err := mgr.Build(context.Background(), []model.CatalogEntry{e}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStorage)
	assert.Equal(t, 1, summary.Failed)
}

func TestBuild_CancelledContextDoesNotCommit(t *testing.T) {
	st := openStore(t)
	url := "https://example.com/a.msi"

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel while the download is in flight: the bytes still arrive, but the
	// orchestrator must not commit them.
	fetcher := &cancellingFetcher{cancel: cancel, payload: "late bytes"}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	e := entry(url, model.CategoryInstaller)
	summary, err := mgr.Build(ctx, []model.CatalogEntry{e}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, st.Exists(e))

	infos, readErr := os.ReadDir(st.TempDir())
	require.NoError(t, readErr)
	assert.Empty(t, infos, "cancelled download must not leave staging files")
}

// cancellingFetcher cancels the run's context after writing the payload,
// simulating cancellation arriving between fetch and commit.
type cancellingFetcher struct {
	cancel  context.CancelFunc
	payload string
}

func (c *cancellingFetcher) Fetch(_ context.Context, _, destTemp string) model.FetchResult {
	if err := os.WriteFile(destTemp, []byte(c.payload), 0o644); err != nil {
		return model.FetchResult{Status: model.FetchFailed, Attempts: 1, LastError: err}
	}
	c.cancel()
	return model.FetchResult{Status: model.FetchSuccess, Attempts: 1, BytesWritten: int64(len(c.payload))}
}

func TestBuild_DeduplicatesByCacheKey(t *testing.T) {
	st := openStore(t)
	url := "https://example.com/a.msi"
	fetcher := &stubFetcher{payloads: map[string]string{url: "bytes"}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	e := entry(url, model.CategoryInstaller)
	summary, err := mgr.Build(context.Background(), []model.CatalogEntry{e, e, e}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestBuild_EmitsEvents(t *testing.T) {
	st := openStore(t)
	url := "https://example.com/a.msi"
	fetcher := &stubFetcher{payloads: map[string]string{url: "bytes"}}

	var (
		mu     sync.Mutex
		phases []string
	)
	mgr := &orchestrator.Manager{
		Store:   st,
		Fetcher: fetcher,
		Hooks: orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
			mu.Lock()
			phases = append(phases, e.Phase)
			mu.Unlock()
		}},
	}

	_, err := mgr.Build(context.Background(), []model.CatalogEntry{entry(url, model.CategoryInstaller)}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)
	assert.Equal(t, []string{"downloading", "committing"}, phases)
}

func TestReport(t *testing.T) {
	st := openStore(t)
	cachedURL := "https://example.com/a.msi"
	fetcher := &stubFetcher{payloads: map[string]string{cachedURL: "bytes"}}
	mgr := &orchestrator.Manager{Store: st, Fetcher: fetcher}

	cached := entry(cachedURL, model.CategoryInstaller)
	missing := entry("https://example.com/b.zip", model.CategoryArchive)

	_, err := mgr.Build(context.Background(), []model.CatalogEntry{cached}, orchestrator.BuildOptions{FailureTolerance: -1})
	require.NoError(t, err)

	report := mgr.Report([]model.CatalogEntry{cached, missing})
	assert.Equal(t, 2, report.TotalExpected)
	assert.Equal(t, 1, report.TotalCached)
	assert.InDelta(t, 50.0, report.CoveragePercent, 0.001)
	require.Len(t, report.Missing, 1)
	assert.Equal(t, missing.URL, report.Missing[0].URL)
}
