package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolai-in/dlcache/pkg/address"
	"github.com/nikolai-in/dlcache/pkg/model"
)

func TestAddRecords_Dedup(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://example.com/a.zip", Source: "install-a.sh"},
		{URL: "https://example.com/b.zip", Source: "install-b.sh"},
		{URL: "https://example.com/a.zip", Source: "install-c.sh"},
		{URL: "https://example.com/a.zip", Source: "install-d.sh"},
	})

	entries := c.Entries()
	require.Len(t, entries, 2)
	// First-seen source tag wins on duplicates.
	assert.Equal(t, "install-a.sh", entries[0].Source)
	assert.Equal(t, "https://example.com/a.zip", entries[0].URL)
}

func TestAddRecords_CaseSensitiveDedup(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://example.com/A.zip", Source: "s"},
		{URL: "https://example.com/a.zip", Source: "s"},
	})
	assert.Len(t, c.Entries(), 2)
}

func TestAddRecords_SkipsMalformed(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "", Source: "s"},
		{URL: "ftp://example.com/a.zip", Source: "s"},
		{URL: "not a url", Source: "s"},
		{URL: "https://example.com/ok.zip", Source: "s"},
	})
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/ok.zip", entries[0].URL)
}

func TestAddRecords_InfersCategory(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://example.com/tool.msi", Source: "s"},
		{URL: "https://example.com/data.json", Source: "s", Category: model.CategoryArchive},
	})
	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.CategoryInstaller, entries[0].Category)
	// Explicit category is kept.
	assert.Equal(t, model.CategoryArchive, entries[1].Category)
}

func TestResolveVariables(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://x.com/a?v=${version}", Source: "s"},
	})

	entries := c.ResolveVariables(map[string]string{"version": "2.1"})
	require.Len(t, entries, 1)
	assert.Equal(t, "https://x.com/a?v=2.1", entries[0].URL)
	assert.Equal(t, "https://x.com/a?v=${version}", entries[0].OriginalURL)
	assert.False(t, entries[0].HasVariables)
	assert.True(t, entries[0].Cacheable)
	assert.Equal(t, address.ComputeKey("https://x.com/a?v=2.1"), entries[0].CacheKey)
}

func TestResolveVariables_LiteralOnly(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://x.com/${a}", Source: "s"},
	})
	// A substituted value containing another placeholder is not re-expanded.
	entries := c.ResolveVariables(map[string]string{"a": "${b}", "b": "nope"})
	require.Len(t, entries, 1)
	assert.Equal(t, "https://x.com/${b}", entries[0].URL)
	assert.True(t, entries[0].HasVariables)
}

func TestResolveVariables_Unresolved(t *testing.T) {
	records := []model.DiscoveryRecord{
		{URL: "https://x.com/node-${nodeVersion}.tar.gz", Source: "s"},
		{URL: "https://x.com/static.tar.gz", Source: "s"},
	}

	t.Run("excluded by default", func(t *testing.T) {
		c := New(Options{})
		c.AddRecords(records)
		entries := c.ResolveVariables(nil)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].HasVariables)
		assert.False(t, entries[0].Cacheable)
		assert.True(t, entries[1].Cacheable)
		assert.Len(t, c.CacheableEntries(), 1)
	})

	t.Run("opt-in via CacheUnresolved", func(t *testing.T) {
		c := New(Options{CacheUnresolved: true})
		c.AddRecords(records)
		entries := c.ResolveVariables(nil)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].HasVariables)
		assert.True(t, entries[0].Cacheable)
		assert.Len(t, c.CacheableEntries(), 2)
	})
}

func TestResolveVariables_CollapseAfterSubstitution(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://x.com/tool-${major}.zip", Source: "first.sh"},
		{URL: "https://x.com/tool-${version}.zip", Source: "second.sh"},
	})

	entries := c.ResolveVariables(map[string]string{"major": "3", "version": "3"})
	require.Len(t, entries, 1)
	assert.Equal(t, "https://x.com/tool-3.zip", entries[0].URL)
	// Last-resolved metadata wins; the key depends only on the URL.
	assert.Equal(t, "second.sh", entries[0].Source)
	assert.Equal(t, address.ComputeKey("https://x.com/tool-3.zip"), entries[0].CacheKey)
}

type fakeResolver struct {
	targets map[string]string
	err     error
	calls   []string
}

func (f *fakeResolver) ResolveHead(_ context.Context, rawURL string) (string, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return "", f.err
	}
	return f.targets[rawURL], nil
}

func TestResolveRedirects(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://aka.ms/tool", Source: "s", NeedsRedirection: true},
		{URL: "https://example.com/direct.zip", Source: "s"},
	})
	c.ResolveVariables(nil)

	resolver := &fakeResolver{targets: map[string]string{
		"https://aka.ms/tool": "https://download.example.com/tool-5.0.zip",
	}}
	c.ResolveRedirects(context.Background(), []string{"aka.ms"}, resolver)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "https://download.example.com/tool-5.0.zip", entries[0].URL)
	assert.Equal(t, "https://aka.ms/tool", entries[0].OriginalURL)
	assert.Equal(t, address.ComputeKey("https://download.example.com/tool-5.0.zip"), entries[0].CacheKey)
	// Non-matching hosts are never probed.
	assert.Equal(t, []string{"https://aka.ms/tool"}, resolver.calls)
}

func TestResolveRedirects_BestEffort(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://aka.ms/tool", Source: "s"},
	})
	c.ResolveVariables(nil)

	// Resolver failure leaves the original URL intact and does not fail the
	// catalog build.
	c.ResolveRedirects(context.Background(), []string{"aka.ms"}, &fakeResolver{err: assert.AnError})

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://aka.ms/tool", entries[0].URL)
}

func TestResolveRedirects_SkipsVariableURLs(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://aka.ms/${tool}", Source: "s"},
	})
	c.ResolveVariables(nil)

	resolver := &fakeResolver{}
	c.ResolveRedirects(context.Background(), []string{"aka.ms"}, resolver)
	assert.Empty(t, resolver.calls)
}

func TestEntries_WithoutExplicitResolve(t *testing.T) {
	c := New(Options{})
	c.AddRecords([]model.DiscoveryRecord{
		{URL: "https://example.com/a.zip", Source: "s"},
	})
	// Entries() resolves with an empty variable map on demand.
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Cacheable)
}
