package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryForURL(t *testing.T) {
	tests := []struct {
		url  string
		want Category
	}{
		{"https://example.com/tool-1.0.msi", CategoryInstaller},
		{"https://example.com/node-v20.tar.gz", CategoryArchive},
		{"https://example.com/versions.json", CategoryManifest},
		{"https://example.com/pkg_1.2_amd64.deb", CategoryPackage},
		{"https://example.com/install.sh", CategoryScript},
		{"https://example.com/lib.so", CategoryLibrary},
		{"https://example.com/archive.zip?token=x", CategoryArchive},
		{"https://example.com/download", CategoryUnknown},
		{"https://example.com/", CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryForURL(tt.url))
		})
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Valid(), "category %s should be valid", c)
	}
	assert.False(t, Category("bogus").Valid())
	assert.False(t, Category("").Valid())
}

func TestContainsVariable(t *testing.T) {
	assert.True(t, ContainsVariable("https://x.com/a?v=${version}"))
	assert.True(t, ContainsVariable("${base}/file.zip"))
	assert.False(t, ContainsVariable("https://x.com/a?v=2.1"))
	assert.False(t, ContainsVariable("https://x.com/$version"))
	assert.False(t, ContainsVariable("https://x.com/${unclosed"))
}

func TestChecksumEmpty(t *testing.T) {
	assert.True(t, Checksum{}.Empty())
	assert.False(t, Checksum{SHA256: "abc"}.Empty())
	assert.False(t, Checksum{SHA512: "abc"}.Empty())
}

func TestManifestLookup(t *testing.T) {
	m := CacheManifest{
		Entries: []CacheManifestEntry{
			{CacheKey: "k1", OriginalURL: "https://example.com/a"},
			{CacheKey: "k2", OriginalURL: "https://example.com/b"},
		},
	}
	e, ok := m.Lookup("k2")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/b", e.OriginalURL)

	_, ok = m.Lookup("k3")
	assert.False(t, ok)
}

func TestBuildSummaryAdd(t *testing.T) {
	var s BuildSummary
	s.Add(EntryResult{Outcome: OutcomeDownloaded})
	s.Add(EntryResult{Outcome: OutcomeSkipped})
	s.Add(EntryResult{Outcome: OutcomeSkipped})
	s.Add(EntryResult{Outcome: OutcomeFailed})

	assert.Equal(t, 1, s.Downloaded)
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Len(t, s.Results, 4)
}

func TestNewerVersion(t *testing.T) {
	assert.True(t, NewerVersion("2.1.0", "2.0.9"))
	assert.False(t, NewerVersion("1.0", "1.0"))
	assert.False(t, NewerVersion("garbage", "1.0"))
	assert.True(t, NewerVersion("1.0", "garbage"))
}
