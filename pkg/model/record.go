// Package model provides the data structures shared by the catalog, store and
// orchestration layers: discovery records, catalog entries, the persisted cache
// manifest and the coverage report.
package model

import (
	"strings"

	version "github.com/hashicorp/go-version"
)

// DiscoveryRecord is one raw URL mention found by scanning source material
// (installation scripts, version manifests). Records are immutable; the
// catalog merges duplicates.
type DiscoveryRecord struct {
	URL              string   `json:"url" yaml:"url"`
	Source           string   `json:"source" yaml:"source"`
	Category         Category `json:"category" yaml:"category"`
	HasVariables     bool     `json:"hasVariables,omitempty" yaml:"has_variables,omitempty"`
	NeedsRedirection bool     `json:"needsRedirection,omitempty" yaml:"needs_redirection,omitempty"`
	ToolName         string   `json:"toolName,omitempty" yaml:"tool_name,omitempty"`
	ToolVersion      string   `json:"toolVersion,omitempty" yaml:"tool_version,omitempty"`
	Checksum         Checksum `json:"expectedChecksum,omitempty" yaml:"expected_checksum,omitempty"`
}

// Checksum holds the digests a catalog entry expects, hex-encoded. Empty
// fields mean no expectation; verification is opt-in per entry.
type Checksum struct {
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	SHA512 string `json:"sha512,omitempty" yaml:"sha512,omitempty"`
}

// Empty reports whether no digest is expected.
func (c Checksum) Empty() bool {
	return c.SHA256 == "" && c.SHA512 == ""
}

// CatalogEntry is the deduplicated, variable-resolved unit of work: one
// artifact the cache should contain. Exactly one entry exists per distinct
// resolved URL.
type CatalogEntry struct {
	URL          string   `json:"url"`
	OriginalURL  string   `json:"originalUrl"`
	CacheKey     string   `json:"cacheKey"`
	Source       string   `json:"source"`
	Category     Category `json:"category"`
	Checksum     Checksum `json:"expectedChecksum,omitempty"`
	ToolName     string   `json:"toolName,omitempty"`
	ToolVersion  string   `json:"toolVersion,omitempty"`
	HasVariables bool     `json:"hasVariables,omitempty"`
	Cacheable    bool     `json:"cacheable"`
}

// NewerVersion reports whether a is a strictly newer semantic version than b.
// An unparseable candidate never wins; an unparseable incumbent always loses.
func NewerVersion(a, b string) bool {
	av, err := version.NewVersion(a)
	if err != nil {
		return false
	}
	bv, err := version.NewVersion(b)
	if err != nil {
		return true
	}
	return av.GreaterThan(bv)
}

// ContainsVariable reports whether s still carries a ${name} placeholder.
func ContainsVariable(s string) bool {
	i := strings.Index(s, "${")
	return i >= 0 && strings.Contains(s[i:], "}")
}
