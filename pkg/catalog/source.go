package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// SourceDescriptor names the material a catalog build discovers URLs from:
// script files to scan, version-manifest feeds and inline records, plus the
// variable map and redirect domains to use during resolution.
type SourceDescriptor struct {
	Scripts         []string                `yaml:"scripts"`
	Manifests       []string                `yaml:"manifests"`
	Records         []model.DiscoveryRecord `yaml:"records"`
	Variables       map[string]string       `yaml:"variables"`
	RedirectDomains []string                `yaml:"redirect_domains"`
}

// LoadSourceDescriptor reads a YAML source descriptor. Relative script and
// manifest paths are resolved against the descriptor's directory.
func LoadSourceDescriptor(path string) (*SourceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read source descriptor %s", path)
	}
	var desc SourceDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	base := filepath.Dir(path)
	for i, p := range desc.Scripts {
		if !filepath.IsAbs(p) {
			desc.Scripts[i] = filepath.Join(base, p)
		}
	}
	for i, p := range desc.Manifests {
		if !filepath.IsAbs(p) {
			desc.Manifests[i] = filepath.Join(base, p)
		}
	}
	return &desc, nil
}

// ManifestTool is one record in a version-manifest feed: an opaque
// {name, version, url} tuple with an optional checksum.
type ManifestTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
	SHA256  string `json:"sha256,omitempty"`
}

// LoadVersionManifest reads a JSON version-manifest feed and turns it into
// discovery records. When a tool appears with several versions, only the
// newest parseable release survives; rolling feeds republish old versions and
// caching all of them would make coverage unreachable.
func LoadVersionManifest(path string) ([]model.DiscoveryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read version manifest %s", path)
	}
	var tools []ManifestTool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedRecord, "%s: %v", path, err)
	}

	newest := make(map[string]ManifestTool)
	for _, t := range tools {
		if t.URL == "" || t.Name == "" {
			logger.Warn("skipping manifest record without name or url", logger.Fields{
				"manifest": path,
				"name":     t.Name,
			})
			continue
		}
		cur, seen := newest[t.Name]
		if !seen || model.NewerVersion(t.Version, cur.Version) {
			newest[t.Name] = t
		}
	}

	source := filepath.Base(path)
	records := make([]model.DiscoveryRecord, 0, len(newest))
	for _, t := range tools {
		if newest[t.Name] != t {
			continue
		}
		records = append(records, model.DiscoveryRecord{
			URL:         t.URL,
			Source:      source,
			Category:    model.CategoryForURL(t.URL),
			ToolName:    t.Name,
			ToolVersion: t.Version,
			Checksum:    model.Checksum{SHA256: t.SHA256},
		})
	}
	return records, nil
}

// DiscoverRecords runs the full discovery side of a descriptor: inline
// records, script scans and manifest feeds, in that order. Unreadable feeds
// are logged and skipped, matching the never-fatal discovery contract.
func DiscoverRecords(desc *SourceDescriptor) []model.DiscoveryRecord {
	records := make([]model.DiscoveryRecord, 0, len(desc.Records))
	records = append(records, desc.Records...)
	records = append(records, ScanScripts(desc.Scripts)...)
	for _, m := range desc.Manifests {
		recs, err := LoadVersionManifest(m)
		if err != nil {
			logger.Warn("skipping unreadable version manifest", logger.Fields{
				"path":  m,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, recs...)
	}
	return records
}
