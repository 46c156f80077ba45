// Package catalog turns raw, noisy discovery records into a clean,
// deduplicated, variable-resolved working set of catalog entries. It also
// provides the discovery side: scanning scripts for URL literals and loading
// version-manifest feeds.
package catalog

import (
	"context"
	"net/url"
	"strings"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/address"
	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// Options control catalog policy decisions.
type Options struct {
	// CacheUnresolved opts in to treating URLs that still carry ${...}
	// placeholders after variable resolution as cacheable. Off by default:
	// a partially resolved URL usually 404s and pollutes the cache.
	CacheUnresolved bool
}

// Catalog deduplicates discovery records by exact URL and resolves them into
// catalog entries. It is not safe for concurrent use; orchestration builds one
// catalog per run.
type Catalog struct {
	opts    Options
	order   []string                         // first-seen URL order
	records map[string]model.DiscoveryRecord // keyed by exact URL string
	// resolution state, rebuilt by ResolveVariables / ResolveRedirects
	resolved []resolvedRecord
	entries  []model.CatalogEntry
}

type resolvedRecord struct {
	url    string // current, possibly redirect-followed form
	record model.DiscoveryRecord
}

// New creates an empty catalog.
func New(opts Options) *Catalog {
	return &Catalog{
		opts:    opts,
		records: make(map[string]model.DiscoveryRecord),
	}
}

// AddRecords merges discovery records into the catalog. Duplicate URLs (exact,
// case-sensitive string match) are expected and silently merged, keeping the
// first-seen record. Records whose URL cannot be parsed are skipped with a log
// line; a bad record never fails the catalog build.
func (c *Catalog) AddRecords(records []model.DiscoveryRecord) {
	for _, r := range records {
		if err := validateRecordURL(r.URL); err != nil {
			logger.Warn("skipping malformed discovery record", logger.Fields{
				"url":    r.URL,
				"source": r.Source,
				"error":  err.Error(),
			})
			continue
		}
		if _, seen := c.records[r.URL]; seen {
			continue
		}
		if r.Category == "" {
			r.Category = model.CategoryForURL(r.URL)
		}
		r.HasVariables = model.ContainsVariable(r.URL)
		c.records[r.URL] = r
		c.order = append(c.order, r.URL)
	}
	// Invalidate any previous resolution.
	c.resolved = nil
	c.entries = nil
}

// Len returns the number of distinct discovered URLs.
func (c *Catalog) Len() int {
	return len(c.order)
}

// ResolveVariables substitutes every ${key} occurrence for keys present in
// variables, by literal string replacement. Entries with leftover placeholders
// are tagged HasVariables and excluded from the cacheable set unless the
// CacheUnresolved option is set. It returns the resulting entries.
func (c *Catalog) ResolveVariables(variables map[string]string) []model.CatalogEntry {
	c.resolved = c.resolved[:0]
	for _, u := range c.order {
		rec := c.records[u]
		final := substitute(u, variables)
		c.resolved = append(c.resolved, resolvedRecord{url: final, record: rec})
	}
	c.rebuildEntries()
	return c.entries
}

// ResolveRedirects follows known short-link hosts to their concrete targets.
// For every resolved record whose host is in domains, it asks the resolver for
// the redirect target and swaps in the final URL. This is best-effort
// enrichment: resolver failures and non-redirects leave the original URL
// intact and never fail the catalog build. Records still carrying variables
// are skipped; a templated short link cannot be followed.
func (c *Catalog) ResolveRedirects(ctx context.Context, domains []string, resolver HeadResolver) {
	if len(domains) == 0 || resolver == nil {
		return
	}
	c.ensureResolved()
	hosts := make(map[string]bool, len(domains))
	for _, d := range domains {
		hosts[strings.ToLower(d)] = true
	}
	for i := range c.resolved {
		rr := &c.resolved[i]
		if model.ContainsVariable(rr.url) {
			continue
		}
		u, err := url.Parse(rr.url)
		if err != nil || !hosts[strings.ToLower(u.Hostname())] {
			continue
		}
		target, err := resolver.ResolveHead(ctx, rr.url)
		if err != nil {
			logger.Debug("redirect resolution failed, keeping original", logger.Fields{
				"url":   rr.url,
				"error": err.Error(),
			})
			continue
		}
		if target == "" || target == rr.url {
			continue
		}
		logger.Debug("resolved redirect", logger.Fields{"from": rr.url, "to": target})
		rr.url = target
	}
	c.rebuildEntries()
}

// Entries returns the final working set, free of exact-duplicate URLs. If no
// resolution has been performed, records are resolved with an empty variable
// map first.
func (c *Catalog) Entries() []model.CatalogEntry {
	c.ensureResolved()
	out := make([]model.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// CacheableEntries returns only the entries eligible for download scheduling.
func (c *Catalog) CacheableEntries() []model.CatalogEntry {
	var out []model.CatalogEntry
	for _, e := range c.Entries() {
		if e.Cacheable {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) ensureResolved() {
	if c.resolved == nil {
		c.ResolveVariables(nil)
	}
}

// rebuildEntries collapses resolved records into one entry per distinct final
// URL. When two records resolve to the identical URL via different
// substitutions, the last-resolved metadata wins; the cache key is unaffected
// since it derives only from the URL.
func (c *Catalog) rebuildEntries() {
	byURL := make(map[string]int)
	entries := make([]model.CatalogEntry, 0, len(c.resolved))
	for _, rr := range c.resolved {
		hasVars := model.ContainsVariable(rr.url)
		entry := model.CatalogEntry{
			URL:          rr.url,
			OriginalURL:  rr.record.URL,
			CacheKey:     address.ComputeKey(rr.url),
			Source:       rr.record.Source,
			Category:     rr.record.Category,
			Checksum:     rr.record.Checksum,
			ToolName:     rr.record.ToolName,
			ToolVersion:  rr.record.ToolVersion,
			HasVariables: hasVars,
			Cacheable:    !hasVars || c.opts.CacheUnresolved,
		}
		if i, ok := byURL[rr.url]; ok {
			entries[i] = entry
			continue
		}
		byURL[rr.url] = len(entries)
		entries = append(entries, entry)
	}
	c.entries = entries
}

// substitute performs literal ${key} replacement for every key present in
// variables. No recursion: a substituted value containing another placeholder
// is left as-is.
func substitute(s string, variables map[string]string) string {
	if len(variables) == 0 || !strings.Contains(s, "${") {
		return s
	}
	for k, v := range variables {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}

func validateRecordURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.Wrap(errors.ErrMalformedRecord, "empty URL")
	}
	// Placeholders are legal at this stage; mask them so url.Parse judges the
	// rest of the string.
	probe := strings.NewReplacer("${", "", "}", "").Replace(rawURL)
	u, err := url.Parse(probe)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Wrapf(errors.ErrInvalidURL, "unsupported scheme %q", u.Scheme)
	}
	return nil
}
