// Package coverage compares the catalog's expected set against the cache
// store's actual contents and produces a structured coverage report.
package coverage

import (
	"math"
	"os"
	"sort"

	"github.com/nikolai-in/dlcache/pkg/model"
)

// ArtifactStore is the read-only view of the cache store the analyzer needs.
type ArtifactStore interface {
	Locate(entry model.CatalogEntry) (string, bool)
	Manifest() model.CacheManifest
}

// Analyze checks every catalog entry against the store and buckets it as
// cached, missing or unresolved. The operation is read-only: it never triggers
// downloads or mutates the store.
//
// Coverage accounting: only cacheable entries count toward the denominator.
// Entries still carrying unresolved variables are reported under Unresolved
// and never dilute the percentage, since the cache could not hold them anyway.
// An empty expected set yields 0 percent, not a division error. ByCategory
// groups both the cached and missing buckets, so a category that is entirely
// missing still shows up in the breakdown.
func Analyze(entries []model.CatalogEntry, store ArtifactStore) model.CoverageReport {
	report := model.CoverageReport{
		ByCategory: make(map[model.Category]int),
	}
	manifest := store.Manifest()

	for _, e := range entries {
		if !e.Cacheable {
			report.Unresolved = append(report.Unresolved, model.MissingEntry{
				URL:      e.URL,
				Source:   e.Source,
				Category: e.Category,
			})
			continue
		}
		report.TotalExpected++
		report.ByCategory[e.Category]++

		path, ok := store.Locate(e)
		if !ok {
			report.Missing = append(report.Missing, model.MissingEntry{
				URL:      e.URL,
				Source:   e.Source,
				Category: e.Category,
			})
			continue
		}

		report.TotalCached++
		cached := model.CachedEntry{URL: e.URL}
		if me, found := manifest.Lookup(e.CacheKey); found {
			cached.RelativePath = me.RelativePath
			cached.FileSizeBytes = me.FileSizeBytes
		} else if info, err := os.Stat(path); err == nil {
			// On disk but absent from the manifest: manifest drift, filesystem
			// wins.
			cached.RelativePath = path
			cached.FileSizeBytes = info.Size()
		}
		report.Cached = append(report.Cached, cached)
	}

	report.CoveragePercent = Percent(report.TotalCached, report.TotalExpected)

	sort.Slice(report.Missing, func(i, j int) bool { return report.Missing[i].URL < report.Missing[j].URL })
	sort.Slice(report.Cached, func(i, j int) bool { return report.Cached[i].URL < report.Cached[j].URL })
	sort.Slice(report.Unresolved, func(i, j int) bool { return report.Unresolved[i].URL < report.Unresolved[j].URL })
	return report
}

// Percent computes cached/expected as a percentage rounded to two decimals.
// Zero expected entries yield zero, by definition.
func Percent(cached, expected int) float64 {
	if expected == 0 {
		return 0
	}
	return math.Round(float64(cached)/float64(expected)*100*100) / 100
}
