package model

// MissingEntry describes one expected artifact absent from the cache.
type MissingEntry struct {
	URL      string   `json:"url"`
	Source   string   `json:"source"`
	Category Category `json:"category"`
}

// CachedEntry describes one expected artifact present in the cache.
type CachedEntry struct {
	URL           string `json:"url"`
	RelativePath  string `json:"relativePath"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
}

// CoverageReport summarizes the catalog against the cache contents. ByCategory
// counts every expected entry, cached or missing, per category. Unresolved
// entries (URLs still carrying variables) are reported separately and do not
// count toward the coverage denominator.
type CoverageReport struct {
	TotalExpected   int              `json:"totalExpected"`
	TotalCached     int              `json:"totalCached"`
	CoveragePercent float64          `json:"coveragePercent"`
	ByCategory      map[Category]int `json:"byCategory"`
	Missing         []MissingEntry   `json:"missing"`
	Cached          []CachedEntry    `json:"cached"`
	Unresolved      []MissingEntry   `json:"unresolved,omitempty"`
}

// FetchStatus is the terminal state of a single fetch attempt sequence.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailed  FetchStatus = "failed"
)

// FetchResult reports the outcome of fetching one URL.
type FetchResult struct {
	Status       FetchStatus
	BytesWritten int64
	Attempts     int
	LastError    error
}

// EntryOutcome is how the build workflow disposed of one catalog entry.
type EntryOutcome string

const (
	OutcomeDownloaded EntryOutcome = "downloaded"
	OutcomeSkipped    EntryOutcome = "skipped"
	OutcomeFailed     EntryOutcome = "failed"
)

// EntryResult pairs a catalog entry with its build outcome.
type EntryResult struct {
	Entry   CatalogEntry
	Outcome EntryOutcome
	Err     error
}

// BuildSummary aggregates a build run. Failed entries keep their last error so
// the closing summary can name the offending URL without re-reading logs.
type BuildSummary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Results    []EntryResult
}

// Add records one entry result.
func (s *BuildSummary) Add(r EntryResult) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeDownloaded:
		s.Downloaded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
