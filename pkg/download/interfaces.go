//go:generate mockgen -destination=mocks/download.go -package=mocks . Fetcher

package download

import (
	"context"

	"github.com/nikolai-in/dlcache/pkg/model"
)

// Fetcher downloads the bytes for a cache miss into a temp file. It never
// writes to a final cache path; committing is the store's job.
type Fetcher interface {
	// Fetch streams the URL's body to destTemp, retrying transport failures
	// per the fetcher's policy. The returned result carries the terminal
	// status; a failed fetch leaves no file at destTemp.
	Fetch(ctx context.Context, rawURL, destTemp string) model.FetchResult
}
