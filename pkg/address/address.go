// Package address maps download URLs to deterministic cache keys and relative
// storage paths. Keys derive from the raw URL string only, so the same catalog
// always produces the same on-disk layout.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/nikolai-in/dlcache/pkg/model"
)

// shortHashLen is the number of hex characters used for generated filenames.
const shortHashLen = 12

// maxFilenameLen caps the human-readable suffix so category partitions stay
// browsable even for absurdly long URL paths.
const maxFilenameLen = 100

// ComputeKey returns the cache key for a URL: the hex SHA-256 of its raw UTF-8
// bytes. No canonicalization is applied; trailing slashes, query order and
// casing all produce distinct keys. Callers wanting dedup-by-semantics must
// canonicalize before calling.
func ComputeKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// ComputePath derives the relative storage path for a key:
// <category>/<key>_<filename>, where filename comes from the URL's path
// component. URLs without a usable filename segment get a generated
// download_<shorthash> name. The category is a coarse partition directory,
// not a correctness boundary.
func ComputePath(key, rawURL string, category model.Category) string {
	if !category.Valid() {
		category = model.CategoryUnknown
	}
	return path.Join(category.String(), key+"_"+filenameFor(key, rawURL))
}

func filenameFor(key, rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = sanitize(path.Base(u.Path))
	}
	if name == "" {
		name = fmt.Sprintf("download_%s", key[:shortHashLen])
	}
	if len(name) > maxFilenameLen {
		name = name[len(name)-maxFilenameLen:]
	}
	return name
}

// sanitize strips path-meaningful segments and characters that are unsafe in
// filenames on common filesystems.
func sanitize(base string) string {
	if base == "." || base == "/" || base == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_' || r == '+':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
