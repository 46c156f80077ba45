package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// urlPattern matches http(s) URL literals in script text, including ones that
// embed ${variable} placeholders.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\x60)(]+`)

// trailingJunk is punctuation that belongs to the surrounding script syntax,
// not the URL.
const trailingJunk = ".,;:]}\\"

// maxScanTokenSize allows for scripts with very long lines (minified
// installers embed data URIs and long argument lists).
const maxScanTokenSize = 1024 * 1024

// ScanScript extracts discovery records from one script file. Every http(s)
// literal becomes a record tagged with the script's base name as its source.
// Unreadable files return a DiscoveryError; callers typically log and move on.
func ScanScript(path string) ([]model.DiscoveryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open script %s", path)
	}
	defer func() { _ = f.Close() }()

	source := filepath.Base(path)
	var records []model.DiscoveryRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	for scanner.Scan() {
		line := scanner.Text()
		if isCommentLine(line) {
			continue
		}
		for _, match := range urlPattern.FindAllString(line, -1) {
			u := strings.TrimRight(match, trailingJunk)
			if u == "" {
				continue
			}
			records = append(records, model.DiscoveryRecord{
				URL:          u,
				Source:       source,
				Category:     model.CategoryForURL(u),
				HasVariables: model.ContainsVariable(u),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return records, errors.Wrapf(err, "failed to scan script %s", path)
	}
	return records, nil
}

// ScanScripts scans many script files and concatenates their records. A
// single unreadable script is logged and skipped; scanning never fails as a
// whole.
func ScanScripts(paths []string) []model.DiscoveryRecord {
	var records []model.DiscoveryRecord
	for _, p := range paths {
		recs, err := ScanScript(p)
		if err != nil {
			logger.Warn("skipping unreadable script", logger.Fields{
				"path":  p,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, recs...)
	}
	return records
}

// isCommentLine filters full-line comments in the script dialects we scan
// (shell, PowerShell). URLs inside comments are usually documentation links,
// not downloads.
func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#!")
}
