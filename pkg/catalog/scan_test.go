package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolai-in/dlcache/pkg/model"
)

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanScript(t *testing.T) {
	script := writeScript(t, "install-node.sh", `#!/bin/bash
# Downloads node from https://nodejs.org/docs (documentation link, ignored)
NODE_URL="https://nodejs.org/dist/v${NODE_VERSION}/node-v${NODE_VERSION}-linux-x64.tar.gz"
curl -fsSL "$NODE_URL" -o node.tar.gz
wget https://example.com/checksums.sha256
echo "done, see https://example.com/tool.zip."
`)

	records, err := ScanScript(script)
	require.NoError(t, err)
	require.Len(t, records, 3)

	urls := make([]string, 0, len(records))
	for _, r := range records {
		urls = append(urls, r.URL)
		assert.Equal(t, "install-node.sh", r.Source)
	}
	assert.Equal(t, []string{
		"https://nodejs.org/dist/v${NODE_VERSION}/node-v${NODE_VERSION}-linux-x64.tar.gz",
		"https://example.com/checksums.sha256",
		"https://example.com/tool.zip",
	}, urls)

	assert.True(t, records[0].HasVariables)
	assert.Equal(t, model.CategoryArchive, records[0].Category)
	assert.Equal(t, model.CategoryManifest, records[1].Category)
}

func TestScanScript_Missing(t *testing.T) {
	_, err := ScanScript(filepath.Join(t.TempDir(), "absent.sh"))
	assert.Error(t, err)
}

func TestScanScripts_SkipsUnreadable(t *testing.T) {
	good := writeScript(t, "good.ps1", `Invoke-WebRequest -Uri "https://example.com/a.msi"`)
	records := ScanScripts([]string{
		filepath.Join(t.TempDir(), "absent.sh"),
		good,
	})
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/a.msi", records[0].URL)
}
