package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	collectionFlag, seedRate, seedBatch, searchK = "", 0, 0, 3
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGENTVEC_BACKEND", "sqlite")
	t.Setenv("AGENTVEC_COLLECTION", "agents")
	t.Setenv("AGENTVEC_LOG_LEVEL", "error")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "agents.sqlite"))
	t.Setenv("ENCODER_KIND", "hashing")
	return dir
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "agentvec "+version+"\n", out)
}

func TestInitIsIdempotent(t *testing.T) {
	useSQLite(t)
	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "collection agents created")

	out, err = run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestSeedSearchReindex(t *testing.T) {
	dir := useSQLite(t)
	seedFile := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`[
		{"name": "gopher", "keywords": ["golang", "concurrency"]},
		{"name": "pythonista", "keywords": ["python", "notebooks"]},
		{"name": "rustacean", "keywords": ["rust", "ownership"]}
	]`), 0o644))

	out, err := run(t, "seed", seedFile, "--batch", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 3 of 3 agents")

	out, err = run(t, "search", "-k", "1", "golang", "concurrency")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, "0.0000  gopher", lines[0])

	out, err = run(t, "insert", "crab", "rust", "ownership")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = run(t, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "index rebuilt")
}

func TestCollectionFlagValidated(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "init", "--collection", "bad name!")
	require.Error(t, err)
}

func TestSearchMissingCollection(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "search", "golang")
	require.Error(t, err)
}
