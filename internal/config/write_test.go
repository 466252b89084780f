package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSetKeyInFile_NewKeyEmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")

	require.NoError(t, SetKeyInFile(path, "", "log-level", "debug"))
	assert.Equal(t, "log-level debug\n", readFile(t, path))
}

func TestSetKeyInFile_UpdateExistingKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("# logging\nlog-level info\nlog-format text\n"), 0644))

	require.NoError(t, SetKeyInFile(path, "", "log-level", "warn"))
	assert.Equal(t, "# logging\nlog-level warn\nlog-format text\n", readFile(t, path))
}

func TestSetKeyInFile_InsertsBeforeFirstSection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("log-level info\n\n[runner]\nmax-ticks 3\n"), 0644))

	require.NoError(t, SetKeyInFile(path, "", "log-format", "json"))
	assert.Equal(t, "log-level info\nlog-format json\n\n[runner]\nmax-ticks 3\n", readFile(t, path))
}

func TestSetKeyInFile_GlobalDoesNotMatchSectionKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("[runner]\nlog-level error\n"), 0644))

	require.NoError(t, SetKeyInFile(path, "", "log-level", "debug"))
	assert.Equal(t, "log-level debug\n[runner]\nlog-level error\n", readFile(t, path))
}

func TestSetKeyInFile_Section(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	content := "log-level info\n\n[runner]\nmax-ticks 3\n\n[http]\nlisten :8080\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	require.NoError(t, SetKeyInFile(path, "runner", "workers", "2"))
	assert.Equal(t, "log-level info\n\n[runner]\nmax-ticks 3\nworkers 2\n\n[http]\nlisten :8080\n", readFile(t, path))

	require.NoError(t, SetKeyInFile(path, "http", "listen", ":9090"))
	assert.Equal(t, "log-level info\n\n[runner]\nmax-ticks 3\nworkers 2\n\n[http]\nlisten :9090\n", readFile(t, path))
}

func TestSetKeyInFile_NewSection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("log-level info\n"), 0644))

	require.NoError(t, SetKeyInFile(path, "redis", "addr", "localhost:6379"))
	assert.Equal(t, "log-level info\n\n[redis]\naddr localhost:6379\n", readFile(t, path))

	c, err := LoadFromPath(path)
	require.NoError(t, err)
	value, _ := c.GetSectionOption("redis", "addr")
	assert.Equal(t, "localhost:6379", value)
}

func TestSetKeyInFile_EmptyValue(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")

	require.NoError(t, SetKeyInFile(path, "", "log-file", ""))
	assert.Equal(t, "log-file\n", readFile(t, path))
}

func TestSetKeyInFile_CreatesParentDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a", "b", "config")

	require.NoError(t, SetKeyInFile(path, "runner", "max-ticks", "9"))
	assert.Equal(t, "[runner]\nmax-ticks 9\n", readFile(t, path))
}

func TestSetKeyInFile_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")

	for _, v := range []string{"debug", "info", "warn"} {
		require.NoError(t, SetKeyInFile(path, "", "log-level", v))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config", entries[0].Name())
	assert.Equal(t, "log-level warn\n", readFile(t, path))
}
