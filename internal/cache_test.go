package internal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnoswap-labs/gpath/internal/types"
)

func sampleFindings(filename string) []tt.Finding {
	return []tt.Finding{{
		Rule:     "caps",
		Kind:     tt.KindQuery,
		Severity: tt.SeverityWarning,
		Filename: filename,
		Start:    0,
		End:      1,
		Value:    "Hello",
		Message:  "capitalized word",
	}}
}

func writeFile(t *testing.T, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
}

func TestCache(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")
	cache, err := NewCache(cacheDir, "rules-1")
	require.NoError(t, err)

	t.Run("SaveAndLoad", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "doc.yaml")
		writeFile(t, filename, "text: Hello world\n")
		findings := sampleFindings(filename)

		require.NoError(t, cache.Set(filename, findings))
		loaded, found := cache.Get(filename)
		assert.True(t, found)
		assert.Equal(t, findings, loaded)

		reopened, err := NewCache(cacheDir, "rules-1")
		require.NoError(t, err)
		loaded, found = reopened.Get(filename)
		assert.True(t, found)
		assert.Equal(t, findings, loaded)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent.yaml")
		assert.False(t, found)
	})

	t.Run("ContentChanged", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "modified.yaml")
		writeFile(t, filename, "text: Hello world\n")
		require.NoError(t, cache.Set(filename, sampleFindings(filename)))

		writeFile(t, filename, "text: Goodbye world\n")
		_, found := cache.Get(filename)
		assert.False(t, found)
	})

	t.Run("TouchedButUnchanged", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "touched.yaml")
		writeFile(t, filename, "text: Hello world\n")
		require.NoError(t, cache.Set(filename, sampleFindings(filename)))

		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(filename, later, later))
		loaded, found := cache.Get(filename)
		assert.True(t, found)
		assert.Equal(t, sampleFindings(filename), loaded)
	})

	t.Run("Removed", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "removed.yaml")
		writeFile(t, filename, "text: Hello\n")
		require.NoError(t, cache.Set(filename, sampleFindings(filename)))

		require.NoError(t, os.Remove(filename))
		_, found := cache.Get(filename)
		assert.False(t, found)
	})

	t.Run("Expired", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "expired.yaml")
		writeFile(t, filename, "text: Hello\n")
		require.NoError(t, cache.Set(filename, sampleFindings(filename)))

		cache.SetMaxAge(time.Nanosecond)
		time.Sleep(time.Millisecond)
		_, found := cache.Get(filename)
		assert.False(t, found)
		cache.SetMaxAge(0)
	})
}

func TestCacheRulesetChange(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")
	doc := filepath.Join(tmpDir, "doc.yaml")
	writeFile(t, doc, "text: Hello\n")

	cache, err := NewCache(cacheDir, "rules-1")
	require.NoError(t, err)
	require.NoError(t, cache.Set(doc, sampleFindings(doc)))

	other, err := NewCache(cacheDir, "rules-2")
	require.NoError(t, err)
	_, found := other.Get(doc)
	assert.False(t, found, "findings of another ruleset are not reused")

	same, err := NewCache(cacheDir, "rules-1")
	require.NoError(t, err)
	_, found = same.Get(doc)
	assert.True(t, found)

	require.NoError(t, same.Clear())
	reopened, err := NewCache(cacheDir, "rules-1")
	require.NoError(t, err)
	_, found = reopened.Get(doc)
	assert.False(t, found)
}

func TestCacheRejectsCorruptFile(t *testing.T) {
	t.Parallel()
	cacheDir := t.TempDir()
	writeFile(t, filepath.Join(cacheDir, cacheFileName), "not gob")

	_, err := NewCache(cacheDir, "rules")
	assert.ErrorContains(t, err, "failed to decode cache file")
}

func TestCacheConcurrency(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"), "rules")
	require.NoError(t, err)

	doc := filepath.Join(tmpDir, "doc.yaml")
	writeFile(t, doc, "text: Hello\n")
	findings := sampleFindings(doc)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(doc, findings))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get(doc)
		}()
	}
	wg.Wait()

	loaded, found := cache.Get(doc)
	assert.True(t, found)
	assert.Equal(t, findings, loaded)

	entries, err := os.ReadDir(cache.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are renamed or removed")
	assert.Equal(t, cacheFileName, entries[0].Name())
}
