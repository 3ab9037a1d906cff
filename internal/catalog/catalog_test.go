package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadFromFile(t *testing.T) {
	p := writeFile(t, `[{"id":"a","path":"files/a.pdf"},{"id":"b","path":"files/b.pdf","weight":3}]`)

	items, src := Loader{File: p}.Load()
	assert.Equal(t, SourceFile, src)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, 1.0, items[0].Weight)
	assert.True(t, items[0].Active)
	assert.Equal(t, 3.0, items[1].Weight)
}

func TestLoadWrappedObject(t *testing.T) {
	p := writeFile(t, `{"items":[{"id":"a","path":"files/a.pdf","active":false}]}`)

	items, src := Loader{File: p}.Load()
	assert.Equal(t, SourceFile, src)
	require.Len(t, items, 1)
	assert.False(t, items[0].Active)
}

func TestLoadFallsBackToEnvJSON(t *testing.T) {
	p := writeFile(t, `{not json`)

	items, src := Loader{File: p, JSON: `[{"id":"e","path":"files/e.pdf"}]`}.Load()
	assert.Equal(t, SourceEnv, src)
	require.Len(t, items, 1)
	assert.Equal(t, "e", items[0].ID)
}

func TestLoadFallsBackToDefault(t *testing.T) {
	items, src := Loader{File: "/nonexistent/catalog.json", JSON: "]["}.Load()
	assert.Equal(t, SourceDefault, src)
	require.Len(t, items, 1)
	assert.Equal(t, "ebook_default", items[0].ID)
}

func TestDecodeSkipsIncompleteItems(t *testing.T) {
	items, err := decodeItems([]byte(`[{"id":"a"},{"path":"x"},{"id":"ok","path":"files/ok.pdf"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].ID)
}

func TestPickExplicitIDWinsRegardlessOfWeights(t *testing.T) {
	items := []Item{
		{ID: "a", Path: "files/a.pdf", Weight: 1, Active: true},
		{ID: "b", Path: "files/b.pdf", Weight: 3, Active: true},
	}
	for i := 0; i < 50; i++ {
		it, ok := Pick(items, "  B ")
		require.True(t, ok)
		assert.Equal(t, "files/b.pdf", it.Path)
	}
}

func TestPickIgnoresInactive(t *testing.T) {
	items := []Item{
		{ID: "a", Path: "files/a.pdf", Weight: 1, Active: false},
		{ID: "b", Path: "files/b.pdf", Weight: 1, Active: true},
	}

	// Requesting the inactive item falls through to the active set.
	it, ok := Pick(items, "a")
	require.True(t, ok)
	assert.Equal(t, "b", it.ID)
}

func TestPickEmptyActiveSet(t *testing.T) {
	items := []Item{{ID: "a", Path: "files/a.pdf", Weight: 1, Active: false}}
	_, ok := Pick(items, "")
	assert.False(t, ok)

	_, ok = Pick(nil, "")
	assert.False(t, ok)
}

func TestPickWeightedBoundaries(t *testing.T) {
	items := []Item{
		{ID: "a", Weight: 1},
		{ID: "b", Weight: 3},
	}
	assert.Equal(t, "a", pickWeighted(items, 0.5).ID)
	assert.Equal(t, "a", pickWeighted(items, 1.0).ID)
	assert.Equal(t, "b", pickWeighted(items, 1.5).ID)
	assert.Equal(t, "b", pickWeighted(items, 3.9).ID)
}

func TestPickWeightedFrequencies(t *testing.T) {
	items := []Item{
		{ID: "a", Path: "files/a.pdf", Weight: 1, Active: true},
		{ID: "b", Path: "files/b.pdf", Weight: 3, Active: true},
	}

	const n = 20000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		it, ok := Pick(items, "")
		require.True(t, ok)
		counts[it.ID]++
	}

	// Expected 25% / 75%, allow generous statistical slack.
	assert.InDelta(t, 0.25, float64(counts["a"])/n, 0.03)
	assert.InDelta(t, 0.75, float64(counts["b"])/n, 0.03)
}

func TestPickAllZeroWeights(t *testing.T) {
	items := []Item{
		{ID: "a", Path: "files/a.pdf", Weight: 0, Active: true},
		{ID: "b", Path: "files/b.pdf", Weight: 0, Active: true},
	}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		it, ok := Pick(items, "")
		require.True(t, ok)
		seen[it.ID] = true
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}
