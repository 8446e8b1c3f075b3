package extract

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedDumper(t *testing.T) (*Dumper, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := NewDumper(dir, nil)
	require.NoError(t, err)
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	d.now = func() time.Time { return at }
	return d, dir
}

func TestDumperFormat(t *testing.T) {
	d, dir := fixedDumper(t)

	ref, err := d.WriteInput("openai/gpt-5-mini", "a.pdf", "prompt", map[string]any{"type": "object"}, map[string]any{"model": "openai/gpt-5-mini"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240315T103000.000000-input-openai-gpt-5-mini.json"), ref.Path)

	out, err := d.WriteOutput(ref, "openai/gpt-5-mini", "openai/gpt-5-mini-2025", json.RawMessage(`{"choices":[]}`), http.Header{"X-Test": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240315T103000.000000-output-openai-gpt-5-mini.json"), out)

	var in map[string]any
	b, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &in))
	for _, k := range []string{"model", "file_name", "timestamp", "prompt", "schema", "payload"} {
		assert.Contains(t, in, k)
	}

	var outDoc map[string]any
	b, err = os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &outDoc))
	assert.Equal(t, "openai/gpt-5-mini-2025", outDoc["actual_model"])
	for _, k := range []string{"model", "actual_model", "timestamp", "response", "headers"} {
		assert.Contains(t, outDoc, k)
	}
}

func TestDumperNeverOverwrites(t *testing.T) {
	d, dir := fixedDumper(t)

	const n = 8
	var wg sync.WaitGroup
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := d.WriteInput("m", "a.pdf", "p", nil, nil)
			assert.NoError(t, err)
			paths[i] = ref.Path
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
	assert.FileExists(t, filepath.Join(dir, "20240315T103000.000000-input-m-1.json"))
}

func TestDumperOutputKeepsInputSuffix(t *testing.T) {
	d, dir := fixedDumper(t)

	first, err := d.WriteInput("m", "a.pdf", "p", nil, nil)
	require.NoError(t, err)
	second, err := d.WriteInput("m", "b.pdf", "p", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Suffix)
	assert.Equal(t, 1, second.Suffix)

	// The second response lands first; it must not take the unsuffixed name.
	out2, err := d.WriteOutput(second, "m", "m", json.RawMessage(`{"n":2}`), nil)
	require.NoError(t, err)
	out1, err := d.WriteOutput(first, "m", "m", json.RawMessage(`{"n":1}`), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "20240315T103000.000000-output-m-1.json"), out2)
	assert.Equal(t, filepath.Join(dir, "20240315T103000.000000-output-m.json"), out1)
}

func TestDumperWrapsNonJSONResponse(t *testing.T) {
	d, _ := fixedDumper(t)
	ref, err := d.WriteInput("m", "a.pdf", "p", nil, nil)
	require.NoError(t, err)
	out, err := d.WriteOutput(ref, "m", "", json.RawMessage("<html>"), nil)
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"response": "<html>"`)
}

func TestModelSlug(t *testing.T) {
	assert.Equal(t, "google-gemini-2.5-flash-lite", ModelSlug("google/gemini-2.5-flash-lite"))
	assert.Equal(t, "meta-llama-llama-3-8b-instruct-free", ModelSlug("meta-llama/llama-3-8b-instruct:free"))
	assert.Equal(t, "model", ModelSlug("///"))
}
