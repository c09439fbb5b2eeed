package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BacklinkOutreach/internal/domain"
)

func TestJSONLedgerFileFormat(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	l := NewJSONLedger(root)
	ctx := context.Background()

	_, err := l.AddOptOut(ctx, "Spam.io")
	require.NoError(t, err)
	require.NoError(t, l.RecordSent(ctx, "a.com", "https://a.com/best", "2025-03-01", time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)))

	raw, err := os.ReadFile(filepath.Join(root, optOutFileName))
	require.NoError(t, err)
	var optOuts []string
	require.NoError(t, json.Unmarshal(raw, &optOuts))
	assert.Equal(t, []string{"spam.io"}, optOuts)

	raw, err = os.ReadFile(filepath.Join(root, sentLogFileName))
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc["entries"], 1)
	assert.Equal(t, "a.com", doc["entries"][0]["domain"])
	assert.Equal(t, "2025-03-01", doc["entries"][0]["date"])
	assert.Equal(t, "2025-03-01T08:00:00Z", doc["entries"][0]["timestamp"])
}

func TestJSONLedgerReadsLegacyMixedCase(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, optOutFileName), []byte(`["Mixed.Case.com"]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, sentLogFileName),
		[]byte(`{"entries":[{"domain":"Sent.COM","url":"u","date":"2025-01-01","timestamp":"2025-01-01T00:00:00Z"}]}`), 0o644))

	l := NewJSONLedger(root)
	ctx := context.Background()

	opted, err := l.IsOptedOut(ctx, "mixed.case.com")
	require.NoError(t, err)
	assert.True(t, opted)

	added, err := l.AddOptOut(ctx, "MIXED.case.COM")
	require.NoError(t, err)
	assert.False(t, added)

	sent, err := l.AllSentDomains(ctx)
	require.NoError(t, err)
	assert.Contains(t, sent, "sent.com")
}

func TestJSONLedgerCorruptionIsExplicit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, sentLogFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"entries": [`), 0o644))

	l := NewJSONLedger(root)
	_, err := l.AllSentDomains(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptArtifact))

	var artifactErr *domain.ArtifactError
	require.True(t, errors.As(err, &artifactErr))
	assert.Equal(t, path, artifactErr.Path)

	// a write must not paper over the corrupt log
	err = l.RecordSent(context.Background(), "a.com", "u", "2025-01-01", time.Now())
	assert.True(t, errors.Is(err, domain.ErrCorruptArtifact))
	raw, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, `{"entries": [`, string(raw))
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")
	require.NoError(t, writeJSON(path, map[string]int{"a": 1}))
	require.NoError(t, writeJSON(path, map[string]int{"a": 2}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())

	var out map[string]int
	found, err := readJSON(path, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, out["a"])
}
