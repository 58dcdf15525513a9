package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

func usageLine(ts, msgID, reqID string, input, output uint64) string {
	return fmt.Sprintf(`{"timestamp":%q,"requestId":%q,"message":{"id":%q,"model":"claude-sonnet-4-20250514","usage":{"input_tokens":%d,"output_tokens":%d,"cache_creation_input_tokens":7,"cache_read_input_tokens":11}}}`,
		ts, reqID, msgID, input, output)
}

func writeLog(t *testing.T, root, project, name string, lines ...string) string {
	t.Helper()
	dir := filepath.Join(root, project)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{"valid", usageLine("2025-06-01T09:00:00.123Z", "m1", "r1", 10, 20), false},
		{"offset timezone", usageLine("2025-06-01T11:00:00+02:00", "m1", "r1", 10, 20), false},
		{"no timezone", usageLine("2025-06-01T09:00:00", "m1", "r1", 10, 20), true},
		{"garbage", `{not json`, true},
		{"user line without usage", `{"timestamp":"2025-06-01T09:00:00Z","type":"user","message":{"role":"user"}}`, true},
		{"missing output tokens", `{"timestamp":"2025-06-01T09:00:00Z","message":{"usage":{"input_tokens":5}}}`, true},
		{"missing timestamp", `{"message":{"usage":{"input_tokens":5,"output_tokens":1}}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	event, err := ParseLine([]byte(usageLine("2025-06-01T11:00:00+02:00", "m1", "r1", 10, 20)))
	require.NoError(t, err)
	assert.True(t, event.Timestamp.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "m1:r1", event.DedupKey())
	assert.Equal(t, types.TokenUsage{InputTokens: 10, OutputTokens: 20, CacheCreationInputTokens: 7, CacheReadInputTokens: 11}, event.Usage)
}

func TestLoad_DedupAndOrder(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "proj-a", "a.jsonl",
		usageLine("2025-06-01T10:00:00Z", "m2", "r2", 2, 2),
		usageLine("2025-06-01T09:00:00Z", "m1", "r1", 100, 50),
		"{broken",
	)
	writeLog(t, root, "proj-b", "b.jsonl",
		usageLine("2025-06-01T09:00:00Z", "m1", "r1", 999, 999),
		usageLine("2025-06-01T09:30:00Z", "", "r3", 1, 1),
		usageLine("2025-06-01T09:30:00Z", "", "r3", 1, 1),
	)
	writeLog(t, root, "proj-b", "notes.txt", "ignored")

	l := New(WithClock(time.Now))
	events, err := l.Load(context.Background(), []string{root, root})
	require.NoError(t, err)

	require.Len(t, events, 4, "keyed duplicates collapse, keyless events are all kept")
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp))
	}

	first := events[0]
	assert.Equal(t, "m1", first.MessageID)
	assert.Equal(t, uint64(100), first.Usage.InputTokens, "first occurrence in scan order wins")
	assert.Contains(t, first.Source, "a.jsonl")
}

func TestLoad_LookbackFiltersOldFiles(t *testing.T) {
	root := t.TempDir()
	old := writeLog(t, root, "proj", "old.jsonl", usageLine("2025-06-01T00:00:00Z", "m1", "r1", 1, 1))
	writeLog(t, root, "proj", "new.jsonl", usageLine("2025-06-01T01:00:00Z", "m2", "r2", 1, 1))

	stale := time.Now().Add(-13 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	events, err := New(WithLookback(12*time.Hour)).Load(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "m2", events[0].MessageID)
}

func TestLoad_MissingRootIsFatal(t *testing.T) {
	_, err := New().Load(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	var loaderErr types.LoaderError
	assert.ErrorAs(t, err, &loaderErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "proj", "a.jsonl", usageLine("2025-06-01T00:00:00Z", "m1", "r1", 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Load(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatestFile(t *testing.T) {
	root := t.TempDir()
	older := writeLog(t, root, "p1", "older.jsonl", "{}")
	newer := writeLog(t, root, "p2", "newer.jsonl", "{}")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	got, err := LatestFile([]string{root})
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	_, err = LatestFile([]string{t.TempDir()})
	assert.ErrorIs(t, err, types.ErrDataNotFound)
}

func TestLastContextTokens(t *testing.T) {
	root := t.TempDir()
	path := writeLog(t, root, "p", "s.jsonl",
		usageLine("2025-06-01T09:00:00Z", "m1", "r1", 100, 5),
		usageLine("2025-06-01T09:01:00Z", "m2", "r2", 200, 5),
		`{"type":"user"}`,
	)

	tokens, ok := LastContextTokens(path)
	require.True(t, ok)
	assert.Equal(t, uint64(200+7+11), tokens)

	_, ok = LastContextTokens(filepath.Join(root, "missing.jsonl"))
	assert.False(t, ok)
}

func TestDiscoverRoots(t *testing.T) {
	t.Run("configured dir with projects subdir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "projects"), 0o755))
		plain := t.TempDir()

		roots, err := DiscoverRoots([]string{dir, " ", plain}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "projects"), plain}, roots)
	})

	t.Run("home defaults", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".config", "claude", "projects"), 0o755))

		roots, err := DiscoverRoots(nil, home)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(home, ".config", "claude", "projects")}, roots)
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := DiscoverRoots(nil, t.TempDir())
		assert.ErrorIs(t, err, types.ErrNoDataDirs)
	})
}
