package diag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecordAndEntriesInsertionOrder(t *testing.T) {
	l := NewLog(0, false, nil)
	l.Info("parser", "loaded file", nil)
	l.Warn("test-manager", "cache miss", nil)
	l.Error("exec", "transport failed", nil)

	entries := l.Entries(Filter{})
	require.Len(t, entries, 3)
	assert.Equal(t, "loaded file", entries[0].Message)
	assert.Equal(t, "cache miss", entries[1].Message)
	assert.Equal(t, "transport failed", entries[2].Message)
}

func TestLogFIFOCapEvictsOldest(t *testing.T) {
	l := NewLog(2, false, nil)
	l.Info("a", "first", nil)
	l.Info("a", "second", nil)
	l.Info("a", "third", nil)

	entries := l.Entries(Filter{})
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Message)
	assert.Equal(t, "third", entries[1].Message)
}

func TestLogFilterByMinLevel(t *testing.T) {
	l := NewLog(0, false, nil)
	l.Debug("a", "debug msg", nil)
	l.Info("a", "info msg", nil)
	l.Warn("a", "warn msg", nil)
	l.Error("a", "error msg", nil)

	warn := LevelWarn
	entries := l.Entries(Filter{MinLevel: &warn})
	require.Len(t, entries, 2)
	assert.Equal(t, "warn msg", entries[0].Message)
	assert.Equal(t, "error msg", entries[1].Message)
}

func TestLogFilterBySource(t *testing.T) {
	l := NewLog(0, false, nil)
	l.Info("parser", "one", nil)
	l.Info("exec", "two", nil)

	entries := l.Entries(Filter{Source: "exec"})
	require.Len(t, entries, 1)
	assert.Equal(t, "two", entries[0].Message)
}

func TestLogVerboseWritesImmediately(t *testing.T) {
	var buf strings.Builder
	l := NewLog(0, true, &buf)
	l.Error("exec", "boom", nil)
	assert.Equal(t, "[error] boom\n", buf.String())
}

func TestLogFlushWritesAllEntries(t *testing.T) {
	l := NewLog(0, false, nil)
	l.Info("a", "one", nil)
	l.Warn("a", "two", nil)

	var buf strings.Builder
	l.Flush(&buf)
	assert.Equal(t, "[info] one\n[warn] two\n", buf.String())
}

func TestLogRecordMasksSecretContext(t *testing.T) {
	l := NewLog(0, false, nil)
	l.Info("auth", "token issued", map[string]interface{}{
		"api_key": "abcdefghijklmnopqrstuvwxyz0123456789",
		"user":    "alice",
	})

	entries := l.Entries(Filter{})
	require.Len(t, entries, 1)
	assert.NotEqual(t, "abcdefghijklmnopqrstuvwxyz0123456789", entries[0].Context["api_key"])
	assert.Equal(t, "alice", entries[0].Context["user"])
}

func TestLevelStringAndParseLevel(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())

	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelInfo, ParseLevel("unknown"))
}

func TestLogMetricsReturnsSharedTracker(t *testing.T) {
	l := NewLog(0, false, nil)
	m := l.Metrics()
	require.NotNil(t, m)
	m.Count("requests", 1)
	assert.Equal(t, float64(1), l.Metrics().Snapshot("requests").Count)
}
