package asynclog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, cfg Config) (*Logger, string) {
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "log", "app.log")
	}
	l, err := New(cfg)
	require.NoError(t, err)
	return l, cfg.Path
}

func readLog(t *testing.T, path string) string {
	d, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(d)
}

func TestEntryFormat(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelInfo})
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	l.now = func() time.Time { return at }

	l.Error("something broke")
	require.NoError(t, l.Close())

	got := readLog(t, path)
	assert.Equal(t, "\n[ 14:05:07 - 09.03.2024 ]\n[ ERROR ]:\nsomething broke\n\n", got)
}

func TestDebugBlock(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelInfo, Debug: true})
	l.Warn("careful")
	require.NoError(t, l.Close())

	got := readLog(t, path)
	assert.Contains(t, got, "[ WARN ]:\ncareful\n")
	assert.Contains(t, got, "[ RUNTIME INFORMATION ]:\n")
	// the caller block must point at this test file
	assert.Contains(t, got, "|-[ LOG CALLER STACK ]:")
	assert.Contains(t, got, "asynclog_test.go")
}

func TestLevelFiltering(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelWarn})
	l.Info("not written")
	l.Warn("written")
	l.Error("also written")
	require.NoError(t, l.Close())

	got := readLog(t, path)
	assert.NotContains(t, got, "not written")
	assert.NotContains(t, got, "[ INFO ]:")
	assert.Contains(t, got, "written")
	assert.Contains(t, got, "also written")
}

func TestErrorAlwaysWritten(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelError})
	l.Info("dropped")
	l.Warn("dropped too")
	l.Error("kept")
	require.NoError(t, l.Close())

	got := readLog(t, path)
	assert.Equal(t, 1, strings.Count(got, "[ ERROR ]:"))
	assert.NotContains(t, got, "dropped")
}

func TestCloseFlushesEverything(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelInfo})
	const n = 200
	for range n {
		l.Info("message")
	}
	require.NoError(t, l.Close())

	got := readLog(t, path)
	assert.Equal(t, n, strings.Count(got, "[ INFO ]:\nmessage\n"))
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelInfo})
	require.NoError(t, l.Close())
	l.Error("too late")

	got := readLog(t, path)
	assert.NotContains(t, got, "too late")
}

func TestStdStreamRouting(t *testing.T) {
	l, _ := newTestLogger(t, Config{Level: LevelInfo, ToStd: true})
	var stdout, stderr bytes.Buffer
	l.ioMu.Lock()
	l.stdout = &stdout
	l.stderr = &stderr
	l.ioMu.Unlock()

	l.Info("to stdout")
	l.Warn("to stderr")
	l.Error("also to stderr")
	require.NoError(t, l.Close())

	assert.Contains(t, stdout.String(), "to stdout")
	assert.NotContains(t, stdout.String(), "stderr")
	assert.Contains(t, stderr.String(), "to stderr")
	assert.Contains(t, stderr.String(), "also to stderr")
}

func TestBackpressureWarning(t *testing.T) {
	l, path := newTestLogger(t, Config{Level: LevelInfo, QueueThreshold: 2})

	// stall the writer on the io lock so the queue can fill up
	l.ioMu.Lock()
	l.Info("m1")
	// wait for the worker to dequeue m1 and block on the io lock
	require.Eventually(t, func() bool {
		return l.q.Size() == 0
	}, time.Second, time.Millisecond)
	for _, m := range []string{"m2", "m3", "m4", "m5", "m6"} {
		l.Info(m)
	}
	l.ioMu.Unlock()

	// let the worker drain fully before closing, Close makes Size
	// report 0 which would suppress the remaining pressure checks
	require.Eventually(t, func() bool {
		return l.q.Size() == 0
	}, time.Second, time.Millisecond)
	require.NoError(t, l.Close())

	// depth seen by the worker: 4 after m2, 3 after m3, 2 after m4 -
	// only the first two exceed the threshold
	got := readLog(t, path)
	assert.Equal(t, 2, strings.Count(got, "Log queue is under high pressure!"))
	assert.Equal(t, 6, strings.Count(got, "[ INFO ]:"))
}

func TestNewFailsOnBadPath(t *testing.T) {
	// a path whose parent is a file, not a directory
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err := New(Config{Path: filepath.Join(blocker, "app.log")})
	require.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "INFO", LevelInfo.String())
}
