package asynclog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kjk/backbone/syncq"
)

// Level of a log message. Lower is more severe. A logger configured at
// a given level writes that level and everything more severe.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	}
	return "UNKNOWN"
}

// Message is a single log entry in flight between a producer and the
// writer goroutine.
type Message struct {
	Text  string
	Debug string
	Level Level
}

type Config struct {
	// minimum severity that gets written, LevelError is always written
	Level Level
	// path of the log file, parent directories are created
	Path string
	// also write entries to stdout (INFO) / stderr (ERROR, WARN)
	ToStd bool
	// attach the caller's file and line to each entry
	Debug bool
	// queue depth above which the writer emits a pressure warning,
	// 0 uses a default
	QueueThreshold int

	// log rotation, passed through to lumberjack; zero values use
	// lumberjack defaults (100 MB, keep everything)
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const defaultQueueThreshold = 512

// Logger writes log entries asynchronously. Error/Warn/Info enqueue and
// return immediately; a single background goroutine performs all I/O.
// Close flushes everything enqueued before it was called.
type Logger struct {
	level     Level
	debug     bool
	toStd     bool
	threshold int

	q    *syncq.Queue[*Message]
	done chan struct{}

	// serializes writes to the sinks, independent of the queue's lock
	ioMu   sync.Mutex
	file   io.WriteCloser
	stdout io.Writer
	stderr io.Writer

	now func() time.Time
}

func New(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", cfg.Path, err)
	}
	// lumberjack opens lazily; probe now so a bad path fails at
	// construction instead of on the first log call
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open logfile at %s: %w", cfg.Path, err)
	}
	f.Close()

	threshold := cfg.QueueThreshold
	if threshold <= 0 {
		threshold = defaultQueueThreshold
	}

	l := &Logger{
		level:     cfg.Level,
		debug:     cfg.Debug,
		toStd:     cfg.ToStd,
		threshold: threshold,
		q:         syncq.New[*Message](),
		done:      make(chan struct{}),
		file: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
	go l.worker()
	return l, nil
}

// Error logs an error. Always written regardless of the configured
// level. Non-blocking.
func (l *Logger) Error(msg string) {
	l.push(LevelError, msg)
}

// Warn logs a warning. Dropped before enqueueing if the configured
// level is LevelError. Non-blocking.
func (l *Logger) Warn(msg string) {
	if l.level >= LevelWarn {
		l.push(LevelWarn, msg)
	}
}

// Info logs an informational message. Dropped before enqueueing unless
// the configured level is LevelInfo. Non-blocking.
func (l *Logger) Info(msg string) {
	if l.level >= LevelInfo {
		l.push(LevelInfo, msg)
	}
}

// Close shuts the logger down: no further messages are accepted, the
// writer drains everything already enqueued, then the log file is
// closed. When Close returns, every message enqueued before the call is
// flushed to disk.
func (l *Logger) Close() error {
	l.q.Close()
	<-l.done
	return l.file.Close()
}

func (l *Logger) push(level Level, msg string) {
	debug := ""
	if l.debug {
		debug = runtimeInfo(3)
	}
	l.q.Push(&Message{Text: msg, Debug: debug, Level: level})
}

// runtimeInfo formats the caller-location block. skip counts stack
// frames above runtimeInfo, like runtime.Caller.
func runtimeInfo(skip int) string {
	s := "[ RUNTIME INFORMATION ]:\n"
	_, file, line, ok := runtime.Caller(skip)
	if ok {
		s += fmt.Sprintf("|-[ LOG CALLER STACK ]: Line (%d) File (%s)\n", line, file)
	}
	return s
}

func (l *Logger) worker() {
	defer close(l.done)
	for {
		m, ok := l.q.Get()
		if !ok {
			// queue closed
			return
		}
		if l.q.Size() > l.threshold {
			l.write(&Message{
				Text:  "Log queue is under high pressure!",
				Debug: runtimeInfo(1),
				Level: LevelWarn,
			})
		}
		l.write(m)
	}
}

// write formats and writes one entry to the file and optionally to the
// standard streams. All sink I/O is serialized by ioMu.
func (l *Logger) write(m *Message) {
	s := l.now().Format("\n[ 15:04:05 - 02.01.2006 ]\n") +
		"[ " + m.Level.String() + " ]:\n" +
		m.Text + "\n" +
		m.Debug + "\n"

	l.ioMu.Lock()
	defer l.ioMu.Unlock()
	_, _ = io.WriteString(l.file, s)
	if !l.toStd {
		return
	}
	if m.Level == LevelInfo {
		_, _ = io.WriteString(l.stdout, s)
	} else {
		_, _ = io.WriteString(l.stderr, s)
	}
}
