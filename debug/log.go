package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger = newLogger()
	file   *os.File
	mu     sync.Mutex
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// DefaultPath is ~/.config/go-vibe/vibed.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-vibe", "vibed.log")
}

// Enable sends the log to a file instead of stderr. An empty path means
// DefaultPath. The file is truncated.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if file != nil {
		file.Close()
	}
	file = f
	logger.SetOutput(f)
	logger.WithField("cat", "debug").Info("=== logging started ===")
	return nil
}

// Disable closes the log file and goes back to stderr
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	logger.SetOutput(os.Stderr)
}

// SetOutput redirects the log, mostly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetLevel accepts trace, debug, info, warn or error
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// Logger exposes the underlying logger for libraries that want one
func Logger() *logrus.Logger {
	return logger
}

func entry(category string) *logrus.Entry {
	return logger.WithField("cat", category)
}

// Log writes a debug message
func Log(category, format string, args ...any) {
	entry(category).Debugf(format, args...)
}

// Trace is for the tick path
func Trace(category, format string, args ...any) {
	entry(category).Tracef(format, args...)
}

func Info(category, format string, args ...any) {
	entry(category).Infof(format, args...)
}

func Warn(category, format string, args ...any) {
	entry(category).Warnf(format, args...)
}

func Error(category, format string, args ...any) {
	entry(category).Errorf(format, args...)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}

// WarnEvery is LogEvery at warn level; the first call always logs
func WarnEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := "warn:" + category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count == 1 || count%n == 0 {
		Warn(category, "%s (count=%d)", fmt.Sprintf(format, args...), count)
	}
}
