package debug

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
)

// New returns a diagnostics logger writing to w
func New(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          "keyscope",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
}

// Or returns l, or the package default logger when l is nil
func Or(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

// DefaultPath is ~/.config/keyscope/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "keyscope", "debug.log")
}

// Enable mirrors everything logged through l into the file at path.
// An empty path selects DefaultPath.
func Enable(l *log.Logger, path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}
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

	file = f
	enabled = true
	l.SetOutput(io.MultiWriter(os.Stderr, f))
	l.Debug("=== Debug logging started ===", "path", path)

	return nil
}

// Disable closes the file sink and sends l back to stderr
func Disable(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
	l.SetOutput(os.Stderr)
}

// Throttle counts high-frequency diagnostics (corrupted packets) so only
// some of them are logged. Each owner keeps its own counts.
type Throttle struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewThrottle() *Throttle {
	return &Throttle{counts: make(map[string]int)}
}

// Log warns on the first call and then every n-th call for key
func (t *Throttle) Log(l *log.Logger, n int, key, msg string, keyvals ...any) {
	t.mu.Lock()
	t.counts[key]++
	count := t.counts[key]
	t.mu.Unlock()

	if n <= 1 || count == 1 || count%n == 0 {
		Or(l).Warn(msg, append(keyvals, "count", count)...)
	}
}

// Count returns how many times key was seen
func (t *Throttle) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[key]
}
