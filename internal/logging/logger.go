package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/compliance-assistant/internal/config"
)

// Logger records dev backend activity (startup, requests, indexing) in the
// project's logs directory. It is safe for concurrent handlers.
type Logger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	mirror io.Writer
	now    func() time.Time
}

// Option customizes a Logger.
type Option func(*Logger)

// WithMirror copies every line to w, typically stderr.
func WithMirror(w io.Writer) Option {
	return func(l *Logger) {
		l.mirror = w
	}
}

// New opens the dev backend log named by cfg, creating the logs directory.
func New(cfg *config.Config, opts ...Option) (*Logger, error) {
	path := cfg.DevBackendLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := &Logger{path: path, file: f, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Path reports the log file location.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the file handle. Later Printf calls are dropped.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Printf writes one timestamped line. Embedded newlines are flattened so a
// multi-line error stays on its request's line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	msg = strings.ReplaceAll(msg, "\n", " ⏎ ")

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	line := fmt.Sprintf("[%s] %s\n", l.now().Format(time.RFC3339), msg)
	_, _ = io.WriteString(l.file, line)
	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, line)
	}
}
