// Package log provides debug logging for lazypanel. Messages are buffered
// in memory until a log file is configured, then flushed to it; without a
// configured file everything is eventually discarded so a TUI session never
// sees stray writes on stderr.
package log

import (
	"log"
	"os"
	"sync"
)

type sink struct {
	mu      sync.Mutex
	file    *os.File
	pending []byte
	discard bool
}

var (
	debugSink = &sink{}
	stdLogger = log.New(debugSink, "", log.LstdFlags|log.Lmicroseconds)
)

// Write implements io.Writer. Output goes to the configured file, or is
// held in the pending buffer until SetFile decides its fate.
func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discard {
		return len(p), nil
	}
	if s.file != nil {
		n, err := s.file.Write(p)
		_ = s.file.Sync()
		return n, err
	}
	s.pending = append(s.pending, p...)
	return len(p), nil
}

// SetFile directs debug output to path, creating the file if needed and
// flushing anything buffered so far. An empty path discards buffered and
// future messages.
func SetFile(path string) error {
	debugSink.mu.Lock()
	defer debugSink.mu.Unlock()

	if debugSink.file != nil {
		_ = debugSink.file.Close()
		debugSink.file = nil
	}

	if path == "" {
		debugSink.discard = true
		debugSink.pending = nil
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		debugSink.discard = true
		debugSink.pending = nil
		return err
	}

	debugSink.file = f
	debugSink.discard = false
	if len(debugSink.pending) > 0 {
		_, _ = f.Write(debugSink.pending)
		_ = f.Sync()
		debugSink.pending = nil
	}
	return nil
}

// Printf writes a formatted debug message.
func Printf(format string, args ...any) {
	stdLogger.Printf(format, args...)
}

// Println writes a debug message.
func Println(v ...any) {
	stdLogger.Println(v...)
}

// Close closes the debug log file if one is open.
func Close() error {
	debugSink.mu.Lock()
	defer debugSink.mu.Unlock()

	if debugSink.file == nil {
		return nil
	}
	err := debugSink.file.Close()
	debugSink.file = nil
	return err
}
