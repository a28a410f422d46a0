package notify

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/netmanager/netconsole/internal/backend"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarn    = "warn"
	LevelError   = "error"
)

// Notice is a single transient operator notification
type Notice struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Center is a thread-safe ring buffer of notices
type Center struct {
	mu      sync.RWMutex
	entries []Notice
	cap     int

	// OnNotice, if set, is called after each notice is stored
	OnNotice func(Notice)
}

// NewCenter creates a new notice center with the given capacity
func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = 100
	}
	return &Center{
		entries: make([]Notice, 0, capacity),
		cap:     capacity,
	}
}

// Add adds a notice to the buffer
func (c *Center) Add(level, message string) {
	n := Notice{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}

	c.mu.Lock()
	if len(c.entries) >= c.cap {
		// Shift everything left by 1, drop oldest
		copy(c.entries, c.entries[1:])
		c.entries[len(c.entries)-1] = n
	} else {
		c.entries = append(c.entries, n)
	}
	hook := c.OnNotice
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
}

// Entries returns all notices, optionally filtered by level
func (c *Center) Entries(levels []string) []Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(levels) == 0 {
		result := make([]Notice, len(c.entries))
		copy(result, c.entries)
		return result
	}

	levelSet := make(map[string]bool)
	for _, l := range levels {
		levelSet[strings.ToLower(l)] = true
	}

	result := make([]Notice, 0)
	for _, e := range c.entries {
		if levelSet[strings.ToLower(e.Level)] {
			result = append(result, e)
		}
	}
	return result
}

// Latest returns the newest notice
func (c *Center) Latest() (Notice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return Notice{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// Clear removes all notices
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.entries[:0]
}

// Info records an info notice
func (c *Center) Info(format string, args ...interface{}) {
	c.Add(LevelInfo, fmt.Sprintf(format, args...))
}

// Success records a success notice
func (c *Center) Success(format string, args ...interface{}) {
	c.Add(LevelSuccess, fmt.Sprintf(format, args...))
}

// Warn records a warning notice
func (c *Center) Warn(format string, args ...interface{}) {
	c.Add(LevelWarn, fmt.Sprintf(format, args...))
}

// Error records an error notice
func (c *Center) Error(format string, args ...interface{}) {
	c.Add(LevelError, fmt.Sprintf(format, args...))
}

// Report turns the outcome of an operation into a notice: success with
// okMsg when err is nil, otherwise an error naming op.
func (c *Center) Report(op string, err error, okMsg string) {
	if err != nil {
		c.Error("%s: %s", op, errorText(err))
		return
	}
	if okMsg != "" {
		c.Success("%s", okMsg)
	}
}

// errorText is the trimmed error message. A backend error with an empty
// body falls back to its status line.
func errorText(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg != "" {
		return msg
	}
	var remote *backend.RemoteError
	if errors.As(err, &remote) {
		return fmt.Sprintf("%d %s", remote.Status, http.StatusText(remote.Status))
	}
	return "failed"
}

// logWriter adapts Center to io.Writer for use with Go's log package
type logWriter struct {
	center *Center
}

func (lw *logWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	// Strip standard log prefix (date/time) if present
	// Go's log package prefixes with "2006/01/02 15:04:05 "
	if len(msg) > 20 && msg[4] == '/' && msg[7] == '/' && msg[10] == ' ' {
		msg = msg[20:]
	}

	// Parse log level from message
	level := LevelInfo
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "error") || strings.Contains(lower, "fail") {
		level = LevelError
	} else if strings.Contains(lower, "warn") || strings.Contains(lower, "disconnected") {
		level = LevelWarn
	}

	lw.center.Add(level, msg)
	return len(p), nil
}

// InstallLogCapture sets up Go's log package to write to the Center and
// also to out (pass io.Discard when the terminal belongs to the console).
func InstallLogCapture(c *Center, out io.Writer) io.Writer {
	lw := &logWriter{center: c}
	multi := io.MultiWriter(lw, out)
	log.SetOutput(multi)
	log.SetFlags(log.LstdFlags)
	return multi
}
