package logstream

import "sync"

// DefaultCapacity is the number of live log lines kept
const DefaultCapacity = 200

// Buffer is a thread-safe FIFO of raw log lines. Once full, each new line
// evicts the oldest one.
type Buffer struct {
	mu    sync.RWMutex
	lines []string
	cap   int
}

// NewBuffer creates a new buffer with the given capacity
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		lines: make([]string, 0, capacity),
		cap:   capacity,
	}
}

// Append adds a line to the buffer
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) >= b.cap {
		// Shift everything left by 1, drop oldest
		copy(b.lines, b.lines[1:])
		b.lines[len(b.lines)-1] = line
	} else {
		b.lines = append(b.lines, line)
	}
}

// Lines returns the buffered lines, oldest first
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]string, len(b.lines))
	copy(result, b.lines)
	return result
}

// Len returns the number of buffered lines
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return b.cap
}
