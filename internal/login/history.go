package login

import (
	"sync"
	"time"
)

// DefaultHistorySize is the number of trigger attempts kept
const DefaultHistorySize = 50

// Attempt records one login trigger as seen by this console. ID is local
// to the console and is never sent to the backend.
type Attempt struct {
	ID          string    `json:"id"`
	WAN         string    `json:"wan"`
	TriggeredAt time.Time `json:"triggered_at"`
	Accepted    bool      `json:"accepted"`
	Error       string    `json:"error,omitempty"`
}

// History is a thread-safe ring buffer of trigger attempts
type History struct {
	mu      sync.RWMutex
	entries []Attempt
	cap     int
}

// NewHistory creates a new history with the given capacity
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		entries: make([]Attempt, 0, capacity),
		cap:     capacity,
	}
}

// Add appends an attempt, dropping the oldest when full
func (h *History) Add(a Attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.cap {
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = a
	} else {
		h.entries = append(h.entries, a)
	}
}

// Entries returns all attempts (newest first)
func (h *History) Entries() []Attempt {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Attempt, len(h.entries))
	for i, j := 0, len(h.entries)-1; j >= 0; i, j = i+1, j-1 {
		result[i] = h.entries[j]
	}
	return result
}

// Last returns the newest attempt for wan
func (h *History) Last(wan string) (Attempt, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].WAN == wan {
			return h.entries[i], true
		}
	}
	return Attempt{}, false
}
