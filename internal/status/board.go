package status

import (
	"sync"
	"time"

	"github.com/netmanager/netconsole/internal/backend"
)

type report struct {
	Status string `json:"status"`
}

// Board holds the most recent status report and the states parsed from it
type Board struct {
	client *backend.Client
	mu     sync.RWMutex

	raw       string
	ifaces    []IfaceState
	fetchedAt time.Time
}

// NewBoard creates an empty status board
func NewBoard(client *backend.Client) *Board {
	return &Board{client: client}
}

// Refresh fetches the report and rebuilds the interface list from it.
// On failure the previous report stays in place.
func (b *Board) Refresh() ([]IfaceState, error) {
	r, err := backend.Fetch[report](b.client, backend.PathStatus)
	if err != nil {
		return b.Ifaces(), err
	}

	ifaces := Parse(r.Status)

	b.mu.Lock()
	b.raw = r.Status
	b.ifaces = ifaces
	b.fetchedAt = time.Now()
	b.mu.Unlock()

	return append([]IfaceState(nil), ifaces...), nil
}

// Raw returns the last raw report
func (b *Board) Raw() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.raw
}

// Ifaces returns the interfaces parsed from the last report
func (b *Board) Ifaces() []IfaceState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]IfaceState(nil), b.ifaces...)
}

// FetchedAt returns when the last successful refresh happened
func (b *Board) FetchedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fetchedAt
}
