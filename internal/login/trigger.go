package login

import (
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/netmanager/netconsole/internal/backend"
)

// Trigger starts backend login tasks for WAN interfaces.
//
// Start returns once the backend has accepted the task. The backend hands
// back no task id, so progress can only be followed on the live log
// stream. Calls are neither deduplicated nor serialized per WAN.
type Trigger struct {
	client  *backend.Client
	history *History
	now     func() time.Time
}

// NewTrigger creates a trigger recording attempts into history. A nil
// history gets a default-sized one.
func NewTrigger(client *backend.Client, history *History) *Trigger {
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	return &Trigger{
		client:  client,
		history: history,
		now:     time.Now,
	}
}

// Start asks the backend to log wan in with the next pooled account
func (t *Trigger) Start(wan string) error {
	attempt := Attempt{
		ID:          uuid.NewString(),
		WAN:         wan,
		TriggeredAt: t.now(),
	}

	path := backend.PathLoginStart + "?wan=" + url.QueryEscape(wan)
	_, err := backend.Submit[backend.Ack](t.client, path, nil)
	if err != nil {
		attempt.Error = err.Error()
		t.history.Add(attempt)
		return err
	}

	attempt.Accepted = true
	t.history.Add(attempt)
	log.Printf("Login task for %s accepted", wan)
	return nil
}

// History returns the attempt history
func (t *Trigger) History() *History {
	return t.history
}
