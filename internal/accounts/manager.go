package accounts

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/netmanager/netconsole/internal/backend"
)

// Status is the backend-assigned state of a pooled account
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusConnecting Status = "CONNECTING"
	StatusOnline     Status = "ONLINE"
	StatusRetrying   Status = "RETRYING"
	StatusFailed     Status = "FAILED"
	StatusDisabled   Status = "DISABLED"
)

// Bandwidths are the plan sizes (Mbps) offered when adding an account
var Bandwidths = []int{20, 50, 100, 200}

// Account is one pooled login credential
type Account struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Bandwidth  int    `json:"bandwidth"`
	Status     Status `json:"status"`
	LastUsedAt int64  `json:"lastUsedAt"` // unix seconds, 0 if never used
	Disabled   bool   `json:"disabled"`
}

// LastUsed returns when the account was last used, or the zero time
func (a Account) LastUsed() time.Time {
	if a.LastUsedAt == 0 {
		return time.Time{}
	}
	return time.Unix(a.LastUsedAt, 0)
}

type newAccount struct {
	Username  string `json:"Username"`
	Password  string `json:"Password"`
	Bandwidth int    `json:"Bandwidth"`
}

// Manager keeps the account list as last reported by the backend
type Manager struct {
	client *backend.Client
	mu     sync.RWMutex
	list   []Account
}

// NewManager creates a manager with an empty list
func NewManager(client *backend.Client) *Manager {
	return &Manager{client: client}
}

// List reloads the full account list. On failure the list is emptied.
func (m *Manager) List() ([]Account, error) {
	list, err := backend.Fetch[[]Account](m.client, backend.PathAccounts)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.list = nil
		return nil, err
	}
	m.list = list
	return append([]Account(nil), list...), nil
}

// Accounts returns the list from the last reload
func (m *Manager) Accounts() []Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Account(nil), m.list...)
}

// Create adds an account and then reloads the whole list. Nothing is sent
// when a required field is missing.
func (m *Manager) Create(username, password string, bandwidth int) error {
	if err := validate(username, password, bandwidth); err != nil {
		return err
	}

	_, err := backend.Submit[backend.Ack](m.client, backend.PathAccounts, newAccount{
		Username:  username,
		Password:  password,
		Bandwidth: bandwidth,
	})
	if err != nil {
		return err
	}

	if _, err := m.List(); err != nil {
		return fmt.Errorf("account added, reload failed: %w", err)
	}
	return nil
}

func validate(username, password string, bandwidth int) error {
	switch {
	case strings.TrimSpace(username) == "":
		return &backend.ValidationError{Field: "username"}
	case password == "":
		return &backend.ValidationError{Field: "password"}
	case bandwidth <= 0:
		return &backend.ValidationError{Field: "bandwidth"}
	}
	return nil
}
