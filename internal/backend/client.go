package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/netmanager/netconsole/internal/config"
)

// Backend endpoints
const (
	PathHealth     = "/api/health"
	PathInterfaces = "/api/mwan/interfaces"
	PathStatus     = "/api/mwan/status"
	PathIfaceMap   = "/api/iface-map"
	PathLoginStart = "/api/login/start"
	PathAccounts   = "/api/accounts"
	PathBackup     = "/api/backup"
	PathRestore    = "/api/restore"
)

// Ack is the generic acknowledgement body the backend returns for writes
type Ack struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id,omitempty"`
}

// Client is the only path to the backend. Every request goes through do,
// which also records reachability for the console header.
type Client struct {
	endpoint string
	origin   *url.URL
	client   *http.Client
	mu       sync.Mutex

	reachable bool
	lastError error
	lastSeen  time.Time
}

// NewClient creates a client for the backend described by cfg
func NewClient(cfg *config.BackendConfig) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q: missing host", cfg.URL)
	}

	return &Client{
		endpoint: u.String(),
		origin:   u,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Endpoint returns the backend origin the client talks to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Status returns the current reachability status
func (c *Client) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	errStr := ""
	if c.lastError != nil {
		errStr = c.lastError.Error()
	}

	return ConnectionStatus{
		Reachable: c.reachable,
		LastError: errStr,
		LastSeen:  c.lastSeen,
	}
}

// LiveLogAddress derives the live log socket address from the backend
// origin, using wss only when the origin itself is https. A path prefix
// on the origin is kept, as it is for REST calls.
func (c *Client) LiveLogAddress(path string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   c.origin.Host,
		Path:   c.origin.Path + path,
	}
	if c.origin.Scheme == "https" {
		u.Scheme = "wss"
	}
	return u.String()
}

// Fetch issues a GET and decodes the JSON body into T. The shape is not
// validated beyond what decoding into T enforces.
func Fetch[T any](c *Client, path string) (T, error) {
	var out T

	resp, err := c.do(http.MethodGet, path, "", nil)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	return decode[T](resp.Body, path)
}

// Submit issues a POST with payload encoded as JSON and decodes the reply
// into T. A nil payload sends an empty body.
func Submit[T any](c *Client, path string, payload any) (T, error) {
	var out T

	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return out, fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(http.MethodPost, path, contentType, body)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	return decode[T](resp.Body, path)
}

// SubmitBytes posts data as an opaque octet-stream. Any success body is
// discarded.
func (c *Client) SubmitBytes(path string, data []byte) error {
	resp, err := c.do(http.MethodPost, path, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download streams the raw body of a GET into w without transforming it
func (c *Client) Download(path string, w io.Writer) (int64, error) {
	resp, err := c.do(http.MethodGet, path, "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: http.MethodGet, Path: path, Err: err}
	}
	return n, nil
}

// Health checks that the backend answers /api/health
func (c *Client) Health() error {
	res, err := Fetch[struct {
		OK bool `json:"ok"`
	}](c, PathHealth)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("backend reported unhealthy")
	}
	return nil
}

func (c *Client) do(method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.endpoint+path, body)
	if err != nil {
		return nil, &TransportError{Op: method, Path: path, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.setError(err)
		return nil, &TransportError{Op: method, Path: path, Err: err}
	}

	// Any answer at all means the backend is reachable
	c.mu.Lock()
	c.reachable = true
	c.lastError = nil
	c.lastSeen = time.Now()
	c.mu.Unlock()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		text, _ := io.ReadAll(resp.Body)
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(text)}
	}

	return resp, nil
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.reachable = false
	c.lastError = err
	c.mu.Unlock()
}

func decode[T any](r io.Reader, path string) (T, error) {
	var out T
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		// Empty acknowledgements are tolerated
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}
