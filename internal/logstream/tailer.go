package logstream

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netmanager/netconsole/internal/backend"
)

// ErrConnected is returned by Connect while a socket is already open
var ErrConnected = errors.New("live log already connected")

// Tailer follows the backend's live log socket and keeps the most recent
// lines. It never reconnects by itself: after a drop the buffer stops
// growing until Connect is called again.
type Tailer struct {
	address  string
	capacity int
	dialer   *websocket.Dialer
	mu       sync.Mutex

	// State
	conn      *websocket.Conn
	buf       *Buffer
	connected bool
	lastErr   error
	done      chan struct{}

	onLine func(line string)
}

// NewTailer creates a tailer for the socket at address
func NewTailer(address string, capacity int) *Tailer {
	return &Tailer{
		address:  address,
		capacity: capacity,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// OnLine sets a callback run from the read loop after each line is
// buffered. It may be changed while connected; nil removes it.
func (t *Tailer) OnLine(fn func(line string)) {
	t.mu.Lock()
	t.onLine = fn
	t.mu.Unlock()
}

// Address returns the socket address being tailed
func (t *Tailer) Address() string {
	return t.address
}

// Connect opens the socket with a fresh, empty buffer and starts reading
func (t *Tailer) Connect() error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return ErrConnected
	}
	t.mu.Unlock()

	conn, _, err := t.dialer.Dial(t.address, nil)
	if err != nil {
		err = &backend.TransportError{Op: "DIAL", Path: t.address, Err: err}
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
		return err
	}

	buf := NewBuffer(t.capacity)
	done := make(chan struct{})

	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		conn.Close()
		return ErrConnected
	}
	t.conn = conn
	t.buf = buf
	t.connected = true
	t.lastErr = nil
	t.done = done
	t.mu.Unlock()

	log.Printf("Live log connected: %s", t.address)
	go t.readLoop(conn, buf, done)
	return nil
}

// Close closes the socket and discards the buffer
func (t *Tailer) Close() error {
	t.mu.Lock()
	conn := t.conn
	done := t.done
	open := t.connected
	t.conn = nil
	t.buf = nil
	t.done = nil
	t.connected = false
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	if !open {
		// Dropped earlier; the read loop already closed the socket
		<-done
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()
	<-done
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return err
}

// Lines returns the buffered lines, oldest first
func (t *Tailer) Lines() []string {
	t.mu.Lock()
	buf := t.buf
	t.mu.Unlock()

	if buf == nil {
		return nil
	}
	return buf.Lines()
}

// Connected reports whether the socket is open
func (t *Tailer) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Err returns the error that ended the last connection, if any
func (t *Tailer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// readLoop appends inbound frames in arrival order until the socket ends
func (t *Tailer) readLoop(conn *websocket.Conn, buf *Buffer, done chan struct{}) {
	defer close(done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			dropped := t.conn == conn
			if dropped {
				t.connected = false
				t.lastErr = &backend.TransportError{Op: "READ", Path: t.address, Err: err}
			}
			t.mu.Unlock()

			if dropped {
				conn.Close()
				log.Printf("Live log disconnected: %v", err)
			}
			return
		}

		line := string(message)
		buf.Append(line)
		t.mu.Lock()
		fn := t.onLine
		t.mu.Unlock()
		if fn != nil {
			fn(line)
		}
	}
}
