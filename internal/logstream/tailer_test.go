package logstream_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/backend/backendtest"
	"github.com/netmanager/netconsole/internal/config"
	"github.com/netmanager/netconsole/internal/logstream"
)

const waitFor = 5 * time.Second

func connect(t *testing.T, capacity int) (*backendtest.Server, *logstream.Tailer) {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	c, err := backend.NewClient(&config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	tailer := logstream.NewTailer(c.LiveLogAddress("/ws"), capacity)
	require.NoError(t, tailer.Connect())
	t.Cleanup(func() { tailer.Close() })

	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, waitFor, 10*time.Millisecond)
	return srv, tailer
}

func TestTailerKeepsLast200InOrder(t *testing.T) {
	srv, tailer := connect(t, logstream.DefaultCapacity)
	assert.Empty(t, tailer.Lines())

	for i := 0; i < 250; i++ {
		srv.Broadcast(fmt.Sprintf("line %d", i))
	}

	require.Eventually(t, func() bool {
		lines := tailer.Lines()
		return len(lines) == 200 && lines[199] == "line 249"
	}, waitFor, 10*time.Millisecond)

	lines := tailer.Lines()
	for i, ln := range lines {
		assert.Equal(t, fmt.Sprintf("line %d", i+50), ln)
	}
}

func TestTailerOnLine(t *testing.T) {
	srv, tailer := connect(t, 10)

	srv.Broadcast("before hook")
	require.Eventually(t, func() bool { return len(tailer.Lines()) == 1 }, waitFor, 10*time.Millisecond)

	// Set while the read loop is running
	got := make(chan string, 4)
	tailer.OnLine(func(line string) { got <- line })

	srv.Broadcast("wan 接口登录成功！")
	select {
	case line := <-got:
		assert.Equal(t, "wan 接口登录成功！", line)
	case <-time.After(waitFor):
		t.Fatal("no line delivered")
	}

	tailer.OnLine(nil)
	srv.Broadcast("after hook")
	require.Eventually(t, func() bool { return len(tailer.Lines()) == 3 }, waitFor, 10*time.Millisecond)
	assert.Empty(t, got)
}

func TestTailerUnderPathPrefix(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	front := httptest.NewServer(http.StripPrefix("/netmanager", srv.Config.Handler))
	defer front.Close()

	c, err := backend.NewClient(&config.BackendConfig{URL: front.URL + "/netmanager", Timeout: 5 * time.Second})
	require.NoError(t, err)

	srv.SetStatus("interface wan1 is online")
	_, err = backend.Fetch[map[string]string](c, backend.PathStatus)
	require.NoError(t, err)

	tailer := logstream.NewTailer(c.LiveLogAddress("/ws"), 10)
	require.NoError(t, tailer.Connect())
	defer tailer.Close()
	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, waitFor, 10*time.Millisecond)

	srv.Broadcast("pppoe: wan1 up")
	require.Eventually(t, func() bool {
		lines := tailer.Lines()
		return len(lines) == 1 && lines[0] == "pppoe: wan1 up"
	}, waitFor, 10*time.Millisecond)
}

func TestTailerCloseDiscardsBuffer(t *testing.T) {
	srv, tailer := connect(t, logstream.DefaultCapacity)

	srv.Broadcast("hello")
	require.Eventually(t, func() bool { return len(tailer.Lines()) == 1 }, waitFor, 10*time.Millisecond)

	require.NoError(t, tailer.Close())
	assert.False(t, tailer.Connected())
	assert.Nil(t, tailer.Lines())
	assert.NoError(t, tailer.Err())
	require.Eventually(t, func() bool { return srv.Subscribers() == 0 }, waitFor, 10*time.Millisecond)

	// Close is idempotent
	assert.NoError(t, tailer.Close())
}

func TestTailerDropStopsGrowth(t *testing.T) {
	srv, tailer := connect(t, logstream.DefaultCapacity)

	srv.Broadcast("before drop")
	require.Eventually(t, func() bool { return len(tailer.Lines()) == 1 }, waitFor, 10*time.Millisecond)

	srv.DropSubscribers()
	require.Eventually(t, func() bool { return !tailer.Connected() }, waitFor, 10*time.Millisecond)

	var te *backend.TransportError
	require.True(t, errors.As(tailer.Err(), &te))
	assert.Equal(t, "READ", te.Op)
	assert.Equal(t, []string{"before drop"}, tailer.Lines())

	// Reconnecting starts over with an empty buffer
	require.NoError(t, tailer.Connect())
	assert.Empty(t, tailer.Lines())
	assert.NoError(t, tailer.Err())
}

func TestTailerConnectTwice(t *testing.T) {
	_, tailer := connect(t, logstream.DefaultCapacity)
	assert.ErrorIs(t, tailer.Connect(), logstream.ErrConnected)
}

func TestTailerDialFailure(t *testing.T) {
	tailer := logstream.NewTailer("ws://127.0.0.1:1/ws", 0)

	err := tailer.Connect()
	var te *backend.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "DIAL", te.Op)
	assert.False(t, tailer.Connected())
	assert.Equal(t, err, tailer.Err())
}
