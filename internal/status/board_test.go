package status_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/backend/backendtest"
	"github.com/netmanager/netconsole/internal/config"
	"github.com/netmanager/netconsole/internal/status"
)

func TestBoardRefreshReplacesWholesale(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	c, err := backend.NewClient(&config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	board := status.NewBoard(c)

	srv.SetStatus("interface wan is online\ninterface wanb is offline")
	got, err := board.Refresh()
	require.NoError(t, err)
	require.Len(t, got, 2)

	srv.SetStatus("interface wanc is online")
	got, err = board.Refresh()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wanc", got[0].Name)
	assert.Equal(t, "interface wanc is online", board.Raw())
	assert.Equal(t, got, board.Ifaces())
}

func TestBoardRefreshFailureKeepsLastGood(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	c, err := backend.NewClient(&config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	board := status.NewBoard(c)

	srv.SetStatus("interface wan is online")
	_, err = board.Refresh()
	require.NoError(t, err)
	fetched := board.FetchedAt()

	srv.Fail(http.MethodGet, backend.PathStatus, http.StatusInternalServerError, "mwan3 not installed")
	got, err := board.Refresh()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mwan3 not installed")
	require.Len(t, got, 1)
	assert.Equal(t, "wan", got[0].Name)
	assert.Equal(t, fetched, board.FetchedAt())
}
