package accounts_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netmanager/netconsole/internal/accounts"
	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/backend/backendtest"
	"github.com/netmanager/netconsole/internal/config"
)

func setup(t *testing.T) (*backendtest.Server, *accounts.Manager) {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	c, err := backend.NewClient(&config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return srv, accounts.NewManager(c)
}

func TestListDecodesBackendRows(t *testing.T) {
	srv, mgr := setup(t)
	srv.AddAccount(backendtest.Account{Username: "2020001", Password: "pw", Bandwidth: 100, Status: "ONLINE", LastUsedAt: 1700000000})
	srv.AddAccount(backendtest.Account{Username: "2020002", Password: "pw", Bandwidth: 20, Disabled: true})

	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, "2020001", list[0].Username)
	assert.Equal(t, 100, list[0].Bandwidth)
	assert.Equal(t, accounts.StatusOnline, list[0].Status)
	assert.Equal(t, time.Unix(1700000000, 0), list[0].LastUsed())

	assert.Equal(t, accounts.StatusIdle, list[1].Status)
	assert.True(t, list[1].Disabled)
	assert.True(t, list[1].LastUsed().IsZero())

	assert.Equal(t, list, mgr.Accounts())
}

func TestListFailureEmptiesList(t *testing.T) {
	srv, mgr := setup(t)
	srv.AddAccount(backendtest.Account{Username: "a", Password: "pw", Bandwidth: 50})
	_, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, mgr.Accounts(), 1)

	srv.Fail(http.MethodGet, backend.PathAccounts, http.StatusInternalServerError, "sql: database is closed")
	list, err := mgr.List()
	require.Error(t, err)
	assert.Empty(t, list)
	assert.Empty(t, mgr.Accounts())
}

func TestCreateReloads(t *testing.T) {
	srv, mgr := setup(t)

	require.NoError(t, mgr.Create("2020003", "secret", 200))

	list := mgr.Accounts()
	require.Len(t, list, 1)
	assert.Equal(t, "2020003", list[0].Username)
	assert.Equal(t, 200, list[0].Bandwidth)
	assert.Equal(t, accounts.StatusIdle, list[0].Status)
	assert.Equal(t, []string{"POST /api/accounts", "GET /api/accounts"}, srv.Requests())
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		bandwidth int
		field     string
	}{
		{"empty username", "", "pw", 50, "username"},
		{"blank username", "   ", "pw", 50, "username"},
		{"empty password", "u", "", 50, "password"},
		{"no bandwidth", "u", "pw", 0, "bandwidth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, mgr := setup(t)

			err := mgr.Create(tt.username, tt.password, tt.bandwidth)
			var ve *backend.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, srv.Requests())
		})
	}
}

func TestCreateRemoteRejection(t *testing.T) {
	srv, mgr := setup(t)
	srv.Fail(http.MethodPost, backend.PathAccounts, http.StatusConflict, "UNIQUE constraint failed: accounts.username")

	err := mgr.Create("dup", "pw", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
	assert.Equal(t, []string{"POST /api/accounts"}, srv.Requests())
}
