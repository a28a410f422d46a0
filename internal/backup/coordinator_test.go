package backup

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/backend/backendtest"
	"github.com/netmanager/netconsole/internal/config"
)

func setup(t *testing.T) (*backendtest.Server, *Coordinator) {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	c, err := backend.NewClient(&config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	coord := NewCoordinator(c)
	coord.now = func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) }
	return srv, coord
}

// sqliteish returns bytes that would break any text or line-ending handling
func sqliteish() []byte {
	b := []byte("SQLite format 3\x00")
	for i := 0; i < 4096; i++ {
		b = append(b, byte(i), '\r', '\n')
	}
	return b
}

func TestBackupRestoreRoundTripIsByteIdentical(t *testing.T) {
	srv, coord := setup(t)
	artifact := sqliteish()
	srv.SetArtifact(artifact)

	var buf bytes.Buffer
	n, err := coord.Backup(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(artifact)), n)

	notice, err := coord.Restore(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, RestartNotice, notice)
	assert.True(t, bytes.Equal(artifact, srv.Restored()))
}

func TestBackupToFileAndRestoreFile(t *testing.T) {
	srv, coord := setup(t)
	artifact := sqliteish()
	srv.SetArtifact(artifact)
	dir := filepath.Join(t.TempDir(), "backups")

	path, err := coord.BackupToFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "netmanager-backup-20261017-093000.db"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, artifact, data)

	_, err = coord.RestoreFile(path)
	require.NoError(t, err)
	assert.Equal(t, artifact, srv.Restored())
}

func TestBackupToFileRemovesPartialOnError(t *testing.T) {
	srv, coord := setup(t)
	srv.Fail(http.MethodGet, backend.PathBackup, http.StatusInternalServerError, "open szu-netmanager.db: no such file")
	dir := t.TempDir()

	_, err := coord.BackupToFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRestoreSendsAnythingUnvalidated(t *testing.T) {
	srv, coord := setup(t)

	_, err := coord.Restore(nil)
	require.NoError(t, err)
	assert.Empty(t, srv.Restored())

	_, err = coord.Restore([]byte("definitely not a database"))
	require.NoError(t, err)
	assert.Equal(t, []byte("definitely not a database"), srv.Restored())
}

func TestRestoreRemoteError(t *testing.T) {
	srv, coord := setup(t)
	srv.Fail(http.MethodPost, backend.PathRestore, http.StatusInternalServerError, "rename: permission denied")

	notice, err := coord.Restore([]byte("x"))
	require.Error(t, err)
	assert.Empty(t, notice)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRestoreFileMissing(t *testing.T) {
	srv, coord := setup(t)

	_, err := coord.RestoreFile(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Empty(t, srv.Requests())
}
