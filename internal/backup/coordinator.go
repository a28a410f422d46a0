package backup

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/netmanager/netconsole/internal/backend"
)

// RestartNotice is reported after a successful restore. The console does
// not restart anything itself.
const RestartNotice = "Restore complete; restart the NetManager service for the restored configuration to take effect"

// Coordinator downloads and uploads the backend's configuration artifact.
// Artifacts pass through untouched in both directions.
type Coordinator struct {
	client *backend.Client
	now    func() time.Time
}

// NewCoordinator creates a backup/restore coordinator
func NewCoordinator(client *backend.Client) *Coordinator {
	return &Coordinator{client: client, now: time.Now}
}

// Backup streams the current configuration artifact into w
func (c *Coordinator) Backup(w io.Writer) (int64, error) {
	return c.client.Download(backend.PathBackup, w)
}

// BackupToFile downloads the artifact into a timestamped file in dir and
// returns its path. A partial file is removed on failure.
func (c *Coordinator) BackupToFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("netmanager-backup-%s.db", c.now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}

	n, err := c.Backup(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	log.Printf("Backup saved to %s (%d bytes)", path, n)
	return path, nil
}

// Restore uploads artifact as-is. Size, format and content are left for
// the backend to judge.
func (c *Coordinator) Restore(artifact []byte) (string, error) {
	if err := c.client.SubmitBytes(backend.PathRestore, artifact); err != nil {
		return "", err
	}
	log.Printf("Restore uploaded (%d bytes)", len(artifact))
	return RestartNotice, nil
}

// RestoreFile reads path and uploads its contents as-is
func (c *Coordinator) RestoreFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read restore file: %w", err)
	}
	return c.Restore(data)
}
