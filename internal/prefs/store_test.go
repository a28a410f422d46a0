package prefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.ini"))

	require.NoError(t, s.Load())
	assert.Equal(t, ModeAuto, s.Get().Mode)
}

func TestSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netconsole", "prefs.ini")
	s := NewStore(path)

	require.NoError(t, s.Set(Preferences{Mode: ModeDark}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[display]")

	other := NewStore(path)
	require.NoError(t, other.Load())
	assert.Equal(t, ModeDark, other.Get().Mode)
}

func TestLoadUnknownModeFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Display]\nMode = sepia\n"), 0644))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Equal(t, ModeAuto, s.Get().Mode)
}

func TestLoadIsCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.ini")
	require.NoError(t, os.WriteFile(path, []byte("[DISPLAY]\nMODE = light\n"), 0644))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Equal(t, ModeLight, s.Get().Mode)
}

func TestIsDark(t *testing.T) {
	assert.True(t, Preferences{Mode: ModeDark}.IsDark(false))
	assert.False(t, Preferences{Mode: ModeLight}.IsDark(true))
	assert.True(t, Preferences{Mode: ModeAuto}.IsDark(true))
	assert.False(t, Preferences{Mode: ModeAuto}.IsDark(false))
}

func TestModeNext(t *testing.T) {
	assert.Equal(t, ModeDark, ModeLight.Next())
	assert.Equal(t, ModeAuto, ModeDark.Next())
	assert.Equal(t, ModeLight, ModeAuto.Next())
}

func TestWatchPicksUpExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.ini")
	s := NewStore(path)
	require.NoError(t, s.Load())

	changes := make(chan Preferences, 4)
	require.NoError(t, s.Watch(func(p Preferences) { changes <- p }))
	defer s.Close()

	require.NoError(t, os.WriteFile(path, []byte("[display]\nmode = dark\n"), 0644))

	select {
	case p := <-changes:
		assert.Equal(t, ModeDark, p.Mode)
	case <-time.After(5 * time.Second):
		t.Fatal("no change observed")
	}
	assert.Equal(t, ModeDark, s.Get().Mode)
}

func TestCloseWithoutWatch(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.ini"))
	assert.NoError(t, s.Close())
}
