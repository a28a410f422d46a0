package prefs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/ini.v1"
)

// Mode is the display mode of the console
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
	ModeAuto  Mode = "auto"
)

// Next cycles light → dark → auto → light
func (m Mode) Next() Mode {
	switch m {
	case ModeLight:
		return ModeDark
	case ModeDark:
		return ModeAuto
	default:
		return ModeLight
	}
}

// Preferences are the operator settings that persist across sessions
type Preferences struct {
	Mode Mode
}

// Defaults returns the preferences used when nothing is stored
func Defaults() Preferences {
	return Preferences{Mode: ModeAuto}
}

// IsDark resolves the mode against the terminal's own preference
func (p Preferences) IsDark(systemPrefersDark bool) bool {
	return p.Mode == ModeDark || (p.Mode == ModeAuto && systemPrefersDark)
}

// Store loads and saves Preferences in an INI file
type Store struct {
	path string
	mu   sync.RWMutex

	prefs   Preferences
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// DefaultPath returns the per-user preferences file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "netconsole", "prefs.ini")
}

// NewStore creates a store for path holding the defaults until Load
func NewStore(path string) *Store {
	return &Store{path: path, prefs: Defaults()}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file leaves the defaults in place.
func (s *Store) Load() error {
	p, err := readFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return nil
}

// Save writes the current preferences to the file
func (s *Store) Save() error {
	s.mu.RLock()
	p := s.prefs
	s.mu.RUnlock()

	cfg := ini.Empty()
	cfg.Section("display").Key("mode").SetValue(string(p.Mode))

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := cfg.SaveTo(s.path); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// Get returns the current preferences
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Set replaces the preferences and saves them
func (s *Store) Set(p Preferences) error {
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return s.Save()
}

// Watch reloads the file whenever it changes on disk and passes the new
// preferences to onChange. The parent directory is watched so editors
// that replace the file are seen too.
func (s *Store) Watch(onChange func(Preferences)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prefs watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.Close()
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.mu.Lock()
	s.watcher = w
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	go s.watchLoop(w, stop, onChange)
	return nil
}

// Close stops watching
func (s *Store) Close() error {
	s.mu.Lock()
	w := s.watcher
	stop := s.stopCh
	s.watcher = nil
	s.stopCh = nil
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	close(stop)
	return w.Close()
}

func (s *Store) watchLoop(w *fsnotify.Watcher, stop chan struct{}, onChange func(Preferences)) {
	target := filepath.Clean(s.path)

	for {
		select {
		case <-stop:
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			p, err := readFile(s.path)
			if err != nil {
				log.Printf("Warning - reload prefs: %v", err)
				continue
			}

			s.mu.Lock()
			changed := p != s.prefs
			s.prefs = p
			s.mu.Unlock()

			if changed && onChange != nil {
				onChange(p)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("Warning - prefs watcher: %v", err)
		}
	}
}

func readFile(path string) (Preferences, error) {
	p := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return p, fmt.Errorf("load prefs %s: %w", path, err)
	}

	mode := cfg.Section("display").Key("mode").In(string(ModeAuto),
		[]string{string(ModeLight), string(ModeDark), string(ModeAuto)})
	p.Mode = Mode(mode)
	return p, nil
}
