package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/netmanager/netconsole/internal/accounts"
	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/backup"
	"github.com/netmanager/netconsole/internal/config"
	"github.com/netmanager/netconsole/internal/console"
	"github.com/netmanager/netconsole/internal/ifacemap"
	"github.com/netmanager/netconsole/internal/login"
	"github.com/netmanager/netconsole/internal/logstream"
	"github.com/netmanager/netconsole/internal/notify"
	"github.com/netmanager/netconsole/internal/prefs"
	"github.com/netmanager/netconsole/internal/status"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search netconsole.yaml)")
	backendURL := flag.String("backend", "", "backend origin, overrides config and "+config.EnvBackendURL)
	cmd := flag.String("cmd", "", "run one command and exit instead of the console ("+commandNames()+")")
	flag.Parse()

	cfg := loadConfig(*configPath)
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if *cmd != "" {
		if err := runCommand(a, *cmd, flag.Args(), os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// The terminal belongs to the console now; log lines go to the notice bar
	notify.InstallLogCapture(a.notices, io.Discard)

	store := prefs.NewStore(cfg.UI.PrefsPath)
	if err := store.Load(); err != nil {
		log.Printf("Warning - %v", err)
	}

	c := console.New(console.Deps{
		Client:    a.client,
		Mapping:   a.mapping,
		Login:     a.login,
		Accounts:  a.accounts,
		Board:     a.board,
		Tailer:    a.tailer,
		Backup:    a.backup,
		Notices:   a.notices,
		Prefs:     store,
		BackupDir: cfg.UI.BackupDir,
		Mouse:     cfg.UI.Mouse,
	})
	if err := c.Run(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Console error: %v", err)
	}
}

func loadConfig(path string) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Printf("Warning: Could not load config file: %v", err)
		log.Println("Using default configuration")
		cfg = config.Default()
		cfg.ConfigPath = "netconsole.yaml"
	}
	cfg.ApplyEnv()
	if cfg.UI.PrefsPath == "" {
		cfg.UI.PrefsPath = prefs.DefaultPath()
	}
	return cfg
}

// app holds the core components shared by the console and one-shot commands
type app struct {
	client   *backend.Client
	mapping  *ifacemap.Coordinator
	login    *login.Trigger
	accounts *accounts.Manager
	board    *status.Board
	tailer   *logstream.Tailer
	backup   *backup.Coordinator
	notices  *notify.Center
}

func newApp(cfg *config.Config) (*app, error) {
	client, err := backend.NewClient(&cfg.Backend)
	if err != nil {
		return nil, err
	}
	return &app{
		client:   client,
		mapping:  ifacemap.NewCoordinator(client),
		login:    login.NewTrigger(client, login.NewHistory(cfg.Logs.HistorySize)),
		accounts: accounts.NewManager(client),
		board:    status.NewBoard(client),
		tailer:   logstream.NewTailer(client.LiveLogAddress(cfg.Backend.LiveLogPath), cfg.Logs.Capacity),
		backup:   backup.NewCoordinator(client),
		notices:  notify.NewCenter(cfg.Logs.NoticeCapacity),
	}, nil
}
