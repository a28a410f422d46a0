package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/netmanager/netconsole/internal/logstream"
)

type command struct {
	usage string
	run   func(a *app, args []string, out io.Writer) error
}

// commands is filled in init; handlers read it back through usageError
var commands map[string]command

func init() {
	commands = map[string]command{
		"status":       {"status", cmdStatus},
		"members":      {"members", cmdMembers},
		"mapping":      {"mapping", cmdMapping},
		"save-mapping": {"save-mapping wan=nic...", cmdSaveMapping},
		"accounts":     {"accounts", cmdAccounts},
		"add-account":  {"add-account <username> <password> <bandwidth>", cmdAddAccount},
		"login":        {"login <wan>...", cmdLogin},
		"backup":       {"backup [dir]", cmdBackup},
		"restore":      {"restore <file>", cmdRestore},
		"tail":         {"tail", cmdTail},
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func runCommand(a *app, name string, args []string, out io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (want one of: %s)", name, commandNames())
	}
	return cmd.run(a, args, out)
}

func usageError(name string) error {
	return fmt.Errorf("usage: -cmd %s", commands[name].usage)
}

func cmdStatus(a *app, _ []string, out io.Writer) error {
	ifaces, err := a.board.Refresh()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range ifaces {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.DisplayStatus())
	}
	tw.Flush()
	if len(ifaces) == 0 {
		fmt.Fprintln(out, a.board.Raw())
	}
	return nil
}

func cmdMembers(a *app, _ []string, out io.Writer) error {
	if err := a.mapping.Load(); err != nil {
		return err
	}
	members := a.mapping.Members()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, wan := range a.mapping.WANs() {
		fmt.Fprintf(tw, "%s\t%s\n", wan, members[wan])
	}
	return tw.Flush()
}

func cmdMapping(a *app, _ []string, out io.Writer) error {
	saved, err := a.mapping.Saved()
	if err != nil {
		return err
	}
	wans := make([]string, 0, len(saved))
	for wan := range saved {
		wans = append(wans, wan)
	}
	sort.Strings(wans)
	for _, wan := range wans {
		fmt.Fprintf(out, "%s=%s\n", wan, saved[wan])
	}
	return nil
}

func cmdSaveMapping(a *app, args []string, out io.Writer) error {
	assignments, err := parseAssignments(args)
	if err != nil || len(assignments) == 0 {
		return usageError("save-mapping")
	}
	if err := a.mapping.Load(); err != nil {
		return err
	}
	for wan, nic := range assignments {
		a.mapping.SetMapping(wan, nic)
	}
	if err := a.mapping.Save(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Interface mapping saved")
	return nil
}

// parseAssignments reads wan=nic pairs
func parseAssignments(args []string) (map[string]string, error) {
	m := make(map[string]string, len(args))
	for _, arg := range args {
		wan, nic, ok := strings.Cut(arg, "=")
		wan = strings.TrimSpace(wan)
		if !ok || wan == "" {
			return nil, fmt.Errorf("bad assignment %q, want wan=nic", arg)
		}
		m[wan] = strings.TrimSpace(nic)
	}
	return m, nil
}

func cmdAccounts(a *app, _ []string, out io.Writer) error {
	list, err := a.accounts.List()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tBANDWIDTH\tSTATUS\tLAST USED")
	for _, acc := range list {
		last := "never"
		if t := acc.LastUsed(); !t.IsZero() {
			last = t.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%dM\t%s\t%s\n", acc.ID, acc.Username, acc.Bandwidth, acc.Status, last)
	}
	return tw.Flush()
}

func cmdAddAccount(a *app, args []string, out io.Writer) error {
	if len(args) != 3 {
		return usageError("add-account")
	}
	bw, err := strconv.Atoi(strings.TrimSuffix(strings.ToUpper(args[2]), "M"))
	if err != nil {
		return usageError("add-account")
	}
	if err := a.accounts.Create(args[0], args[1], bw); err != nil {
		return err
	}
	fmt.Fprintf(out, "Account %s added (%d in pool)\n", args[0], len(a.accounts.Accounts()))
	return nil
}

func cmdLogin(a *app, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("login")
	}

	failed := 0
	for _, wan := range args {
		if err := a.login.Start(wan); err != nil {
			failed++
		}
	}

	// Oldest first, so the lines read in trigger order
	attempts := a.login.History().Entries()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i := len(attempts) - 1; i >= 0; i-- {
		at := attempts[i]
		result := "accepted"
		if !at.Accepted {
			result = "rejected: " + strings.TrimSpace(at.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", at.TriggeredAt.Format("15:04:05"), at.WAN, result)
	}
	tw.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d login triggers failed", failed, len(args))
	}
	fmt.Fprintln(out, "Follow progress with -cmd tail")
	return nil
}

func cmdBackup(a *app, args []string, out io.Writer) error {
	dir := "."
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		return usageError("backup")
	}
	path, err := a.backup.BackupToFile(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Backup saved to %s\n", path)
	return nil
}

func cmdRestore(a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("restore")
	}
	notice, err := a.backup.RestoreFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, notice)
	return nil
}

func cmdTail(a *app, _ []string, out io.Writer) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	done := make(chan struct{})
	go func() {
		<-stop
		close(done)
	}()
	return tail(a.tailer, out, done, time.Second)
}

// tail prints live log lines until done is closed or the stream drops
func tail(t *logstream.Tailer, out io.Writer, done <-chan struct{}, poll time.Duration) error {
	t.OnLine(func(line string) { fmt.Fprintln(out, line) })
	if err := t.Connect(); err != nil {
		return err
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return t.Close()
		case <-ticker.C:
			if !t.Connected() {
				err := t.Err()
				t.Close()
				return err
			}
		}
	}
}
