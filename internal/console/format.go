package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/netmanager/netconsole/internal/accounts"
	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/login"
	"github.com/netmanager/netconsole/internal/notify"
	"github.com/netmanager/netconsole/internal/status"
)

// clipWrite is swapped out in tests
var clipWrite = clipboard.WriteAll

// brandColor is the console accent color
var brandColor = tcell.NewHexColor(0x722ed1)

func headerText(endpoint string, st backend.ConnectionStatus) string {
	state := "[yellow]connecting"
	switch {
	case st.Reachable:
		state = "[green]reachable"
	case st.LastError != "":
		state = "[red]unreachable"
	}
	return fmt.Sprintf("[::b]NetManager console[::-]  %s  %s[-]", tview.Escape(endpoint), state)
}

func noticeText(n notify.Notice) string {
	color := "white"
	switch n.Level {
	case notify.LevelSuccess:
		color = "green"
	case notify.LevelWarn:
		color = "yellow"
	case notify.LevelError:
		color = "red"
	}
	return fmt.Sprintf("[%s]%s %s[-]", color, n.Timestamp.Format("15:04:05"), tview.Escape(n.Message))
}

func attemptSummary(a login.Attempt, ok bool) string {
	if !ok {
		return "not triggered yet"
	}
	at := a.TriggeredAt.Format("15:04:05")
	if a.Accepted {
		return "accepted at " + at + ", see live log"
	}
	return "rejected at " + at + ": " + strings.TrimSpace(a.Error)
}

func statusColor(s status.Status) tcell.Color {
	switch s {
	case status.StatusOnline:
		return tcell.ColorGreen
	case status.StatusOffline:
		return tcell.ColorRed
	default:
		return tcell.ColorGray
	}
}

func accountStatusColor(s accounts.Status) tcell.Color {
	switch s {
	case accounts.StatusOnline:
		return tcell.ColorGreen
	case accounts.StatusConnecting, accounts.StatusRetrying:
		return tcell.ColorYellow
	case accounts.StatusFailed:
		return tcell.ColorRed
	case accounts.StatusDisabled:
		return tcell.ColorGray
	default:
		return tview.Styles.PrimaryTextColor
	}
}

var accountHeader = []string{"ID", "Username", "Bandwidth", "Status", "Last used"}

func accountRow(a accounts.Account) []string {
	last := "never"
	if t := a.LastUsed(); !t.IsZero() {
		last = t.Format(time.DateTime)
	}
	st := string(a.Status)
	if a.Disabled && a.Status != accounts.StatusDisabled {
		st += " (disabled)"
	}
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.Username,
		fmt.Sprintf("%dM", a.Bandwidth),
		st,
		last,
	}
}

func bandwidthOptions() []string {
	opts := make([]string, len(accounts.Bandwidths))
	for i, bw := range accounts.Bandwidths {
		opts[i] = fmt.Sprintf("%dM", bw)
	}
	return opts
}

// systemPrefersDark guesses the terminal background from COLORFGBG
// ("fg;bg"). Terminals that do not set it are assumed dark.
func systemPrefersDark(colorfgbg string) bool {
	parts := strings.Split(colorfgbg, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if colorfgbg == "" || err != nil {
		return true
	}
	return bg <= 6 || bg == 8
}

// noticeFilter maps a key on the activity page to the levels it shows
func noticeFilter(r rune) ([]string, bool) {
	switch r {
	case 'a':
		return nil, true
	case 'w':
		return []string{notify.LevelWarn, notify.LevelError}, true
	case 'e':
		return []string{notify.LevelError}, true
	}
	return nil, false
}

func filterName(levels []string) string {
	if len(levels) == 0 {
		return "all"
	}
	return strings.Join(levels, "+")
}

var attemptHeader = []string{"Time", "WAN", "Result", "Attempt"}

func attemptRow(a login.Attempt) []string {
	result := "accepted"
	if !a.Accepted {
		result = "rejected: " + strings.TrimSpace(a.Error)
	}
	return []string{a.TriggeredAt.Format(time.TimeOnly), a.WAN, result, a.ID}
}
