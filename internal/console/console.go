package console

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/netmanager/netconsole/internal/accounts"
	"github.com/netmanager/netconsole/internal/backend"
	"github.com/netmanager/netconsole/internal/backup"
	"github.com/netmanager/netconsole/internal/ifacemap"
	"github.com/netmanager/netconsole/internal/login"
	"github.com/netmanager/netconsole/internal/logstream"
	"github.com/netmanager/netconsole/internal/notify"
	"github.com/netmanager/netconsole/internal/prefs"
	"github.com/netmanager/netconsole/internal/status"
)

const (
	pageWizard   = "wizard"
	pageAccounts = "accounts"
	pageStatus   = "status"
	pageLogs     = "logs"
	pageBackup   = "backup"
	pageActivity = "activity"
)

var pageOrder = []struct {
	name  string
	title string
	key   tcell.Key
}{
	{pageWizard, "Setup", tcell.KeyF1},
	{pageAccounts, "Accounts", tcell.KeyF2},
	{pageStatus, "Status", tcell.KeyF3},
	{pageLogs, "Live log", tcell.KeyF4},
	{pageBackup, "Backup", tcell.KeyF5},
	{pageActivity, "Activity", tcell.KeyF6},
}

// darkTheme is tview's stock palette
var darkTheme = tview.Styles

var lightTheme = tview.Theme{
	PrimitiveBackgroundColor:    tcell.ColorWhite,
	ContrastBackgroundColor:     tcell.ColorLightGray,
	MoreContrastBackgroundColor: brandColor,
	BorderColor:                 tcell.ColorDarkGray,
	TitleColor:                  brandColor,
	GraphicsColor:               tcell.ColorDarkGray,
	PrimaryTextColor:            tcell.ColorBlack,
	SecondaryTextColor:          brandColor,
	TertiaryTextColor:           tcell.ColorGreen,
	InverseTextColor:            tcell.ColorWhite,
	ContrastSecondaryTextColor:  tcell.ColorDarkBlue,
}

// Deps are the core components the console drives
type Deps struct {
	Client   *backend.Client
	Mapping  *ifacemap.Coordinator
	Login    *login.Trigger
	Accounts *accounts.Manager
	Board    *status.Board
	Tailer   *logstream.Tailer
	Backup   *backup.Coordinator
	Notices  *notify.Center
	Prefs    *prefs.Store

	BackupDir string
	Mouse     bool
}

// Console is the terminal front end. It only invokes core operations and
// renders their state; every outcome is reported through Notices.
type Console struct {
	deps Deps
	app  *tview.Application
	done chan struct{}

	current string

	root      *tview.Flex
	pages     *tview.Pages
	header    *tview.TextView
	tabs      *tview.TextView
	noticeBar *tview.TextView

	wizardForm  *tview.Form
	loginList   *tview.List
	accountList *tview.Table
	statusTable *tview.Table
	statusRaw   *tview.TextView
	logView     *tview.TextView

	noticeView   *tview.TextView
	attemptTable *tview.Table
	noticeLevels []string
}

// New creates the console
func New(deps Deps) *Console {
	c := &Console{
		deps:    deps,
		app:     tview.NewApplication(),
		done:    make(chan struct{}),
		current: pageWizard,
	}
	c.app.EnableMouse(deps.Mouse)

	deps.Notices.OnNotice = func(n notify.Notice) {
		go c.app.QueueUpdateDraw(func() {
			c.noticeBar.SetText(noticeText(n))
			if c.current == pageActivity {
				c.renderActivity()
			}
		})
	}
	deps.Tailer.OnLine(func(string) {
		go c.app.QueueUpdateDraw(c.renderLogs)
	})

	c.applyTheme(deps.Prefs.Get())
	c.build()
	c.app.SetInputCapture(c.handleKey)
	return c
}

// Run blocks until the operator quits
func (c *Console) Run() error {
	if err := c.deps.Prefs.Watch(func(p prefs.Preferences) {
		go c.app.QueueUpdateDraw(func() { c.rebuild(p) })
	}); err != nil {
		log.Printf("Warning - %v", err)
	}
	defer c.deps.Prefs.Close()

	go c.healthLoop()
	defer close(c.done)
	defer c.deps.Tailer.Close()

	c.switchTo(pageWizard)
	return c.app.Run()
}

func (c *Console) build() {
	c.header = tview.NewTextView().SetDynamicColors(true)
	c.header.SetText(headerText(c.deps.Client.Endpoint(), c.deps.Client.Status()))

	c.tabs = tview.NewTextView().SetDynamicColors(true).SetRegions(true).SetWrap(false)
	for _, p := range pageOrder {
		fmt.Fprintf(c.tabs, `["%s"][darkcyan]%s[-] %s[""]  `, p.name, tcell.KeyNames[p.key], p.title)
	}
	fmt.Fprint(c.tabs, "[gray]F7 theme  Ctrl-C quit")

	c.noticeBar = tview.NewTextView().SetDynamicColors(true)
	if n, ok := c.deps.Notices.Latest(); ok {
		c.noticeBar.SetText(noticeText(n))
	}

	c.pages = tview.NewPages()
	c.pages.AddPage(pageWizard, c.wizardPage(), true, false)
	c.pages.AddPage(pageAccounts, c.accountsPage(), true, false)
	c.pages.AddPage(pageStatus, c.statusPage(), true, false)
	c.pages.AddPage(pageLogs, c.logsPage(), true, false)
	c.pages.AddPage(pageBackup, c.backupPage(), true, false)
	c.pages.AddPage(pageActivity, c.activityPage(), true, false)

	c.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.header, 1, 0, false).
		AddItem(c.tabs, 1, 0, false).
		AddItem(c.pages, 0, 1, true).
		AddItem(c.noticeBar, 1, 0, false)

	c.app.SetRoot(c.root, true)
	c.pages.SwitchToPage(c.current)
	c.tabs.Highlight(c.current)
}

// rebuild recreates every primitive so a new palette takes effect
func (c *Console) rebuild(p prefs.Preferences) {
	c.applyTheme(p)
	c.build()
	c.renderCurrent()
}

func (c *Console) applyTheme(p prefs.Preferences) {
	if p.IsDark(systemPrefersDark(os.Getenv("COLORFGBG"))) {
		tview.Styles = darkTheme
	} else {
		tview.Styles = lightTheme
	}
}

func (c *Console) handleKey(event *tcell.EventKey) *tcell.EventKey {
	for _, p := range pageOrder {
		if event.Key() == p.key {
			c.switchTo(p.name)
			return nil
		}
	}
	if event.Key() == tcell.KeyF7 {
		c.cycleTheme()
		return nil
	}
	return event
}

func (c *Console) cycleTheme() {
	p := c.deps.Prefs.Get()
	p.Mode = p.Mode.Next()
	if err := c.deps.Prefs.Set(p); err != nil {
		c.deps.Notices.Report("Save preferences", err, "")
	}
	c.rebuild(p)
	c.deps.Notices.Info("Display mode: %s", p.Mode)
}

// switchTo shows a page. Leaving the live log closes its socket; entering
// a data page reloads it.
func (c *Console) switchTo(name string) {
	if c.current == pageLogs && name != pageLogs {
		if err := c.deps.Tailer.Close(); err != nil {
			log.Printf("Warning - close live log: %v", err)
		}
	}
	c.current = name
	c.pages.SwitchToPage(name)
	c.tabs.Highlight(name)

	switch name {
	case pageAccounts:
		c.reloadAccounts()
	case pageStatus:
		c.refreshStatus()
	case pageLogs:
		c.connectLogs()
	case pageActivity:
		c.renderActivity()
	}
}

func (c *Console) renderCurrent() {
	c.renderWizard()
	c.renderAccounts()
	c.renderStatus()
	c.renderLogs()
	c.renderActivity()
}

// runAsync runs work off the UI goroutine and hands its error to onDone
// on the UI goroutine.
func (c *Console) runAsync(label string, work func() error, onDone func(err error)) {
	c.noticeBar.SetText(fmt.Sprintf("[yellow]%s...", tview.Escape(label)))
	go func() {
		err := work()
		c.app.QueueUpdateDraw(func() {
			if onDone != nil {
				onDone(err)
			}
		})
	}()
}

func (c *Console) healthLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		_ = c.deps.Client.Health()
		st := c.deps.Client.Status()
		c.app.QueueUpdateDraw(func() {
			c.header.SetText(headerText(c.deps.Client.Endpoint(), st))
		})

		select {
		case <-c.done:
			return
		case <-ticker.C:
		}
	}
}

func (c *Console) confirm(text string, onConfirm func()) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Cancel", "Confirm"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			c.pages.RemovePage("confirm")
			c.pages.SwitchToPage(c.current)
			if buttonLabel == "Confirm" {
				onConfirm()
			}
		})
	c.pages.AddPage("confirm", modal, true, true)
}
