package console

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/netmanager/netconsole/internal/accounts"
	"github.com/netmanager/netconsole/internal/status"
)

// Setup: load mwan members, assign NICs, trigger logins

func (c *Console) wizardPage() tview.Primitive {
	c.wizardForm = tview.NewForm()
	c.wizardForm.SetBorder(true).SetTitle(" Interfaces for multi-dial: set NIC per WAN ")

	c.loginList = tview.NewList().ShowSecondaryText(true)
	c.loginList.SetBorder(true).SetTitle(" Login now ")

	c.renderWizard()

	return tview.NewFlex().
		AddItem(c.wizardForm, 0, 2, true).
		AddItem(c.loginList, 0, 1, false)
}

func (c *Console) renderWizard() {
	mapping := c.deps.Mapping.Mapping()
	wans := c.deps.Mapping.WANs()

	c.wizardForm.Clear(true)
	for _, wan := range wans {
		wan := wan
		c.wizardForm.AddInputField(wan, mapping[wan], 20, nil, func(text string) {
			c.deps.Mapping.SetMapping(wan, text)
		})
	}
	c.wizardForm.AddButton("Load interfaces", c.loadInterfaces)
	if len(wans) > 0 {
		c.wizardForm.AddButton("Save mapping", c.saveMapping)
	}

	c.renderLoginList()
}

func (c *Console) renderLoginList() {
	history := c.deps.Login.History()

	c.loginList.Clear()
	for _, wan := range c.deps.Mapping.WANs() {
		wan := wan
		a, ok := history.Last(wan)
		c.loginList.AddItem(wan, attemptSummary(a, ok), 0, func() { c.startLogin(wan) })
	}
	if c.loginList.GetItemCount() == 0 {
		c.loginList.AddItem("<load interfaces first>", "", 0, nil)
	}
}

func (c *Console) loadInterfaces() {
	c.runAsync("Loading interfaces", c.deps.Mapping.Load, func(err error) {
		c.deps.Notices.Report("Load interfaces", err, fmt.Sprintf("Loaded %d interfaces", len(c.deps.Mapping.WANs())))
		c.renderWizard()
	})
}

func (c *Console) saveMapping() {
	c.runAsync("Saving interface mapping", c.deps.Mapping.Save, func(err error) {
		c.deps.Notices.Report("Save mapping", err, "Interface mapping saved")
	})
}

func (c *Console) startLogin(wan string) {
	c.runAsync("Triggering login for "+wan, func() error { return c.deps.Login.Start(wan) }, func(err error) {
		c.deps.Notices.Report("Login "+wan, err,
			fmt.Sprintf("Login task for %s triggered; follow progress in the live log (F4)", wan))
		c.renderLoginList()
	})
}

// Accounts: add credentials, list the pool

func (c *Console) accountsPage() tview.Primitive {
	var username, password string
	bandwidth := 0

	form := tview.NewForm()
	form.SetBorder(true).SetTitle(" Add account ")
	form.AddInputField("Username", "", 24, nil, func(text string) { username = text })
	form.AddPasswordField("Password", "", 24, '*', func(text string) { password = text })
	form.AddDropDown("Bandwidth", bandwidthOptions(), -1, func(_ string, index int) {
		if index >= 0 && index < len(accounts.Bandwidths) {
			bandwidth = accounts.Bandwidths[index]
		}
	})
	form.AddButton("Add", func() {
		u, p, bw := username, password, bandwidth
		c.runAsync("Adding account", func() error { return c.deps.Accounts.Create(u, p, bw) }, func(err error) {
			c.deps.Notices.Report("Add account", err, "Account "+u+" added")
			if err == nil {
				form.GetFormItemByLabel("Username").(*tview.InputField).SetText("")
				form.GetFormItemByLabel("Password").(*tview.InputField).SetText("")
			}
			c.renderAccounts()
		})
	})
	form.AddButton("Reload", c.reloadAccounts)

	c.accountList = tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	c.accountList.SetBorder(true).SetTitle(" Account pool ")
	c.renderAccounts()

	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 11, 0, true).
		AddItem(c.accountList, 0, 1, false)
}

func (c *Console) reloadAccounts() {
	c.runAsync("Loading accounts", func() error {
		_, err := c.deps.Accounts.List()
		return err
	}, func(err error) {
		c.deps.Notices.Report("Load accounts", err, "")
		c.renderAccounts()
	})
}

func (c *Console) renderAccounts() {
	t := c.accountList
	t.Clear()
	for col, h := range accountHeader {
		t.SetCell(0, col, tview.NewTableCell(h).SetTextColor(tview.Styles.SecondaryTextColor).SetSelectable(false))
	}
	for i, a := range c.deps.Accounts.Accounts() {
		for col, text := range accountRow(a) {
			cell := tview.NewTableCell(tview.Escape(text)).SetExpansion(1)
			if col == 3 {
				cell.SetTextColor(accountStatusColor(a.Status))
			}
			t.SetCell(i+1, col, cell)
		}
	}
}

// Status: parsed mwan3 interface states over the raw report

func (c *Console) statusPage() tview.Primitive {
	c.statusTable = tview.NewTable().SetSelectable(true, false)
	c.statusTable.SetBorder(true).SetTitle(" Interfaces  [Enter] login  [r] refresh  [c] copy report ")
	c.statusTable.SetSelectedFunc(func(row, _ int) {
		if ref := c.statusTable.GetCell(row, 0).GetReference(); ref != nil {
			c.startLogin(ref.(string))
		}
	})
	c.statusTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'r':
			c.refreshStatus()
			return nil
		case 'c':
			c.copyText("Status report", c.deps.Board.Raw())
			return nil
		}
		return event
	})

	c.statusRaw = tview.NewTextView().SetScrollable(true)
	c.statusRaw.SetBorder(true).SetTitle(" mwan3 status ")
	c.renderStatus()

	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.statusTable, 0, 1, true).
		AddItem(c.statusRaw, 0, 2, false)
}

func (c *Console) refreshStatus() {
	c.runAsync("Refreshing status", func() error {
		_, err := c.deps.Board.Refresh()
		return err
	}, func(err error) {
		c.deps.Notices.Report("Refresh status", err, "")
		c.renderStatus()
	})
}

func (c *Console) renderStatus() {
	t := c.statusTable
	t.Clear()
	for i, s := range c.deps.Board.Ifaces() {
		st := s.DisplayStatus()
		t.SetCell(i, 0, tview.NewTableCell(tview.Escape(s.Name)).SetReference(s.Name))
		t.SetCell(i, 1, tview.NewTableCell(string(st)).SetTextColor(statusColor(st)).SetExpansion(1))
	}
	if t.GetRowCount() == 0 {
		t.SetCell(0, 0, tview.NewTableCell("no interface lines in report").
			SetTextColor(statusColor(status.StatusUnknown)).SetSelectable(false))
	}
	c.statusRaw.SetText(c.deps.Board.Raw())
}

// Live log: socket lives only while this page is shown

func (c *Console) logsPage() tview.Primitive {
	c.logView = tview.NewTextView().SetScrollable(true)
	c.logView.SetBorder(true).SetTitle(" Live log  [c] copy ")
	c.logView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'c' {
			c.copyText("Live log", strings.Join(c.deps.Tailer.Lines(), "\n"))
			return nil
		}
		return event
	})
	c.renderLogs()
	return c.logView
}

func (c *Console) connectLogs() {
	c.runAsync("Connecting live log", func() error {
		err := c.deps.Tailer.Connect()
		if err != nil && c.deps.Tailer.Connected() {
			// Still open from before; nothing to do
			return nil
		}
		return err
	}, func(err error) {
		c.deps.Notices.Report("Live log", err, "Live log connected")
		c.renderLogs()
	})
}

func (c *Console) renderLogs() {
	lines := c.deps.Tailer.Lines()
	c.logView.SetText(strings.Join(lines, "\n"))
	c.logView.ScrollToEnd()
}

// Backup / restore

func (c *Console) backupPage() tview.Primitive {
	dir := c.deps.BackupDir
	restorePath := ""

	form := tview.NewForm()
	form.SetBorder(true).SetTitle(" Backup / restore configuration ")
	form.AddInputField("Backup directory", dir, 40, nil, func(text string) { dir = text })
	form.AddInputField("Restore from file", "", 40, nil, func(text string) { restorePath = text })

	form.AddButton("Backup", func() {
		target := dir
		var saved string
		c.runAsync("Downloading backup", func() error {
			var err error
			saved, err = c.deps.Backup.BackupToFile(target)
			return err
		}, func(err error) {
			c.deps.Notices.Report("Backup", err, "Backup saved to "+saved)
		})
	})
	form.AddButton("Restore", func() {
		path := strings.TrimSpace(restorePath)
		if path == "" {
			c.deps.Notices.Warn("Choose a file to restore from")
			return
		}
		c.confirm(fmt.Sprintf("Replace the backend configuration with %s?", path), func() {
			var notice string
			c.runAsync("Uploading restore", func() error {
				var err error
				notice, err = c.deps.Backup.RestoreFile(path)
				return err
			}, func(err error) {
				c.deps.Notices.Report("Restore", err, notice)
			})
		})
	})

	return form
}

func (c *Console) copyText(what, text string) {
	if err := clipWrite(text); err != nil {
		c.deps.Notices.Report("Copy "+strings.ToLower(what), err, "")
		return
	}
	c.deps.Notices.Success("%s copied to clipboard", what)
}

// Activity: notices raised this session and the login trigger history

func (c *Console) activityPage() tview.Primitive {
	c.noticeView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	c.noticeView.SetBorder(true)
	c.noticeView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'x' {
			c.deps.Notices.Clear()
			c.renderActivity()
			return nil
		}
		if levels, ok := noticeFilter(event.Rune()); ok {
			c.noticeLevels = levels
			c.renderActivity()
			return nil
		}
		return event
	})

	c.attemptTable = tview.NewTable().SetFixed(1, 0)
	c.attemptTable.SetBorder(true).SetTitle(" Login triggers ")
	c.renderActivity()

	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.noticeView, 0, 2, true).
		AddItem(c.attemptTable, 0, 1, false)
}

func (c *Console) renderActivity() {
	notices := c.deps.Notices.Entries(c.noticeLevels)
	lines := make([]string, len(notices))
	for i, n := range notices {
		lines[i] = noticeText(n)
	}
	c.noticeView.SetTitle(fmt.Sprintf(" Notices: %s  [a] all [w] warnings [e] errors [x] clear ", filterName(c.noticeLevels)))
	c.noticeView.SetText(strings.Join(lines, "\n"))
	c.noticeView.ScrollToEnd()

	t := c.attemptTable
	t.Clear()
	for col, h := range attemptHeader {
		t.SetCell(0, col, tview.NewTableCell(h).SetTextColor(tview.Styles.SecondaryTextColor).SetSelectable(false))
	}
	for i, a := range c.deps.Login.History().Entries() {
		for col, text := range attemptRow(a) {
			cell := tview.NewTableCell(tview.Escape(text)).SetExpansion(1)
			if col == 2 && !a.Accepted {
				cell.SetTextColor(tcell.ColorRed)
			}
			t.SetCell(i+1, col, cell)
		}
	}
}
