package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	store   *store.Store
	remote  session.Store
	session *session.Session
	logger  *slog.Logger
	timeout time.Duration
	width   int
	height  int

	activeView viewState
	showHelp   bool
	picker     exportPicker

	plan     planModel
	reports  reportsModel
	settings settingsModel

	help   help.Model
	status string
}

func NewApp(s *store.Store, remote session.Store, sess *session.Session, timeout time.Duration, logger *slog.Logger) App {
	h := help.New()
	h.ShowAll = false
	if logger == nil {
		logger = slog.Default()
	}

	return App{
		store:      s,
		remote:     remote,
		session:    sess,
		logger:     logger,
		timeout:    timeout,
		activeView: viewPlan,
		plan:       newPlanModel(sess, remote, timeout),
		reports:    newReportsModel(remote, sess.Context().AthleteID, timeout),
		settings:   newSettingsModel(s, sess),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return a.plan.reload()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.plan.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case sessionEventMsg:
		// Requests finish in the background whatever view is showing.
		var cmd tea.Cmd
		a.plan, cmd = a.plan.handleEvent(msg)
		return a, cmd

	case tea.KeyMsg:
		// Alerts block everything until acknowledged.
		if len(a.session.Alerts()) > 0 {
			switch {
			case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Back):
				a.session.DismissAlert()
			case msg.String() == "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}

		if a.picker.active {
			format, ok := a.picker.update(msg)
			if !ok {
				return a, nil
			}
			a.status = "Exporting..."
			return a, a.exportJob(format).cmd()
		}

		// Forms capture every key, including the global ones.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.picker.open(a.settings.preferredFormat())
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewPlan
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewReport
			return a, a.reports.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case statusMsg:
		a.status = msg.text
		if msg.isError {
			a.status = errorStyle.Render(msg.text)
		}
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		return a, a.settings.refresh()
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewPlan:
		a.plan, cmd = a.plan.update(msg)
	case viewReport:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewPlan:
		return a.plan.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewReport:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewPlan:
		content = a.plan.view()
	case viewReport:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.picker.active {
		content = a.picker.view(a.width)
	}
	if alerts := a.session.Alerts(); len(alerts) > 0 {
		content = a.renderAlert(alerts)
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	tabs := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		style := inactiveTabStyle
		if viewState(i) == a.activeView {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%d %s", i+1, name)))
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("caltrack")
	planned := mutedStyle.Render(fmt.Sprintf("  %d/%d days", len(a.session.Days()), session.MaxDays))
	left := title + planned

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(tabRow)-4, 1)
	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, left, lipgloss.NewStyle().Width(gap).Render(""), tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	athlete := successStyle.Render(fmt.Sprintf(" ● athlete #%d", a.session.Context().AthleteID))
	if a.session.Policy() == session.DeleteRollback {
		athlete += warningStyle.Render(" ↺")
	}

	left := footerStyle.Render(helpView)
	right := athlete + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderAlert(alerts []string) string {
	rows := []string{errorStyle.Render(alerts[0])}
	if len(alerts) > 1 {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("(%d more)", len(alerts)-1)))
	}
	rows = append(rows, "", mutedStyle.Render("enter: ok"))
	return alertPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) exportJob(format string) exportJob {
	return exportJob{
		remote:    a.remote,
		store:     a.store,
		logger:    a.logger,
		athleteID: a.session.Context().AthleteID,
		timeout:   a.timeout,
		format:    format,
		dir:       a.settings.getVal(store.KeyExportDir, ""),
	}
}
