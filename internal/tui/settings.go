package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/caltrack/internal/export"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/store"
)

const recentLimit = 5

type settingsModel struct {
	store   *store.Store
	session *session.Session
	width   int
	height  int

	settings   []store.Setting
	athletes   []store.Athlete
	exports    []store.ExportRecord
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	deletePolicy *string
	exportFormat *string
	exportDir    *string
}

func newSettingsModel(s *store.Store, sess *session.Session) settingsModel {
	dp, ef, ed := "", "", ""
	return settingsModel{
		store:        s,
		session:      sess,
		deletePolicy: &dp,
		exportFormat: &ef,
		exportDir:    &ed,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
	athletes []store.Athlete
	exports  []store.ExportRecord
}

func (s settingsModel) refresh() tea.Cmd {
	athleteID := s.session.Context().AthleteID
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		athletes, _ := s.store.RecentAthletes(recentLimit)
		exports, _ := s.store.ListExports(athleteID, recentLimit)
		return settingsDataMsg{settings: settings, athletes: athletes, exports: exports}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		s.athletes = msg.athletes
		s.exports = msg.exports
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.deletePolicy = s.getVal(store.KeyDeletePolicy, session.DeleteFireAndForget.String())
	*s.exportFormat = s.getVal(store.KeyExportFormat, "csv")
	*s.exportDir = s.getVal(store.KeyExportDir, "")

	formats := make([]huh.Option[string], 0, len(export.Formats))
	for _, f := range export.Formats {
		formats = append(formats, huh.NewOption(formatLabel(f), f))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("When a delete fails").
				Options(
					huh.NewOption("Keep it removed, just alert", session.DeleteFireAndForget.String()),
					huh.NewOption("Put it back", session.DeleteRollback.String()),
				).Value(s.deletePolicy),
		).Title("Editing"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Default format").
				Options(formats...).
				Value(s.exportFormat),
			huh.NewInput().Title("Directory (empty: home)").Value(s.exportDir),
		).Title("Export"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
			}
		}
		return s, s.refresh()
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	err := s.store.SetSettings(map[string]string{
		store.KeyDeletePolicy: *s.deletePolicy,
		store.KeyExportFormat: *s.exportFormat,
		store.KeyExportDir:    *s.exportDir,
	})
	if err != nil {
		return err
	}
	s.session.SetPolicy(session.ParseDeletePolicy(*s.deletePolicy))
	return nil
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.SettingOr(k, fallback)
	if err != nil {
		return fallback
	}
	return v
}

// preferredFormat is the format the export picker starts on.
func (s settingsModel) preferredFormat() string {
	return s.getVal(store.KeyExportFormat, export.Formats[0])
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	if len(s.athletes) > 0 {
		rows = append(rows, "", subtitleStyle.Render("Recent athletes"))
		for _, a := range s.athletes {
			line := fmt.Sprintf("  #%-8d %3d opens   last %s", a.ID, a.Uses, a.LastUsed.Local().Format("2006-01-02 15:04"))
			if a.ID == s.session.Context().AthleteID {
				line = accentStyle.Render(line)
			}
			rows = append(rows, line)
		}
	}

	if len(s.exports) > 0 {
		rows = append(rows, "", subtitleStyle.Render("Recent exports"))
		for _, e := range s.exports {
			rows = append(rows, fmt.Sprintf("  %s  %-4s %2d days %3d foods  %s",
				e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Format, e.Days, e.Foods,
				mutedStyle.Render(e.Path)))
		}
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.KeyAthleteID:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fmt.Sprintf("#%d (change with --athlete)", id)
		}
	case store.KeyExportFormat:
		return formatLabel(v)
	case store.KeyExportDir:
		if v == "" {
			return "home directory"
		}
	}
	if v == "" {
		return "-"
	}
	return v
}

func formatLabel(format string) string {
	switch format {
	case "csv":
		return "CSV"
	case "json":
		return "JSON"
	case "xlsx":
		return "Excel"
	}
	return format
}
