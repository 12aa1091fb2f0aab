package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/caltrack/internal/export"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/store"
)

// exportRequestBudget scales the per-request timeout for an export, which
// walks every day, meal and food in one context.
const exportRequestBudget = 8

// exportPicker is the format chooser opened with e.
type exportPicker struct {
	active bool
	cursor int
}

func (p *exportPicker) open(preferred string) {
	p.active = true
	p.cursor = 0
	for i, f := range export.Formats {
		if f == preferred {
			p.cursor = i
		}
	}
}

// update returns the chosen format once enter is pressed.
func (p *exportPicker) update(msg tea.KeyMsg) (format string, chosen bool) {
	switch {
	case key.Matches(msg, keys.Up):
		p.cursor = clamp(p.cursor-1, 0, len(export.Formats)-1)
	case key.Matches(msg, keys.Down):
		p.cursor = clamp(p.cursor+1, 0, len(export.Formats)-1)
	case key.Matches(msg, keys.Enter):
		p.active = false
		return export.Formats[p.cursor], true
	case key.Matches(msg, keys.Back):
		p.active = false
	}
	return "", false
}

func (p exportPicker) view(width int) string {
	rows := []string{titleStyle.Render("Export plan"), ""}
	for i, f := range export.Formats {
		if i == p.cursor {
			rows = append(rows, selectedItemStyle.Render("> "+formatLabel(f)))
			continue
		}
		rows = append(rows, normalItemStyle.Render("  "+formatLabel(f)))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))
	return activePanelStyle.Width(width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// exportJob writes the athlete's whole plan to dir, or to the home directory
// when dir is empty, and records the file in the local history.
type exportJob struct {
	remote    session.Store
	store     *store.Store
	logger    *slog.Logger
	athleteID int64
	timeout   time.Duration
	format    string
	dir       string
}

func (j exportJob) cmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout*exportRequestBudget)
		defer cancel()

		dir := j.dir
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		path := export.DefaultPath(dir, j.athleteID, j.format, time.Now())

		plan, err := export.Collect(ctx, j.remote, j.athleteID)
		if err != nil {
			j.logger.Error("export failed", "format", j.format, "err", err)
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		if err := export.Write(plan, j.format, path); err != nil {
			j.logger.Error("export failed", "format", j.format, "path", path, "err", err)
			return statusMsg{text: fmt.Sprintf("%s error: %v", formatLabel(j.format), err), isError: true}
		}

		if _, err := j.store.RecordExport(store.ExportRecord{
			AthleteID: j.athleteID,
			Format:    j.format,
			Path:      path,
			Days:      len(plan.Days),
			Foods:     plan.FoodCount(),
		}); err != nil {
			j.logger.Warn("recording export", "path", path, "err", err)
		}
		j.logger.Info("exported plan", "format", j.format, "path", path, "days", len(plan.Days))
		return exportDoneMsg{path: path}
	}
}
