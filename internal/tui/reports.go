package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/caltrack/internal/api"
	"github.com/sadopc/caltrack/internal/nutrition"
	"github.com/sadopc/caltrack/internal/session"
)

type reportMode int

const (
	reportMacros reportMode = iota
	reportKcal
)

// dayReport is one day of the plan with its server-side totals.
type dayReport struct {
	day    api.Day
	totals api.Totals
}

type reportsModel struct {
	remote    session.Store
	athleteID int64
	timeout   time.Duration
	width     int
	height    int

	mode reportMode
	days []dayReport
	err  error

	chart barchart.Model
}

func newReportsModel(remote session.Store, athleteID int64, timeout time.Duration) reportsModel {
	return reportsModel{
		remote:    remote,
		athleteID: athleteID,
		timeout:   timeout,
		chart:     barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	days []dayReport
	err  error
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		days, err := r.remote.ListDays(ctx, r.athleteID)
		if err != nil {
			return reportsDataMsg{err: err}
		}
		out := make([]dayReport, 0, len(days))
		for _, d := range days {
			totals, err := r.remote.DayNutrition(ctx, d.ID)
			if err != nil {
				return reportsDataMsg{err: err}
			}
			out = append(out, dayReport{day: d, totals: totals})
		}
		return reportsDataMsg{days: out}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.days = msg.days
		r.err = msg.err
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Mode):
			if r.mode == reportMacros {
				r.mode = reportKcal
			} else {
				r.mode = reportMacros
			}
			r.buildChart()
			return r, nil
		case key.Matches(msg, keys.Reload):
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, d := range r.days {
		var values []barchart.BarValue
		switch r.mode {
		case reportKcal:
			values = []barchart.BarValue{
				{Name: "kcal", Value: d.totals.Kcal, Style: macroStyle(colorKcal)},
			}
		default:
			values = []barchart.BarValue{
				{Name: "Protein", Value: d.totals.Protein, Style: macroStyle(colorProtein)},
				{Name: "Carbs", Value: d.totals.Carbs, Style: macroStyle(colorCarbs)},
				{Name: "Fat", Value: d.totals.Fat, Style: macroStyle(colorFat)},
			}
		}
		bars = append(bars, barchart.BarData{
			Label:  shortLabel(d.day.Name),
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

// shortLabel keeps bar labels narrow enough for eight days side by side.
func shortLabel(name string) string {
	if len(name) > 3 {
		return name[:3]
	}
	return name
}

func (r reportsModel) view() string {
	w := r.width - 4

	macrosTab := inactiveTabStyle.Render("Macros (g)")
	kcalTab := inactiveTabStyle.Render("Energy (kcal)")
	if r.mode == reportMacros {
		macrosTab = activeTabStyle.Render("Macros (g)")
	} else {
		kcalTab = activeTabStyle.Render("Energy (kcal)")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, macrosTab, kcalTab)

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Report"), "  ", modeTabs, "  ",
		mutedStyle.Render(fmt.Sprintf("athlete #%d", r.athleteID)),
	)

	nav := mutedStyle.Render("  m: switch mode  ctrl+r: reload")

	if r.err != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				header, "", errorStyle.Render("  Error loading report: "+r.err.Error()), "", nav,
			),
		)
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderLegend(), "", r.renderSummaryTable(w), "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	if len(r.days) == 0 {
		return mutedStyle.Render("  No days planned yet")
	}

	var rows []string
	headerRow := mutedStyle.Render(fmt.Sprintf("  %-12s %10s %10s %10s %10s", "Day", "Protein", "Carbs", "Fat", "Kcal"))
	rows = append(rows, headerRow)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 56))))

	var sum api.Totals
	for _, d := range r.days {
		rows = append(rows, totalsRow(d.day.Name, d.totals))
		sum.Protein += d.totals.Protein
		sum.Carbs += d.totals.Carbs
		sum.Fat += d.totals.Fat
		sum.Kcal += d.totals.Kcal
	}
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 56))))
	rows = append(rows, highlightStyle.Render(totalsRow("Total", sum)))

	return strings.Join(rows, "\n")
}

func totalsRow(label string, t api.Totals) string {
	return fmt.Sprintf("  %-12s %10s %10s %10s %10s", label,
		nutrition.Number(t.Protein), nutrition.Number(t.Carbs), nutrition.Number(t.Fat), nutrition.Number(t.Kcal))
}

func (r reportsModel) renderLegend() string {
	if len(r.days) == 0 {
		return ""
	}
	if r.mode == reportKcal {
		return "  " + macroStyle(colorKcal).Render("●") + " kcal"
	}
	items := []string{
		macroStyle(colorProtein).Render("●") + " Protein",
		macroStyle(colorCarbs).Render("●") + " Carbs",
		macroStyle(colorFat).Render("●") + " Fat",
	}
	return "  " + strings.Join(items, "  ")
}
