package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/caltrack/internal/session"
)

// viewState represents the currently active view.
type viewState int

const (
	viewPlan viewState = iota
	viewReport
	viewSettings
)

var viewNames = []string{"Plan", "Report", "Settings"}

// --- Messages ---

// sessionEventMsg carries the outcome of one session request back into the
// update loop.
type sessionEventMsg struct {
	event session.Event
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// runRequests turns session requests into commands. Each request gets its own
// timeout.
func runRequests(remote session.Store, timeout time.Duration, reqs []session.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return sessionEventMsg{event: req.Do(ctx, remote)}
		})
	}
	return tea.Batch(cmds...)
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
