package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"stickerdl/pkg/ui"
)

// BeginMsg starts a phase
type BeginMsg struct {
	Phase ui.Phase
	Total int
}

// AdvanceMsg counts one finished item of a phase
type AdvanceMsg struct {
	Phase ui.Phase
}

// NoticeMsg adds a line below the bars
type NoticeMsg struct {
	Text string
}

// EndMsg marks a phase as finished
type EndMsg struct {
	Phase ui.Phase
}

// FinishMsg ends the program after a final render
type FinishMsg struct{}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case BeginMsg:
		m.tracker.Begin(msg.Phase, msg.Total)
		return m, nil

	case AdvanceMsg:
		m.tracker.Advance(msg.Phase)
		return m, nil

	case NoticeMsg:
		m.addNotice(msg.Text)
		return m, nil

	case EndMsg:
		m.tracker.End(msg.Phase)
		return m, nil

	case FinishMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}
