package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"stickerdl/pkg/ui"
)

// View renders the set panel
func (m *Model) View() string {
	header := titleStyle.Render(m.title)
	if !m.finished {
		header = m.spinner.View() + " " + header
	}

	lines := []string{header, ""}
	for _, p := range m.tracker.Phases() {
		lines = append(lines, m.renderPhase(p))
	}

	if len(m.notices) > 0 {
		lines = append(lines, "")
		for _, n := range m.notices {
			lines = append(lines, noticeStyle.Render(n))
		}
	}

	if !m.finished {
		lines = append(lines, "", helpStyle.Render("ctrl+c to cancel"))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}

func (m *Model) renderPhase(p ui.PhaseProgress) string {
	status := counterStyle.Render(p.Counter())
	if p.Ended {
		status += " " + doneStyle.Render("done")
	}
	return fmt.Sprintf("%s %s %s",
		labelStyle.Render(string(p.Phase)),
		m.bar.ViewAs(p.Fraction()),
		status,
	)
}
