package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonOrange  = lipgloss.Color("#FF6700")
	darkBg      = lipgloss.Color("#0A0E27")
	dimWhite    = lipgloss.Color("#B0B0B0")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Width(12)

	counterStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	doneStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(neonOrange)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)
