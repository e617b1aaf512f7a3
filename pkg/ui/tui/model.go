package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stickerdl/pkg/ui"
)

const (
	defaultBarWidth   = 40
	defaultMaxNotices = 6
)

// Model is the bubbletea model for one sticker set
type Model struct {
	title      string
	spinner    spinner.Model
	bar        progress.Model
	tracker    *ui.StatusTracker
	notices    []string
	maxNotices int
	width      int
	finished   bool
}

// NewModel creates a model for the set titled title
func NewModel(title string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return &Model{
		title:      title,
		spinner:    s,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(defaultBarWidth)),
		tracker:    ui.NewStatusTracker(),
		maxNotices: defaultMaxNotices,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Progress returns the progress of phase
func (m *Model) Progress(phase ui.Phase) (ui.PhaseProgress, bool) {
	return m.tracker.Get(phase)
}

// Notices returns the notices still on screen, oldest first
func (m *Model) Notices() []string {
	return append([]string(nil), m.notices...)
}

// Finished reports whether the set is done
func (m *Model) Finished() bool {
	return m.finished
}

func (m *Model) addNotice(msg string) {
	m.notices = append(m.notices, msg)
	if len(m.notices) > m.maxNotices {
		m.notices = m.notices[len(m.notices)-m.maxNotices:]
	}
}

func (m *Model) resize(width int) {
	m.width = width
	w := width - 30
	if w > defaultBarWidth {
		w = defaultBarWidth
	}
	if w < 10 {
		w = 10
	}
	m.bar.Width = w
}
