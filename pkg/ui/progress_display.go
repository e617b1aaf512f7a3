package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/muesli/termenv"
)

const barWidth = 30

// ProgressDisplay renders one labelled bar per phase on a single line that
// is rewritten as items finish. Notices are printed above the bar.
type ProgressDisplay struct {
	mu      sync.Mutex
	printer *Printer
	tracker *StatusTracker
	bar     progress.Model
	current Phase
	drawn   bool
}

// NewProgressDisplay creates a display writing through printer
func NewProgressDisplay(printer *Printer) *ProgressDisplay {
	opts := []progress.Option{
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	}
	if printer.ColorEnabled() {
		opts = append(opts, progress.WithDefaultGradient())
	} else {
		opts = append(opts, progress.WithColorProfile(termenv.Ascii))
	}

	return &ProgressDisplay{
		printer: printer,
		tracker: NewStatusTracker(),
		bar:     progress.New(opts...),
	}
}

func (p *ProgressDisplay) Begin(phase Phase, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finishLine()
	p.tracker.Begin(phase, total)
	p.current = phase
	p.render()
}

func (p *ProgressDisplay) Advance(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tracker.Advance(phase) != nil && phase == p.current {
		p.render()
	}
}

func (p *ProgressDisplay) Notice(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLine()
	fmt.Fprintln(p.printer.Writer(), p.printer.Yellow(msg))
	if p.current != "" {
		p.render()
	}
}

func (p *ProgressDisplay) End(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tracker.End(phase) == nil {
		return
	}
	if phase == p.current {
		p.render()
		p.finishLine()
		p.current = ""
	}
}

// Line returns the rendered bar line for phase
func (p *ProgressDisplay) Line(phase Phase) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.tracker.Get(phase)
	if !ok {
		return ""
	}
	return p.line(st)
}

func (p *ProgressDisplay) line(st PhaseProgress) string {
	label := fmt.Sprintf("%-11s", string(st.Phase))
	return fmt.Sprintf("%s %s %s", p.printer.Cyan(label), p.bar.ViewAs(st.Fraction()), st.Counter())
}

func (p *ProgressDisplay) render() {
	st, ok := p.tracker.Get(p.current)
	if !ok {
		return
	}
	fmt.Fprint(p.printer.Writer(), "\r"+p.line(st))
	p.drawn = true
}

func (p *ProgressDisplay) clearLine() {
	if p.drawn {
		fmt.Fprint(p.printer.Writer(), "\r"+strings.Repeat(" ", barWidth+40)+"\r")
		p.drawn = false
	}
}

func (p *ProgressDisplay) finishLine() {
	if p.drawn {
		fmt.Fprintln(p.printer.Writer())
		p.drawn = false
	}
}
