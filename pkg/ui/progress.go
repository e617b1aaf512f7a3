package ui

import (
	"fmt"
	"time"
)

// PhaseProgress counts finished items of one phase
type PhaseProgress struct {
	Phase   Phase
	Total   int
	Done    int
	Started time.Time
	Ended   bool
}

// Fraction returns Done/Total in [0, 1]. An empty phase is complete.
func (p PhaseProgress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	f := float64(p.Done) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Counter returns "done/total"
func (p PhaseProgress) Counter() string {
	return fmt.Sprintf("%d/%d", p.Done, p.Total)
}

// StatusTracker keeps the progress of both phases of one set
type StatusTracker struct {
	phases map[Phase]*PhaseProgress
	order  []Phase
}

// NewStatusTracker creates an empty tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{phases: make(map[Phase]*PhaseProgress)}
}

// Begin starts (or restarts) phase with total items
func (st *StatusTracker) Begin(phase Phase, total int) *PhaseProgress {
	p, ok := st.phases[phase]
	if !ok {
		p = &PhaseProgress{Phase: phase}
		st.phases[phase] = p
		st.order = append(st.order, phase)
	}
	*p = PhaseProgress{Phase: phase, Total: total, Started: time.Now()}
	return p
}

// Advance counts one finished item. Unknown phases are ignored.
func (st *StatusTracker) Advance(phase Phase) *PhaseProgress {
	p, ok := st.phases[phase]
	if !ok {
		return nil
	}
	p.Done++
	return p
}

// End marks phase as finished
func (st *StatusTracker) End(phase Phase) *PhaseProgress {
	p, ok := st.phases[phase]
	if !ok {
		return nil
	}
	p.Ended = true
	return p
}

// Get returns the progress of phase
func (st *StatusTracker) Get(phase Phase) (PhaseProgress, bool) {
	p, ok := st.phases[phase]
	if !ok {
		return PhaseProgress{}, false
	}
	return *p, true
}

// Phases returns phases in the order they began
func (st *StatusTracker) Phases() []PhaseProgress {
	out := make([]PhaseProgress, 0, len(st.order))
	for _, ph := range st.order {
		out = append(out, *st.phases[ph])
	}
	return out
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
