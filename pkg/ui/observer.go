package ui

import (
	"fmt"
	"sync"
)

// Phase names a stage of processing one sticker set
type Phase string

const (
	PhaseDownload Phase = "Downloading"
	PhaseConvert  Phase = "Converting"
)

// ProgressObserver receives progress events for one set. Implementations
// must not block; they never influence the outcome.
type ProgressObserver interface {
	Begin(phase Phase, total int)
	Advance(phase Phase)
	Notice(msg string)
	End(phase Phase)
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) Begin(Phase, int) {}
func (NopObserver) Advance(Phase)    {}
func (NopObserver) Notice(string)    {}
func (NopObserver) End(Phase)        {}

// Recorder keeps every event. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	events  []string
	notices []string
	totals  map[Phase]int
	counts  map[Phase]int
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{
		totals: make(map[Phase]int),
		counts: make(map[Phase]int),
	}
}

func (r *Recorder) Begin(phase Phase, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals[phase] = total
	r.counts[phase] = 0
	r.events = append(r.events, fmt.Sprintf("begin %s %d", phase, total))
}

func (r *Recorder) Advance(phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[phase]++
}

func (r *Recorder) Notice(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *Recorder) End(phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("end %s %d/%d", phase, r.counts[phase], r.totals[phase]))
}

// Events returns begin/end events in order
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Notices returns all notices in order
func (r *Recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

// Count returns how many times phase advanced
func (r *Recorder) Count(phase Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[phase]
}
