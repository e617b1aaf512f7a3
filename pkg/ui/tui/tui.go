// Package tui renders the progress of one sticker set as a bubbletea program.
package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"stickerdl/pkg/ui"
)

// TUI runs a Model in the background and implements ui.ProgressObserver by
// forwarding events to it as messages
type TUI struct {
	program *tea.Program
	model   *Model
	done    chan struct{}
	err     error

	mu      sync.Mutex
	started bool
	stopped bool
}

var _ ui.ProgressObserver = (*TUI)(nil)

// New creates a TUI for the set titled title. Keyboard input is not read so
// the interactive prompt keeps stdin; interrupts are left to the caller.
func New(title string, out io.Writer) *TUI {
	model := NewModel(title)
	program := tea.NewProgram(model,
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	return &TUI{
		program: program,
		model:   model,
		done:    make(chan struct{}),
	}
}

// Start runs the program in a goroutine
func (t *TUI) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true

	go func() {
		defer close(t.done)
		_, t.err = t.program.Run()
	}()
}

// Stop renders the final frame and waits for the program to exit
func (t *TUI) Stop() error {
	t.mu.Lock()
	if !t.started || t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	t.program.Send(FinishMsg{})
	<-t.done
	return t.err
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	running := t.started && !t.stopped
	t.mu.Unlock()
	if running {
		t.program.Send(msg)
	}
}

func (t *TUI) Begin(phase ui.Phase, total int) { t.send(BeginMsg{Phase: phase, Total: total}) }
func (t *TUI) Advance(phase ui.Phase)          { t.send(AdvanceMsg{Phase: phase}) }
func (t *TUI) Notice(msg string)               { t.send(NoticeMsg{Text: msg}) }
func (t *TUI) End(phase ui.Phase)              { t.send(EndMsg{Phase: phase}) }
