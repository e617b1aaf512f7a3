package session

import (
	"fmt"
	"sync"
)

// State is a stage of the interactive session
type State int

const (
	StateIdle State = iota
	StateTokenReady
	StateSetResolved
	StateDownloading
	StateConverting
	StateDone
)

var stateNames = map[State]string{
	StateIdle:        "Idle",
	StateTokenReady:  "TokenReady",
	StateSetResolved: "SetResolved",
	StateDownloading: "Downloading",
	StateConverting:  "Converting",
	StateDone:        "Done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists the allowed moves. Going back to TokenReady abandons a
// set; going back to Idle drops the token after an auth error.
var transitions = map[State][]State{
	StateIdle:        {StateTokenReady},
	StateTokenReady:  {StateSetResolved, StateIdle},
	StateSetResolved: {StateDownloading, StateTokenReady, StateIdle},
	StateDownloading: {StateConverting, StateTokenReady, StateIdle},
	StateConverting:  {StateDone, StateTokenReady, StateIdle},
	StateDone:        {StateTokenReady},
}

// TransitionError reports a move the table does not allow
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}

// Machine holds the current state
type Machine struct {
	mu      sync.Mutex
	state   State
	history []State
}

// NewMachine starts in Idle
func NewMachine() *Machine {
	return &Machine{state: StateIdle, history: []State{StateIdle}}
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// To moves to next or returns a *TransitionError
func (m *Machine) To(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return &TransitionError{From: m.state, To: next}
}

// History returns every state visited, oldest first
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}
