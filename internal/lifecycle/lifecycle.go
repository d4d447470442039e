// Package lifecycle implements the three-state watch lifecycle: idle, watching, stopped.
package lifecycle

import (
	"github.com/listenupapp/watchstate/internal/errors"
)

// State is a lifecycle state.
type State int

const (
	// Idle is the initial state. The log is empty and no events are accepted.
	Idle State = iota
	// Watching accepts events.
	Watching
	// Stopped is terminal. The log is frozen but can still be queried.
	Stopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Watching:
		return "watching"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Transition is an input to the state machine.
type Transition string

const (
	Start Transition = "start"
	Stop  Transition = "stop"
)

// transitions is the full transition table. Missing entries are illegal.
var transitions = map[State]map[Transition]State{
	Idle:     {Start: Watching},
	Watching: {Stop: Stopped},
	Stopped:  {},
}

// Machine holds the current state. It is not safe for concurrent use;
// owners serialize access.
type Machine struct {
	state State
}

// New returns a machine in the Idle state.
func New() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Next returns the state t leads to from the current state without committing it.
func (m *Machine) Next(t Transition) (State, error) {
	next, ok := transitions[m.state][t]
	if !ok {
		return m.state, errors.InvalidStatef("cannot %s while %s", t, m.state).
			WithDetails(map[string]string{"from": m.state.String(), "transition": string(t)})
	}
	return next, nil
}

// Send applies t, returning an invalid state error when t is not allowed.
func (m *Machine) Send(t Transition) error {
	next, err := m.Next(t)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}
