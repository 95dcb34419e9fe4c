package state

import (
	"errors"
	"fmt"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Machine is a finite state machine over comparable state ids. Only
// registered transitions are legal; a transition may carry a guard.
//
// Machine is not safe for concurrent use. Owners serialize access.
type Machine[S comparable] struct {
	current     S
	transitions map[S]map[S]func() bool // from -> to -> guard
	onEnter     map[S][]func(from S)
	onExit      map[S][]func(to S)
}

func NewMachine[S comparable](initial S) *Machine[S] {
	return &Machine[S]{
		current:     initial,
		transitions: make(map[S]map[S]func() bool),
		onEnter:     make(map[S][]func(S)),
		onExit:      make(map[S][]func(S)),
	}
}

// AddTransition registers from -> to. A nil guard always allows it.
func (m *Machine[S]) AddTransition(from, to S, guard func() bool) {
	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[S]func() bool)
	}
	m.transitions[from][to] = guard
}

// OnEnter registers a callback run after the machine enters id.
func (m *Machine[S]) OnEnter(id S, fn func(from S)) {
	m.onEnter[id] = append(m.onEnter[id], fn)
}

// OnExit registers a callback run before the machine leaves id.
func (m *Machine[S]) OnExit(id S, fn func(to S)) {
	m.onExit[id] = append(m.onExit[id], fn)
}

func (m *Machine[S]) Current() S {
	return m.current
}

// Can reports whether ChangeState(to) would succeed.
func (m *Machine[S]) Can(to S) bool {
	guard, ok := m.transitions[m.current][to]
	if !ok {
		return false
	}
	return guard == nil || guard()
}

func (m *Machine[S]) ChangeState(to S) error {
	from := m.current
	if !m.Can(to) {
		return fmt.Errorf("%w: %v -> %v", ErrTransitionNotAllowed, from, to)
	}

	for _, fn := range m.onExit[from] {
		fn(to)
	}
	m.current = to
	for _, fn := range m.onEnter[to] {
		fn(from)
	}
	return nil
}
