package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a candidate transition should be taken
type GuardFunc func(ctx context.Context) bool

// transition is one candidate target for a trigger, with an optional guard
type transition struct {
	to    State
	guard GuardFunc
}

// Builder accumulates a transition table and produces Machine instances
type Builder struct {
	table map[State]map[Trigger][]transition
}

// NewBuilder creates an empty transition-table builder
func NewBuilder() *Builder {
	return &Builder{table: make(map[State]map[Trigger][]transition)}
}

// StateConfig configures the transitions leaving a single state
type StateConfig struct {
	builder *Builder
	from    State
}

// Configure returns the configuration for transitions leaving the given state
func (b *Builder) Configure(state State) *StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(map[Trigger][]transition)
	}
	return &StateConfig{builder: b, from: state}
}

// Permit allows the trigger to transition to the target state
func (c *StateConfig) Permit(trigger Trigger, to State) *StateConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows the trigger to transition to the target state when the
// guard passes. Candidates for the same trigger are tried in registration
// order; the first passing guard wins.
func (c *StateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) *StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	c.builder.table[c.from][trigger] = append(c.builder.table[c.from][trigger], transition{to: to, guard: guard})
	return c
}

// PermitReentry allows the trigger without leaving the state (delegation,
// reminders and comments do not move the report)
func (c *StateConfig) PermitReentry(trigger Trigger) *StateConfig {
	return c.PermitIf(trigger, c.from, nil)
}

// Build creates a machine positioned at the given initial state. The machine
// holds its own copy of the table, so a builder can be reused.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	table := make(map[State]map[Trigger][]transition, len(b.table))
	for state, triggers := range b.table {
		copied := make(map[Trigger][]transition, len(triggers))
		for trigger, candidates := range triggers {
			copied[trigger] = append([]transition(nil), candidates...)
		}
		table[state] = copied
	}
	return &Machine{state: initial, table: table}
}

// Machine tracks a report's approval state and validates triggers against
// the configured transition table
type Machine struct {
	state State
	table map[State]map[Trigger][]transition
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// CanFire returns true if at least one transition is registered for the
// trigger in the current state. Guards are not evaluated here.
func (m *Machine) CanFire(trigger Trigger) bool {
	triggers, ok := m.table[m.state]
	if !ok {
		return false
	}
	return len(triggers[trigger]) > 0
}

// Fire executes the trigger, moving to the first candidate state whose guard
// passes, and returns the new state
func (m *Machine) Fire(ctx context.Context, trigger Trigger) (State, error) {
	triggers, ok := m.table[m.state]
	if !ok {
		return m.state, fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.state)
	}
	candidates, ok := triggers[trigger]
	if !ok || len(candidates) == 0 {
		return m.state, fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.state)
	}
	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.state = t.to
			return m.state, nil
		}
	}
	return m.state, fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.state)
}

// PermittedTriggers returns the triggers registered for the current state
func (m *Machine) PermittedTriggers() []Trigger {
	triggers, ok := m.table[m.state]
	if !ok {
		return nil
	}
	out := make([]Trigger, 0, len(triggers))
	for trigger := range triggers {
		out = append(out, trigger)
	}
	return out
}
