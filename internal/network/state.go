package network

import (
	"fmt"
	"strings"
)

// State is the epidemiological state of a node.
type State int

const (
	Susceptible State = iota
	Infected
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	return s == Susceptible || s == Infected
}

// String returns the single-letter compartment label.
func (s State) String() string {
	switch s {
	case Susceptible:
		return "S"
	case Infected:
		return "I"
	default:
		return "?"
	}
}

// ParseState maps "S" or "I" (case-insensitive) to a State.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S":
		return Susceptible, nil
	case "I":
		return Infected, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}
