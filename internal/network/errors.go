package network

import "errors"

// Sentinel errors for network operations. Call sites wrap them with the
// offending value; match with errors.Is.
var (
	// ErrOutOfRange indicates a node index outside [0, N).
	ErrOutOfRange = errors.New("network: node index out of range")

	// ErrInvalidArgument indicates a malformed construction or run parameter.
	ErrInvalidArgument = errors.New("network: invalid argument")

	// ErrInvalidState indicates a state value other than Susceptible or Infected.
	ErrInvalidState = errors.New("network: invalid state")
)
