package hsm

import "errors"

var (
	// ErrInvalidArgument reports a precondition failure such as a nil graph,
	// an unknown state name, or a zero-capacity entry path buffer.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPathTooDeep reports that a transition's entry path does not fit in
	// the configured scratch buffer. The transition is rejected before any
	// exit or entry action has run; the current state is unchanged.
	ErrPathTooDeep = errors.New("entry path exceeds buffer capacity")
)
