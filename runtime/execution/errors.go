package execution

import "errors"

var (
	// ErrTransitionRefused is reported when an edge is not allowed or the process timed out.
	ErrTransitionRefused = errors.New("transition refused")

	// ErrTerminated is returned on any mutation attempt of a terminated process.
	ErrTerminated = errors.New("process terminated")
)
