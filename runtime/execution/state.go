package execution

// State represents the lifecycle state of a process
type State string

const (
	StateNew        State = "new"
	StateReady      State = "ready"
	StateRunning    State = "running"
	StateWaiting    State = "waiting"
	StateBlocked    State = "blocked"
	StateSuspended  State = "suspended"
	StateTerminated State = "terminated"
	StateError      State = "error"
)

// States lists every valid state.
var States = []State{StateNew, StateReady, StateRunning, StateWaiting, StateBlocked, StateSuspended, StateTerminated, StateError}

// transitions is the allowed edge table; ERROR->READY is further guarded by the retry bound.
var transitions = map[State][]State{
	StateNew:        {StateReady},
	StateReady:      {StateRunning, StateError},
	StateRunning:    {StateWaiting, StateBlocked, StateTerminated, StateError},
	StateWaiting:    {StateReady, StateError},
	StateBlocked:    {StateReady, StateError},
	StateSuspended:  {StateReady, StateTerminated, StateError},
	StateError:      {StateReady, StateTerminated},
	StateTerminated: nil,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// CanTransitionTo reports whether the table contains the edge s -> target.
func (s State) CanTransitionTo(target State) bool {
	for _, candidate := range transitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseState converts text to State.
func ParseState(text string) (State, bool) {
	s := State(text)
	return s, s.Valid()
}
