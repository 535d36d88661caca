package execution

import (
	"time"
)

const (
	// DefaultTimeout bounds how long a started process may run.
	DefaultTimeout = 300 * time.Second
	// DefaultMaxRetries bounds ERROR -> READY recoveries.
	DefaultMaxRetries = 3
	// TimeoutMessage is recorded when a process exceeds its timeout.
	TimeoutMessage = "timeout"
)

// TransitionListener is notified after every successful transition.
type TransitionListener func(p *Process, from, to State)

// Machine applies lifecycle transitions to processes. It does not lock the
// process; callers serialize access per process.
type Machine struct {
	timeout    time.Duration
	maxRetries int
	now        func() time.Time
	listeners  []TransitionListener
}

// Transition moves p to target and reports whether the move happened. A refused
// transition leaves p unchanged.
func (m *Machine) Transition(p *Process, target State, errMessage string) bool {
	if p == nil || !target.Valid() {
		return false
	}
	from := p.State
	if !from.CanTransitionTo(target) {
		return false
	}
	if target != StateError && target != StateTerminated && m.HasTimedOut(p) {
		return false
	}
	if from == StateError && target == StateReady && !m.CanRetry(p) {
		return false
	}
	now := m.now()
	if from == StateNew && p.StartTime == nil {
		p.StartTime = &now
	}
	switch target {
	case StateTerminated:
		p.EndTime = &now
		p.BlockedOn = ""
	case StateError:
		p.ErrorMessage = errMessage
		p.RetryCount++
		p.BlockedOn = ""
	case StateReady:
		if from == StateError {
			p.ErrorMessage = ""
		}
		p.BlockedOn = ""
	}
	p.State = target
	p.UpdatedAt = now
	for _, listener := range m.listeners {
		listener(p, from, target)
	}
	return true
}

// HasTimedOut reports whether a started, non terminated process ran past its timeout.
func (m *Machine) HasTimedOut(p *Process) bool {
	if p == nil || p.State == StateTerminated || p.StartTime == nil {
		return false
	}
	return m.now().Sub(*p.StartTime) > m.Timeout(p)
}

// CanRetry reports whether an errored process may return to READY.
func (m *Machine) CanRetry(p *Process) bool {
	return p != nil && p.State == StateError && p.RetryCount < m.MaxRetries(p)
}

// Timeout returns the effective timeout for p.
func (m *Machine) Timeout(p *Process) time.Duration {
	if p != nil && p.TimeoutSeconds > 0 {
		return time.Duration(p.TimeoutSeconds) * time.Second
	}
	return m.timeout
}

// MaxRetries returns the effective retry bound for p.
func (m *Machine) MaxRetries(p *Process) int {
	if p != nil && p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return m.maxRetries
}

// Now returns the machine clock reading.
func (m *Machine) Now() time.Time {
	return m.now()
}

// AddListener registers a transition listener.
func (m *Machine) AddListener(listener TransitionListener) {
	m.listeners = append(m.listeners, listener)
}

// NewMachine creates a state machine.
func NewMachine(opts ...Option) *Machine {
	ret := &Machine{
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
