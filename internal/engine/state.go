package engine

// State is the readiness phase of a watch session.
type State int

const (
	// Scanning is the initial enumeration of pre-existing files.
	Scanning State = iota
	// Ready is steady-state watching. It is terminal for the session.
	Ready
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// readiness is the two-state machine. The only transition is
// Scanning -> Ready, and onReady runs exactly once when it fires.
type readiness struct {
	state   State
	onReady func()
}

func newReadiness(onReady func()) *readiness {
	return &readiness{state: Scanning, onReady: onReady}
}

// Current returns the current state.
func (r *readiness) Current() State {
	return r.state
}

// MarkReady performs the transition. It reports false if the machine was
// already Ready.
func (r *readiness) MarkReady() bool {
	if r.state == Ready {
		return false
	}
	r.state = Ready
	if r.onReady != nil {
		r.onReady()
	}
	return true
}
