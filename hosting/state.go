package hosting

import "fmt"

// State is a host lifecycle state. A host only moves forward:
// Unconfigured → Configured → Running → Stopping → Stopped. Stop may be
// called from any state.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateRunning
	StateStopping
	StateStopped
)

var allStates = []State{StateUnconfigured, StateConfigured, StateRunning, StateStopping, StateStopped}

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StateConfigured:
		return "Configured"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
