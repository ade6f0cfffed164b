package wsclient

// State of a Client connection lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of Client state.
type Status struct {
	State      State
	Retries    int
	MaxRetries int
	// Exhausted is set once reconnect attempts ran out. Only an explicit
	// Connect clears it.
	Exhausted bool
}
