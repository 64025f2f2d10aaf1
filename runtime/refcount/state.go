package refcount

// State of a Counter
type State int

// States a Counter can be in.
const (
	// Idle means no references and no pending release, a new Counter is idle.
	Idle State = iota
	// Active means one or more references are held.
	Active
	// Draining means no references are held, and release is pending.
	Draining
	// Disposed is terminal.
	Disposed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}
