package frameloop

// State is a stage of the frame state machine:
//
//	Idle -> Acquiring -> Recording -> Submitted -> Presented -> Idle
//
// Acquiring moves to Reinitializing when the surface is lost, and back to Idle once it is recreated.
// Any failure returns the loop to Idle with the frame discarded.
type State int

const (
	Idle State = iota
	Acquiring
	Recording
	Submitted
	Presented
	Reinitializing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Recording:
		return "recording"
	case Submitted:
		return "submitted"
	case Presented:
		return "presented"
	case Reinitializing:
		return "reinitializing"
	default:
		return "unknown"
	}
}

// Observer is notified of every state transition.
type Observer func(from, to State)
