package coilwinder

// Version is reported by SYS VERSION
const Version = "1.2.0"

// DefaultPulsesPerRotation is the number of step pulses in one revolution of the winding axis
// (200 step motor at 16x microstepping)
const DefaultPulsesPerRotation = 3200

// State is the lifecycle state of the winding machine
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateDone:
		return "DONE"
	default:
		fallthrough
	case StateIdle:
		return "IDLE"
	}
}

// Active is true when a job is held by the machine, whether it is moving or not
func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}

// Direction is the rotation direction of the winding axis
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "REV"
	}
	return "FWD"
}

// ParseDirection accepts FWD or REV
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "FWD":
		return Forward, true
	case "REV":
		return Reverse, true
	}
	return Forward, false
}
