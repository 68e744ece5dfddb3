// Package guide computes the wire-guide angle from the number of completed rotations.
package guide

import "fmt"

// Mode identifies a sweep strategy on the wire and in persisted storage
type Mode uint8

const (
	ModeFirmware Mode = iota
	ModeHost
	ModePattern
)

func (m Mode) String() string {
	switch m {
	case ModeHost:
		return "HOST"
	case ModePattern:
		return "PATTERN"
	default:
		fallthrough
	case ModeFirmware:
		return "FIRMWARE"
	}
}

// ParseMode accepts FIRMWARE, HOST or PATTERN
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "FIRMWARE":
		return ModeFirmware, true
	case "HOST":
		return ModeHost, true
	case "PATTERN":
		return ModePattern, true
	}
	return ModeFirmware, false
}

// Sweep is the closed set of sweep strategies: Firmware, Host and Pattern. Only Pattern carries
// parameters of its own.
type Sweep interface {
	Mode() Mode
	sweep()
}

// Firmware sweeps using the persisted guide range and turns-per-layer, without scatter
type Firmware struct{}

// Host disables automatic guide updates; the host pushes SERVO POS once per rotation
type Host struct{}

// Pattern sweeps using an overlay that the host may replace while a job is running
type Pattern struct {
	Overlay Layout
}

func (Firmware) Mode() Mode { return ModeFirmware }
func (Host) Mode() Mode     { return ModeHost }
func (Pattern) Mode() Mode  { return ModePattern }

func (Firmware) sweep() {}
func (Host) sweep()     {}
func (Pattern) sweep()  {}

// LayoutFor returns the geometry a sweep uses. base is the persisted firmware layout. ok is false
// for Host, which has no internal geometry.
func LayoutFor(s Sweep, base Layout) (Layout, bool) {
	switch s := s.(type) {
	case Pattern:
		return s.Overlay, true
	case Host:
		return Layout{}, false
	default:
		base.Scatter = 0
		return base, true
	}
}

// Target is the guide angle after completedPulses pulses. ok is false when the sweep does not
// compute positions (Host mode) or when pulsesPerRotation is not positive.
func Target(s Sweep, base Layout, completedPulses, pulsesPerRotation int) (float64, bool) {
	if pulsesPerRotation <= 0 {
		return 0, false
	}
	l, ok := LayoutFor(s, base)
	if !ok {
		return 0, false
	}
	return l.Angle(completedPulses / pulsesPerRotation), true
}

// StartAngle is where the guide waits before the first rotation of a job
func StartAngle(s Sweep, base Layout) float64 {
	l, ok := LayoutFor(s, base)
	if !ok {
		// nothing better to do than the persisted minimum until the host moves it
		return base.Min
	}
	return l.Start()
}

func (p Pattern) String() string {
	return fmt.Sprintf("PATTERN min=%g max=%g tpl=%d scatter=%g%%", p.Overlay.Min, p.Overlay.Max, p.Overlay.TurnsPerLayer, p.Overlay.Scatter)
}
