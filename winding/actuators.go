// Package winding runs winding jobs: it owns the IDLE/RUNNING/PAUSED/DONE lifecycle, advances the
// rotation axis one pulse per tick and repositions the wire guide on rotation boundaries.
package winding

import (
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
)

// Stepper drives the rotation axis
type Stepper interface {
	SetDirection(coilwinder.Direction)
	// Pulse emits one step and then waits delay before returning
	Pulse(delay time.Duration)
	Enable()
	Disable()
	Enabled() bool
}

// Guide is the bounded-travel wire guide
type Guide interface {
	SetAngle(angle float64) error
	Angle() float64
	Enable()
	Disable()
	Enabled() bool
}

// Settings supplies the current parameters. Machine reads them on every tick so speed and
// pattern changes apply to a running job.
type Settings interface {
	Params() config.Params
	PulsesPerRotation() int
}
