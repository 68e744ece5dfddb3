// Package sim provides simulated actuators and a transport adapter so the winder core runs on a
// workstation.
package sim

import (
	"fmt"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/firmware/commands"
)

// Stepper counts pulses instead of driving a motor. In realtime mode it sleeps for the
// accumulated pulse delay once it exceeds a millisecond.
type Stepper struct {
	realtime bool
	enabled  bool
	dir      coilwinder.Direction
	position int64
	pulses   int64
	elapsed  time.Duration
	pending  time.Duration
}

// NewStepper creates a disabled Stepper
func NewStepper(realtime bool) *Stepper {
	return &Stepper{realtime: realtime}
}

func (s *Stepper) SetDirection(d coilwinder.Direction) { s.dir = d }
func (s *Stepper) Enable()                             { s.enabled = true }
func (s *Stepper) Disable()                            { s.enabled = false }
func (s *Stepper) Enabled() bool                       { return s.enabled }

// Pulse moves one step if the driver is enabled
func (s *Stepper) Pulse(delay time.Duration) {
	if !s.enabled {
		return
	}
	if s.dir == coilwinder.Reverse {
		s.position--
	} else {
		s.position++
	}
	s.pulses++
	s.elapsed += delay

	if !s.realtime {
		return
	}
	s.pending += delay
	if s.pending >= time.Millisecond {
		time.Sleep(s.pending)
		s.pending = 0
	}
}

// Position is the signed step count since creation
func (s *Stepper) Position() int64 { return s.position }

// Pulses is the number of steps taken in either direction
func (s *Stepper) Pulses() int64 { return s.pulses }

// Elapsed is the sum of all pulse delays, the time the moves would take on hardware
func (s *Stepper) Elapsed() time.Duration { return s.elapsed }

// Guide is a servo that remembers its angle
type Guide struct {
	enabled bool
	angle   float64
	moves   int
}

// NewGuide creates a disabled Guide at angle
func NewGuide(angle float64) *Guide {
	return &Guide{angle: angle}
}

func (g *Guide) SetAngle(angle float64) error {
	if angle < 0 || angle > config.MaxAngle {
		return fmt.Errorf("angle %s outside servo travel", coilwinder.FormatFloat(angle))
	}
	g.angle = angle
	g.moves++
	return nil
}

func (g *Guide) Angle() float64 { return g.angle }
func (g *Guide) Enable()        { g.enabled = true }
func (g *Guide) Disable()       { g.enabled = false }
func (g *Guide) Enabled() bool  { return g.enabled }

// Moves is how many times the guide was positioned
func (g *Guide) Moves() int { return g.moves }

// Hardware bundles simulated actuators with store for commands.New
func Hardware(stepper *Stepper, g *Guide, store config.Store) commands.Hardware {
	return commands.Hardware{
		Stepper:           stepper,
		Guide:             g,
		Store:             store,
		PulsesPerRotation: coilwinder.DefaultPulsesPerRotation,
	}
}
