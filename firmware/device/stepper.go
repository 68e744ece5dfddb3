//go:build tinygo

package device

import (
	"machine"
	"time"

	"github.com/calvinmclean/coilwinder"
)

const defaultPulseWidth = 5 * time.Microsecond

// Stepper drives the rotation axis through a step/dir driver
type Stepper struct {
	step       machine.Pin
	dir        machine.Pin
	enable     machine.Pin
	activeHigh bool
	invertDir  bool
	pulseWidth time.Duration
	enabled    bool
}

// NewStepper configures the pins and leaves the driver disabled
func NewStepper(cfg StepperConfig) *Stepper {
	if cfg.PulseWidth == 0 {
		cfg.PulseWidth = defaultPulseWidth
	}

	s := &Stepper{
		step:       cfg.Step,
		dir:        cfg.Dir,
		enable:     cfg.Enable,
		activeHigh: cfg.EnableActiveHigh,
		invertDir:  cfg.InvertDir,
		pulseWidth: cfg.PulseWidth,
	}
	for _, p := range []machine.Pin{s.step, s.dir, s.enable} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	s.step.Low()
	s.Disable()
	return s
}

func (s *Stepper) SetDirection(d coilwinder.Direction) {
	s.dir.Set((d == coilwinder.Forward) != s.invertDir)
}

// Pulse emits one step and holds the remaining delay
func (s *Stepper) Pulse(delay time.Duration) {
	s.step.High()
	time.Sleep(s.pulseWidth)
	s.step.Low()

	if rest := delay - s.pulseWidth; rest > 0 {
		time.Sleep(rest)
	}
}

func (s *Stepper) Enable() {
	s.enable.Set(s.activeHigh)
	s.enabled = true
}

func (s *Stepper) Disable() {
	s.enable.Set(!s.activeHigh)
	s.enabled = false
}

func (s *Stepper) Enabled() bool {
	return s.enabled
}
