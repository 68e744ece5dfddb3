//go:build tinygo

package device

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/easystepper"
	"tinygo.org/x/drivers/servo"
)

// StepperConfig describes a step/dir driver such as an A4988 or TMC2209
type StepperConfig struct {
	Step   machine.Pin
	Dir    machine.Pin
	Enable machine.Pin
	// EnableActiveHigh is false for the common drivers whose enable input is active low
	EnableActiveHigh bool
	// InvertDir swaps which level of Dir means forward
	InvertDir  bool
	PulseWidth time.Duration
}

// ServoConfig has device-level values for setting up the guide servo
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM
	// MinPulse and MaxPulse are the pulse widths in microseconds at 0 and 180 degrees
	MinPulse int16
	MaxPulse int16
}

// TraverseConfig describes a lead-screw guide driven by a 4-wire stepper. Angles are mapped
// onto steps so the same sweep math drives it.
type TraverseConfig struct {
	Stepper        easystepper.DeviceConfig
	StepsPerDegree float32
}
