//go:build tinygo

package device

import (
	"errors"
	"math"

	"tinygo.org/x/drivers/easystepper"
)

// TraverseGuide is a lead-screw wire guide on a 4-wire stepper. Position zero is wherever the
// carriage sits at power up, which is taken as angle 0.
type TraverseGuide struct {
	stepper        *easystepper.Device
	stepsPerDegree float32
	position       int32
	angle          float64
	enabled        bool
}

// NewTraverseGuide configures the stepper pins
func NewTraverseGuide(cfg TraverseConfig) (*TraverseGuide, error) {
	if cfg.StepsPerDegree <= 0 {
		return nil, errors.New("steps per degree must be positive")
	}
	stepper, err := easystepper.New(cfg.Stepper)
	if err != nil {
		return nil, errors.New("error creating stepper: " + err.Error())
	}
	stepper.Configure()

	return &TraverseGuide{
		stepper:        stepper,
		stepsPerDegree: cfg.StepsPerDegree,
	}, nil
}

// SetAngle moves the carriage to the position matching angle. The move blocks; at one
// position change per rotation it is short.
func (g *TraverseGuide) SetAngle(angle float64) error {
	if angle < 0 || angle > maxAngle {
		return errAngle
	}
	g.angle = angle
	if !g.enabled {
		return nil
	}
	g.seek()
	return nil
}

func (g *TraverseGuide) Angle() float64 {
	return g.angle
}

func (g *TraverseGuide) Enable() {
	g.enabled = true
	g.seek()
}

// Disable de-energizes the coils. The carriage position is assumed to hold.
func (g *TraverseGuide) Disable() {
	g.enabled = false
	g.stepper.Off()
}

func (g *TraverseGuide) Enabled() bool {
	return g.enabled
}

func (g *TraverseGuide) seek() {
	target := int32(math.Round(g.angle * float64(g.stepsPerDegree)))
	if delta := target - g.position; delta != 0 {
		g.stepper.Move(delta)
		g.position = target
	}
}
