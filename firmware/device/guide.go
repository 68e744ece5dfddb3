//go:build tinygo

package device

import (
	"errors"
	"math"

	"tinygo.org/x/drivers/servo"
)

const (
	defaultMinPulse = 500
	defaultMaxPulse = 2500
	maxAngle        = 180
)

var errAngle = errors.New("angle outside servo travel")

// ServoGuide positions the wire guide with a hobby servo. Fractional angles are kept by
// commanding pulse widths instead of whole degrees.
type ServoGuide struct {
	servo    servo.Servo
	minPulse int16
	maxPulse int16
	angle    float64
	enabled  bool
}

// NewServoGuide creates the servo and leaves it unpowered at angle 0
func NewServoGuide(cfg ServoConfig) (*ServoGuide, error) {
	if cfg.MinPulse == 0 {
		cfg.MinPulse = defaultMinPulse
	}
	if cfg.MaxPulse == 0 {
		cfg.MaxPulse = defaultMaxPulse
	}

	s, err := servo.New(cfg.PWM, cfg.Pin)
	if err != nil {
		return nil, errors.New("error creating servo: " + err.Error())
	}

	return &ServoGuide{
		servo:    s,
		minPulse: cfg.MinPulse,
		maxPulse: cfg.MaxPulse,
	}, nil
}

// SetAngle records the target and drives the servo when it is enabled
func (g *ServoGuide) SetAngle(angle float64) error {
	if angle < 0 || angle > maxAngle {
		return errAngle
	}
	g.angle = angle
	if !g.enabled {
		return nil
	}
	return g.write()
}

func (g *ServoGuide) Angle() float64 {
	return g.angle
}

func (g *ServoGuide) Enable() {
	g.enabled = true
	if err := g.write(); err != nil {
		println("error enabling servo:", err.Error())
	}
}

// Disable stops the control pulses so the servo goes limp
func (g *ServoGuide) Disable() {
	g.enabled = false
	g.servo.SetMicroseconds(0)
}

func (g *ServoGuide) Enabled() bool {
	return g.enabled
}

func (g *ServoGuide) write() error {
	span := float64(g.maxPulse - g.minPulse)
	us := int16(math.Round(float64(g.minPulse) + span*g.angle/maxAngle))
	g.servo.SetMicroseconds(us)
	return nil
}
