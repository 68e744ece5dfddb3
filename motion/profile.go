// Package motion generates the pulse-to-pulse timing of the rotation axis.
//
// Only the outermost rotations of a job are ramped: the first rotation accelerates from
// InitialDelay to MinDelay over RampPulses pulses and the last rotation mirrors it. Every other
// pulse runs at MinDelay.
package motion

import (
	"math"
	"time"
)

// Profile holds the timing parameters of the rotation axis
type Profile struct {
	InitialDelay      time.Duration
	MinDelay          time.Duration
	RampPulses        int
	PulsesPerRotation int
}

// RampFraction maps i in [0, n] onto [0, 1] along a raised cosine, so the ramp has zero slope
// at both ends. Values of i outside the range are clamped.
func RampFraction(i, n int) float64 {
	if n <= 0 || i >= n {
		return 1
	}
	if i <= 0 {
		return 0
	}
	return (1 - math.Cos(math.Pi*float64(i)/float64(n))) / 2
}

// RampDelay is the delay at ramp index i, never below MinDelay
func (p Profile) RampDelay(i int) time.Duration {
	span := float64(p.InitialDelay - p.MinDelay)
	d := p.InitialDelay - time.Duration(math.Round(span*RampFraction(i, p.RampPulses)))
	if d < p.MinDelay {
		return p.MinDelay
	}
	return d
}

// Delay returns the delay to apply after the given zero-based pulse of a job that is
// totalPulses long.
func (p Profile) Delay(pulse, totalPulses int) time.Duration {
	ppr := p.PulsesPerRotation
	if ppr <= 0 || p.RampPulses <= 0 {
		return p.MinDelay
	}

	rotation := pulse / ppr
	into := pulse % ppr
	lastRotation := (totalPulses+ppr-1)/ppr - 1

	delay := p.MinDelay
	if rotation == 0 && into < p.RampPulses {
		delay = p.RampDelay(into)
	}
	if rotation == lastRotation && into >= ppr-p.RampPulses {
		// a single-rotation job can be in both ramps at once; the slower one wins
		delay = max(delay, p.RampDelay(ppr-1-into))
	}
	return delay
}

// DelayForSpeed converts a step rate in pulses per second to a pulse delay
func DelayForSpeed(stepsPerSecond float64) time.Duration {
	if stepsPerSecond <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(time.Second) / stepsPerSecond))
}

// SpeedForDelay is the inverse of DelayForSpeed
func SpeedForDelay(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(time.Second) / float64(d)
}
