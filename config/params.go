// Package config owns the winder's tunable parameters: it validates them against a fixed range
// table, derives dependent quantities and persists them to non-volatile storage.
package config

import (
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/resistance"
)

// Bobbin is the winding form, in millimeters
type Bobbin struct {
	Length float64
	Width  float64
	Height float64
}

// Motion holds the rotation axis timing
type Motion struct {
	InitialDelay time.Duration
	MinDelay     time.Duration
	RampPulses   int
}

// Guide holds the wire-guide range and sweep strategy
type Guide struct {
	Min   float64
	Max   float64
	Sweep guide.Sweep
}

// Params is the complete configuration and session aggregate. TargetTurns, Direction,
// Motion.MinDelay and a Pattern overlay live only in memory; everything else is persisted.
type Params struct {
	Guide          Guide
	WireDiameter   float64
	Motion         Motion
	Timeout        time.Duration
	Bobbin         Bobbin
	LastResistance float64

	TargetTurns int
	Direction   coilwinder.Direction
}

// Derived quantities recomputed whenever an input changes
type Derived struct {
	TurnsPerLayer       int
	AvgTurnLength       float64
	EstimatedResistance float64
}

// Defaults returns the documented default of every field
func Defaults() Params {
	return Params{
		Guide: Guide{
			Min:   DefaultGuideMin,
			Max:   DefaultGuideMax,
			Sweep: guide.Firmware{},
		},
		WireDiameter: DefaultWireDiameter,
		Motion: Motion{
			InitialDelay: DefaultInitialDelay,
			MinDelay:     DefaultMinDelay,
			RampPulses:   DefaultRampPulses,
		},
		Timeout: DefaultTimeout,
		Bobbin: Bobbin{
			Length: DefaultBobbinLength,
			Width:  DefaultBobbinWidth,
			Height: DefaultBobbinHeight,
		},
		Direction: coilwinder.Forward,
	}
}

// Coil converts the bobbin and wire into the solver's input
func (p Params) Coil() resistance.Coil {
	return resistance.Coil{
		Length:       p.Bobbin.Length,
		Width:        p.Bobbin.Width,
		Height:       p.Bobbin.Height,
		WireDiameter: p.WireDiameter,
	}
}

// BaseLayout is the firmware sweep geometry: persisted guide range and turns per layer
func (p Params) BaseLayout() guide.Layout {
	return guide.Layout{
		Min:           p.Guide.Min,
		Max:           p.Guide.Max,
		TurnsPerLayer: p.Coil().TurnsPerLayer(),
	}
}

func derive(p Params) Derived {
	c := p.Coil()
	return Derived{
		TurnsPerLayer:       c.TurnsPerLayer(),
		AvgTurnLength:       c.AverageTurnLength(float64(p.TargetTurns)),
		EstimatedResistance: c.Resistance(p.TargetTurns),
	}
}
