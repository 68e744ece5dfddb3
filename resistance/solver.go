// Package resistance finds the number of turns needed to wind a coil of a given DC resistance.
//
// The average turn length grows as the winding builds up in layers, so the turn count is found by
// fixed-point iteration: guess a turn count, compute the average turn length for it, and divide
// the wire length required by the target resistance by that average.
package resistance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CopperResistivity of annealed copper at 20C in ohm meters
const CopperResistivity = 1.68e-8

// Iterations is the fixed number of refinement steps Solve performs at most
const Iterations = 10

var (
	ErrGeometryUnset     = errors.New("bobbin geometry not set")
	ErrWireUnset         = errors.New("wire diameter not set")
	ErrInvalidResistance = errors.New("resistance must be positive")
)

// Coil describes the bobbin and wire. All lengths are in millimeters.
type Coil struct {
	Length       float64
	Width        float64
	Height       float64
	WireDiameter float64
}

// Result is the outcome of Solve
type Result struct {
	Turns         int
	AvgTurnLength float64 // mm
	WireLength    float64 // m
	Resistance    float64 // ohm, for Turns
	Iterations    int
}

// Validate checks that the coil can be used in calculations
func (c Coil) Validate() error {
	if c.Length <= 0 || c.Width <= 0 || c.Height <= 0 {
		return ErrGeometryUnset
	}
	if c.WireDiameter <= 0 {
		return ErrWireUnset
	}
	return nil
}

// TurnsPerLayer is how many turns fit across the bobbin height, at least 1
func (c Coil) TurnsPerLayer() int {
	if c.WireDiameter <= 0 {
		return 1
	}
	return max(int(math.Floor(c.Height/c.WireDiameter)), 1)
}

// AverageTurnLength is the mean of the first turn on the bare core and the last turn on top of a
// winding of the given number of turns, in millimeters
func (c Coil) AverageTurnLength(turns float64) float64 {
	core := 2*c.Length + math.Pi*c.Width
	thickness := turns / float64(c.TurnsPerLayer()) * c.WireDiameter
	final := 2*c.Length + math.Pi*(c.Width+2*thickness)
	return (core + final) / 2
}

// WireArea is the conductor cross-section in square meters
func (c Coil) WireArea() float64 {
	r := c.WireDiameter / 2 / 1000
	return math.Pi * r * r
}

// Resistance is the DC resistance of a winding with the given number of turns
func (c Coil) Resistance(turns int) float64 {
	area := c.WireArea()
	if area <= 0 {
		return 0
	}
	lengthM := c.AverageTurnLength(float64(turns)) * float64(turns) / 1000
	return CopperResistivity * lengthM / area
}

// Solve returns the turn count whose wire length yields the target resistance
func Solve(target float64, c Coil) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	if !(target > 0) || math.IsInf(target, 0) {
		return Result{}, ErrInvalidResistance
	}

	// R = rho * L / A
	lengthMM := target * c.WireArea() / CopperResistivity * 1000

	turns := lengthMM / c.AverageTurnLength(0)
	iterations := 0
	for iterations < Iterations {
		iterations++
		next := lengthMM / c.AverageTurnLength(turns)
		stable := math.Abs(next-turns) < 0.5
		turns = next
		if stable {
			break
		}
	}

	n := int(math.Round(turns))
	avg := c.AverageTurnLength(float64(n))
	return Result{
		Turns:         n,
		AvgTurnLength: avg,
		WireLength:    avg * float64(n) / 1000,
		Resistance:    c.Resistance(n),
		Iterations:    iterations,
	}, nil
}

// ParseTarget parses a resistance such as "1000R", "6.5K" or "820". A K suffix multiplies by 1000.
func ParseTarget(s string) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult = 1000
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "R"):
		s = strings.TrimSuffix(s, "R")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resistance %q: %w", s, ErrInvalidResistance)
	}
	v *= mult
	if !(v > 0) {
		return 0, ErrInvalidResistance
	}
	return v, nil
}
