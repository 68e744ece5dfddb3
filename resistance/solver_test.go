package resistance

import (
	"errors"
	"math"
	"testing"
)

func scenarioCoil() Coil {
	return Coil{Length: 60, Width: 4, Height: 9, WireDiameter: 0.2}
}

func TestTurnsPerLayer(t *testing.T) {
	tests := []struct {
		name     string
		coil     Coil
		expected int
	}{
		{"Scenario", scenarioCoil(), 45},
		{"FineWire", Coil{Height: 9, WireDiameter: 0.063}, 142},
		{"WireWiderThanBobbin", Coil{Height: 1, WireDiameter: 2}, 1},
		{"NoWire", Coil{Height: 9}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.coil.TurnsPerLayer(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSolveScenario(t *testing.T) {
	c := scenarioCoil()

	r, err := Solve(1000, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Iterations < 1 || r.Iterations > Iterations {
		t.Errorf("expected 1..%d iterations, got %d", Iterations, r.Iterations)
	}

	// closed form of N * (a + bN) = L for the linear average turn length model
	a := 2*c.Length + math.Pi*c.Width
	b := math.Pi * c.WireDiameter / float64(c.TurnsPerLayer())
	l := 1000 * c.WireArea() / CopperResistivity * 1000
	exact := (-a + math.Sqrt(a*a+4*b*l)) / (2 * b)

	if math.Abs(float64(r.Turns)-exact)/exact > 0.01 {
		t.Errorf("expected turns near %.0f, got %d", exact, r.Turns)
	}
	if math.Abs(r.Resistance-1000)/1000 > 0.05 {
		t.Errorf("expected resistance within 5%% of 1000, got %v", r.Resistance)
	}
}

func TestSolveIdempotent(t *testing.T) {
	fine := Coil{Length: 60, Width: 4, Height: 9, WireDiameter: 0.063}

	tests := []struct {
		name   string
		coil   Coil
		target float64
	}{
		{"Scenario10R", scenarioCoil(), 10},
		{"Scenario250R", scenarioCoil(), 250},
		{"Scenario1K", scenarioCoil(), 1000},
		{"Pickup250R", fine, 250},
		{"Pickup1K", fine, 1000},
		{"Pickup6K5", fine, 6500},
		{"Pickup12K", fine, 12000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Solve(tt.target, tt.coil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			forward := CopperResistivity * (r.AvgTurnLength * float64(r.Turns) / 1000) / tt.coil.WireArea()
			if math.Abs(forward-tt.target)/tt.target > 0.05 {
				t.Errorf("forward resistance %v outside 5%% of %v", forward, tt.target)
			}
			if math.Abs(r.Resistance-forward) > 1e-9*forward {
				t.Errorf("reported resistance %v does not match forward model %v", r.Resistance, forward)
			}
		})
	}
}

func TestSolveRejects(t *testing.T) {
	tests := []struct {
		name     string
		target   float64
		coil     Coil
		expected error
	}{
		{"NoBobbin", 1000, Coil{WireDiameter: 0.2}, ErrGeometryUnset},
		{"PartialBobbin", 1000, Coil{Length: 60, Height: 9, WireDiameter: 0.2}, ErrGeometryUnset},
		{"NoWire", 1000, Coil{Length: 60, Width: 4, Height: 9}, ErrWireUnset},
		{"Zero", 0, scenarioCoil(), ErrInvalidResistance},
		{"Negative", -5, scenarioCoil(), ErrInvalidResistance},
		{"NaN", math.NaN(), scenarioCoil(), ErrInvalidResistance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(tt.target, tt.coil)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
		err      bool
	}{
		{"1000R", 1000, false},
		{"1000r", 1000, false},
		{"6.5K", 6500, false},
		{"6.5k", 6500, false},
		{"820", 820, false},
		{"0R", 0, true},
		{"-1K", 0, true},
		{"K", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.err {
				if !errors.Is(err, ErrInvalidResistance) {
					t.Errorf("expected ErrInvalidResistance, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
