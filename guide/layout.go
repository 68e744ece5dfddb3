package guide

// Layout is the angular geometry of one sweep strategy
type Layout struct {
	Min           float64
	Max           float64
	TurnsPerLayer int
	// Scatter is a percentage of the range removed symmetrically from both ends
	Scatter float64
}

// Effective returns the usable range after scatter is applied
func (l Layout) Effective() (float64, float64) {
	if l.Scatter <= 0 {
		return l.Min, l.Max
	}
	margin := (l.Max - l.Min) * l.Scatter / 100
	return l.Min + margin/2, l.Max - margin/2
}

// Pitch is the angular step per turn inside a layer, zero when a layer has a single turn
func (l Layout) Pitch() float64 {
	if l.TurnsPerLayer <= 1 {
		return 0
	}
	lo, hi := l.Effective()
	return (hi - lo) / float64(l.TurnsPerLayer-1)
}

// Angle is the guide angle for the given number of completed turns. Even layers travel from the
// effective minimum to the maximum, odd layers travel back.
func (l Layout) Angle(turns int) float64 {
	lo, hi := l.Effective()
	if turns < 0 {
		turns = 0
	}

	if l.TurnsPerLayer <= 1 {
		if turns%2 == 0 {
			return lo
		}
		return hi
	}

	layer := turns / l.TurnsPerLayer
	inLayer := turns % l.TurnsPerLayer
	offset := float64(inLayer) * l.Pitch()

	if layer%2 == 0 {
		return lo + offset
	}
	return hi - offset
}

// Start is the angle of the first turn of the first layer
func (l Layout) Start() float64 {
	return l.Angle(0)
}
