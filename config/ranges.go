package config

import (
	"math"
	"strconv"
	"time"

	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/motion"
)

const (
	DefaultGuideMin     = 70.0
	DefaultGuideMax     = 100.0
	DefaultWireDiameter = 0.063
	DefaultInitialDelay = 2000 * time.Microsecond
	DefaultSpeed        = 4000.0
	DefaultMinDelay     = 250 * time.Microsecond
	DefaultRampPulses   = 800
	DefaultTimeout      = 300 * time.Second
	DefaultBobbinLength = 60.0
	DefaultBobbinWidth  = 4.0
	DefaultBobbinHeight = 9.0

	MaxAngle        = 180.0
	MaxWireDiameter = 5.0
	MaxBobbinSize   = 500.0
	MaxResistance   = 1e7
	MaxTargetTurns  = 1000000
	MaxSpeed        = 50000.0
	MaxScatter      = 100.0
)

// Warning describes a value that was out of range and replaced by its default
type Warning struct {
	Field string
	Value string
	Used  string
}

func (w Warning) String() string {
	return w.Field + "=" + w.Value + " out of range, using " + w.Used
}

// rule is one row of the range table. Values are compared as float64 in the unit the host uses.
type rule struct {
	name         string
	min, max     float64
	minExclusive bool
	def          float64
	get          func(*Params) float64
	set          func(*Params, float64)
}

func (r rule) valid(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > r.max {
		return false
	}
	if r.minExclusive {
		return v > r.min
	}
	return v >= r.min
}

func (r rule) check(p *Params) (Warning, bool) {
	v := r.get(p)
	if r.valid(v) {
		return Warning{}, true
	}
	r.set(p, r.def)
	return Warning{Field: r.name, Value: formatFloat(v), Used: formatFloat(r.def)}, false
}

// MaxTurns is the largest target whose pulse count still fits a 32-bit int, the int size on the board
func MaxTurns(pulsesPerRotation int) int {
	if pulsesPerRotation <= 0 {
		return MaxTargetTurns
	}
	return min(MaxTargetTurns, math.MaxInt32/pulsesPerRotation)
}

func newRules(pulsesPerRotation int) []rule {
	return []rule{
		{
			name: "guide_min", min: 0, max: MaxAngle, def: DefaultGuideMin,
			get: func(p *Params) float64 { return p.Guide.Min },
			set: func(p *Params, v float64) { p.Guide.Min = v },
		},
		{
			name: "guide_max", min: 0, max: MaxAngle, def: DefaultGuideMax,
			get: func(p *Params) float64 { return p.Guide.Max },
			set: func(p *Params, v float64) { p.Guide.Max = v },
		},
		{
			name: "wire_dia", min: 0, minExclusive: true, max: MaxWireDiameter, def: DefaultWireDiameter,
			get: func(p *Params) float64 { return p.WireDiameter },
			set: func(p *Params, v float64) { p.WireDiameter = v },
		},
		{
			name: "initial_delay_us", min: 500, max: 20000, def: micros(DefaultInitialDelay),
			get: func(p *Params) float64 { return micros(p.Motion.InitialDelay) },
			set: func(p *Params, v float64) { p.Motion.InitialDelay = time.Duration(v) * time.Microsecond },
		},
		{
			name: "speed", min: 1, max: MaxSpeed, def: DefaultSpeed,
			get: func(p *Params) float64 { return math.Round(motion.SpeedForDelay(p.Motion.MinDelay)) },
			set: func(p *Params, v float64) { p.Motion.MinDelay = motion.DelayForSpeed(v) },
		},
		{
			name: "ramp_pulses", min: 1, max: float64(pulsesPerRotation), def: float64(min(DefaultRampPulses, pulsesPerRotation)),
			get: func(p *Params) float64 { return float64(p.Motion.RampPulses) },
			set: func(p *Params, v float64) { p.Motion.RampPulses = int(v) },
		},
		{
			name: "timeout_s", min: 0, max: 86400, def: DefaultTimeout.Seconds(),
			get: func(p *Params) float64 { return p.Timeout.Seconds() },
			set: func(p *Params, v float64) { p.Timeout = time.Duration(v * float64(time.Second)) },
		},
		{
			name: "last_resistance", min: 0, max: MaxResistance, def: 0,
			get: func(p *Params) float64 { return p.LastResistance },
			set: func(p *Params, v float64) { p.LastResistance = v },
		},
		{
			name: "target_turns", min: 0, max: float64(MaxTurns(pulsesPerRotation)), def: 0,
			get: func(p *Params) float64 { return float64(p.TargetTurns) },
			set: func(p *Params, v float64) { p.TargetTurns = int(v) },
		},
	}
}

var bobbinRules = []rule{
	{
		name: "bobbin_length", min: 0, minExclusive: true, max: MaxBobbinSize, def: DefaultBobbinLength,
		get: func(p *Params) float64 { return p.Bobbin.Length },
		set: func(p *Params, v float64) { p.Bobbin.Length = v },
	},
	{
		name: "bobbin_width", min: 0, minExclusive: true, max: MaxBobbinSize, def: DefaultBobbinWidth,
		get: func(p *Params) float64 { return p.Bobbin.Width },
		set: func(p *Params, v float64) { p.Bobbin.Width = v },
	},
	{
		name: "bobbin_height", min: 0, minExclusive: true, max: MaxBobbinSize, def: DefaultBobbinHeight,
		get: func(p *Params) float64 { return p.Bobbin.Height },
		set: func(p *Params, v float64) { p.Bobbin.Height = v },
	},
}

// validate resets every out-of-range field of p to its default and returns one warning per reset
func validate(p *Params, rules []rule) []Warning {
	var warnings []Warning
	for _, r := range rules {
		if w, ok := r.check(p); !ok {
			warnings = append(warnings, w)
		}
	}

	// the bobbin is reset as a group so a single bad dimension cannot pair with stale ones
	for _, r := range bobbinRules {
		if r.valid(r.get(p)) {
			continue
		}
		warnings = append(warnings, Warning{
			Field: "bobbin",
			Value: formatFloat(p.Bobbin.Length) + "/" + formatFloat(p.Bobbin.Width) + "/" + formatFloat(p.Bobbin.Height),
			Used:  formatFloat(DefaultBobbinLength) + "/" + formatFloat(DefaultBobbinWidth) + "/" + formatFloat(DefaultBobbinHeight),
		})
		p.Bobbin = Bobbin{Length: DefaultBobbinLength, Width: DefaultBobbinWidth, Height: DefaultBobbinHeight}
		break
	}

	if p.Guide.Min >= p.Guide.Max {
		warnings = append(warnings, Warning{
			Field: "guide_range",
			Value: formatFloat(p.Guide.Min) + ".." + formatFloat(p.Guide.Max),
			Used:  formatFloat(DefaultGuideMin) + ".." + formatFloat(DefaultGuideMax),
		})
		p.Guide.Min, p.Guide.Max = DefaultGuideMin, DefaultGuideMax
	}

	if p.Motion.MinDelay >= p.Motion.InitialDelay {
		warnings = append(warnings, Warning{
			Field: "speed",
			Value: formatFloat(math.Round(motion.SpeedForDelay(p.Motion.MinDelay))),
			Used:  formatFloat(DefaultSpeed),
		})
		p.Motion.MinDelay = DefaultMinDelay
	}

	if p.Guide.Sweep == nil {
		p.Guide.Sweep = guide.Firmware{}
	}
	if pattern, ok := p.Guide.Sweep.(guide.Pattern); ok {
		overlay, ws := validateOverlay(pattern.Overlay, *p)
		warnings = append(warnings, ws...)
		p.Guide.Sweep = guide.Pattern{Overlay: overlay}
	}

	return warnings
}

// validateOverlay checks a PATTERN overlay; invalid parts fall back to the firmware layout
func validateOverlay(o guide.Layout, p Params) (guide.Layout, []Warning) {
	var warnings []Warning
	base := p.BaseLayout()

	angle := rule{min: 0, max: MaxAngle}
	if !angle.valid(o.Min) || !angle.valid(o.Max) || o.Min >= o.Max {
		warnings = append(warnings, Warning{
			Field: "pattern_range",
			Value: formatFloat(o.Min) + ".." + formatFloat(o.Max),
			Used:  formatFloat(base.Min) + ".." + formatFloat(base.Max),
		})
		o.Min, o.Max = base.Min, base.Max
	}
	if o.TurnsPerLayer < 1 || o.TurnsPerLayer > MaxTargetTurns {
		warnings = append(warnings, Warning{
			Field: "pattern_tpl",
			Value: strconv.Itoa(o.TurnsPerLayer),
			Used:  strconv.Itoa(base.TurnsPerLayer),
		})
		o.TurnsPerLayer = base.TurnsPerLayer
	}
	if math.IsNaN(o.Scatter) || o.Scatter < 0 || o.Scatter >= MaxScatter {
		warnings = append(warnings, Warning{Field: "scatter", Value: formatFloat(o.Scatter), Used: "0"})
		o.Scatter = 0
	}
	return o, warnings
}

func micros(d time.Duration) float64 {
	return float64(d / time.Microsecond)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
