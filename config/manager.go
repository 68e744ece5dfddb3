package config

import (
	"fmt"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/log"
	"github.com/calvinmclean/coilwinder/motion"
)

// Manager holds the authoritative Params. It is owned by the control loop and is not safe for
// concurrent use.
type Manager struct {
	store             Store
	schema            *Schema
	rules             []rule
	pulsesPerRotation int
	logger            log.Logger

	params  Params
	derived Derived
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the diagnostic logger
func WithLogger(l log.Logger) Option {
	return func(m *Manager) {
		m.logger = log.OrNoop(l)
	}
}

// WithPulsesPerRotation sets the rotation resolution that bounds the ramp length
func WithPulsesPerRotation(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pulsesPerRotation = n
		}
	}
}

// NewManager creates a Manager holding defaults. Call Load to read the store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:             store,
		schema:            Record,
		pulsesPerRotation: coilwinder.DefaultPulsesPerRotation,
		logger:            log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.rules = newRules(m.pulsesPerRotation)
	m.params = Defaults()
	m.params.Motion.RampPulses = min(m.params.Motion.RampPulses, m.pulsesPerRotation)
	m.derived = derive(m.params)
	return m
}

// Params returns a copy of the current parameters
func (m *Manager) Params() Params {
	return m.params
}

// Derived returns the quantities computed from the current parameters
func (m *Manager) Derived() Derived {
	return m.derived
}

// PulsesPerRotation is the rotation resolution the Manager validates against
func (m *Manager) PulsesPerRotation() int {
	return m.pulsesPerRotation
}

// Load reads and validates the persisted record. It never fails: a missing, corrupt or
// out-of-range record yields defaults and warnings. Runtime-only fields are kept.
func (m *Manager) Load() []Warning {
	var warnings []Warning

	loaded, mode, err := m.read()
	if err != nil {
		m.logger.Warn("persisted record unusable, treating store as erased", log.Err(err))
		warnings = append(warnings, Warning{Field: "record", Value: "corrupt", Used: "defaults"})
		loaded, mode = m.schema.erased()
	}

	sweep, ok := sweepFromMode(mode)
	if !ok {
		value := fmt.Sprint(mode)
		if guide.Mode(mode) == guide.ModePattern {
			value = guide.ModePattern.String()
		}
		warnings = append(warnings, Warning{Field: "sweep_mode", Value: value, Used: guide.ModeFirmware.String()})
	}
	loaded.Guide.Sweep = sweep

	loaded.TargetTurns = m.params.TargetTurns
	loaded.Direction = m.params.Direction
	loaded.Motion.MinDelay = m.params.Motion.MinDelay

	warnings = append(warnings, m.apply(loaded)...)
	m.logger.Info("loaded parameters", log.Int("warnings", len(warnings)))
	return warnings
}

func (m *Manager) read() (Params, byte, error) {
	b, err := m.store.Load(m.schema.Size())
	if err != nil {
		return Params{}, 0, err
	}
	return m.schema.Decode(b)
}

// Save writes the persisted subset of the current parameters
func (m *Manager) Save() error {
	if err := m.store.Save(m.schema.Encode(m.params)); err != nil {
		return fmt.Errorf("error saving parameters: %w", err)
	}
	m.logger.Info("saved parameters")
	return nil
}

// RestoreDefaults wipes the whole store, reloads from it and saves a fresh record. Runtime
// fields are reset too.
func (m *Manager) RestoreDefaults() ([]Warning, error) {
	if err := m.store.Wipe(Erased); err != nil {
		return nil, fmt.Errorf("error wiping store: %w", err)
	}
	m.params.TargetTurns = 0
	m.params.Direction = coilwinder.Forward
	m.params.Motion.MinDelay = DefaultMinDelay

	warnings := m.Load()
	return warnings, m.Save()
}

// apply validates p, stores it and recomputes derived quantities
func (m *Manager) apply(p Params) []Warning {
	warnings := validate(&p, m.rules)
	for _, w := range warnings {
		m.logger.Warn("parameter out of range", log.String("field", w.Field), log.String("value", w.Value), log.String("default", w.Used))
	}
	m.params = p
	m.derived = derive(p)
	return warnings
}

// Update applies fn to a copy of the parameters and then validates the result
func (m *Manager) Update(fn func(*Params)) []Warning {
	p := m.params
	fn(&p)
	return m.apply(p)
}

func (m *Manager) SetBobbin(length, width, height float64) []Warning {
	return m.Update(func(p *Params) {
		p.Bobbin = Bobbin{Length: length, Width: width, Height: height}
	})
}

func (m *Manager) SetWireDiameter(d float64) []Warning {
	return m.Update(func(p *Params) { p.WireDiameter = d })
}

// SetGuideRange calibrates the persisted guide travel
func (m *Manager) SetGuideRange(lo, hi float64) []Warning {
	return m.Update(func(p *Params) { p.Guide.Min, p.Guide.Max = lo, hi })
}

// SetSpeed sets the cruise speed in steps per second
func (m *Manager) SetSpeed(stepsPerSecond float64) []Warning {
	return m.Update(func(p *Params) {
		p.Motion.MinDelay = motion.DelayForSpeed(stepsPerSecond)
	})
}

func (m *Manager) SetInitialDelay(d time.Duration) []Warning {
	return m.Update(func(p *Params) { p.Motion.InitialDelay = d })
}

func (m *Manager) SetRampPulses(n int) []Warning {
	return m.Update(func(p *Params) { p.Motion.RampPulses = n })
}

func (m *Manager) SetTimeout(d time.Duration) []Warning {
	return m.Update(func(p *Params) { p.Timeout = d })
}

func (m *Manager) SetTargetTurns(n int) []Warning {
	return m.Update(func(p *Params) { p.TargetTurns = n })
}

func (m *Manager) SetDirection(d coilwinder.Direction) []Warning {
	return m.Update(func(p *Params) { p.Direction = d })
}

func (m *Manager) SetLastResistance(r float64) []Warning {
	return m.Update(func(p *Params) { p.LastResistance = r })
}

// SetSweepMode switches strategy. Selecting PATTERN keeps the current overlay if there is one,
// otherwise the overlay starts from the firmware layout.
func (m *Manager) SetSweepMode(mode guide.Mode) []Warning {
	return m.Update(func(p *Params) {
		switch mode {
		case guide.ModeHost:
			p.Guide.Sweep = guide.Host{}
		case guide.ModePattern:
			if _, ok := p.Guide.Sweep.(guide.Pattern); !ok {
				p.Guide.Sweep = guide.Pattern{Overlay: p.BaseLayout()}
			}
		default:
			p.Guide.Sweep = guide.Firmware{}
		}
	})
}

// SetPattern installs a PATTERN overlay and selects the PATTERN strategy
func (m *Manager) SetPattern(overlay guide.Layout) []Warning {
	return m.Update(func(p *Params) { p.Guide.Sweep = guide.Pattern{Overlay: overlay} })
}

// SetScatter changes only the scatter of the PATTERN overlay, selecting PATTERN if needed
func (m *Manager) SetScatter(pct float64) []Warning {
	return m.Update(func(p *Params) {
		overlay := p.BaseLayout()
		if pattern, ok := p.Guide.Sweep.(guide.Pattern); ok {
			overlay = pattern.Overlay
		}
		overlay.Scatter = pct
		p.Guide.Sweep = guide.Pattern{Overlay: overlay}
	})
}
