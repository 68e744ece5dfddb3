package winding

import (
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/log"
	"github.com/calvinmclean/coilwinder/motion"
)

var (
	ErrNotRunning = errors.New("not running")
	ErrNotPaused  = errors.New("not paused")
	ErrBusy       = errors.New("job in progress")
	ErrNoTarget   = errors.New("target turns not set")
	ErrAngle      = errors.New("angle out of range")
)

// progressEvery is how often, in turns, progress is reported when not verbose
const progressEvery = 10

// JobKind distinguishes production winding from the diagnostic jobs
type JobKind int

const (
	JobNone JobKind = iota
	JobWind
	JobLayerTest
	JobRotationTest
	JobMove
)

func (k JobKind) String() string {
	switch k {
	case JobWind:
		return "WIND"
	case JobLayerTest:
		return "TEST_LAYER"
	case JobRotationTest:
		return "TEST_STEPPER"
	case JobMove:
		return "MOVE"
	default:
		return "NONE"
	}
}

type job struct {
	kind            JobKind
	totalPulses     int
	completedPulses int
	// fixed is the sweep a diagnostic uses regardless of the configured mode, nil for WIND
	fixed guide.Sweep
	// ramped jobs use the motion profile, others run at the minimum delay
	ramped bool
	// guided jobs reposition the guide on rotation boundaries
	guided bool
}

// Status is a snapshot of the machine
type Status struct {
	State           coilwinder.State
	Job             JobKind
	CompletedPulses int
	TotalPulses     int
	CompletedTurns  int
	Angle           float64
}

// Machine is the winding state machine. It is driven by a single control loop and is not safe
// for concurrent use.
type Machine struct {
	stepper  Stepper
	guide    Guide
	settings Settings
	reporter *coilwinder.Reporter
	logger   log.Logger

	state   coilwinder.State
	job     job
	verbose bool
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger sets the diagnostic logger
func WithLogger(l log.Logger) Option {
	return func(m *Machine) {
		m.logger = log.OrNoop(l)
	}
}

// WithReporter sets where progress and completion lines are written
func WithReporter(r *coilwinder.Reporter) Option {
	return func(m *Machine) {
		m.reporter = r
	}
}

// New creates an idle Machine
func New(stepper Stepper, g Guide, settings Settings, opts ...Option) *Machine {
	m := &Machine{
		stepper:  stepper,
		guide:    g,
		settings: settings,
		logger:   log.NewNoopLogger(),
		state:    coilwinder.StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State is the current lifecycle state
func (m *Machine) State() coilwinder.State {
	return m.state
}

// Status returns a snapshot of the current job
func (m *Machine) Status() Status {
	ppr := m.settings.PulsesPerRotation()
	s := Status{
		State:           m.state,
		Job:             m.job.kind,
		CompletedPulses: m.job.completedPulses,
		TotalPulses:     m.job.totalPulses,
		Angle:           m.guide.Angle(),
	}
	if ppr > 0 {
		s.CompletedTurns = s.CompletedPulses / ppr
	}
	return s
}

// Start begins a winding job of the configured target turns. verbose reports progress every turn.
func (m *Machine) Start(verbose bool) error {
	p := m.settings.Params()
	if p.TargetTurns <= 0 {
		return ErrNoTarget
	}
	err := m.begin(job{
		kind:        JobWind,
		totalPulses: p.TargetTurns * m.settings.PulsesPerRotation(),
		ramped:      true,
		guided:      true,
	}, p.Direction)
	if err != nil {
		return err
	}
	m.verbose = verbose

	m.reporter.Status("Winding started: %d turns, sweep %s", p.TargetTurns, p.Guide.Sweep.Mode())
	return nil
}

// StartLayerTest winds exactly one layer using the firmware sweep
func (m *Machine) StartLayerTest() error {
	p := m.settings.Params()
	layout := p.BaseLayout()
	err := m.begin(job{
		kind:        JobLayerTest,
		totalPulses: layout.TurnsPerLayer * m.settings.PulsesPerRotation(),
		fixed:       guide.Firmware{},
		ramped:      true,
		guided:      true,
	}, p.Direction)
	if err != nil {
		return err
	}
	m.verbose = true

	m.reporter.Status("Layer test started: %d turns from %s to %s", layout.TurnsPerLayer, coilwinder.FormatFloat(layout.Min), coilwinder.FormatFloat(layout.Max))
	return nil
}

// StartRotationTest runs the rotation axis through one ramped rotation
func (m *Machine) StartRotationTest() error {
	p := m.settings.Params()
	err := m.begin(job{
		kind:        JobRotationTest,
		totalPulses: m.settings.PulsesPerRotation(),
		ramped:      true,
	}, p.Direction)
	if err != nil {
		return err
	}

	m.reporter.Status("Stepper test started: 1 rotation")
	return nil
}

// StartMove moves the rotation axis by a signed number of pulses at the minimum delay
func (m *Machine) StartMove(pulses int) error {
	if pulses == 0 {
		return nil
	}
	dir := coilwinder.Forward
	if pulses < 0 {
		dir = coilwinder.Reverse
		pulses = -pulses
	}
	if err := m.begin(job{kind: JobMove, totalPulses: pulses}, dir); err != nil {
		return err
	}

	m.reporter.Status("Moving %d steps %s", pulses, dir)
	return nil
}

func (m *Machine) begin(j job, dir coilwinder.Direction) error {
	if m.state.Active() {
		return fmt.Errorf("%w: %s is %s", ErrBusy, m.job.kind, m.state)
	}
	if j.totalPulses <= 0 {
		return fmt.Errorf("%w: %s has no pulses", ErrNoTarget, j.kind)
	}

	m.job = j
	m.verbose = false

	m.stepper.SetDirection(dir)
	m.stepper.Enable()

	if j.guided {
		p := m.settings.Params()
		m.guide.Enable()
		start := guide.StartAngle(m.sweep(p), p.BaseLayout())
		if err := m.guide.SetAngle(start); err != nil {
			m.logger.Warn("unable to move guide to start", log.Float64("angle", start), log.Err(err))
		}
	}

	m.state = coilwinder.StateRunning
	m.logger.Info("job started", log.String("job", j.kind.String()), log.Int("pulses", j.totalPulses))
	return nil
}

// Stop abandons any job and returns to IDLE with outputs disabled
func (m *Machine) Stop() {
	if m.state.Active() {
		m.logger.Info("job stopped", log.String("job", m.job.kind.String()), log.Int("completed", m.job.completedPulses))
	}
	m.disableOutputs()
	m.job = job{}
	m.state = coilwinder.StateIdle
}

// Pause holds the job with outputs disabled. Progress is kept exactly.
func (m *Machine) Pause() error {
	if m.state != coilwinder.StateRunning {
		return ErrNotRunning
	}
	m.disableOutputs()
	m.state = coilwinder.StatePaused
	m.logger.Info("job paused", log.Int("completed", m.job.completedPulses))
	return nil
}

// Resume continues a paused job from the pulse where it stopped
func (m *Machine) Resume() error {
	if m.state != coilwinder.StatePaused {
		return ErrNotPaused
	}
	m.stepper.Enable()
	if m.job.guided {
		m.guide.Enable()
	}
	m.state = coilwinder.StateRunning
	m.logger.Info("job resumed", log.Int("completed", m.job.completedPulses))
	return nil
}

// Abort is Stop with a reason reported to the host
func (m *Machine) Abort(reason string) {
	m.Stop()
	m.reporter.Status("%s: job aborted, outputs disabled", reason)
	m.logger.Warn("job aborted", log.String("reason", reason))
}

// SetGuideAngle moves the guide directly. HOST mode relies on this once per rotation.
func (m *Machine) SetGuideAngle(angle float64) error {
	if !(angle >= 0 && angle <= config.MaxAngle) {
		return fmt.Errorf("%w: %s", ErrAngle, coilwinder.FormatFloat(angle))
	}
	if !m.guide.Enabled() {
		m.guide.Enable()
	}
	return m.guide.SetAngle(angle)
}

// OutputsEnabled is true when either actuator is energized
func (m *Machine) OutputsEnabled() bool {
	return m.stepper.Enabled() || m.guide.Enabled()
}

// Tick advances a RUNNING job by exactly one pulse. It returns false when nothing moved.
func (m *Machine) Tick() bool {
	if m.state != coilwinder.StateRunning {
		return false
	}
	if m.job.completedPulses >= m.job.totalPulses {
		m.finish()
		return false
	}

	p := m.settings.Params()
	ppr := m.settings.PulsesPerRotation()

	m.stepper.Pulse(m.delay(p, ppr))
	m.job.completedPulses++

	if m.job.completedPulses%ppr == 0 {
		m.rotationComplete(p, ppr)
	}
	if m.job.completedPulses >= m.job.totalPulses {
		m.finish()
	}
	return true
}

func (m *Machine) delay(p config.Params, ppr int) time.Duration {
	if !m.job.ramped {
		return p.Motion.MinDelay
	}
	profile := motion.Profile{
		InitialDelay:      p.Motion.InitialDelay,
		MinDelay:          p.Motion.MinDelay,
		RampPulses:        p.Motion.RampPulses,
		PulsesPerRotation: ppr,
	}
	return profile.Delay(m.job.completedPulses, m.job.totalPulses)
}

func (m *Machine) rotationComplete(p config.Params, ppr int) {
	turns := m.job.completedPulses / ppr

	if m.job.guided && m.job.completedPulses < m.job.totalPulses {
		if target, ok := guide.Target(m.sweep(p), p.BaseLayout(), m.job.completedPulses, ppr); ok {
			if err := m.guide.SetAngle(target); err != nil {
				m.logger.Warn("unable to move guide", log.Float64("angle", target), log.Err(err))
			}
		}
	}

	if !m.job.guided {
		return
	}
	if m.verbose || turns%progressEvery == 0 || m.job.completedPulses >= m.job.totalPulses {
		m.reporter.Progress(turns, m.guide.Angle())
	}
}

// sweep is the strategy for the running job: the configured one, unless the job fixes its own
func (m *Machine) sweep(p config.Params) guide.Sweep {
	if m.job.fixed != nil {
		return m.job.fixed
	}
	return p.Guide.Sweep
}

func (m *Machine) finish() {
	m.disableOutputs()
	m.state = coilwinder.StateDone

	ppr := m.settings.PulsesPerRotation()
	switch m.job.kind {
	case JobWind:
		m.reporter.Status("Winding complete: %d turns", m.job.completedPulses/ppr)
	case JobLayerTest:
		m.reporter.Status("Layer test complete")
	default:
		m.reporter.Status("%s complete: %d steps", m.job.kind, m.job.completedPulses)
	}
	m.logger.Info("job complete", log.String("job", m.job.kind.String()), log.Int("pulses", m.job.completedPulses))
}

func (m *Machine) disableOutputs() {
	m.stepper.Disable()
	m.guide.Disable()
}
