package commands

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/log"
	"github.com/calvinmclean/coilwinder/winding"
)

const defaultIdleSleep = time.Millisecond

// Hardware is what a board or simulator provides to the core
type Hardware struct {
	Stepper           winding.Stepper
	Guide             winding.Guide
	Store             config.Store
	PulsesPerRotation int
}

// Winder is the single process-wide aggregate: parameters, machine, supervisor and dispatcher
type Winder struct {
	Stepper    winding.Stepper
	Guide      winding.Guide
	Settings   *config.Manager
	Machine    *winding.Machine
	Supervisor *winding.Supervisor
	Reporter   *coilwinder.Reporter
	Dispatcher *Dispatcher

	logger log.Logger
	reset  func()
	now    func() time.Time
	sleep  time.Duration
}

// Option configures a Winder
type Option func(*Winder)

// WithLogger sets the diagnostic logger used by every component
func WithLogger(l log.Logger) Option {
	return func(w *Winder) {
		w.logger = log.OrNoop(l)
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Winder) {
		w.now = now
	}
}

// WithReset is called by SYS RESET instead of reloading the parameters
func WithReset(reset func()) Option {
	return func(w *Winder) {
		w.reset = reset
	}
}

// WithIdleSleep sets how long Run sleeps when an iteration did nothing
func WithIdleSleep(d time.Duration) Option {
	return func(w *Winder) {
		w.sleep = d
	}
}

// New builds the core on top of hw, loads the persisted parameters and reports any warnings to out
func New(hw Hardware, out io.Writer, opts ...Option) *Winder {
	w := &Winder{
		Stepper:  hw.Stepper,
		Guide:    hw.Guide,
		Reporter: coilwinder.NewReporter(out),
		logger:   log.NewNoopLogger(),
		now:      time.Now,
		sleep:    defaultIdleSleep,
	}
	for _, opt := range opts {
		opt(w)
	}

	ppr := hw.PulsesPerRotation
	if ppr <= 0 {
		ppr = coilwinder.DefaultPulsesPerRotation
	}

	w.Settings = config.NewManager(hw.Store, config.WithLogger(w.logger), config.WithPulsesPerRotation(ppr))
	w.Machine = winding.New(hw.Stepper, hw.Guide, w.Settings, winding.WithLogger(w.logger), winding.WithReporter(w.Reporter))
	w.Supervisor = winding.NewSupervisor(w.Machine, w.Settings, w.now(), w.logger)
	w.Dispatcher = newDispatcher(w)

	for _, warning := range w.Settings.Load() {
		w.Reporter.Warn("%s", warning)
	}
	w.Reporter.Info("Coil winder v%s ready", coilwinder.Version)
	return w
}

// Loop is the control loop. Each iteration handles at most one command line, checks the
// safety timeout and then advances the running job by one pulse.
type Loop struct {
	winder *Winder
	src    ByteSource
	lines  *LineReader
	eof    bool
}

// NewLoop reads commands from src
func NewLoop(w *Winder, src ByteSource) *Loop {
	return &Loop{
		winder: w,
		src:    src,
		lines:  NewLineReader(),
	}
}

// Iterate runs one iteration at the given time. It returns true when it did any work.
func (l *Loop) Iterate(now time.Time) bool {
	busy := l.readCommand(now)

	if l.winder.Supervisor.Check(now) {
		busy = true
	}

	if l.winder.Machine.Tick() {
		busy = true
	}
	return busy
}

// readCommand consumes buffered bytes until one line is complete or the buffer is empty
func (l *Loop) readCommand(now time.Time) bool {
	read := false
	for l.src.Buffered() > 0 {
		b, err := l.src.ReadByte()
		if errors.Is(err, io.EOF) {
			l.eof = true
			return read
		}
		if err != nil {
			l.winder.logger.Warn("error reading command byte", log.Err(err))
			return read
		}
		read = true

		line, ok, err := l.lines.Feed(b)
		if err != nil {
			l.winder.Reporter.Error("%s", err)
			return read
		}
		if ok {
			_ = l.winder.Dispatcher.Dispatch(now, line)
			return read
		}
	}
	return read
}

// Done is true once the source has ended and no job is held
func (l *Loop) Done() bool {
	return l.eof && !l.winder.Machine.State().Active()
}

// Run iterates until ctx is cancelled or the source ends with the machine idle
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.winder.Machine.Stop()
			return ctx.Err()
		default:
		}

		if l.Done() {
			return nil
		}
		if !l.Iterate(l.winder.now()) {
			time.Sleep(l.winder.sleep)
		}
	}
}
