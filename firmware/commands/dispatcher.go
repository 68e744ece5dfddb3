package commands

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/log"
	"github.com/calvinmclean/coilwinder/motion"
	"github.com/calvinmclean/coilwinder/winding"
)

// Dispatcher parses command lines and routes them to the machine and parameters
type Dispatcher struct {
	machine    *winding.Machine
	settings   *config.Manager
	stepper    winding.Stepper
	guide      winding.Guide
	supervisor *winding.Supervisor
	reporter   *coilwinder.Reporter
	logger     log.Logger
	reset      func()

	table  []*Command
	byName map[string]*Command
}

func newDispatcher(w *Winder) *Dispatcher {
	d := &Dispatcher{
		machine:    w.Machine,
		settings:   w.Settings,
		stepper:    w.Stepper,
		guide:      w.Guide,
		supervisor: w.Supervisor,
		reporter:   w.Reporter,
		logger:     w.logger,
		reset:      w.reset,
		table:      append(commands[:len(commands):len(commands)], SysHelpCommand),
	}

	d.byName = map[string]*Command{}
	for _, cmd := range d.table {
		d.byName[cmd.Name] = cmd
	}
	for name, cmd := range aliases {
		d.byName[name] = cmd
	}
	return d
}

// Lookup finds the command for a tokenized line and returns it with its arguments
func (d *Dispatcher) Lookup(tokens []Token) (*Command, Args, bool) {
	if len(tokens) == 0 {
		return nil, nil, false
	}
	if len(tokens) > 1 {
		if cmd, ok := d.byName[tokens[0].Text+" "+tokens[1].Text]; ok {
			return cmd, Args(tokens[2:]), true
		}
	}
	if cmd, ok := d.byName[tokens[0].Text]; ok {
		return cmd, Args(tokens[1:]), true
	}
	return nil, nil, false
}

// Dispatch runs one command line. Every recognized command resets the safety timeout; errors
// are reported to the host and never stop the caller.
func (d *Dispatcher) Dispatch(now time.Time, line string) error {
	tokens, err := Tokenize(line)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUnrecognized, err)
		d.reporter.Error("%s: %s", err, line)
		return err
	}

	cmd, args, ok := d.Lookup(tokens)
	if !ok {
		d.reporter.Error("%s: %s", ErrUnrecognized, line)
		d.logger.Debug("unrecognized command", log.String("line", line))
		return ErrUnrecognized
	}
	d.supervisor.Touch(now)

	d.logger.Debug("command", log.String("name", cmd.Name), log.Int("args", len(args)))
	if err := cmd.Run(d, args); err != nil {
		d.reporter.Error("%s: %s", cmd.Name, err)
		d.logger.Warn("command failed", log.String("name", cmd.Name), log.Err(err))
		return err
	}
	return nil
}

// Commands lists the table in help order
func (d *Dispatcher) Commands() []*Command {
	return d.table
}

// idle rejects commands that must not run while a job holds the machine
func (d *Dispatcher) idle() error {
	if d.machine.State().Active() {
		return fmt.Errorf("%w: stop the current job first", winding.ErrBusy)
	}
	return nil
}

func (d *Dispatcher) warn(warnings []config.Warning) {
	for _, w := range warnings {
		d.reporter.Warn("%s", w)
	}
}

func (d *Dispatcher) reportAll() {
	d.reportJob()
	d.reportStepper()
	d.reportGuide()
	d.reportGeometry()
	p := d.settings.Params()
	d.reporter.Param("timeout_s", int(p.Timeout/time.Second))
	d.reporter.Param("last_resistance", p.LastResistance)
}

func (d *Dispatcher) reportJob() {
	s := d.machine.Status()
	d.reporter.Status("State: %s", s.State)
	if s.Job != winding.JobNone {
		d.reporter.Status("Job: %s %d/%d steps", s.Job, s.CompletedPulses, s.TotalPulses)
	}
	d.reporter.Status("Current Turns: %d", s.CompletedTurns)
	d.reporter.Param("target_turns", d.settings.Params().TargetTurns)
}

func (d *Dispatcher) reportSpeed() {
	p := d.settings.Params()
	d.reporter.Param("speed", int(math.Round(motion.SpeedForDelay(p.Motion.MinDelay))))
	d.reporter.Param("min_delay_us", int(p.Motion.MinDelay/time.Microsecond))
}

func (d *Dispatcher) reportStepper() {
	p := d.settings.Params()
	d.reporter.Param("stepper", d.stepper.Enabled())
	d.reporter.Param("direction", p.Direction)
	d.reportSpeed()
	d.reporter.Param("initial_delay_us", int(p.Motion.InitialDelay/time.Microsecond))
	d.reporter.Param("ramp_pulses", p.Motion.RampPulses)
	d.reporter.Param("pulses_per_rotation", d.settings.PulsesPerRotation())
}

func (d *Dispatcher) reportGuide() {
	p := d.settings.Params()
	d.reporter.Param("servo", d.guide.Enabled())
	d.reporter.Param("servo_pos", d.guide.Angle())
	d.reporter.Param("servo_min", p.Guide.Min)
	d.reporter.Param("servo_max", p.Guide.Max)
	d.reportSweep()
}

func (d *Dispatcher) reportSweep() {
	switch s := d.settings.Params().Guide.Sweep.(type) {
	case guide.Pattern:
		d.reporter.Param("sweep", s.String())
	case nil:
		d.reporter.Param("sweep", guide.ModeFirmware)
	default:
		d.reporter.Param("sweep", s.Mode())
	}
}

func (d *Dispatcher) reportGeometry() {
	p := d.settings.Params()
	derived := d.settings.Derived()
	d.reporter.Param("bobbin", strings.Join([]string{
		coilwinder.FormatFloat(p.Bobbin.Length),
		coilwinder.FormatFloat(p.Bobbin.Width),
		coilwinder.FormatFloat(p.Bobbin.Height),
	}, "/"))
	d.reporter.Param("wire_dia", p.WireDiameter)
	d.reporter.Param("turns_per_layer", derived.TurnsPerLayer)
	d.reporter.Param("avg_turn_length", derived.AvgTurnLength)
	if p.TargetTurns > 0 {
		d.reporter.Info("Est. DC Resistance: %s Ohms", formatFixed(derived.EstimatedResistance, 2))
	}
}

func formatFixed(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
