package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/resistance"
)

var (
	ErrUnrecognized    = errors.New("unrecognized command")
	ErrMissingArgument = errors.New("missing or invalid argument")
)

// Command is one entry of the protocol table. Name is either "COMPONENT ACTION" or a
// single whole-line keyword.
type Command struct {
	Name        string
	Usage       string
	Run         func(*Dispatcher, Args) error
	Description string
}

var (
	WindStartCommand = &Command{
		Name:  "WIND START",
		Usage: "[-V]",
		Run: func(d *Dispatcher, a Args) error {
			return d.machine.Start(a.Has("-V"))
		},
		Description: "Start winding the target turns. -V reports progress every turn.",
	}
	WindStopCommand = &Command{
		Name: "WIND STOP",
		Run: func(d *Dispatcher, a Args) error {
			d.machine.Stop()
			d.reporter.Status("Stopped")
			return nil
		},
		Description: "Stop and discard the current job.",
	}
	WindPauseCommand = &Command{
		Name: "WIND PAUSE",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.machine.Pause(); err != nil {
				return err
			}
			d.reporter.Status("Paused at turn %d", d.machine.Status().CompletedTurns)
			return nil
		},
		Description: "Pause the running job with outputs disabled.",
	}
	WindResumeCommand = &Command{
		Name: "WIND RESUME",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.machine.Resume(); err != nil {
				return err
			}
			d.reporter.Status("Resumed at turn %d", d.machine.Status().CompletedTurns)
			return nil
		},
		Description: "Resume a paused job where it stopped.",
	}
	WindCountCommand = &Command{
		Name:  "WIND COUNT",
		Usage: "<turns>",
		Run: func(d *Dispatcher, a Args) error {
			n, ok := a.Int(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetTargetTurns(n))
			d.reporter.Param("target_turns", d.settings.Params().TargetTurns)
			return nil
		},
		Description: "Set the target turn count.",
	}
	WindSpeedCommand = &Command{
		Name:  "WIND SPEED",
		Usage: "<steps/s>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Float(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetSpeed(v))
			d.reportSpeed()
			return nil
		},
		Description: "Set the cruise speed in steps per second. Applies to a running job.",
	}
	WindDirCommand = &Command{
		Name:  "WIND DIR",
		Usage: "FWD|REV",
		Run: func(d *Dispatcher, a Args) error {
			w, ok := a.Word(0)
			if !ok {
				return nil
			}
			dir, ok := coilwinder.ParseDirection(w)
			if !ok {
				return fmt.Errorf("%w: direction %q", ErrMissingArgument, w)
			}
			d.warn(d.settings.SetDirection(dir))
			d.reporter.Param("direction", dir)
			return nil
		},
		Description: "Set the rotation direction used by the next job.",
	}
	WindSweepCommand = &Command{
		Name:  "WIND SWEEP",
		Usage: "FIRMWARE|HOST|PATTERN",
		Run: func(d *Dispatcher, a Args) error {
			w, ok := a.Word(0)
			if !ok {
				return nil
			}
			mode, ok := guide.ParseMode(w)
			if !ok {
				return fmt.Errorf("%w: sweep mode %q", ErrMissingArgument, w)
			}
			d.warn(d.settings.SetSweepMode(mode))
			d.reportSweep()
			return nil
		},
		Description: "Select the guide sweep strategy.",
	}
	WindPatternCommand = &Command{
		Name:  "WIND PATTERN",
		Usage: "<min> <max> <turns/layer> <scatter%>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Floats(4)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetPattern(guide.Layout{Min: v[0], Max: v[1], TurnsPerLayer: int(v[2]), Scatter: v[3]}))
			d.reportSweep()
			return nil
		},
		Description: "Install a pattern overlay and select PATTERN. May be sent while winding.",
	}
	WindScatterCommand = &Command{
		Name:  "WIND SCATTER",
		Usage: "<percent>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Float(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetScatter(v))
			d.reportSweep()
			return nil
		},
		Description: "Set the pattern scatter percentage and select PATTERN.",
	}
	WindRampCommand = &Command{
		Name:  "WIND RAMP",
		Usage: "<pulses>",
		Run: func(d *Dispatcher, a Args) error {
			n, ok := a.Int(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetRampPulses(n))
			d.reporter.Param("ramp_pulses", d.settings.Params().Motion.RampPulses)
			return nil
		},
		Description: "Set the number of ramped pulses in the first and last rotation.",
	}
	WindAccelCommand = &Command{
		Name:  "WIND ACCEL",
		Usage: "<initial delay us>",
		Run: func(d *Dispatcher, a Args) error {
			n, ok := a.Int(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetInitialDelay(time.Duration(n) * time.Microsecond))
			d.reporter.Param("initial_delay_us", int(d.settings.Params().Motion.InitialDelay/time.Microsecond))
			return nil
		},
		Description: "Set the pulse delay the ramps start and end at.",
	}
	WindStatusCommand = &Command{
		Name: "WIND STATUS",
		Run: func(d *Dispatcher, a Args) error {
			d.reportJob()
			return nil
		},
		Description: "Report the state and progress of the current job.",
	}

	ServoStatusCommand = &Command{
		Name: "SERVO STATUS",
		Run: func(d *Dispatcher, a Args) error {
			d.reportGuide()
			return nil
		},
		Description: "Report the guide position and calibration.",
	}
	ServoEnableCommand = &Command{
		Name: "SERVO ENABLE",
		Run: func(d *Dispatcher, a Args) error {
			d.guide.Enable()
			d.reporter.Param("servo", true)
			return nil
		},
		Description: "Energize the guide servo.",
	}
	ServoDisableCommand = &Command{
		Name: "SERVO DISABLE",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.idle(); err != nil {
				return err
			}
			d.guide.Disable()
			d.reporter.Param("servo", false)
			return nil
		},
		Description: "Release the guide servo.",
	}
	ServoPosCommand = &Command{
		Name:  "SERVO POS",
		Usage: "<angle>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Float(0)
			if !ok {
				return nil
			}
			if err := d.machine.SetGuideAngle(v); err != nil {
				return err
			}
			d.reporter.Param("servo_pos", v)
			return nil
		},
		Description: "Move the guide. In HOST sweep mode the host sends this once per rotation.",
	}
	ServoCalibrateCommand = &Command{
		Name:  "SERVO CALIBRATE",
		Usage: "<min> <max>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Floats(2)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetGuideRange(v[0], v[1]))
			p := d.settings.Params()
			d.reporter.Param("servo_min", p.Guide.Min)
			d.reporter.Param("servo_max", p.Guide.Max)
			return nil
		},
		Description: "Set the guide travel range used by the firmware sweep.",
	}

	StepperStatusCommand = &Command{
		Name: "STEPPER STATUS",
		Run: func(d *Dispatcher, a Args) error {
			d.reportStepper()
			return nil
		},
		Description: "Report the rotation axis settings.",
	}
	StepperEnableCommand = &Command{
		Name: "STEPPER ENABLE",
		Run: func(d *Dispatcher, a Args) error {
			d.stepper.Enable()
			d.reporter.Param("stepper", true)
			return nil
		},
		Description: "Energize the rotation axis.",
	}
	StepperDisableCommand = &Command{
		Name: "STEPPER DISABLE",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.idle(); err != nil {
				return err
			}
			d.stepper.Disable()
			d.reporter.Param("stepper", false)
			return nil
		},
		Description: "Release the rotation axis.",
	}
	StepperMoveCommand = &Command{
		Name:  "STEPPER MOVE",
		Usage: "<steps>",
		Run: func(d *Dispatcher, a Args) error {
			n, ok := a.Int(0)
			if !ok {
				return nil
			}
			return d.machine.StartMove(n)
		},
		Description: "Move the rotation axis by a signed number of steps.",
	}

	SysStatusCommand = &Command{
		Name: "SYS STATUS",
		Run: func(d *Dispatcher, a Args) error {
			d.reportAll()
			return nil
		},
		Description: "Report every parameter and the job state.",
	}
	SysSaveCommand = &Command{
		Name: "SYS SAVE",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.settings.Save(); err != nil {
				return err
			}
			d.reporter.Info("Parameters saved")
			return nil
		},
		Description: "Persist the current parameters.",
	}
	SysLoadCommand = &Command{
		Name: "SYS LOAD",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.idle(); err != nil {
				return err
			}
			d.warn(d.settings.Load())
			d.reporter.Info("Parameters loaded")
			return nil
		},
		Description: "Reload the persisted parameters.",
	}
	SysResetCommand = &Command{
		Name: "SYS RESET",
		Run: func(d *Dispatcher, a Args) error {
			d.machine.Stop()
			d.reporter.Info("Resetting")
			if d.reset != nil {
				d.reset()
				return nil
			}
			d.warn(d.settings.Load())
			return nil
		},
		Description: "Stop everything and restart from the persisted parameters.",
	}
	SysVersionCommand = &Command{
		Name: "SYS VERSION",
		Run: func(d *Dispatcher, a Args) error {
			d.reporter.Info("Coil winder firmware v%s", coilwinder.Version)
			return nil
		},
		Description: "Report the firmware version.",
	}
	SysTimeoutCommand = &Command{
		Name:  "SYS TIMEOUT",
		Usage: "<seconds>",
		Run: func(d *Dispatcher, a Args) error {
			n, ok := a.Int(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetTimeout(time.Duration(n) * time.Second))
			d.reporter.Param("timeout_s", int(d.settings.Params().Timeout/time.Second))
			return nil
		},
		Description: "Set the safety timeout in seconds, 0 disables it.",
	}
	SysHelpCommand = &Command{
		Name: "SYS HELP",
		Run: func(d *Dispatcher, a Args) error {
			d.reporter.Info("Available Commands:")
			for _, cmd := range d.table {
				usage := cmd.Name
				if cmd.Usage != "" {
					usage += " " + cmd.Usage
				}
				d.reporter.Info("%s: %s", usage, cmd.Description)
			}
			return nil
		},
		Description: "Show all available commands and their descriptions.",
	}

	BobbinCommand = &Command{
		Name:  "BOBBIN",
		Usage: "<length> <width> <height>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Floats(3)
			if !ok || !(v[0] > 0 && v[1] > 0 && v[2] > 0) {
				return fmt.Errorf("%w: BOBBIN needs three positive dimensions", ErrMissingArgument)
			}
			d.warn(d.settings.SetBobbin(v[0], v[1], v[2]))
			d.reportGeometry()
			return nil
		},
		Description: "Set the bobbin length, core width and height in mm.",
	}
	WireDiameterCommand = &Command{
		Name:  "WIRE_DIA",
		Usage: "<mm>",
		Run: func(d *Dispatcher, a Args) error {
			v, ok := a.Float(0)
			if !ok {
				return nil
			}
			d.warn(d.settings.SetWireDiameter(v))
			d.reportGeometry()
			return nil
		},
		Description: "Set the wire diameter in mm.",
	}
	CalcCommand = &Command{
		Name:  "CALC",
		Usage: "<ohms>R|<kilohms>K",
		Run: func(d *Dispatcher, a Args) error {
			w, ok := a.Word(0)
			if !ok {
				return fmt.Errorf("%w: CALC needs a resistance", ErrMissingArgument)
			}
			target, err := resistance.ParseTarget(w)
			if err != nil {
				return err
			}
			result, err := resistance.Solve(target, d.settings.Params().Coil())
			if err != nil {
				return err
			}
			if limit := config.MaxTurns(d.settings.PulsesPerRotation()); result.Turns < 0 || result.Turns > limit {
				return fmt.Errorf("%d turns needed, at most %d can be wound", result.Turns, limit)
			}

			d.warn(d.settings.SetTargetTurns(result.Turns))
			d.warn(d.settings.SetLastResistance(target))

			d.reporter.Info("Required Turns: %d", result.Turns)
			d.reporter.Info("Est. DC Resistance: %s Ohms", formatFixed(result.Resistance, 2))
			d.reporter.Info("Avg Turn Length: %s mm", formatFixed(result.AvgTurnLength, 2))
			d.reporter.Info("Wire Length: %s m", formatFixed(result.WireLength, 2))
			d.reporter.Param("target_turns", d.settings.Params().TargetTurns)
			return nil
		},
		Description: "Compute and set the turns needed for a target resistance.",
	}

	StatusCommand = &Command{
		Name:        "STATUS",
		Run:         SysStatusCommand.Run,
		Description: "Same as SYS STATUS.",
	}
	RestoreDefaultsCommand = &Command{
		Name: "RESTORE_DEFAULTS",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.idle(); err != nil {
				return err
			}
			if _, err := d.settings.RestoreDefaults(); err != nil {
				return err
			}
			d.reporter.Info("Defaults restored")
			d.reportAll()
			return nil
		},
		Description: "Wipe the persisted parameters and restore every default.",
	}
	TestLayerCommand = &Command{
		Name:  "TEST_LAYER",
		Usage: "[steps/s]",
		Run: func(d *Dispatcher, a Args) error {
			if err := d.idle(); err != nil {
				return err
			}
			if v, ok := a.Float(0); ok {
				d.warn(d.settings.SetSpeed(v))
			}
			return d.machine.StartLayerTest()
		},
		Description: "Wind a single layer with the firmware sweep.",
	}
	TestStepperCommand = &Command{
		Name: "TEST_STEPPER",
		Run: func(d *Dispatcher, a Args) error {
			return d.machine.StartRotationTest()
		},
		Description: "Run the rotation axis through one ramped rotation.",
	}
	TestStepperMoveCommand = &Command{
		Name:        "TEST_STEPPER_MOVE",
		Usage:       StepperMoveCommand.Usage,
		Run:         StepperMoveCommand.Run,
		Description: "Same as STEPPER MOVE.",
	}
)

// legacy whole-line spellings of table commands
var aliases = map[string]*Command{
	"START":           WindStartCommand,
	"STOP":            WindStopCommand,
	"PAUSE":           WindPauseCommand,
	"RESUME":          WindResumeCommand,
	"COUNT":           WindCountCommand,
	"S":               WindSpeedCommand,
	"DIR":             WindDirCommand,
	"CALIBRATE_SERVO": ServoCalibrateCommand,
	"RESET_EEPROM":    RestoreDefaultsCommand,
}

var commands = []*Command{
	WindStartCommand,
	WindStopCommand,
	WindPauseCommand,
	WindResumeCommand,
	WindCountCommand,
	WindSpeedCommand,
	WindDirCommand,
	WindSweepCommand,
	WindPatternCommand,
	WindScatterCommand,
	WindRampCommand,
	WindAccelCommand,
	WindStatusCommand,
	ServoStatusCommand,
	ServoEnableCommand,
	ServoDisableCommand,
	ServoPosCommand,
	ServoCalibrateCommand,
	StepperStatusCommand,
	StepperEnableCommand,
	StepperDisableCommand,
	StepperMoveCommand,
	SysStatusCommand,
	SysSaveCommand,
	SysLoadCommand,
	SysResetCommand,
	SysVersionCommand,
	SysTimeoutCommand,
	BobbinCommand,
	WireDiameterCommand,
	CalcCommand,
	StatusCommand,
	RestoreDefaultsCommand,
	TestLayerCommand,
	TestStepperCommand,
	TestStepperMoveCommand,
}
