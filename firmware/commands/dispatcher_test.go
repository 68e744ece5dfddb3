package commands_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/config"
	"github.com/calvinmclean/coilwinder/firmware/commands"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/sim"
	"github.com/calvinmclean/coilwinder/winding"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	winder  *commands.Winder
	stepper *sim.Stepper
	guide   *sim.Guide
	store   *config.MemoryStore
	out     *bytes.Buffer
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stepper: sim.NewStepper(false),
		guide:   sim.NewGuide(90),
		store:   config.NewMemoryStore(256),
		out:     &bytes.Buffer{},
		now:     epoch,
	}
	f.winder = commands.New(
		sim.Hardware(f.stepper, f.guide, f.store),
		f.out,
		commands.WithClock(func() time.Time { return f.now }),
	)
	f.out.Reset()
	return f
}

// run dispatches each line in order and fails on unexpected errors
func (f *fixture) run(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := f.winder.Dispatcher.Dispatch(f.now, line); err != nil {
			t.Fatalf("unexpected error for %q: %v\n%s", line, err, f.out.String())
		}
	}
}

func (f *fixture) ticks(n int) {
	for i := 0; i < n; i++ {
		f.winder.Machine.Tick()
	}
}

func TestUnrecognized(t *testing.T) {
	tests := []string{"FOO BAR", "WIND", "WIND JUMP", "SERVO", "SYS REBOOT NOW"}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			f := newFixture(t)
			before := f.winder.Settings.Params()

			err := f.winder.Dispatcher.Dispatch(f.now, line)
			if !errors.Is(err, commands.ErrUnrecognized) {
				t.Errorf("expected ErrUnrecognized, got %v", err)
			}
			if !strings.HasPrefix(f.out.String(), "ERROR: unrecognized command") {
				t.Errorf("unexpected output: %q", f.out.String())
			}
			if f.winder.Settings.Params() != before {
				t.Error("state changed")
			}
		})
	}
}

func TestMissingNumericArgumentIsNoop(t *testing.T) {
	lines := []string{
		"WIND COUNT", "WIND SPEED FAST", "WIND PATTERN 70 100", "SERVO POS", "WIRE_DIA", "SYS TIMEOUT", "STEPPER MOVE",
		"SERVO POS NAN", "WIRE_DIA INF", "WIND SPEED -INF", "STEPPER MOVE 1E12",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			f := newFixture(t)
			before := f.winder.Settings.Params()

			f.run(t, line)
			if f.winder.Settings.Params() != before {
				t.Error("state changed")
			}
			if f.winder.Machine.State() != coilwinder.StateIdle {
				t.Errorf("unexpected state %s", f.winder.Machine.State())
			}
		})
	}
}

func TestBobbinAndWire(t *testing.T) {
	f := newFixture(t)
	f.run(t, "BOBBIN 60 4 9", "WIRE_DIA 0.2")

	if !strings.Contains(f.out.String(), "PARAM: turns_per_layer=45\n") {
		t.Errorf("expected 45 turns per layer, got:\n%s", f.out.String())
	}

	for _, line := range []string{"BOBBIN 60 4", "BOBBIN 60 -4 9", "BOBBIN A B C", "BOBBIN NAN 4 9", "BOBBIN 60 INF 9"} {
		err := f.winder.Dispatcher.Dispatch(f.now, line)
		if !errors.Is(err, commands.ErrMissingArgument) {
			t.Errorf("%q: expected ErrMissingArgument, got %v", line, err)
		}
	}
	if f.winder.Settings.Params().Bobbin != (config.Bobbin{Length: 60, Width: 4, Height: 9}) {
		t.Errorf("rejected BOBBIN changed geometry: %+v", f.winder.Settings.Params().Bobbin)
	}
}

func TestOutOfRangeWarns(t *testing.T) {
	f := newFixture(t)
	f.run(t, "WIRE_DIA 9")

	if !strings.Contains(f.out.String(), "WARN: wire_dia=9 out of range, using 0.063\n") {
		t.Errorf("expected a warning, got:\n%s", f.out.String())
	}
	if f.winder.Settings.Params().WireDiameter != config.DefaultWireDiameter {
		t.Errorf("unexpected wire diameter %v", f.winder.Settings.Params().WireDiameter)
	}
}

func TestCalc(t *testing.T) {
	f := newFixture(t)
	f.run(t, "BOBBIN 60 4 9", "WIRE_DIA 0.2")
	f.out.Reset()

	f.run(t, "CALC 1000R")

	out := f.out.String()
	for _, want := range []string{"INFO: Required Turns: ", "INFO: Est. DC Resistance: ", "INFO: Wire Length: ", "PARAM: target_turns="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	p := f.winder.Settings.Params()
	if p.TargetTurns <= 0 || p.LastResistance != 1000 {
		t.Errorf("unexpected params after CALC: turns=%d last=%v", p.TargetTurns, p.LastResistance)
	}

	for _, line := range []string{"CALC", "CALC -5R", "CALC OHMS"} {
		if err := f.winder.Dispatcher.Dispatch(f.now, line); err == nil {
			t.Errorf("%q: expected an error", line)
		}
	}
	if f.winder.Settings.Params().TargetTurns != p.TargetTurns {
		t.Error("rejected CALC changed the target")
	}
}

func TestCalcBeyondPulseRange(t *testing.T) {
	f := newFixture(t)
	f.run(t, "BOBBIN 500 500 500", "WIRE_DIA 0.1", "WIND COUNT 5")
	f.out.Reset()

	err := f.winder.Dispatcher.Dispatch(f.now, "CALC 4500K")
	if err == nil {
		t.Fatalf("expected an error, got:\n%s", f.out.String())
	}
	out := f.out.String()
	if !strings.HasPrefix(out, "ERROR: CALC: ") || strings.Contains(out, "Required Turns") {
		t.Errorf("unexpected output:\n%s", out)
	}

	p := f.winder.Settings.Params()
	if p.TargetTurns != 5 || p.LastResistance != 0 {
		t.Errorf("rejected CALC changed params: turns=%d last=%v", p.TargetTurns, p.LastResistance)
	}
}

func TestTargetTurnsBeyondPulseRange(t *testing.T) {
	f := newFixture(t)
	f.run(t, "WIND COUNT 700000")

	if !strings.Contains(f.out.String(), "WARN: target_turns=700000 out of range, using 0\n") {
		t.Errorf("expected a warning, got:\n%s", f.out.String())
	}
	if err := f.winder.Dispatcher.Dispatch(f.now, "WIND START"); !errors.Is(err, winding.ErrNoTarget) {
		t.Errorf("expected ErrNoTarget, got %v", err)
	}

	f.run(t, "WIND COUNT 671088", "WIND START")
	if got := f.winder.Machine.Status().TotalPulses; got != 671088*coilwinder.DefaultPulsesPerRotation {
		t.Errorf("unexpected total pulses %d", got)
	}
}

func TestServoPosRejectsNaN(t *testing.T) {
	f := newFixture(t)
	f.run(t, "SERVO POS 45", "SERVO POS NAN")

	if f.guide.Angle() != 45 {
		t.Errorf("expected the guide to stay at 45, got %v", f.guide.Angle())
	}
	if strings.Contains(f.out.String(), "NaN") {
		t.Errorf("NaN reached the output:\n%s", f.out.String())
	}
	if err := f.winder.Machine.SetGuideAngle(math.NaN()); !errors.Is(err, winding.ErrAngle) {
		t.Errorf("expected ErrAngle, got %v", err)
	}
}

func TestHashIsReported(t *testing.T) {
	f := newFixture(t)
	f.run(t, "WIND COUNT 5")
	f.out.Reset()

	err := f.winder.Dispatcher.Dispatch(f.now, "WIND COUNT #7")
	if !errors.Is(err, commands.ErrInvalidCharacter) {
		t.Errorf("expected ErrInvalidCharacter, got %v", err)
	}
	if !strings.HasPrefix(f.out.String(), "ERROR: ") {
		t.Errorf("unexpected output %q", f.out.String())
	}
	if f.winder.Settings.Params().TargetTurns != 5 {
		t.Error("target changed")
	}
}

func TestWindLifecycle(t *testing.T) {
	f := newFixture(t)
	f.run(t, "WIND COUNT 2", "WIND START")

	if f.winder.Machine.State() != coilwinder.StateRunning {
		t.Fatalf("expected RUNNING, got %s", f.winder.Machine.State())
	}
	f.ticks(1000)
	f.run(t, "WIND PAUSE")
	f.ticks(1000)
	if got := f.stepper.Pulses(); got != 1000 {
		t.Errorf("expected 1000 pulses while paused, got %d", got)
	}

	err := f.winder.Dispatcher.Dispatch(f.now, "WIND PAUSE")
	if !errors.Is(err, winding.ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if !strings.Contains(f.out.String(), "ERROR: WIND PAUSE: not running\n") {
		t.Errorf("expected an error line, got:\n%s", f.out.String())
	}

	f.run(t, "WIND RESUME")
	f.ticks(2 * coilwinder.DefaultPulsesPerRotation)

	if f.winder.Machine.State() != coilwinder.StateDone {
		t.Errorf("expected DONE, got %s", f.winder.Machine.State())
	}
	if got := f.stepper.Pulses(); got != 2*coilwinder.DefaultPulsesPerRotation {
		t.Errorf("expected %d pulses, got %d", 2*coilwinder.DefaultPulsesPerRotation, got)
	}
	if f.stepper.Enabled() || f.guide.Enabled() {
		t.Error("expected outputs disabled")
	}
}

func TestLegacyAliases(t *testing.T) {
	f := newFixture(t)
	f.run(t, "COUNT 3", "S 2000", "DIR REV", "CALIBRATE_SERVO 60 120", "START -V")

	p := f.winder.Settings.Params()
	if p.TargetTurns != 3 || p.Motion.MinDelay != 500*time.Microsecond || p.Direction != coilwinder.Reverse {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.Guide.Min != 60 || p.Guide.Max != 120 {
		t.Errorf("unexpected guide range: %v..%v", p.Guide.Min, p.Guide.Max)
	}
	if f.guide.Angle() != 60 {
		t.Errorf("expected guide at the start angle, got %v", f.guide.Angle())
	}

	f.ticks(coilwinder.DefaultPulsesPerRotation)
	if !strings.Contains(f.out.String(), "STATUS:  -> Turn: 1 | Servo Pos: ") {
		t.Errorf("expected verbose progress, got:\n%s", f.out.String())
	}
	if f.stepper.Position() != -coilwinder.DefaultPulsesPerRotation {
		t.Errorf("expected reverse rotation, got position %d", f.stepper.Position())
	}

	f.run(t, "STOP")
	if f.winder.Machine.State() != coilwinder.StateIdle {
		t.Errorf("expected IDLE, got %s", f.winder.Machine.State())
	}
}

func TestSweepCommands(t *testing.T) {
	f := newFixture(t)

	f.run(t, "WIND SWEEP HOST")
	if f.winder.Settings.Params().Guide.Sweep != (guide.Host{}) {
		t.Errorf("expected HOST sweep, got %v", f.winder.Settings.Params().Guide.Sweep)
	}

	f.run(t, "WIND PATTERN 75 95 20 10")
	expected := guide.Pattern{Overlay: guide.Layout{Min: 75, Max: 95, TurnsPerLayer: 20, Scatter: 10}}
	if f.winder.Settings.Params().Guide.Sweep != expected {
		t.Errorf("expected %v, got %v", expected, f.winder.Settings.Params().Guide.Sweep)
	}
	if !strings.Contains(f.out.String(), "PARAM: sweep=PATTERN min=75 max=95 tpl=20 scatter=10%\n") {
		t.Errorf("unexpected output:\n%s", f.out.String())
	}

	f.run(t, "WIND SCATTER 5")
	expected.Overlay.Scatter = 5
	if f.winder.Settings.Params().Guide.Sweep != expected {
		t.Errorf("expected %v, got %v", expected, f.winder.Settings.Params().Guide.Sweep)
	}

	if err := f.winder.Dispatcher.Dispatch(f.now, "WIND SWEEP SIDEWAYS"); !errors.Is(err, commands.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestServoAndStepper(t *testing.T) {
	f := newFixture(t)

	f.run(t, "SERVO POS 42", "STEPPER ENABLE")
	if f.guide.Angle() != 42 || !f.guide.Enabled() || !f.stepper.Enabled() {
		t.Errorf("unexpected actuators: angle=%v guide=%t stepper=%t", f.guide.Angle(), f.guide.Enabled(), f.stepper.Enabled())
	}
	if err := f.winder.Dispatcher.Dispatch(f.now, "SERVO POS 200"); !errors.Is(err, winding.ErrAngle) {
		t.Errorf("expected ErrAngle, got %v", err)
	}

	f.run(t, "SERVO DISABLE", "STEPPER DISABLE")
	if f.guide.Enabled() || f.stepper.Enabled() {
		t.Error("expected actuators disabled")
	}

	f.run(t, "STEPPER MOVE 100")
	f.ticks(100)
	if f.stepper.Position() != 100 || f.winder.Machine.State() != coilwinder.StateDone {
		t.Errorf("unexpected move: position=%d state=%s", f.stepper.Position(), f.winder.Machine.State())
	}

	f.run(t, "TEST_STEPPER_MOVE -50")
	f.ticks(50)
	if f.stepper.Position() != 50 {
		t.Errorf("unexpected position %d", f.stepper.Position())
	}
}

func TestDiagnosticsRefusedWhileWinding(t *testing.T) {
	f := newFixture(t)
	f.run(t, "WIND COUNT 5", "WIND START")

	for _, line := range []string{"TEST_LAYER", "TEST_STEPPER", "TEST_STEPPER_MOVE 10", "RESTORE_DEFAULTS", "STEPPER DISABLE"} {
		err := f.winder.Dispatcher.Dispatch(f.now, line)
		if !errors.Is(err, winding.ErrBusy) {
			t.Errorf("%q: expected ErrBusy, got %v", line, err)
		}
	}
}

func TestTestLayerSetsSpeed(t *testing.T) {
	f := newFixture(t)
	f.run(t, "BOBBIN 60 4 9", "WIRE_DIA 0.2", "TEST_LAYER 1000")

	s := f.winder.Machine.Status()
	if s.Job != winding.JobLayerTest || s.TotalPulses != 45*coilwinder.DefaultPulsesPerRotation {
		t.Errorf("unexpected job: %+v", s)
	}
	if f.winder.Settings.Params().Motion.MinDelay != time.Millisecond {
		t.Errorf("unexpected min delay %s", f.winder.Settings.Params().Motion.MinDelay)
	}
}

func TestSaveLoadAndRestoreDefaults(t *testing.T) {
	f := newFixture(t)
	f.run(t, "WIRE_DIA 0.3", "SYS TIMEOUT 60", "SYS SAVE", "WIRE_DIA 0.4", "SYS LOAD")

	if f.winder.Settings.Params().WireDiameter != 0.3 || f.winder.Settings.Params().Timeout != time.Minute {
		t.Errorf("expected saved values back, got %+v", f.winder.Settings.Params())
	}

	f.run(t, "RESTORE_DEFAULTS")
	if f.winder.Settings.Params() != config.Defaults() {
		t.Errorf("expected defaults, got %+v", f.winder.Settings.Params())
	}

	f.run(t, "WIRE_DIA 0.5", "RESET_EEPROM")
	if f.winder.Settings.Params().WireDiameter != config.DefaultWireDiameter {
		t.Error("RESET_EEPROM did not restore defaults")
	}
}

func TestStatusAndHelp(t *testing.T) {
	f := newFixture(t)
	f.run(t, "STATUS")
	for _, want := range []string{"STATUS: State: IDLE\n", "PARAM: wire_dia=0.063\n", "PARAM: servo_min=70.000\n", "PARAM: sweep=FIRMWARE\n"} {
		if !strings.Contains(f.out.String(), want) {
			t.Errorf("expected %q in:\n%s", want, f.out.String())
		}
	}

	f.out.Reset()
	f.run(t, "SYS HELP")
	lines := strings.Count(f.out.String(), "INFO: ")
	if lines != len(f.winder.Dispatcher.Commands())+1 {
		t.Errorf("expected a line per command, got %d", lines)
	}

	f.out.Reset()
	f.run(t, "SYS VERSION")
	if f.out.String() != "INFO: Coil winder firmware v"+coilwinder.Version+"\n" {
		t.Errorf("unexpected version line %q", f.out.String())
	}
}

func TestSysReset(t *testing.T) {
	var resets int
	f := newFixture(t)
	f.winder = commands.New(sim.Hardware(f.stepper, f.guide, f.store), f.out, commands.WithReset(func() { resets++ }))

	f.run(t, "WIND COUNT 2", "WIND START", "SYS RESET")
	if resets != 1 {
		t.Errorf("expected reset hook to run once, got %d", resets)
	}
	if f.winder.Machine.State() != coilwinder.StateIdle {
		t.Errorf("expected IDLE, got %s", f.winder.Machine.State())
	}
}

func TestAcceptedCommandsResetTimeout(t *testing.T) {
	f := newFixture(t)
	f.run(t, "SYS TIMEOUT 10", "WIND COUNT 50", "WIND START")

	f.now = epoch.Add(8 * time.Second)
	f.run(t, "SYS VERSION")
	_ = f.winder.Dispatcher.Dispatch(f.now, "NOT A COMMAND")

	if f.winder.Supervisor.Check(epoch.Add(15 * time.Second)) {
		t.Fatal("supervisor fired although a command was accepted at 8s")
	}
	if !f.winder.Supervisor.Check(epoch.Add(19 * time.Second)) {
		t.Fatal("expected supervisor to fire 10s after the last accepted command")
	}
	if f.winder.Machine.State() != coilwinder.StateIdle || f.stepper.Enabled() {
		t.Error("expected the job abandoned with outputs off")
	}
}

type bufferSource struct {
	data []byte
}

func (b *bufferSource) Buffered() int { return len(b.data) }

func (b *bufferSource) ReadByte() (byte, error) {
	c := b.data[0]
	b.data = b.data[1:]
	return c, nil
}

func TestLoopHandlesOneLinePerIteration(t *testing.T) {
	f := newFixture(t)
	src := &bufferSource{data: []byte("sys version\nwind count 1\nwind start\n")}
	loop := commands.NewLoop(f.winder, src)

	loop.Iterate(f.now)
	if strings.Count(f.out.String(), "\n") != 1 {
		t.Errorf("expected one response after one iteration, got:\n%s", f.out.String())
	}

	loop.Iterate(f.now)
	loop.Iterate(f.now)
	if f.winder.Machine.State() != coilwinder.StateRunning {
		t.Fatalf("expected RUNNING, got %s", f.winder.Machine.State())
	}
	if f.stepper.Pulses() != 1 {
		t.Errorf("expected the iteration that started the job to tick once, got %d pulses", f.stepper.Pulses())
	}

	for loop.Iterate(f.now) {
	}
	if f.winder.Machine.State() != coilwinder.StateDone {
		t.Errorf("expected DONE, got %s", f.winder.Machine.State())
	}
}

func TestLoopRunUntilSourceEnds(t *testing.T) {
	f := newFixture(t)
	loop := commands.NewLoop(f.winder, sim.NewSource(strings.NewReader("WIND COUNT 2\nWIND START\n")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(f.out.String(), "STATUS: Winding complete: 2 turns\n") {
		t.Errorf("expected completion, got:\n%s", f.out.String())
	}
}
