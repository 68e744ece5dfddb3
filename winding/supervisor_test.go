package winding

import (
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/coilwinder"
)

func TestSupervisor(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		timeout  time.Duration
		touch    time.Duration
		check    time.Duration
		start    bool
		expected bool
	}{
		{"FiresAfterLimit", time.Second, 0, 2 * time.Second, true, true},
		{"WithinLimit", time.Second, 0, 500 * time.Millisecond, true, false},
		{"TouchResetsClock", time.Second, 1500 * time.Millisecond, 2 * time.Second, true, false},
		{"Disabled", 0, 0, time.Hour, true, false},
		{"OutputsAlreadyOff", time.Second, 0, 2 * time.Second, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100)
			f.settings.SetTimeout(tt.timeout)
			f.settings.SetTargetTurns(5)
			if tt.start {
				if err := f.machine.Start(false); err != nil {
					t.Fatalf("unexpected error starting: %v", err)
				}
			}

			s := NewSupervisor(f.machine, f.settings, start, nil)
			if tt.touch > 0 {
				s.Touch(start.Add(tt.touch))
			}

			fired := s.Check(start.Add(tt.check))
			if fired != tt.expected {
				t.Fatalf("expected fired=%t, got %t", tt.expected, fired)
			}
			if !fired {
				return
			}

			if f.machine.State() != coilwinder.StateIdle || f.machine.OutputsEnabled() {
				t.Errorf("expected IDLE with outputs off, got %s", f.machine.State())
			}
			if !strings.Contains(f.out.String(), "STATUS: Safety timeout") {
				t.Errorf("expected a status line, got:\n%s", f.out.String())
			}
			if s.Check(start.Add(tt.check + time.Hour)) {
				t.Error("expected no second abort with outputs off")
			}
		})
	}
}

func TestSupervisorCutsManualGuide(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, 100)
	f.settings.SetTimeout(10 * time.Second)

	if err := f.machine.SetGuideAngle(90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewSupervisor(f.machine, f.settings, start, nil)
	if !s.Check(start.Add(11 * time.Second)) {
		t.Fatal("expected the supervisor to fire")
	}
	if f.guide.enabled {
		t.Error("expected guide disabled")
	}
}
