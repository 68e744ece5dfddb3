package sim

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/coilwinder"
)

func TestStepper(t *testing.T) {
	s := NewStepper(false)

	s.Pulse(time.Millisecond)
	if s.Pulses() != 0 {
		t.Error("disabled stepper moved")
	}

	s.Enable()
	for i := 0; i < 10; i++ {
		s.Pulse(time.Millisecond)
	}
	s.SetDirection(coilwinder.Reverse)
	for i := 0; i < 4; i++ {
		s.Pulse(time.Millisecond)
	}

	if s.Position() != 6 || s.Pulses() != 14 {
		t.Errorf("unexpected position %d after %d pulses", s.Position(), s.Pulses())
	}
	if s.Elapsed() != 14*time.Millisecond {
		t.Errorf("unexpected elapsed %s", s.Elapsed())
	}
}

func TestGuide(t *testing.T) {
	g := NewGuide(90)
	if err := g.SetAngle(181); err == nil {
		t.Error("expected error outside travel")
	}
	if err := g.SetAngle(45); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Angle() != 45 || g.Moves() != 1 {
		t.Errorf("unexpected guide %+v", g)
	}
}

func TestSource(t *testing.T) {
	s := NewSource(strings.NewReader("AB"))

	var got []byte
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.Buffered() == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		b, err := s.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		got = append(got, b)
	}

	if string(got) != "AB" {
		t.Errorf("expected AB, got %q", got)
	}
	if s.Err() != nil {
		t.Errorf("unexpected error %v", s.Err())
	}
}
