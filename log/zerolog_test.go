//go:build !tinygo

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Warn("value reset",
		String("field", "wire_dia"),
		Int("turns", 45),
		Float64("value", 0.2),
		Field{Key: "saved", Value: false},
		Duration("timeout", 2*time.Second),
		Err(errors.New("boom")),
	)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error decoding log line %q: %v", buf.String(), err)
	}

	tests := []struct {
		key      string
		expected any
	}{
		{"level", "warn"},
		{"message", "value reset"},
		{"field", "wire_dia"},
		{"turns", float64(45)},
		{"value", 0.2},
		{"saved", false},
		{"error", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got[tt.key] != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.key, tt.expected, got[tt.key])
			}
		})
	}
}

func TestNewConsoleLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(NewConsoleLogger(&buf, "warn"))

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}

	l.Error("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("expected error line, got %q", buf.String())
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("expected NoopLogger for nil input")
	}
	z := NewZerologAdapterWithLogger(zerolog.Nop())
	if OrNoop(z) != Logger(z) {
		t.Error("expected logger to be returned unchanged")
	}
}
