package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String()
}

func TestCalc(t *testing.T) {
	out := execute(t, "", "calc", "1K", "--log-level", "error")

	for _, expected := range []string{"Required Turns:", "Wire Length:"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected %q in output:\n%s", expected, out)
		}
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Turns/Layer:") {
			fields := strings.Fields(line)
			if fields[len(fields)-1] != "142" {
				t.Errorf("expected 142 turns per layer, got %q", line)
			}
			return
		}
	}
	t.Errorf("no turns per layer in output:\n%s", out)
}

func TestSim(t *testing.T) {
	store := filepath.Join(t.TempDir(), "params.bin")
	out := execute(t, "WIND COUNT 2\nWIND START\n", "sim", "--store-path", store, "--log-level", "error")

	for _, expected := range []string{
		"INFO: Coil winder v",
		"PARAM: target_turns=2",
		"STATUS: Winding complete: 2 turns",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected %q in output:\n%s", expected, out)
		}
	}
}
