// Package log is the logging interface used by the winder core
//
// Core packages only depend on the Logger interface so the same code runs on the
// microcontroller (where a println logger is plugged in) and on a workstation
// (where the zerolog adapter is used)
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Tests use the no-op logger:
//
//	logger := log.NewNoopLogger()
package log
