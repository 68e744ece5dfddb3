package winding

import (
	"time"

	"github.com/calvinmclean/coilwinder/log"
)

// Supervisor cuts the outputs when no command has been accepted for longer than the configured
// timeout. A zero timeout disables it.
type Supervisor struct {
	machine  *Machine
	settings Settings
	logger   log.Logger
	last     time.Time
}

// NewSupervisor creates a Supervisor whose clock starts at now
func NewSupervisor(m *Machine, settings Settings, now time.Time, logger log.Logger) *Supervisor {
	return &Supervisor{
		machine:  m,
		settings: settings,
		logger:   log.OrNoop(logger),
		last:     now,
	}
}

// Touch records an accepted command
func (s *Supervisor) Touch(now time.Time) {
	s.last = now
}

// Check aborts the machine if the timeout has elapsed while outputs are enabled. It returns
// true when it fired.
func (s *Supervisor) Check(now time.Time) bool {
	limit := s.settings.Params().Timeout
	if limit <= 0 || !s.machine.OutputsEnabled() {
		return false
	}
	idle := now.Sub(s.last)
	if idle <= limit {
		return false
	}

	s.logger.Warn("safety timeout", log.Duration("idle", idle), log.Duration("limit", limit))
	s.machine.Abort("Safety timeout")
	return true
}
