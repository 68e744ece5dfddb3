package sim

import (
	"errors"
	"io"
	"sync/atomic"
)

// ErrNoData is returned by ReadByte when nothing is buffered
var ErrNoData = errors.New("no data buffered")

const sourceBuffer = 4096

// Source adapts a blocking io.Reader into the non-blocking byte source the control loop polls
type Source struct {
	ch     chan byte
	closed atomic.Bool
	err    atomic.Value
}

// NewSource starts reading r in the background until it returns an error
func NewSource(r io.Reader) *Source {
	s := &Source{ch: make(chan byte, sourceBuffer)}
	go s.read(r)
	return s
}

func (s *Source) read(r io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			s.ch <- b
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err.Store(err)
			}
			s.closed.Store(true)
			close(s.ch)
			return
		}
	}
}

// Buffered is the number of bytes ready. A finished reader reports one pending byte so the
// caller observes io.EOF.
func (s *Source) Buffered() int {
	if n := len(s.ch); n > 0 {
		return n
	}
	if s.closed.Load() {
		return 1
	}
	return 0
}

// ReadByte never blocks
func (s *Source) ReadByte() (byte, error) {
	select {
	case b, ok := <-s.ch:
		if !ok {
			return 0, io.EOF
		}
		return b, nil
	default:
		return 0, ErrNoData
	}
}

// Err is the read error that ended the source, nil for a clean EOF
func (s *Source) Err() error {
	if err, ok := s.err.Load().(error); ok {
		return err
	}
	return nil
}
