package commands

import (
	"errors"
	"strings"
)

// MaxLineLength bounds a single command line; longer lines are discarded
const MaxLineLength = 128

// ErrLineTooLong is returned once for every discarded line
var ErrLineTooLong = errors.New("line too long")

// ByteSource is the transport. Buffered must not block.
type ByteSource interface {
	Buffered() int
	ReadByte() (byte, error)
}

// LineReader assembles raw bytes into upper-cased command lines
type LineReader struct {
	buf      []byte
	overflow bool
}

// NewLineReader creates an empty LineReader
func NewLineReader() *LineReader {
	return &LineReader{buf: make([]byte, 0, MaxLineLength)}
}

// Feed adds one byte. It returns the line when b terminates a non-empty one.
func (r *LineReader) Feed(b byte) (string, bool, error) {
	switch b {
	case '\r':
		return "", false, nil
	case '\n':
		if r.overflow {
			r.overflow = false
			r.buf = r.buf[:0]
			return "", false, ErrLineTooLong
		}
		line := strings.TrimSpace(strings.ToUpper(string(r.buf)))
		r.buf = r.buf[:0]
		return line, line != "", nil
	}

	if r.overflow {
		return "", false, nil
	}
	if len(r.buf) >= MaxLineLength {
		r.overflow = true
		return "", false, nil
	}
	r.buf = append(r.buf, b)
	return "", false, nil
}
