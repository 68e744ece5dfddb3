package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/calvinmclean/coilwinder/guide"
)

const (
	recordVersion = 1
	headerSize    = 3
	trailerSize   = 2

	// Erased is the byte an erased store reads back as
	Erased = 0xFF
)

var recordMagic = [2]byte{'C', 'W'}

// ErrRecordCorrupt is returned when a stored record has a bad header, size or checksum
var ErrRecordCorrupt = errors.New("persisted record corrupt")

// field is one entry of the persisted layout. offset is filled in by newSchema.
type field struct {
	name   string
	width  int
	offset int
	put    func(b []byte, p *Params, mode byte)
	get    func(b []byte, p *Params) byte
}

// Schema is the ordered persisted layout
type Schema struct {
	fields []field
	size   int
}

func newSchema(fields ...field) *Schema {
	s := &Schema{fields: fields, size: headerSize}
	for i := range s.fields {
		s.fields[i].offset = s.size
		s.size += s.fields[i].width
	}
	s.size += trailerSize
	return s
}

// Size is the number of bytes a full record occupies, including header and checksum
func (s *Schema) Size() int {
	return s.size
}

// Fields lists the field names in persisted order
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.name)
	}
	return names
}

// Encode serializes the persisted subset of p
func (s *Schema) Encode(p Params) []byte {
	b := make([]byte, s.size)
	copy(b, recordMagic[:])
	b[2] = recordVersion

	mode := byte(guide.ModeFirmware)
	if p.Guide.Sweep != nil {
		mode = byte(p.Guide.Sweep.Mode())
	}
	for _, f := range s.fields {
		f.put(b[f.offset:f.offset+f.width], &p, mode)
	}

	sum := crc16(b[:s.size-trailerSize])
	binary.LittleEndian.PutUint16(b[s.size-trailerSize:], sum)
	return b
}

// Decode checks the header and checksum and then reads every field. The returned Params
// are not validated; the raw sweep mode byte is returned alongside.
func (s *Schema) Decode(b []byte) (Params, byte, error) {
	if len(b) < s.size {
		return Params{}, 0, fmt.Errorf("%w: short record: %d < %d bytes", ErrRecordCorrupt, len(b), s.size)
	}
	b = b[:s.size]
	if b[0] != recordMagic[0] || b[1] != recordMagic[1] {
		return Params{}, 0, fmt.Errorf("%w: bad magic %#x%02x", ErrRecordCorrupt, b[0], b[1])
	}
	if b[2] != recordVersion {
		return Params{}, 0, fmt.Errorf("%w: unsupported version %d", ErrRecordCorrupt, b[2])
	}
	want := binary.LittleEndian.Uint16(b[s.size-trailerSize:])
	if got := crc16(b[:s.size-trailerSize]); got != want {
		return Params{}, 0, fmt.Errorf("%w: checksum %#04x, expected %#04x", ErrRecordCorrupt, got, want)
	}
	p, mode := s.decodeFields(b)
	return p, mode, nil
}

// erased decodes the fields of a store that reads back as all Erased bytes
func (s *Schema) erased() (Params, byte) {
	b := make([]byte, s.size)
	for i := range b {
		b[i] = Erased
	}
	return s.decodeFields(b)
}

func (s *Schema) decodeFields(b []byte) (Params, byte) {
	p := Defaults()
	var mode byte
	for _, f := range s.fields {
		if m := f.get(b[f.offset:f.offset+f.width], &p); f.name == "sweep_mode" {
			mode = m
		}
	}
	return p, mode
}

func float64Field(name string, ptr func(*Params) *float64) field {
	return field{
		name:  name,
		width: 8,
		put: func(b []byte, p *Params, _ byte) {
			binary.LittleEndian.PutUint64(b, math.Float64bits(*ptr(p)))
		},
		get: func(b []byte, p *Params) byte {
			*ptr(p) = math.Float64frombits(binary.LittleEndian.Uint64(b))
			return 0
		},
	}
}

func durationField(name string, unit time.Duration, ptr func(*Params) *time.Duration) field {
	return field{
		name:  name,
		width: 4,
		put: func(b []byte, p *Params, _ byte) {
			binary.LittleEndian.PutUint32(b, uint32(*ptr(p)/unit))
		},
		get: func(b []byte, p *Params) byte {
			*ptr(p) = time.Duration(binary.LittleEndian.Uint32(b)) * unit
			return 0
		},
	}
}

func intField(name string, ptr func(*Params) *int) field {
	return field{
		name:  name,
		width: 4,
		put: func(b []byte, p *Params, _ byte) {
			binary.LittleEndian.PutUint32(b, uint32(*ptr(p)))
		},
		get: func(b []byte, p *Params) byte {
			*ptr(p) = int(binary.LittleEndian.Uint32(b))
			return 0
		},
	}
}

func modeField(name string) field {
	return field{
		name:  name,
		width: 1,
		put: func(b []byte, _ *Params, mode byte) {
			b[0] = mode
		},
		get: func(b []byte, _ *Params) byte {
			return b[0]
		},
	}
}

// Record is the persisted layout, in storage order
var Record = newSchema(
	float64Field("guide_min", func(p *Params) *float64 { return &p.Guide.Min }),
	float64Field("guide_max", func(p *Params) *float64 { return &p.Guide.Max }),
	float64Field("wire_dia", func(p *Params) *float64 { return &p.WireDiameter }),
	durationField("initial_delay_us", time.Microsecond, func(p *Params) *time.Duration { return &p.Motion.InitialDelay }),
	durationField("timeout_s", time.Second, func(p *Params) *time.Duration { return &p.Timeout }),
	intField("ramp_pulses", func(p *Params) *int { return &p.Motion.RampPulses }),
	float64Field("bobbin_length", func(p *Params) *float64 { return &p.Bobbin.Length }),
	float64Field("bobbin_width", func(p *Params) *float64 { return &p.Bobbin.Width }),
	float64Field("bobbin_height", func(p *Params) *float64 { return &p.Bobbin.Height }),
	float64Field("last_resistance", func(p *Params) *float64 { return &p.LastResistance }),
	modeField("sweep_mode"),
)

// sweepFromMode maps a persisted mode byte back to a sweep. Only FIRMWARE and HOST are
// restorable; anything else, PATTERN included, falls back to FIRMWARE.
func sweepFromMode(mode byte) (guide.Sweep, bool) {
	switch guide.Mode(mode) {
	case guide.ModeFirmware:
		return guide.Firmware{}, true
	case guide.ModeHost:
		return guide.Host{}, true
	}
	return guide.Firmware{}, false
}
